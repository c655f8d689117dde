package nats

import (
	"encoding/json"
	"fmt"

	"github.com/smazurov/sdinode/internal/player"
)

// Subject prefixes for NATS topics.
const (
	SubjectPlayerPrefix  = "sdinode.player"
	SubjectDevicesPrefix = "sdinode.devices"
	SubjectControlPrefix = "sdinode.control"
)

// Device subjects.
const (
	SubjectDeviceArrived  = SubjectDevicesPrefix + ".arrived"
	SubjectDeviceDeparted = SubjectDevicesPrefix + ".departed"
)

// SubjectPlayerState returns the subject for a player's state changes.
func SubjectPlayerState(playerID string) string {
	return fmt.Sprintf("%s.%s.state", SubjectPlayerPrefix, playerID)
}

// SubjectPlayerMedia returns the subject for a player's lifecycle events.
func SubjectPlayerMedia(playerID string) string {
	return fmt.Sprintf("%s.%s.media", SubjectPlayerPrefix, playerID)
}

// SubjectControl returns the request subject for a player.
func SubjectControl(playerID string) string {
	return fmt.Sprintf("%s.%s", SubjectControlPrefix, playerID)
}

// Control actions.
const (
	ActionOpen   = "open"
	ActionClose  = "close"
	ActionRate   = "rate"
	ActionTrack  = "track"
	ActionStatus = "status"
)

// Reply codes.
const (
	CodeBadRequest  = "bad_request"
	CodeInvalidURL  = "invalid_url"
	CodeNotFound    = "not_found"
	CodeUnsupported = "unsupported"
	CodeBusy        = "busy"
	CodeUnavailable = "unavailable"
	CodeError       = "error"
)

// ControlMessage is a player control request.
type ControlMessage struct {
	Action string  `json:"action"` // open, close, rate, track, status
	URL    string  `json:"url,omitempty"`
	Rate   float64 `json:"rate,omitempty"`
	Index  int     `json:"index,omitempty"`
}

// Marshal serializes the message to JSON.
func (m ControlMessage) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// UnmarshalControl deserializes a ControlMessage from JSON.
func UnmarshalControl(data []byte) (ControlMessage, error) {
	var m ControlMessage
	err := json.Unmarshal(data, &m)
	return m, err
}

// ControlReply answers a ControlMessage. Stats is the player snapshot after
// the action, present whenever the player could be read.
type ControlReply struct {
	OK    bool          `json:"ok"`
	Code  string        `json:"code,omitempty"`
	Error string        `json:"error,omitempty"`
	Stats *player.Stats `json:"stats,omitempty"`
}

// Marshal serializes the reply to JSON.
func (r ControlReply) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

// UnmarshalReply deserializes a ControlReply from JSON.
func UnmarshalReply(data []byte) (ControlReply, error) {
	var r ControlReply
	err := json.Unmarshal(data, &r)
	return r, err
}
