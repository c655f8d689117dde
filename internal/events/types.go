package events

import "github.com/smazurov/sdinode/internal/media"

// Event type constants for kelindar/event.
const (
	TypeMedia uint32 = iota + 1
	TypeDeviceArrived
	TypeDeviceDeparted
	TypePlayerState
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// MediaEvent is a player lifecycle notification.
type MediaEvent struct {
	Player    string      `json:"player" example:"a3f0c1d2" doc:"Player session identifier"`
	Event     media.Event `json:"-"`
	Name      string      `json:"event" example:"MediaOpened" doc:"Event name"`
	Timestamp string      `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for MediaEvent.
func (e MediaEvent) Type() uint32 { return TypeMedia }

// DeviceArrivedEvent is published when a capture device is registered.
type DeviceArrivedEvent struct {
	ID           uint8  `json:"id" example:"0" doc:"Device identifier"`
	Name         string `json:"name" example:"Simulated SDI 1" doc:"Device display name"`
	PersistentID string `json:"persistent_id" example:"testpattern-0" doc:"Hardware identifier stable across rescans"`
	URL          string `json:"url" example:"sdi://1" doc:"Selector that opens this device"`
	Timestamp    string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for DeviceArrivedEvent.
func (e DeviceArrivedEvent) Type() uint32 { return TypeDeviceArrived }

// DeviceDepartedEvent is published when a capture device disappears.
type DeviceDepartedEvent struct {
	ID           uint8  `json:"id" example:"0" doc:"Device identifier"`
	PersistentID string `json:"persistent_id" example:"testpattern-0" doc:"Hardware identifier"`
	Timestamp    string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for DeviceDepartedEvent.
func (e DeviceDepartedEvent) Type() uint32 { return TypeDeviceDeparted }

// PlayerStateEvent is published when a player's lifecycle state changes.
type PlayerStateEvent struct {
	Player    string `json:"player" example:"a3f0c1d2" doc:"Player session identifier"`
	URL       string `json:"url,omitempty" example:"sdi://1" doc:"Open selector"`
	State     string `json:"state" example:"playing" doc:"New state"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for PlayerStateEvent.
func (e PlayerStateEvent) Type() uint32 { return TypePlayerState }
