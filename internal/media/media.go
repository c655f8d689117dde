// Package media defines the contracts between a player and the playback
// host: states, events, tracks, and the sinks a player writes to.
package media

import (
	"time"

	"github.com/smazurov/sdinode/internal/frame"
)

// State is the player lifecycle state.
type State int

const (
	StateClosed State = iota
	StatePreparing
	StateStopped
	StatePlaying
	StatePaused
	StateError
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StatePreparing:
		return "preparing"
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Status is an additional hint alongside State.
type Status int

const (
	StatusNone Status = iota
	StatusConnecting
)

func (s Status) String() string {
	if s == StatusConnecting {
		return "connecting"
	}
	return "none"
}

// Event is a payload-free notification sent to an EventSink.
type Event int

const (
	EventTracksChanged Event = iota + 1
	EventMediaOpened
	EventMediaClosed
	EventPlaybackResumed
	EventPlaybackSuspended
)

func (e Event) String() string {
	switch e {
	case EventTracksChanged:
		return "TracksChanged"
	case EventMediaOpened:
		return "MediaOpened"
	case EventMediaClosed:
		return "MediaClosed"
	case EventPlaybackResumed:
		return "PlaybackResumed"
	case EventPlaybackSuspended:
		return "PlaybackSuspended"
	default:
		return "Unknown"
	}
}

// TrackType selects a family of tracks.
type TrackType int

const (
	TrackAudio TrackType = iota
	TrackCaption
	TrackMetadata
	TrackVideo
)

func (t TrackType) String() string {
	switch t {
	case TrackAudio:
		return "audio"
	case TrackCaption:
		return "caption"
	case TrackMetadata:
		return "metadata"
	case TrackVideo:
		return "video"
	default:
		return "unknown"
	}
}

// IndexNone means no track or format is selected.
const IndexNone = -1

// Control is a playback control a host may query with CanControl.
type Control int

const (
	ControlPause Control = iota
	ControlResume
	ControlSeek
	ControlScrub
)

// SampleFormat is the pixel layout of a video sample.
type SampleFormat int

const (
	SampleFormatUndefined SampleFormat = iota
	SampleFormatCharBGRA
	SampleFormatCharUYVY
)

func (f SampleFormat) String() string {
	switch f {
	case SampleFormatCharBGRA:
		return "BGRA"
	case SampleFormatCharUYVY:
		return "UYVY"
	default:
		return "undefined"
	}
}

// Dim is a width and height pair.
type Dim struct {
	X, Y int
}

// EventSink receives player events in emission order.
type EventSink interface {
	ReceiveMediaEvent(Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(Event)

// ReceiveMediaEvent implements EventSink.
func (f EventSinkFunc) ReceiveMediaEvent(e Event) { f(e) }

// SampleSink receives video samples. Ownership of the sample passes to the
// sink, which must Release it when done.
type SampleSink interface {
	AddVideo(*VideoSample)
}

// Options is the per-open configuration. It is accepted and ignored by
// players that have nothing to configure.
type Options interface {
	Bool(key string, def bool) bool
	String(key string, def string) string
}

// VideoTrackFormat describes a video track's current format.
type VideoTrackFormat struct {
	Dim        Dim
	FrameRate  float64
	FrameRates [2]float64
	TypeName   string
}

// VideoSample is one captured frame with its presentation time.
type VideoSample struct {
	Frame    *frame.Buffer
	Format   SampleFormat
	Time     time.Duration
	Duration time.Duration

	release func(*frame.Buffer)
}

// NewVideoSample wraps buf. release, when non-nil, is called once by Release.
func NewVideoSample(buf *frame.Buffer, format SampleFormat, t, d time.Duration, release func(*frame.Buffer)) *VideoSample {
	return &VideoSample{Frame: buf, Format: format, Time: t, Duration: d, release: release}
}

// Buffer returns the pixel payload.
func (s *VideoSample) Buffer() []byte { return s.Frame.Data() }

// Dim is the buffer size in pixels including row padding.
func (s *VideoSample) Dim() Dim {
	return Dim{X: s.Frame.RowBytes() / frame.BytesPerPixel, Y: s.Frame.Height()}
}

// OutputDim is the visible image size.
func (s *VideoSample) OutputDim() Dim {
	return Dim{X: s.Frame.Width(), Y: s.Frame.Height()}
}

// Stride is the row length in bytes.
func (s *VideoSample) Stride() int { return s.Frame.RowBytes() }

// IsCacheable reports whether a host may keep the sample in a cache.
func (s *VideoSample) IsCacheable() bool { return true }

// IsOutputSRGB reports whether pixels are sRGB encoded.
func (s *VideoSample) IsOutputSRGB() bool { return true }

// Release hands the buffer back. Calling it more than once is a no-op.
func (s *VideoSample) Release() {
	if s.release != nil && s.Frame != nil {
		s.release(s.Frame)
	}
	s.release = nil
	s.Frame = nil
}
