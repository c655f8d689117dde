package player

import (
	"io"
	"time"

	"github.com/smazurov/sdinode/internal/media"
)

// Controls is the playback control surface.
type Controls interface {
	CanControl(media.Control) bool
	Duration() time.Duration
	Rate() float64
	State() media.State
	Status() media.Status
	SupportedRates() []float64
	Time() time.Duration
	IsLooping() bool
	Seek(time.Duration) error
	SetLooping(bool) error
	SetRate(float64) error
}

// Tracks is the track enumeration and selection surface.
type Tracks interface {
	NumTracks(media.TrackType) int
	NumTrackFormats(media.TrackType, int) int
	SelectedTrack(media.TrackType) int
	SelectTrack(media.TrackType, int) error
	TrackFormat(media.TrackType, int) int
	SetTrackFormat(media.TrackType, int, int) error
	TrackDisplayName(media.TrackType, int) string
	TrackLanguage(media.TrackType, int) string
	TrackName(media.TrackType, int) string
	VideoTrackFormat(int, int) (media.VideoTrackFormat, error)
	AudioTrackFormat(int, int) error
}

// SampleProducer is driven once per output frame by the host.
type SampleProducer interface {
	TickInput(delta time.Duration)
	TickFetch(delta time.Duration)
}

// MediaPlayer is the open/close surface.
type MediaPlayer interface {
	Name() string
	URL() string
	Info() string
	Open(url string, opts media.Options) error
	OpenArchive(r io.Reader, url string, opts media.Options) error
	Close()
}

var (
	_ Controls       = (*Player)(nil)
	_ Tracks         = (*Player)(nil)
	_ SampleProducer = (*Player)(nil)
	_ MediaPlayer    = (*Player)(nil)
)
