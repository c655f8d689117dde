// Package player turns a capture device into a polled, timestamped sample
// stream with an open/close and play/pause lifecycle.
//
// Open, Close, SetRate, SelectTrack, TickInput and TickFetch must all be
// called from one goroutine at a time; the playback driver provides that.
// The capture goroutine only touches the device's latest-frame cell and the
// frame observer.
package player

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/smazurov/sdinode/internal/capture"
	"github.com/smazurov/sdinode/internal/frame"
	"github.com/smazurov/sdinode/internal/hardware"
	"github.com/smazurov/sdinode/internal/logging"
	"github.com/smazurov/sdinode/internal/media"
	"github.com/smazurov/sdinode/internal/metrics"
)

// Name identifies this player implementation to hosts.
const Name = "SDIMedia"

var (
	// ErrNotFound is returned when a selector resolves to no device.
	ErrNotFound = errors.New("player: device not found")
	// ErrInvalidURL is returned for a selector that is not sdi://<n>.
	ErrInvalidURL = fmt.Errorf("player: invalid device selector: %w", ErrNotFound)
	// ErrUnsupported is returned for seeking, looping, other rates and
	// tracks or formats other than the single video track.
	ErrUnsupported = errors.New("player: operation not supported")
)

// Devices is the read-only view of the device map a player resolves
// selectors against. The player never outlives it.
type Devices interface {
	Get(id uint8) (*capture.Device, bool)
}

// Option configures a Player.
type Option func(*Player)

// WithDisplayMode sets the function consulted for the display mode on every
// Open. The default is hardware.DefaultMode.
func WithDisplayMode(mode func() hardware.DisplayMode) Option {
	return func(p *Player) {
		p.mode = mode
	}
}

// WithStateHook installs fn to run after every lifecycle state change. fn
// may run with the session lock held and must not call back into the player.
func WithStateHook(fn func(from, to media.State)) Option {
	return func(p *Player) {
		p.stateHook = fn
	}
}

// WithID sets the identifier used in logs, metrics and events. The default
// is random.
func WithID(id string) Option {
	return func(p *Player) {
		p.id = id
	}
}

// WithFramePool shares a buffer pool between players.
func WithFramePool(pool *frame.Pool) Option {
	return func(p *Player) {
		p.pool = pool
	}
}

// Player implements Controls, Tracks and SampleProducer over one capture
// device at a time.
type Player struct {
	id        string
	devices   Devices
	events    media.EventSink
	samples   media.SampleSink
	pool      *frame.Pool
	mode      func() hardware.DisplayMode
	stateHook func(from, to media.State)
	logger    *slog.Logger

	state       atomic.Int32
	paused      atomic.Bool
	currentTime atomic.Int64

	// Session fields. Written under mu by Open and Close; ticks read them
	// without the lock.
	mu            sync.Mutex
	session       string
	url           string
	deviceID      uint8
	hasDevice     bool
	deviceName    string
	modeName      string
	dim           media.Dim
	fps           float64
	sampleFormat  media.SampleFormat
	selectedVideo int

	framesObserved atomic.Uint64
	samplesEmitted atomic.Uint64
	fetchMisses    atomic.Uint64
}

// New creates a closed player. events receives lifecycle notifications and
// samples receives one video sample per fetched frame.
func New(devices Devices, events media.EventSink, samples media.SampleSink, opts ...Option) *Player {
	p := &Player{
		id:            uuid.NewString()[:8],
		devices:       devices,
		events:        events,
		samples:       samples,
		mode:          func() hardware.DisplayMode { return hardware.DefaultMode },
		sampleFormat:  media.SampleFormatCharBGRA,
		selectedVideo: media.IndexNone,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.pool == nil {
		p.pool = frame.NewPool()
	}
	p.logger = logging.GetLogger("player").With("player", p.id)
	metrics.SetPlayerState(p.id, media.StateClosed.String())
	return p
}

// ID identifies this player in logs, metrics and events.
func (p *Player) ID() string { return p.id }

// Name returns the implementation name.
func (p *Player) Name() string { return Name }

// URL returns the open selector, or "" when closed.
func (p *Player) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

// Info describes the open media.
func (p *Player) Info() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.hasDevice {
		return ""
	}
	return fmt.Sprintf("%s (%s, %dx%d @ %.3f fps)", p.deviceName, p.modeName, p.dim.X, p.dim.Y, p.fps)
}

// Open parses an sdi://<n> selector, closes any prior session, starts the
// selected device and moves to Stopped. opts is accepted and ignored. On
// failure no session is open and no open events are sent.
func (p *Player) Open(url string, _ media.Options) error {
	id, err := parseSelector(url)
	if err != nil {
		metrics.IncOpen("invalid_url")
		p.logger.Warn("Invalid device selector", "url", url)
		return err
	}
	device, ok := p.devices.Get(id)
	if !ok {
		metrics.IncOpen("not_found")
		p.logger.Warn("Invalid device id", "url", url, "device_id", id)
		return fmt.Errorf("%s: %w", url, ErrNotFound)
	}

	p.Close()

	mode := p.mode()
	if err := device.Start(mode); err != nil {
		metrics.IncOpen("start_failed")
		p.logger.Error("Failed to start capture", "url", url, "mode", mode.Name, "error", err)
		return fmt.Errorf("open %s: %w", url, err)
	}

	width, height := device.CurrentSize()
	session := uuid.NewString()

	p.mu.Lock()
	p.session = session
	p.url = url
	p.deviceID = id
	p.hasDevice = true
	p.deviceName = device.Name()
	p.modeName = device.CurrentMode().Name
	p.dim = media.Dim{X: width, Y: height}
	p.fps = device.CurrentFPS()
	p.sampleFormat = media.SampleFormatCharBGRA
	p.selectedVideo = 0
	p.framesObserved.Store(0)
	p.samplesEmitted.Store(0)
	p.fetchMisses.Store(0)
	device.SetFrameObserver(func() { p.framesObserved.Add(1) })
	p.setState(media.StateStopped)
	p.mu.Unlock()

	metrics.IncOpen("ok")
	p.logger.Info("Media opened", "url", url, "session", session, "device", device.Name(),
		"mode", mode.Name, "width", width, "height", height, "fps", p.fps)

	p.emit(media.EventTracksChanged)
	p.emit(media.EventMediaOpened)
	return nil
}

// OpenArchive is not supported; captured media has no archive form.
func (p *Player) OpenArchive(io.Reader, string, media.Options) error {
	return fmt.Errorf("open archive: %w", ErrUnsupported)
}

// Close stops the open device and resets the session. It always sends
// TracksChanged then MediaClosed, even when nothing was open.
func (p *Player) Close() {
	p.mu.Lock()
	if p.hasDevice {
		if device, ok := p.devices.Get(p.deviceID); ok {
			if device.IsCapturing() {
				if err := device.Stop(); err != nil {
					p.logger.Warn("Failed to stop capture", "device_id", p.deviceID, "error", err)
				}
			}
			device.SetFrameObserver(nil)
		}
		p.logger.Info("Media closed", "url", p.url, "session", p.session,
			"samples", p.samplesEmitted.Load(), "frames_observed", p.framesObserved.Load())
	}

	p.fps = 0
	p.url = ""
	p.dim = media.Dim{}
	p.hasDevice = false
	p.deviceName = ""
	p.modeName = ""
	p.session = ""
	p.selectedVideo = media.IndexNone
	p.setState(media.StateClosed)
	p.mu.Unlock()

	p.emit(media.EventTracksChanged)
	p.emit(media.EventMediaClosed)
}

// Dispose closes the player and drops its metric series. The player must
// not be used afterwards.
func (p *Player) Dispose() {
	p.Close()
	metrics.DeletePlayer(p.id)
}

// Stats is a snapshot of the player and its session.
type Stats struct {
	Player         string  `json:"player" example:"a3f0c1d2" doc:"Player identifier"`
	Session        string  `json:"session,omitempty" doc:"Identifier of the current open session"`
	URL            string  `json:"url,omitempty" example:"sdi://1" doc:"Open selector"`
	State          string  `json:"state" example:"playing" doc:"Lifecycle state"`
	Paused         bool    `json:"paused" doc:"Requested pause flag, applied on the next tick"`
	Device         string  `json:"device,omitempty" example:"Simulated SDI 1" doc:"Open device name"`
	Mode           string  `json:"mode,omitempty" example:"HD1080p2398" doc:"Negotiated display mode"`
	Width          int     `json:"width" example:"1920" doc:"Frame width"`
	Height         int     `json:"height" example:"1080" doc:"Frame height"`
	FPS            float64 `json:"fps" example:"23.976" doc:"Frame rate"`
	Time           string  `json:"time" example:"1.5s" doc:"Current playback time"`
	FramesObserved uint64  `json:"frames_observed" doc:"Frames the device published during this session"`
	SamplesEmitted uint64  `json:"samples_emitted" doc:"Samples handed to the sample sink"`
	FetchMisses    uint64  `json:"fetch_misses" doc:"Playing ticks that found no new frame"`
}

// Stats returns a snapshot of the session counters.
func (p *Player) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Player:         p.id,
		Session:        p.session,
		URL:            p.url,
		State:          p.State().String(),
		Paused:         p.paused.Load(),
		Device:         p.deviceName,
		Mode:           p.modeName,
		Width:          p.dim.X,
		Height:         p.dim.Y,
		FPS:            p.fps,
		Time:           p.Time().String(),
		FramesObserved: p.framesObserved.Load(),
		SamplesEmitted: p.samplesEmitted.Load(),
		FetchMisses:    p.fetchMisses.Load(),
	}
}

// String formats Stats as key=value lines.
func (s Stats) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "state=%s\n", s.State)
	if s.URL != "" {
		fmt.Fprintf(&b, "url=%s session=%s\n", s.URL, s.Session)
		fmt.Fprintf(&b, "device=%s mode=%s %dx%d@%.3f\n", s.Device, s.Mode, s.Width, s.Height, s.FPS)
	}
	fmt.Fprintf(&b, "time=%s frames=%d samples=%d misses=%d\n", s.Time, s.FramesObserved, s.SamplesEmitted, s.FetchMisses)
	return b.String()
}

func (p *Player) setState(s media.State) {
	from := media.State(p.state.Swap(int32(s)))
	if from == s {
		return
	}
	metrics.SetPlayerState(p.id, s.String())
	if p.stateHook != nil {
		p.stateHook(from, s)
	}
}

func (p *Player) emit(e media.Event) {
	if p.events != nil {
		p.events.ReceiveMediaEvent(e)
	}
}

// sampleDuration is 1/fps, or zero before a rate is known.
func sampleDuration(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}
