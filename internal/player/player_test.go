package player

import (
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/smazurov/sdinode/internal/capture"
	"github.com/smazurov/sdinode/internal/devices"
	"github.com/smazurov/sdinode/internal/hardware"
	"github.com/smazurov/sdinode/internal/hardware/testpattern"
	"github.com/smazurov/sdinode/internal/media"
	"github.com/smazurov/sdinode/internal/metrics"
)

var testMode = hardware.DisplayMode{
	Name: "test25", Width: 16, Height: 8, Duration: 1000, TimeScale: 25000, Scan: hardware.ScanProgressive,
}

type eventLog struct {
	mu     sync.Mutex
	events []media.Event
}

func (l *eventLog) ReceiveMediaEvent(e media.Event) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

func (l *eventLog) take() []media.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.events
	l.events = nil
	return out
}

type sampleLog struct {
	samples []*media.VideoSample
}

func (s *sampleLog) AddVideo(v *media.VideoSample) { s.samples = append(s.samples, v) }

func (s *sampleLog) take() []*media.VideoSample {
	out := s.samples
	s.samples = nil
	return out
}

type fixture struct {
	player  *Player
	devices *devices.Map
	cards   []*testpattern.Card
	events  *eventLog
	samples *sampleLog
}

func newFixture(t *testing.T, count int, opts ...testpattern.Option) *fixture {
	t.Helper()
	f := &fixture{devices: devices.NewMap(), events: &eventLog{}, samples: &sampleLog{}}
	opts = append([]testpattern.Option{testpattern.WithManualDelivery()}, opts...)
	for i := range count {
		card := testpattern.NewCard("card", "Card", opts...)
		f.cards = append(f.cards, card)
		f.devices.Insert(capture.NewDevice(uint8(i), card))
	}
	f.player = New(f.devices, f.events, f.samples, WithDisplayMode(func() hardware.DisplayMode { return testMode }))
	t.Cleanup(func() {
		for _, d := range f.devices.Clear() {
			d.Close()
		}
	})
	return f
}

func (f *fixture) open(t *testing.T, url string) {
	t.Helper()
	if err := f.player.Open(url, nil); err != nil {
		t.Fatalf("Open(%q): %v", url, err)
	}
	f.events.take()
}

func (f *fixture) play(t *testing.T, url string) {
	t.Helper()
	f.open(t, url)
	f.player.TickInput(0)
	if got := f.player.State(); got != media.StatePlaying {
		t.Fatalf("State = %v, want playing", got)
	}
	f.events.take()
}

func eventsEqual(t *testing.T, got []media.Event, want ...media.Event) {
	t.Helper()
	if !slices.Equal(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestOpen_ValidSelectors(t *testing.T) {
	f := newFixture(t, 3)

	for _, url := range []string{"sdi://1", "sdi://2", "sdi://3"} {
		t.Run(url, func(t *testing.T) {
			if err := f.player.Open(url, nil); err != nil {
				t.Fatalf("Open: %v", err)
			}
			if got := f.player.SelectedTrack(media.TrackVideo); got != 0 {
				t.Errorf("SelectedTrack(video) = %d, want 0", got)
			}
			if got := f.player.State(); got != media.StateStopped {
				t.Errorf("State = %v, want stopped", got)
			}
			if got := f.player.URL(); got != url {
				t.Errorf("URL = %q", got)
			}
			eventsEqual(t, f.events.take(),
				media.EventTracksChanged, media.EventMediaClosed,
				media.EventTracksChanged, media.EventMediaOpened)
		})
	}
}

func TestOpen_InvalidSelectors(t *testing.T) {
	f := newFixture(t, 3)

	tests := []string{
		"",
		"sdi://",
		"sdi://0",
		"sdi://4",
		"sdi://257",
		"sdi://-1",
		"sdi://+1",
		"sdi://1x",
		"sdi:// 1",
		"sdi://99999999999999999999999",
		"http://1",
		"SDI://1",
	}

	for _, url := range tests {
		t.Run(url, func(t *testing.T) {
			err := f.player.Open(url, nil)
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("Open(%q) = %v, want not found", url, err)
			}
			if got := f.player.State(); got != media.StateClosed {
				t.Errorf("State = %v, want closed", got)
			}
			if got := f.events.take(); len(got) != 0 {
				t.Errorf("events on failed open: %v", got)
			}
		})
	}
}

func TestOpen_InvalidSelectorKeepsSession(t *testing.T) {
	f := newFixture(t, 2)
	f.play(t, "sdi://1")

	if err := f.player.Open("sdi://9", nil); err == nil {
		t.Fatal("Open of a missing device succeeded")
	}
	if f.player.State() != media.StatePlaying || f.player.URL() != "sdi://1" {
		t.Errorf("failed open changed the session: state=%v url=%q", f.player.State(), f.player.URL())
	}
}

func TestOpen_StartFailure(t *testing.T) {
	f := newFixture(t, 1, testpattern.WithMaxWidth(8))

	err := f.player.Open("sdi://1", nil)
	if !errors.Is(err, capture.ErrModeNotSupported) {
		t.Fatalf("err = %v, want ErrModeNotSupported", err)
	}
	if f.player.State() != media.StateClosed {
		t.Errorf("State = %v, want closed", f.player.State())
	}
	d, _ := f.devices.Get(0)
	if d.IsCapturing() {
		t.Error("device capturing after failed open")
	}
	eventsEqual(t, f.events.take(), media.EventTracksChanged, media.EventMediaClosed)
}

func TestOpen_SwitchDevices(t *testing.T) {
	f := newFixture(t, 2)
	f.open(t, "sdi://1")
	f.open(t, "sdi://2")

	first, _ := f.devices.Get(0)
	second, _ := f.devices.Get(1)
	if first.IsCapturing() {
		t.Error("previous device still capturing")
	}
	if !second.IsCapturing() {
		t.Error("new device not capturing")
	}
}

func TestOpen_SameDeviceTwice(t *testing.T) {
	f := newFixture(t, 1)
	f.open(t, "sdi://1")
	f.open(t, "sdi://1")

	d, _ := f.devices.Get(0)
	if !d.IsCapturing() {
		t.Error("device not capturing after reopen")
	}
}

func TestClose_Idempotent(t *testing.T) {
	f := newFixture(t, 1)
	f.play(t, "sdi://1")

	f.player.Close()
	first := f.events.take()
	firstStats := f.player.Stats()

	f.player.Close()
	second := f.events.take()
	secondStats := f.player.Stats()

	eventsEqual(t, first, media.EventTracksChanged, media.EventMediaClosed)
	eventsEqual(t, second, media.EventTracksChanged, media.EventMediaClosed)
	if firstStats != secondStats {
		t.Errorf("state differs between closes:\n%+v\n%+v", firstStats, secondStats)
	}

	p := f.player
	if p.State() != media.StateClosed || p.URL() != "" || p.NumTracks(media.TrackVideo) != 0 {
		t.Errorf("closed player still has a session: %+v", firstStats)
	}
	if format, err := p.VideoTrackFormat(0, 0); err != nil || format.Dim != (media.Dim{}) || format.FrameRate != 0 {
		t.Errorf("closed player reports format %+v, %v", format, err)
	}

	d, _ := f.devices.Get(0)
	if d.IsCapturing() {
		t.Error("device still capturing after Close")
	}
}

func TestTickInput_PauseResume(t *testing.T) {
	f := newFixture(t, 1)
	f.open(t, "sdi://1")
	p := f.player

	p.TickInput(0)
	if p.State() != media.StatePlaying {
		t.Fatalf("State = %v, want playing", p.State())
	}
	eventsEqual(t, f.events.take(), media.EventPlaybackResumed)

	p.TickInput(0)
	if got := f.events.take(); len(got) != 0 {
		t.Errorf("steady tick sent %v", got)
	}

	if err := p.SetRate(0); err != nil {
		t.Fatal(err)
	}
	if p.State() != media.StatePlaying {
		t.Error("SetRate changed state before TickInput")
	}
	p.TickInput(0)
	if p.State() != media.StatePaused {
		t.Errorf("State = %v, want paused", p.State())
	}
	eventsEqual(t, f.events.take(), media.EventPlaybackSuspended)

	if err := p.SetRate(1); err != nil {
		t.Fatal(err)
	}
	p.TickInput(0)
	if p.State() != media.StatePlaying {
		t.Errorf("State = %v, want playing", p.State())
	}
	eventsEqual(t, f.events.take(), media.EventPlaybackResumed)
}

func TestTickInput_ClosedIgnored(t *testing.T) {
	f := newFixture(t, 1)
	f.player.TickInput(0)
	if f.player.State() != media.StateClosed {
		t.Errorf("State = %v, want closed", f.player.State())
	}
	if got := f.events.take(); len(got) != 0 {
		t.Errorf("events = %v", got)
	}
}

func TestSetRate(t *testing.T) {
	f := newFixture(t, 1)
	f.play(t, "sdi://1")
	p := f.player

	for _, rate := range []float64{0.5, 2, -1, 1.0001} {
		if err := p.SetRate(rate); !errors.Is(err, ErrUnsupported) {
			t.Errorf("SetRate(%g) = %v, want ErrUnsupported", rate, err)
		}
	}
	p.TickInput(0)
	if p.State() != media.StatePlaying || p.Rate() != 1 {
		t.Errorf("rejected rates changed state: %v rate %g", p.State(), p.Rate())
	}
	if got := f.events.take(); len(got) != 0 {
		t.Errorf("events = %v", got)
	}
}

func TestSupportedRates(t *testing.T) {
	f := newFixture(t, 1)
	check := func() {
		t.Helper()
		if got := f.player.SupportedRates(); !slices.Equal(got, []float64{0, 1}) {
			t.Errorf("SupportedRates = %v", got)
		}
	}
	check()
	f.play(t, "sdi://1")
	check()
	f.player.SetRate(0)
	f.player.TickInput(0)
	check()
	f.player.Close()
	check()
}

func TestTickFetch(t *testing.T) {
	f := newFixture(t, 1)
	f.play(t, "sdi://1")
	p := f.player
	card := f.cards[0]
	const tick = 16 * time.Millisecond

	p.TickFetch(tick)
	if got := f.samples.take(); len(got) != 0 {
		t.Fatalf("fetch without a new frame published %d samples", len(got))
	}

	card.Step()
	p.TickFetch(tick)
	got := f.samples.take()
	if len(got) != 1 {
		t.Fatalf("published %d samples, want 1", len(got))
	}
	s := got[0]
	if s.Duration != 40*time.Millisecond {
		t.Errorf("Duration = %v, want 40ms", s.Duration)
	}
	if s.Time != tick {
		t.Errorf("Time = %v, want %v", s.Time, tick)
	}
	if s.Format != media.SampleFormatCharBGRA {
		t.Errorf("Format = %v", s.Format)
	}
	if s.OutputDim() != (media.Dim{X: 16, Y: 8}) {
		t.Errorf("OutputDim = %+v", s.OutputDim())
	}
	if testpattern.FrameCounter(s.Buffer()) != 1 {
		t.Errorf("frame counter = %d, want 1", testpattern.FrameCounter(s.Buffer()))
	}
	s.Release()

	// Only the latest of several frames is fetched.
	card.Step()
	card.Step()
	card.Step()
	p.TickFetch(tick)
	got = f.samples.take()
	if len(got) != 1 || testpattern.FrameCounter(got[0].Buffer()) != 4 {
		t.Fatalf("want one sample with counter 4, got %d", len(got))
	}

	p.SetRate(0)
	p.TickInput(0)
	card.Step()
	p.TickFetch(tick)
	if got := f.samples.take(); len(got) != 0 {
		t.Errorf("paused fetch published %d samples", len(got))
	}

	if p.Time() != 4*tick {
		t.Errorf("Time = %v, want %v", p.Time(), 4*tick)
	}
}

func TestTickFetch_TrackDeselected(t *testing.T) {
	f := newFixture(t, 1)
	f.play(t, "sdi://1")

	if err := f.player.SelectTrack(media.TrackVideo, media.IndexNone); err != nil {
		t.Fatal(err)
	}
	f.cards[0].Step()
	f.player.TickFetch(time.Millisecond)
	if got := f.samples.take(); len(got) != 0 {
		t.Errorf("deselected track published %d samples", len(got))
	}
}

func TestTickFetch_StoppedPublishesNothing(t *testing.T) {
	f := newFixture(t, 1)
	f.open(t, "sdi://1")
	f.cards[0].Step()
	f.player.TickFetch(time.Millisecond)
	if got := f.samples.take(); len(got) != 0 {
		t.Errorf("stopped player published %d samples", len(got))
	}
}

func TestDeviceDeparture(t *testing.T) {
	f := newFixture(t, 2)
	f.play(t, "sdi://2")

	d, _ := f.devices.Remove(1)
	d.MarkGone()
	d.Close()

	f.player.TickFetch(time.Millisecond)
	if got := f.samples.take(); len(got) != 0 {
		t.Errorf("departed device produced %d samples", len(got))
	}

	err := f.player.Open("sdi://2", nil)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Open of departed device = %v, want not found", err)
	}

	f.player.Close()
	if f.player.State() != media.StateClosed {
		t.Errorf("State = %v", f.player.State())
	}
}

func TestOpen_DeviceInUse(t *testing.T) {
	f := newFixture(t, 1)
	f.open(t, "sdi://1")

	other := New(f.devices, nil, nil, WithDisplayMode(func() hardware.DisplayMode { return testMode }))
	if err := other.Open("sdi://1", nil); !errors.Is(err, capture.ErrAlreadyCapturing) {
		t.Errorf("second player Open = %v, want ErrAlreadyCapturing", err)
	}
}

func TestStats(t *testing.T) {
	f := newFixture(t, 1)
	f.play(t, "sdi://1")

	f.cards[0].Step()
	f.cards[0].Step()
	f.player.TickFetch(time.Millisecond)
	f.player.TickFetch(time.Millisecond)

	st := f.player.Stats()
	if st.FramesObserved != 2 || st.SamplesEmitted != 1 || st.FetchMisses != 1 {
		t.Errorf("stats = %+v", st)
	}
	if st.Session == "" || st.Mode != "test25" || st.Width != 16 || st.FPS != 25 || st.State != "playing" {
		t.Errorf("session stats = %+v", st)
	}
	if f.player.Info() == "" {
		t.Error("Info empty while open")
	}

	f.player.Close()
	f.cards[0].Step()
	if got := f.player.Stats(); got.Session != "" || got.URL != "" {
		t.Errorf("stats after close = %+v", got)
	}
}

func TestStateHook(t *testing.T) {
	f := newFixture(t, 1)
	var transitions []media.State
	f.player = New(f.devices, f.events, f.samples,
		WithDisplayMode(func() hardware.DisplayMode { return testMode }),
		WithStateHook(func(_, to media.State) { transitions = append(transitions, to) }))

	f.play(t, "sdi://1")
	f.player.Close()

	want := []media.State{media.StateStopped, media.StatePlaying, media.StateClosed}
	if !slices.Equal(transitions, want) {
		t.Errorf("transitions = %v, want %v", transitions, want)
	}
}

func TestDispose(t *testing.T) {
	f := newFixture(t, 1)
	f.play(t, "sdi://1")

	before, err := testutil.GatherAndCount(prometheus.DefaultGatherer, "sdinode_player_state")
	if err != nil {
		t.Fatal(err)
	}
	f.player.Dispose()
	after, err := testutil.GatherAndCount(prometheus.DefaultGatherer, "sdinode_player_state")
	if err != nil {
		t.Fatal(err)
	}

	if got := f.player.State(); got != media.StateClosed {
		t.Errorf("State after Dispose = %v, want closed", got)
	}
	if d, _ := f.devices.Get(0); d.IsCapturing() {
		t.Error("device still capturing after Dispose")
	}
	if before-after != len(metrics.PlayerStates) {
		t.Errorf("state series removed = %d, want %d", before-after, len(metrics.PlayerStates))
	}
}
