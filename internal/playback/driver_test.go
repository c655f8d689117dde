package playback

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smazurov/sdinode/internal/frame"
	"github.com/smazurov/sdinode/internal/media"
	"github.com/smazurov/sdinode/internal/samples"
)

// fakeProducer records the order of calls and emits one sample per fetch.
type fakeProducer struct {
	mu      sync.Mutex
	calls   []string
	sink    media.SampleSink
	elapsed time.Duration
}

func (f *fakeProducer) TickInput(delta time.Duration) {
	f.mu.Lock()
	f.calls = append(f.calls, "input")
	f.mu.Unlock()
}

func (f *fakeProducer) TickFetch(delta time.Duration) {
	f.mu.Lock()
	f.calls = append(f.calls, "fetch")
	f.elapsed += delta
	f.mu.Unlock()
	f.sink.AddVideo(media.NewVideoSample(frame.NewBuffer(1, 1, 4), media.SampleFormatCharBGRA, 0, 0, nil))
}

func (f *fakeProducer) record(s string) {
	f.mu.Lock()
	f.calls = append(f.calls, s)
	f.mu.Unlock()
}

func (f *fakeProducer) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func startDriver(t *testing.T, opts ...Option) (*Driver, *fakeProducer, context.CancelFunc) {
	t.Helper()
	q := samples.NewQueue(4)
	p := &fakeProducer{sink: q}
	d := NewDriver(p, q, append([]Option{WithTickRate(500)}, opts...)...)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := d.Run(ctx); err != nil {
			t.Errorf("Run: %v", err)
		}
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return d, p, cancel
}

func waitTicks(t *testing.T, d *Driver, n uint64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for d.Ticks() < n {
		if time.Now().After(deadline) {
			t.Fatalf("only %d ticks before timeout", d.Ticks())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestDriver_TickOrder(t *testing.T) {
	d, p, _ := startDriver(t)
	waitTicks(t, d, 3)

	calls := p.snapshot()
	for i := 0; i+1 < len(calls); i += 2 {
		if calls[i] != "input" || calls[i+1] != "fetch" {
			t.Fatalf("calls = %v, want input/fetch pairs", calls)
		}
	}
}

func TestDriver_PresenterReceivesSamples(t *testing.T) {
	var presented atomic.Int32
	d, _, _ := startDriver(t, WithPresenter(func(s []*media.VideoSample) {
		presented.Add(int32(len(s)))
		for _, v := range s {
			v.Release()
		}
	}))
	waitTicks(t, d, 5)
	if presented.Load() < 4 {
		t.Errorf("presented %d samples after 5 ticks", presented.Load())
	}
}

func TestDriver_DoRunsOnTickGoroutine(t *testing.T) {
	d, p, _ := startDriver(t)
	waitTicks(t, d, 1)

	if err := d.Do(context.Background(), func() { p.record("cmd") }); err != nil {
		t.Fatal(err)
	}
	waitTicks(t, d, d.Ticks()+1)

	calls := p.snapshot()
	for i, c := range calls {
		if c != "cmd" {
			continue
		}
		if i%2 != 0 {
			t.Errorf("command ran between input and fetch: %v", calls)
		}
		return
	}
	t.Error("command never ran")
}

func TestDriver_DoAfterStop(t *testing.T) {
	d, _, cancel := startDriver(t)
	waitTicks(t, d, 1)
	cancel()

	deadline := time.Now().Add(time.Second)
	for {
		err := d.Do(context.Background(), func() {})
		if errors.Is(err, ErrStopped) {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("Do after stop = %v, want ErrStopped", err)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestDriver_DoContextCanceled(t *testing.T) {
	q := samples.NewQueue(1)
	d := NewDriver(&fakeProducer{sink: q}, q)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := d.Do(ctx, func() {}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Do without Run = %v, want deadline exceeded", err)
	}
}

func TestWithTickRate(t *testing.T) {
	q := samples.NewQueue(1)
	d := NewDriver(&fakeProducer{sink: q}, q, WithTickRate(50))
	if d.Interval() != 20*time.Millisecond {
		t.Errorf("Interval = %v", d.Interval())
	}
	d = NewDriver(&fakeProducer{sink: q}, q, WithTickRate(0))
	if d.Interval() != time.Second/60 {
		t.Errorf("default Interval = %v", d.Interval())
	}
}
