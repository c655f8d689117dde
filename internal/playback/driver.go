// Package playback drives a player at display cadence. All player calls
// happen on the driver's goroutine, so hosts submit control operations
// through Do rather than calling the player directly.
package playback

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/smazurov/sdinode/internal/logging"
	"github.com/smazurov/sdinode/internal/media"
	"github.com/smazurov/sdinode/internal/player"
	"github.com/smazurov/sdinode/internal/samples"
)

// DefaultTickRate is the display cadence in ticks per second.
const DefaultTickRate = 60

const defaultInterval = time.Second / DefaultTickRate

// ErrStopped is returned by Do once Run has returned.
var ErrStopped = errors.New("playback: driver stopped")

// Presenter consumes the samples fetched during one tick and owns them.
type Presenter func(samples []*media.VideoSample)

// Option configures a Driver.
type Option func(*Driver)

// WithTickRate sets ticks per second.
func WithTickRate(hz float64) Option {
	return func(d *Driver) {
		if hz > 0 {
			d.interval = time.Duration(float64(time.Second) / hz)
		}
	}
}

// WithPresenter installs the sample consumer. Without one, samples are
// released as soon as they are drained.
func WithPresenter(p Presenter) Option {
	return func(d *Driver) {
		d.present = p
	}
}

type command struct {
	fn   func()
	done chan struct{}
}

// Driver ticks a player and hands its samples to a presenter.
type Driver struct {
	producer player.SampleProducer
	queue    *samples.Queue
	interval time.Duration
	present  Presenter
	logger   *slog.Logger

	commands chan command
	stopped  chan struct{}
	ticks    atomic.Uint64
}

// NewDriver creates a driver for producer, whose sample sink is queue.
func NewDriver(producer player.SampleProducer, queue *samples.Queue, opts ...Option) *Driver {
	d := &Driver{
		producer: producer,
		queue:    queue,
		interval: defaultInterval,
		logger:   logging.GetLogger("playback"),
		commands: make(chan command),
		stopped:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Interval returns the time between ticks.
func (d *Driver) Interval() time.Duration { return d.interval }

// Ticks returns how many ticks have run.
func (d *Driver) Ticks() uint64 { return d.ticks.Load() }

// Run ticks until ctx is done. It must be called once.
func (d *Driver) Run(ctx context.Context) error {
	defer close(d.stopped)
	defer d.queue.Flush()

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.logger.Info("Playback driver started", "interval", d.interval)
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Playback driver stopped", "ticks", d.ticks.Load())
			return nil
		case cmd := <-d.commands:
			cmd.fn()
			close(cmd.done)
		case now := <-ticker.C:
			d.runPending()
			d.tick(now.Sub(last))
			last = now
		}
	}
}

// Do runs fn on the tick goroutine between ticks and waits for it.
func (d *Driver) Do(ctx context.Context, fn func()) error {
	cmd := command{fn: fn, done: make(chan struct{})}
	select {
	case d.commands <- cmd:
	case <-d.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	<-cmd.done
	return nil
}

// runPending executes commands that are already waiting so they land
// before this tick's input.
func (d *Driver) runPending() {
	for {
		select {
		case cmd := <-d.commands:
			cmd.fn()
			close(cmd.done)
		default:
			return
		}
	}
}

func (d *Driver) tick(delta time.Duration) {
	d.producer.TickInput(delta)
	d.producer.TickFetch(delta)
	d.ticks.Add(1)

	out := d.queue.Drain()
	if len(out) == 0 {
		return
	}
	if d.present != nil {
		d.present(out)
		return
	}
	for _, s := range out {
		s.Release()
	}
}
