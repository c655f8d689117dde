// Package capture wraps one SDI input and hands its most recent frame to a
// polling consumer.
package capture

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/smazurov/sdinode/internal/frame"
	"github.com/smazurov/sdinode/internal/hardware"
	"github.com/smazurov/sdinode/internal/logging"
	"github.com/smazurov/sdinode/internal/metrics"
)

var (
	// ErrAlreadyCapturing is returned by Start on a streaming device.
	ErrAlreadyCapturing = errors.New("capture: already capturing")
	// ErrModeNotSupported is returned when the card rejects the display mode.
	ErrModeNotSupported = errors.New("capture: display mode not supported")
	// ErrNegotiation is returned when the card fails to apply the mode or start streaming.
	ErrNegotiation = errors.New("capture: mode negotiation failed")
	// ErrClosed is returned by Start after Close.
	ErrClosed = errors.New("capture: device closed")
)

// FrameObserver is invoked on the capture goroutine after each published
// frame. It must not block.
type FrameObserver func()

// Stats is a snapshot of a device's capture counters.
type Stats struct {
	Frames    uint64
	Dropped   uint64
	NoSignal  uint64
	HasSignal bool
}

// Device is one capture-capable SDI input. It owns its hardware handle.
//
// Start, Stop and Close may be called from any goroutine. GetFrame must be
// called from a single consumer goroutine.
type Device struct {
	id       uint8
	input    hardware.Input
	logger   *slog.Logger
	counters metrics.CaptureCounters
	label    string

	mu        sync.Mutex
	mode      hardware.DisplayMode
	capturing bool
	closed    bool

	latest    *latestFrame
	observer  atomic.Pointer[FrameObserver]
	gone      atomic.Bool
	hasSignal atomic.Bool

	frames   atomic.Uint64
	dropped  atomic.Uint64
	noSignal atomic.Uint64
}

// NewDevice wraps input under the given identifier.
func NewDevice(id uint8, input hardware.Input) *Device {
	label := strconv.Itoa(int(id))
	return &Device{
		id:       id,
		input:    input,
		label:    label,
		logger:   logging.GetLogger("capture").With("device_id", id, "device_name", input.Name()),
		counters: metrics.ForDevice(label),
		latest:   newLatestFrame(),
	}
}

// ID returns the identifier assigned at discovery.
func (d *Device) ID() uint8 { return d.id }

// Name returns the hardware name.
func (d *Device) Name() string { return d.input.Name() }

// PersistentID returns the hardware identity used across rescans.
func (d *Device) PersistentID() string { return d.input.PersistentID() }

// Start applies mode and begins streaming. Calling Start on a device that is
// already capturing is a caller error and returns ErrAlreadyCapturing.
func (d *Device) Start(mode hardware.DisplayMode) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch {
	case d.closed:
		return ErrClosed
	case d.capturing:
		return ErrAlreadyCapturing
	case d.gone.Load():
		return fmt.Errorf("%w: %w", ErrNegotiation, hardware.ErrDeviceGone)
	}

	if !d.input.SupportsMode(mode) {
		return fmt.Errorf("%s: %w", mode.Name, ErrModeNotSupported)
	}
	if err := d.input.EnableVideoInput(mode, hardware.PixelFormat8BitBGRA); err != nil {
		return fmt.Errorf("%w: enable %s: %w", ErrNegotiation, mode.Name, err)
	}

	d.latest.discard()
	d.input.SetFrameHandler(d.onFrame)
	if err := d.input.StartStreams(); err != nil {
		d.input.SetFrameHandler(nil)
		if disableErr := d.input.DisableVideoInput(); disableErr != nil {
			d.logger.Warn("Failed to disable video input after start failure", "error", disableErr)
		}
		return fmt.Errorf("%w: start streams: %w", ErrNegotiation, err)
	}

	d.mode = mode
	d.capturing = true
	d.counters.Active.Set(1)
	d.logger.Info("Capture started", "mode", mode.Name, "width", mode.Width, "height", mode.Height, "fps", mode.FPS())
	return nil
}

// Stop halts streaming and detaches the frame callback. It is idempotent.
func (d *Device) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stopLocked()
}

func (d *Device) stopLocked() error {
	if !d.capturing {
		return nil
	}

	var errs []error
	if err := d.input.StopStreams(); err != nil {
		errs = append(errs, fmt.Errorf("stop streams: %w", err))
	}
	d.input.SetFrameHandler(nil)
	if err := d.input.DisableVideoInput(); err != nil {
		errs = append(errs, fmt.Errorf("disable video input: %w", err))
	}

	d.latest.discard()
	d.capturing = false
	d.mode = hardware.DisplayMode{}
	d.counters.Active.Set(0)

	err := errors.Join(errs...)
	if err != nil && !d.gone.Load() {
		d.logger.Warn("Capture stopped with errors", "error", err)
	} else {
		d.logger.Info("Capture stopped")
	}
	return err
}

// Close stops the device and releases the hardware handle.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	stopErr := d.stopLocked()
	closeErr := d.input.Close()
	d.closed = true
	metrics.DeleteDevice(d.label)
	return errors.Join(stopErr, closeErr)
}

// MarkGone records that the hardware disappeared. Later fetches report no
// new frame and Start fails.
func (d *Device) MarkGone() {
	d.gone.Store(true)
}

// Gone reports whether MarkGone was called.
func (d *Device) Gone() bool {
	return d.gone.Load()
}

// GetFrame copies the latest completed frame into out if a new one arrived
// since the previous call. It never waits for the capture goroutine.
func (d *Device) GetFrame(out *frame.Buffer) bool {
	if out == nil || d.gone.Load() {
		return false
	}
	return d.latest.take(out)
}

// SetFrameObserver installs fn to run after every published frame; nil
// detaches it.
func (d *Device) SetFrameObserver(fn FrameObserver) {
	if fn == nil {
		d.observer.Store(nil)
		return
	}
	d.observer.Store(&fn)
}

// IsCapturing reports whether the device is streaming.
func (d *Device) IsCapturing() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.capturing
}

// CurrentMode returns the negotiated display mode, or the zero mode when
// not capturing.
func (d *Device) CurrentMode() hardware.DisplayMode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mode
}

// CurrentSize returns the negotiated resolution. Zero when not capturing.
func (d *Device) CurrentSize() (width, height int) {
	m := d.CurrentMode()
	return m.Width, m.Height
}

// CurrentFPS returns the negotiated frame rate. Zero when not capturing.
func (d *Device) CurrentFPS() float64 {
	return d.CurrentMode().FPS()
}

// Stats returns the capture counters.
func (d *Device) Stats() Stats {
	return Stats{
		Frames:    d.frames.Load(),
		Dropped:   d.dropped.Load(),
		NoSignal:  d.noSignal.Load(),
		HasSignal: d.hasSignal.Load(),
	}
}

// onFrame runs on the hardware's capture goroutine.
func (d *Device) onFrame(f hardware.VideoFrame) {
	if f.HasNoInputSource() {
		if d.hasSignal.Swap(false) {
			d.logger.Debug("Input signal lost")
		}
		d.noSignal.Add(1)
		d.counters.NoSignal.Inc()
		return
	}
	if !d.hasSignal.Swap(true) {
		d.logger.Debug("Input signal locked")
	}

	if d.latest.publish(f.Bytes(), f.Width(), f.Height(), f.RowBytes()) {
		d.dropped.Add(1)
		d.counters.Dropped.Inc()
	}
	d.frames.Add(1)
	d.counters.Frames.Inc()

	if obs := d.observer.Load(); obs != nil {
		(*obs)()
	}
}
