// Package testpattern is a simulated SDI driver. Each Card runs its own
// delivery goroutine at the negotiated mode's cadence and produces SMPTE
// style colour bars with a frame counter stamped into the first pixels.
package testpattern

import (
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smazurov/sdinode/internal/hardware"
)

// Bar colours in BGRA order.
var bars = [][4]byte{
	{0xC0, 0xC0, 0xC0, 0xFF}, // grey
	{0x00, 0xC0, 0xC0, 0xFF}, // yellow
	{0xC0, 0xC0, 0x00, 0xFF}, // cyan
	{0x00, 0xC0, 0x00, 0xFF}, // green
	{0xC0, 0x00, 0xC0, 0xFF}, // magenta
	{0x00, 0x00, 0xC0, 0xFF}, // red
	{0xC0, 0x00, 0x00, 0xFF}, // blue
}

// Option configures a Card.
type Option func(*Card)

// WithFrameInterval overrides the delivery cadence derived from the mode.
func WithFrameInterval(d time.Duration) Option {
	return func(c *Card) { c.interval = d }
}

// WithMaxWidth limits which modes the card accepts.
func WithMaxWidth(w int) Option {
	return func(c *Card) { c.maxWidth = w }
}

// WithManualDelivery disables the delivery goroutine. Frames are produced
// only by Step.
func WithManualDelivery() Option {
	return func(c *Card) { c.manual = true }
}

// Card is a simulated SDI input implementing hardware.Input.
type Card struct {
	id       string
	name     string
	interval time.Duration
	maxWidth int
	manual   bool

	mu       sync.Mutex
	handler  hardware.FrameHandler
	mode     hardware.DisplayMode
	enabled  bool
	stop     chan struct{}
	done     chan struct{}
	closed   bool
	gone     atomic.Bool
	noSignal atomic.Bool

	delivered atomic.Uint64

	stepFrame   *patternFrame
	stepCounter uint64
	steps       sync.WaitGroup // Step calls still emitting
}

// NewCard creates a simulated card.
func NewCard(id, name string, opts ...Option) *Card {
	c := &Card{
		id:       id,
		name:     name,
		maxWidth: 1920,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PersistentID implements hardware.Input.
func (c *Card) PersistentID() string { return c.id }

// Name implements hardware.Input.
func (c *Card) Name() string { return c.name }

// SupportsMode implements hardware.Input.
func (c *Card) SupportsMode(mode hardware.DisplayMode) bool {
	return !mode.IsZero() && mode.Width <= c.maxWidth && mode.FPS() > 0
}

// EnableVideoInput implements hardware.Input.
func (c *Card) EnableVideoInput(mode hardware.DisplayMode, format hardware.PixelFormat) error {
	if c.gone.Load() {
		return hardware.ErrDeviceGone
	}
	if format != hardware.PixelFormat8BitBGRA {
		return fmt.Errorf("pixel format %s: %w", format, hardware.ErrUnsupportedMode)
	}
	if !c.SupportsMode(mode) {
		return fmt.Errorf("%s: %w", mode.Name, hardware.ErrUnsupportedMode)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		return hardware.ErrStreaming
	}
	c.mode = mode
	c.enabled = true
	return nil
}

// DisableVideoInput implements hardware.Input.
func (c *Card) DisableVideoInput() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = false
	return nil
}

// SetFrameHandler implements hardware.Input.
func (c *Card) SetFrameHandler(h hardware.FrameHandler) {
	c.mu.Lock()
	c.handler = h
	c.mu.Unlock()
}

// StartStreams implements hardware.Input.
func (c *Card) StartStreams() error {
	if c.gone.Load() {
		return hardware.ErrDeviceGone
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("card %s closed", c.id)
	}
	if !c.enabled {
		return fmt.Errorf("video input not enabled")
	}
	if c.stop != nil {
		return hardware.ErrStreaming
	}

	interval := c.interval
	if interval <= 0 {
		interval = c.mode.FrameInterval()
	}

	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	if c.manual {
		c.stepFrame = newPatternFrame(c.mode.Width, c.mode.Height)
		c.stepCounter = 0
		close(c.done)
		return nil
	}
	go c.deliver(c.mode, interval, c.stop, c.done)
	return nil
}

// Step delivers one frame on the calling goroutine. It reports false when
// the card is not streaming or was unplugged.
func (c *Card) Step() bool {
	c.mu.Lock()
	if c.stop == nil || c.stepFrame == nil || c.gone.Load() {
		c.mu.Unlock()
		return false
	}
	c.stepCounter++
	f, counter, h := c.stepFrame, c.stepCounter, c.handler
	c.steps.Add(1)
	c.mu.Unlock()

	defer c.steps.Done()
	c.emit(f, counter, h)
	return true
}

// StopStreams implements hardware.Input. It waits for the delivery
// goroutine and for any Step still inside the frame handler. It must not be
// called from the handler.
func (c *Card) StopStreams() error {
	c.mu.Lock()
	stop, done := c.stop, c.done
	c.stop, c.done = nil, nil
	c.mu.Unlock()

	if stop == nil {
		return nil
	}
	close(stop)
	<-done
	c.steps.Wait()
	return nil
}

// Close implements hardware.Input.
func (c *Card) Close() error {
	if err := c.StopStreams(); err != nil {
		return err
	}
	c.mu.Lock()
	c.closed = true
	c.handler = nil
	c.mu.Unlock()
	return nil
}

// SetSignal simulates plugging or unplugging the SDI cable. Without signal
// the card still delivers frames but flags them as having no input source.
func (c *Card) SetSignal(present bool) {
	c.noSignal.Store(!present)
}

// Unplug simulates removing the card. Frame delivery stops and every later
// hardware call fails with hardware.ErrDeviceGone.
func (c *Card) Unplug() {
	c.gone.Store(true)
}

// Delivered returns how many frames were handed to the frame handler.
func (c *Card) Delivered() uint64 {
	return c.delivered.Load()
}

func (c *Card) deliver(mode hardware.DisplayMode, interval time.Duration, stop, done chan struct{}) {
	defer close(done)

	f := newPatternFrame(mode.Width, mode.Height)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var counter uint64
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		if c.gone.Load() {
			return
		}

		counter++
		c.mu.Lock()
		h := c.handler
		c.mu.Unlock()
		c.emit(f, counter, h)
	}
}

func (c *Card) emit(f *patternFrame, counter uint64, h hardware.FrameHandler) {
	f.noSignal = c.noSignal.Load()
	f.stamp(counter)
	if h != nil {
		h(f)
		c.delivered.Add(1)
	}
}

// patternFrame implements hardware.VideoFrame over a reused payload.
type patternFrame struct {
	width    int
	height   int
	rowBytes int
	data     []byte
	noSignal bool
}

func newPatternFrame(width, height int) *patternFrame {
	rowBytes := width * 4
	f := &patternFrame{
		width:    width,
		height:   height,
		rowBytes: rowBytes,
		data:     make([]byte, rowBytes*height),
	}

	row := make([]byte, rowBytes)
	for x := 0; x < width; x++ {
		c := bars[x*len(bars)/width]
		copy(row[x*4:], c[:])
	}
	for y := 0; y < height; y++ {
		copy(f.data[y*rowBytes:], row)
	}
	return f
}

// stamp writes the frame counter into the first eight bytes.
func (f *patternFrame) stamp(counter uint64) {
	if len(f.data) >= 8 {
		binary.LittleEndian.PutUint64(f.data, counter)
	}
}

func (f *patternFrame) Width() int             { return f.width }
func (f *patternFrame) Height() int            { return f.height }
func (f *patternFrame) RowBytes() int          { return f.rowBytes }
func (f *patternFrame) Bytes() []byte          { return f.data }
func (f *patternFrame) HasNoInputSource() bool { return f.noSignal }

// FrameCounter extracts the counter stamped by a Card.
func FrameCounter(pixels []byte) uint64 {
	if len(pixels) < 8 {
		return 0
	}
	return binary.LittleEndian.Uint64(pixels)
}
