// Package hardware defines the narrow contract between capture devices and
// the vendor SDK that drives an SDI input card.
//
// A driver implements Discovery to enumerate cards and Input for each card.
// Frames are delivered on a goroutine owned by the driver, never by the
// caller, through the FrameHandler installed with SetFrameHandler.
package hardware

import (
	"context"
	"errors"
)

var (
	// ErrDeviceGone is returned by an Input whose card was unplugged.
	ErrDeviceGone = errors.New("hardware: device gone")
	// ErrUnsupportedMode is returned when a card cannot apply a display mode.
	ErrUnsupportedMode = errors.New("hardware: display mode not supported")
	// ErrStreaming is returned when an operation requires streams to be stopped.
	ErrStreaming = errors.New("hardware: streams already running")
)

// VideoFrame is the driver's view of one delivered frame. It is only valid
// for the duration of the FrameHandler call.
type VideoFrame interface {
	Width() int
	Height() int
	RowBytes() int
	// Bytes returns the pixel memory in the pixel format requested at
	// EnableVideoInput. Implementations may reuse the memory after the
	// handler returns.
	Bytes() []byte
	// HasNoInputSource reports that the card produced a frame without a
	// locked input signal.
	HasNoInputSource() bool
}

// FrameHandler receives frames on the driver's capture goroutine. It must
// return quickly and must not block on the consumer.
type FrameHandler func(VideoFrame)

// Input is one physical SDI input. It is exclusively owned by a single
// capture device.
type Input interface {
	// PersistentID identifies the card across rescans.
	PersistentID() string
	// Name is a human readable model/port name.
	Name() string
	// SupportsMode reports whether the card can apply mode.
	SupportsMode(mode DisplayMode) bool
	// EnableVideoInput negotiates a display mode and pixel format.
	EnableVideoInput(mode DisplayMode, format PixelFormat) error
	// DisableVideoInput releases the negotiated mode.
	DisableVideoInput() error
	// SetFrameHandler installs or, with nil, clears the frame callback.
	SetFrameHandler(h FrameHandler)
	// StartStreams begins frame delivery.
	StartStreams() error
	// StopStreams halts frame delivery. After it returns the handler is
	// no longer invoked.
	StopStreams() error
	// Close releases the handle.
	Close() error
}

// PixelFormat is a pixel layout a card can deliver.
type PixelFormat string

// Pixel formats understood by drivers.
const (
	PixelFormat8BitBGRA PixelFormat = "8BitBGRA"
	PixelFormat8BitYUV  PixelFormat = "8BitYUV"
)

// Discovery enumerates the cards that are present right now. A card that
// is still present is reported through the same Input on every call.
type Discovery interface {
	Enumerate(ctx context.Context) ([]Input, error)
}

// DiscoveryFunc adapts a function to Discovery.
type DiscoveryFunc func(ctx context.Context) ([]Input, error)

// Enumerate calls f.
func (f DiscoveryFunc) Enumerate(ctx context.Context) ([]Input, error) {
	return f(ctx)
}
