//go:build !linux

package hotplug

import (
	"context"
	"errors"
)

// ErrUnsupported is returned on platforms without netlink.
var ErrUnsupported = errors.New("hotplug: not supported on this platform")

// Monitor is unavailable on this platform.
type Monitor struct{}

// NewMonitor always fails with ErrUnsupported.
func NewMonitor(...string) (*Monitor, error) {
	return nil, ErrUnsupported
}

// Close is a no-op.
func (m *Monitor) Close() error { return nil }

// Run closes out and returns ErrUnsupported.
func (m *Monitor) Run(_ context.Context, out chan<- Event) error {
	close(out)
	return ErrUnsupported
}
