// Package devices discovers capture hardware, assigns identifiers and keeps
// the id-sorted map that players resolve selectors against.
package devices

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/smazurov/sdinode/internal/hardware"
	"github.com/smazurov/sdinode/internal/hotplug"
	"github.com/smazurov/sdinode/internal/logging"
	"github.com/smazurov/sdinode/internal/metrics"
)

// ErrIDsExhausted is returned when more inputs arrive than ids exist.
var ErrIDsExhausted = errors.New("devices: identifier space exhausted")

const defaultRescanDebounce = 500 * time.Millisecond

// Observer is notified of hardware arrival and departure. Calls are
// serialized and made in id order within one scan, and must not call back
// into the Registry.
type Observer interface {
	// DeviceArrived hands over ownership of input.
	DeviceArrived(id uint8, input hardware.Input)
	DeviceDeparted(id uint8)
}

// EventSource delivers kernel hotplug events until ctx is done.
type EventSource interface {
	Run(ctx context.Context, out chan<- hotplug.Event) error
}

// Option configures a Registry.
type Option func(*Registry)

// WithRescanDebounce sets how long hotplug events must be quiet before a
// rescan.
func WithRescanDebounce(d time.Duration) Option {
	return func(r *Registry) {
		r.debounce = d
	}
}

// Registry enumerates inputs and assigns each a sequential id. Ids are
// never reused within one registry.
type Registry struct {
	discovery hardware.Discovery
	observer  Observer
	logger    *slog.Logger
	debounce  time.Duration

	mu     sync.Mutex
	nextID int
	known  map[string]uint8
}

// NewRegistry creates a registry that reports to observer. Nothing is
// enumerated until Discover.
func NewRegistry(discovery hardware.Discovery, observer Observer, opts ...Option) *Registry {
	r := &Registry{
		discovery: discovery,
		observer:  observer,
		logger:    logging.GetLogger("devices"),
		debounce:  defaultRescanDebounce,
		known:     make(map[string]uint8),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Discover performs the initial enumeration. No hardware is not an error.
func (r *Registry) Discover(ctx context.Context) error {
	if err := r.Rescan(ctx); err != nil {
		return err
	}
	r.logger.Info("Device discovery complete", "count", r.Len())
	return nil
}

// Rescan enumerates again and reports inputs that appeared or vanished
// since the last scan, matched by persistent id.
func (r *Registry) Rescan(ctx context.Context) error {
	inputs, err := r.discovery.Enumerate(ctx)
	if err != nil {
		return fmt.Errorf("enumerate inputs: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	present := make(map[string]bool, len(inputs))
	var errs []error
	for _, input := range inputs {
		pid := input.PersistentID()
		present[pid] = true
		if _, ok := r.known[pid]; ok {
			continue
		}
		if err := r.arriveLocked(input); err != nil {
			errs = append(errs, err)
		}
	}

	var departed []uint8
	for pid, id := range r.known {
		if present[pid] {
			continue
		}
		delete(r.known, pid)
		departed = append(departed, id)
		r.logger.Info("Device departed", "device_id", id, "persistent_id", pid)
	}
	slices.Sort(departed)
	for _, id := range departed {
		r.observer.DeviceDeparted(id)
	}

	metrics.SetDevicesPresent(len(r.known))
	return errors.Join(errs...)
}

func (r *Registry) arriveLocked(input hardware.Input) error {
	if r.nextID > math.MaxUint8 {
		input.Close()
		r.logger.Error("No identifier left for device", "name", input.Name())
		return fmt.Errorf("%w: %s", ErrIDsExhausted, input.Name())
	}

	id := uint8(r.nextID)
	r.nextID++
	r.known[input.PersistentID()] = id

	r.logger.Info("Device arrived", "device_id", id, "name", input.Name(), "persistent_id", input.PersistentID())
	r.observer.DeviceArrived(id, input)
	return nil
}

// Len returns the number of devices currently present.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.known)
}

// Watch rescans whenever src reports a topology change, coalescing bursts
// of events. It blocks until ctx is done.
func (r *Registry) Watch(ctx context.Context, src EventSource) error {
	events := make(chan hotplug.Event, 32)
	errCh := make(chan error, 1)
	go func() { errCh <- src.Run(ctx, events) }()

	timer := time.NewTimer(r.debounce)
	timer.Stop()
	defer timer.Stop()

	r.logger.Info("Watching for hotplug events", "debounce", r.debounce)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				err := <-errCh
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			if !ev.Topology() {
				continue
			}
			r.logger.Debug("Hotplug event", "action", ev.Action, "subsystem", ev.Subsystem, "kobj", ev.KObj)
			timer.Reset(r.debounce)

		case <-timer.C:
			if err := r.Rescan(ctx); err != nil {
				r.logger.Warn("Rescan failed", "error", err)
			}

		case <-ctx.Done():
			// src closes events on the way out.
			for range events {
			}
			<-errCh
			return nil
		}
	}
}
