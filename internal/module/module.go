// Package module owns the process-wide device session: the registry, the
// device map it fills, and the players created against it.
package module

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/smazurov/sdinode/internal/capture"
	"github.com/smazurov/sdinode/internal/devices"
	"github.com/smazurov/sdinode/internal/events"
	"github.com/smazurov/sdinode/internal/frame"
	"github.com/smazurov/sdinode/internal/hardware"
	"github.com/smazurov/sdinode/internal/logging"
	"github.com/smazurov/sdinode/internal/media"
	"github.com/smazurov/sdinode/internal/player"
)

// ErrAlreadyStarted is returned by a second Startup.
var ErrAlreadyStarted = errors.New("module: already started")

// Option configures a Module.
type Option func(*Module)

// WithHotplug rescans on events from src after Startup.
func WithHotplug(src devices.EventSource) Option {
	return func(m *Module) {
		m.hotplug = src
	}
}

// WithBus publishes device and player events on bus.
func WithBus(bus *events.Bus) Option {
	return func(m *Module) {
		m.bus = bus
	}
}

// WithRegistryOptions passes options to the device registry.
func WithRegistryOptions(opts ...devices.Option) Option {
	return func(m *Module) {
		m.registryOpts = append(m.registryOpts, opts...)
	}
}

// Module is constructed once per process. Players never outlive it.
type Module struct {
	discovery    hardware.Discovery
	hotplug      devices.EventSource
	registryOpts []devices.Option
	bus          *events.Bus
	devices      *devices.Map
	pool         *frame.Pool
	mode         atomic.Pointer[hardware.DisplayMode]
	logger       *slog.Logger

	mu          sync.Mutex
	initialized bool
	registry    *devices.Registry
	cancel      context.CancelFunc
	watchDone   chan struct{}
}

// New creates an uninitialized module over discovery.
func New(discovery hardware.Discovery, opts ...Option) *Module {
	m := &Module{
		discovery: discovery,
		devices:   devices.NewMap(),
		pool:      frame.NewPool(),
		logger:    logging.GetLogger("devices"),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.bus == nil {
		m.bus = events.New()
	}
	m.SetDisplayMode(hardware.DefaultMode)
	return m
}

// Startup enumerates hardware and, when configured, starts the hotplug
// watch. Finding no hardware is not an error.
func (m *Module) Startup(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.initialized {
		return ErrAlreadyStarted
	}

	registry := devices.NewRegistry(m.discovery, m, m.registryOpts...)
	if err := registry.Discover(ctx); err != nil {
		for _, d := range m.devices.Clear() {
			d.Close()
		}
		return err
	}
	m.registry = registry
	m.initialized = true

	if m.hotplug != nil {
		watchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		m.cancel = cancel
		m.watchDone = make(chan struct{})
		go func() {
			defer close(m.watchDone)
			if err := registry.Watch(watchCtx, m.hotplug); err != nil {
				m.logger.Warn("Hotplug watch ended", "error", err)
			}
		}()
	}
	return nil
}

// Shutdown stops the hotplug watch and closes every device. It is safe to
// call more than once.
func (m *Module) Shutdown() {
	m.mu.Lock()
	if !m.initialized {
		m.mu.Unlock()
		return
	}
	m.initialized = false
	cancel, done := m.cancel, m.watchDone
	m.cancel, m.watchDone, m.registry = nil, nil, nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	for _, d := range m.devices.Clear() {
		if err := d.Close(); err != nil {
			m.logger.Warn("Failed to close device", "device_id", d.ID(), "error", err)
		}
	}
	m.logger.Info("Module shut down")
}

// Started reports whether Startup succeeded and Shutdown has not run.
func (m *Module) Started() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initialized
}

// Rescan enumerates hardware again.
func (m *Module) Rescan(ctx context.Context) error {
	m.mu.Lock()
	registry := m.registry
	m.mu.Unlock()
	if registry == nil {
		return nil
	}
	return registry.Rescan(ctx)
}

// Devices returns the device map.
func (m *Module) Devices() *devices.Map { return m.devices }

// Bus returns the event bus.
func (m *Module) Bus() *events.Bus { return m.bus }

// DisplayMode returns the mode used by the next Open.
func (m *Module) DisplayMode() hardware.DisplayMode { return *m.mode.Load() }

// SetDisplayMode changes the mode for later opens. Open sessions keep
// theirs.
func (m *Module) SetDisplayMode(mode hardware.DisplayMode) {
	m.mode.Store(&mode)
}

// CreatePlayer returns a player over the device map, or nil before
// Startup. Events go to sink and to the bus.
func (m *Module) CreatePlayer(sink media.EventSink, samples media.SampleSink, opts ...player.Option) *player.Player {
	if !m.Started() {
		return nil
	}

	id := uuid.NewString()[:8]
	base := []player.Option{
		player.WithID(id),
		player.WithDisplayMode(m.DisplayMode),
		player.WithFramePool(m.pool),
		player.WithStateHook(func(_, to media.State) {
			m.bus.Publish(events.PlayerStateEvent{Player: id, State: to.String(), Timestamp: events.Now()})
		}),
	}
	return player.New(m.devices, m.bus.MediaSink(id, sink), samples, append(base, opts...)...)
}

// DeviceArrived implements devices.Observer.
func (m *Module) DeviceArrived(id uint8, input hardware.Input) {
	d := capture.NewDevice(id, input)
	if old := m.devices.Insert(d); old != nil {
		old.Close()
	}
	m.logger.Info("Device arrived", "device_id", id, "name", input.Name())
	m.bus.Publish(events.DeviceArrivedEvent{
		ID:           id,
		Name:         input.Name(),
		PersistentID: input.PersistentID(),
		URL:          devices.Selector(id),
		Timestamp:    events.Now(),
	})
}

// DeviceDeparted implements devices.Observer. The device is marked gone
// before it leaves the map, so a player mid-tick sees no new frame. Open
// sessions are not closed; their next Open fails with not found.
func (m *Module) DeviceDeparted(id uint8) {
	d, ok := m.devices.Get(id)
	if !ok {
		return
	}
	d.MarkGone()
	m.devices.Remove(id)
	if err := d.Close(); err != nil {
		m.logger.Debug("Closing departed device", "device_id", id, "error", err)
	}
	m.logger.Info("Device departed", "device_id", id)
	m.bus.Publish(events.DeviceDepartedEvent{
		ID:           id,
		PersistentID: d.PersistentID(),
		Timestamp:    events.Now(),
	})
}
