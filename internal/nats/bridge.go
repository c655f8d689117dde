package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/smazurov/sdinode/internal/capture"
	"github.com/smazurov/sdinode/internal/events"
	"github.com/smazurov/sdinode/internal/media"
	"github.com/smazurov/sdinode/internal/playback"
	"github.com/smazurov/sdinode/internal/player"
)

// Runner executes fn on the goroutine that owns the player.
type Runner interface {
	Do(ctx context.Context, fn func()) error
}

var errUnknownAction = errors.New("unknown action")

// controlTimeout bounds how long a control request waits for the tick
// goroutine.
const controlTimeout = 2 * time.Second

// Bridge publishes event bus events to NATS and serves control requests
// for one player.
type Bridge struct {
	url    string
	bus    *events.Bus
	player *player.Player
	runner Runner
	logger *slog.Logger

	mu     sync.Mutex
	conn   *nats.Conn
	sub    *nats.Subscription
	unsubs []func()
}

// NewBridge creates a bridge for p. Control requests run through runner.
func NewBridge(url string, bus *events.Bus, p *player.Player, runner Runner, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		url:    url,
		bus:    bus,
		player: p,
		runner: runner,
		logger: logger.With("component", "nats-bridge"),
	}
}

// Start connects, subscribes to the player's control subject and begins
// forwarding bus events.
func (b *Bridge) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	conn, err := nats.Connect(b.url,
		nats.Name("sdinode-"+b.player.ID()),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				b.logger.Warn("NATS bridge disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			b.logger.Info("NATS bridge reconnected")
		}),
	)
	if err != nil {
		return fmt.Errorf("connect %s: %w", b.url, err)
	}

	sub, err := conn.Subscribe(SubjectControl(b.player.ID()), b.handleControl)
	if err != nil {
		conn.Close()
		return fmt.Errorf("subscribe control: %w", err)
	}
	if err := conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		conn.Close()
		return fmt.Errorf("flush: %w", err)
	}

	b.conn = conn
	b.sub = sub
	b.unsubs = []func(){
		b.bus.Subscribe(func(e events.PlayerStateEvent) {
			if e.Player == b.player.ID() {
				b.publish(SubjectPlayerState(e.Player), e)
			}
		}),
		b.bus.Subscribe(func(e events.MediaEvent) {
			if e.Player == b.player.ID() {
				b.publish(SubjectPlayerMedia(e.Player), e)
			}
		}),
		b.bus.Subscribe(func(e events.DeviceArrivedEvent) {
			b.publish(SubjectDeviceArrived, e)
		}),
		b.bus.Subscribe(func(e events.DeviceDepartedEvent) {
			b.publish(SubjectDeviceDeparted, e)
		}),
	}

	b.logger.Info("NATS bridge connected", "url", b.url, "control", SubjectControl(b.player.ID()))
	return nil
}

// Stop unsubscribes from the bus and closes the connection.
func (b *Bridge) Stop() {
	b.mu.Lock()
	unsubs := b.unsubs
	b.unsubs = nil
	b.mu.Unlock()

	// Bus handlers take b.mu in publish, so unsubscribe outside the lock.
	for _, unsub := range unsubs {
		unsub()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sub != nil {
		_ = b.sub.Unsubscribe()
		b.sub = nil
	}
	if b.conn != nil {
		b.conn.Close()
		b.conn = nil
		b.logger.Info("NATS bridge stopped")
	}
}

// IsConnected returns true if the bridge is connected to NATS.
func (b *Bridge) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil && b.conn.IsConnected()
}

// publish sends v as JSON. It is a no-op while disconnected.
func (b *Bridge) publish(subject string, v any) {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil {
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		b.logger.Warn("Failed to marshal event", "subject", subject, "error", err)
		return
	}
	if err := conn.Publish(subject, data); err != nil {
		b.logger.Debug("Failed to publish event", "subject", subject, "error", err)
	}
}

func (b *Bridge) handleControl(msg *nats.Msg) {
	reply := b.control(msg.Data)
	if msg.Reply == "" {
		return
	}
	data, err := reply.Marshal()
	if err != nil {
		b.logger.Warn("Failed to marshal control reply", "error", err)
		return
	}
	if err := msg.Respond(data); err != nil {
		b.logger.Debug("Failed to send control reply", "error", err)
	}
}

// control decodes and executes one request.
func (b *Bridge) control(data []byte) ControlReply {
	ctrl, err := UnmarshalControl(data)
	if err != nil {
		b.logger.Warn("Failed to unmarshal control message", "error", err)
		return ControlReply{Code: CodeBadRequest, Error: err.Error()}
	}

	op, err := b.operation(ctrl)
	if err != nil {
		return ControlReply{Code: CodeBadRequest, Error: err.Error()}
	}

	b.logger.Info("Received control command", "action", ctrl.Action, "url", ctrl.URL)

	ctx, cancel := context.WithTimeout(context.Background(), controlTimeout)
	defer cancel()

	var opErr error
	if err := b.runner.Do(ctx, func() { opErr = op() }); err != nil {
		opErr = err
	}

	stats := b.player.Stats()
	if opErr != nil {
		return ControlReply{Code: errorCode(opErr), Error: opErr.Error(), Stats: &stats}
	}
	return ControlReply{OK: true, Stats: &stats}
}

func (b *Bridge) operation(ctrl ControlMessage) (func() error, error) {
	p := b.player
	switch ctrl.Action {
	case ActionOpen:
		return func() error { return p.Open(ctrl.URL, nil) }, nil
	case ActionClose:
		return func() error { p.Close(); return nil }, nil
	case ActionRate:
		return func() error { return p.SetRate(ctrl.Rate) }, nil
	case ActionTrack:
		return func() error { return p.SelectTrack(media.TrackVideo, ctrl.Index) }, nil
	case ActionStatus:
		return func() error { return nil }, nil
	default:
		return nil, fmt.Errorf("%w %q", errUnknownAction, ctrl.Action)
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, player.ErrInvalidURL):
		return CodeInvalidURL
	case errors.Is(err, player.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, player.ErrUnsupported), errors.Is(err, capture.ErrModeNotSupported):
		return CodeUnsupported
	case errors.Is(err, capture.ErrAlreadyCapturing):
		return CodeBusy
	case errors.Is(err, playback.ErrStopped),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return CodeUnavailable
	default:
		return CodeError
	}
}
