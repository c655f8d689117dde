package led

import (
	"log/slog"
	"sync"

	"github.com/smazurov/sdinode/internal/events"
	"github.com/smazurov/sdinode/internal/media"
)

// Tally follows one player's state on the event bus and mirrors it on the
// tally LED.
type Tally struct {
	controller Controller
	bus        *events.Bus
	player     string
	logger     *slog.Logger

	mu          sync.Mutex
	unsubscribe func()
	current     Pattern
}

// NewTally creates a tally for the player with the given id.
func NewTally(controller Controller, bus *events.Bus, player string, logger *slog.Logger) *Tally {
	return &Tally{
		controller: controller,
		bus:        bus,
		player:     player,
		logger:     logger,
	}
}

// Start turns the LED off and begins following state events.
func (t *Tally) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.unsubscribe != nil {
		return
	}
	t.setLocked(PatternOff)
	t.unsubscribe = t.bus.Subscribe(func(e events.PlayerStateEvent) {
		if e.Player == t.player {
			t.apply(e.State)
		}
	})
	t.logger.Info("Tally LED started", "player", t.player)
}

// Stop unsubscribes and turns the LED off.
func (t *Tally) Stop() {
	t.mu.Lock()
	unsubscribe := t.unsubscribe
	t.unsubscribe = nil
	t.mu.Unlock()
	if unsubscribe == nil {
		return
	}

	// Outside the lock: a handler may be waiting on it.
	unsubscribe()

	t.mu.Lock()
	t.setLocked(PatternOff)
	t.mu.Unlock()
}

// Current returns the last pattern set.
func (t *Tally) Current() Pattern {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

func (t *Tally) apply(state string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.unsubscribe == nil {
		return
	}
	t.setLocked(PatternFor(state))
}

func (t *Tally) setLocked(p Pattern) {
	if p == t.current {
		return
	}
	if err := t.controller.Set(RoleTally, p); err != nil {
		t.logger.Warn("Failed to set tally LED", "pattern", p, "error", err)
		return
	}
	t.current = p
	t.logger.Debug("Tally LED changed", "pattern", p)
}

// PatternFor maps a player state name to the tally pattern.
func PatternFor(state string) Pattern {
	switch state {
	case media.StatePlaying.String():
		return PatternSolid
	case media.StatePaused.String(), media.StateStopped.String(), media.StatePreparing.String():
		return PatternBlink
	default:
		return PatternOff
	}
}
