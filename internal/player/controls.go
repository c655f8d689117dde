package player

import (
	"fmt"
	"math"
	"time"

	"github.com/smazurov/sdinode/internal/media"
)

// supportedRates is the full set of rates SetRate accepts.
var supportedRates = []float64{0, 1}

// State returns the lifecycle state.
func (p *Player) State() media.State {
	return media.State(p.state.Load())
}

// Status is Connecting while Preparing and None otherwise.
func (p *Player) Status() media.Status {
	if p.State() == media.StatePreparing {
		return media.StatusConnecting
	}
	return media.StatusNone
}

// CanControl reports whether c applies in the current state. Only pause
// while playing and resume while paused are possible.
func (p *Player) CanControl(c media.Control) bool {
	switch c {
	case media.ControlPause:
		return p.State() == media.StatePlaying
	case media.ControlResume:
		return p.State() == media.StatePaused
	default:
		return false
	}
}

// Duration is unbounded while playing a live input and zero otherwise.
func (p *Player) Duration() time.Duration {
	if p.State() == media.StatePlaying {
		return time.Duration(math.MaxInt64)
	}
	return 0
}

// Rate is 1 while playing and 0 otherwise.
func (p *Player) Rate() float64 {
	if p.State() == media.StatePlaying {
		return 1
	}
	return 0
}

// SupportedRates returns {0, 1} in every state.
func (p *Player) SupportedRates() []float64 {
	return append([]float64(nil), supportedRates...)
}

// SetRate requests pause (0) or resume (1). The change takes effect on the
// next TickInput. Any other rate fails without changing anything.
func (p *Player) SetRate(rate float64) error {
	switch rate {
	case 0:
		p.paused.Store(true)
	case 1:
		p.paused.Store(false)
	default:
		return fmt.Errorf("rate %g: %w", rate, ErrUnsupported)
	}
	return nil
}

// Paused reports the requested pause flag.
func (p *Player) Paused() bool {
	return p.paused.Load()
}

// Time returns the current playback time.
func (p *Player) Time() time.Duration {
	return time.Duration(p.currentTime.Load())
}

// IsLooping is always false.
func (p *Player) IsLooping() bool { return false }

// Seek is not supported on a live input.
func (p *Player) Seek(time.Duration) error {
	return fmt.Errorf("seek: %w", ErrUnsupported)
}

// SetLooping is not supported on a live input.
func (p *Player) SetLooping(bool) error {
	return fmt.Errorf("set looping: %w", ErrUnsupported)
}
