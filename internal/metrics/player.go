package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	playerSamples = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sdinode",
		Subsystem: "player",
		Name:      "samples_total",
		Help:      "Video samples published to the sample sink",
	}, []string{"player"})

	playerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "sdinode",
		Subsystem: "player",
		Name:      "state",
		Help:      "1 for the player's current lifecycle state, 0 for the others",
	}, []string{"player", "state"})

	playerOpens = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sdinode",
		Subsystem: "player",
		Name:      "opens_total",
		Help:      "Open attempts by result",
	}, []string{"result"})

	queueDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sdinode",
		Subsystem: "samples",
		Name:      "dropped_total",
		Help:      "Samples evicted from a full sample queue",
	})
)

// PlayerStates lists the label values used by the state gauge.
var PlayerStates = []string{"closed", "preparing", "stopped", "playing", "paused", "error"}

// IncSamples counts one published sample for a player.
func IncSamples(player string) {
	playerSamples.WithLabelValues(player).Inc()
}

// SetPlayerState marks state as current for a player.
func SetPlayerState(player, state string) {
	for _, s := range PlayerStates {
		v := 0.0
		if s == state {
			v = 1
		}
		playerState.WithLabelValues(player, s).Set(v)
	}
}

// DeletePlayer removes the state and sample series of a player.
func DeletePlayer(player string) {
	playerState.DeletePartialMatch(prometheus.Labels{"player": player})
	playerSamples.DeleteLabelValues(player)
}

// IncOpen counts an open attempt; result is "ok" or an error class.
func IncOpen(result string) {
	playerOpens.WithLabelValues(result).Inc()
}

// IncQueueDropped counts one evicted sample.
func IncQueueDropped() {
	queueDropped.Inc()
}
