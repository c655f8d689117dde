package player

import (
	"time"

	"github.com/smazurov/sdinode/internal/media"
	"github.com/smazurov/sdinode/internal/metrics"
)

// TickInput applies the requested pause flag. It is the only transition
// between Playing and Paused, and sends one event per change. A closed
// player ignores it.
func (p *Player) TickInput(_ time.Duration) {
	current := p.State()
	switch current {
	case media.StateStopped, media.StatePlaying, media.StatePaused:
	default:
		return
	}

	want := media.StatePlaying
	if p.paused.Load() {
		want = media.StatePaused
	}
	if want == current {
		return
	}

	p.setState(want)
	if want == media.StatePlaying {
		p.logger.Debug("Playback resumed", "url", p.url)
		p.emit(media.EventPlaybackResumed)
	} else {
		p.logger.Debug("Playback suspended", "url", p.url)
		p.emit(media.EventPlaybackSuspended)
	}
}

// TickFetch publishes one sample if the device has a frame newer than the
// last fetch, then advances the playback time by delta.
func (p *Player) TickFetch(delta time.Duration) {
	if p.State() == media.StatePlaying && p.selectedVideo == 0 {
		p.fetch()
	}
	p.currentTime.Add(int64(delta))
}

func (p *Player) fetch() {
	device, ok := p.devices.Get(p.deviceID)
	if !ok {
		p.fetchMisses.Add(1)
		return
	}

	buf := p.pool.Get()
	if !device.GetFrame(buf) {
		p.pool.Put(buf)
		p.fetchMisses.Add(1)
		return
	}

	sample := media.NewVideoSample(buf, p.sampleFormat, p.Time(), sampleDuration(p.fps), p.pool.Put)
	if p.samples == nil {
		sample.Release()
		return
	}
	p.samples.AddVideo(sample)
	p.samplesEmitted.Add(1)
	metrics.IncSamples(p.id)
}
