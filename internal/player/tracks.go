package player

import (
	"fmt"

	"github.com/smazurov/sdinode/internal/media"
)

// NumTracks is 1 for video while a device is open and 0 otherwise.
func (p *Player) NumTracks(t media.TrackType) int {
	if p.hasDevice && t == media.TrackVideo {
		return 1
	}
	return 0
}

// NumTrackFormats is 1 for track 0 of a type that has tracks.
func (p *Player) NumTrackFormats(t media.TrackType, track int) int {
	if track == 0 && p.NumTracks(t) > 0 {
		return 1
	}
	return 0
}

// SelectedTrack returns the selected video track, or IndexNone.
func (p *Player) SelectedTrack(t media.TrackType) int {
	if !p.hasDevice || t != media.TrackVideo {
		return media.IndexNone
	}
	return p.selectedVideo
}

// SelectTrack selects (0) or deselects (IndexNone) the video track.
func (p *Player) SelectTrack(t media.TrackType, track int) error {
	if track != media.IndexNone && track != 0 {
		return fmt.Errorf("select %s track %d: %w", t, track, ErrUnsupported)
	}
	if t != media.TrackVideo {
		return fmt.Errorf("select %s track: %w", t, ErrUnsupported)
	}

	p.mu.Lock()
	p.selectedVideo = track
	p.mu.Unlock()
	return nil
}

// TrackFormat is 0 when a track of type t is selected.
func (p *Player) TrackFormat(t media.TrackType, _ int) int {
	if p.SelectedTrack(t) != media.IndexNone {
		return 0
	}
	return media.IndexNone
}

// SetTrackFormat accepts only format 0 of video track 0.
func (p *Player) SetTrackFormat(t media.TrackType, track, format int) error {
	if track != 0 || format != 0 || t != media.TrackVideo {
		return fmt.Errorf("set %s track %d format %d: %w", t, track, format, ErrUnsupported)
	}
	return nil
}

// TrackDisplayName names track 0 of each type while a device is open.
func (p *Player) TrackDisplayName(t media.TrackType, track int) string {
	if !p.hasDevice || track != 0 {
		return ""
	}
	switch t {
	case media.TrackAudio:
		return "Audio Track"
	case media.TrackMetadata:
		return "Metadata Track"
	case media.TrackVideo:
		return "Video Track"
	default:
		return ""
	}
}

// TrackLanguage is undetermined for captured input.
func (p *Player) TrackLanguage(media.TrackType, int) string { return "und" }

// TrackName is empty.
func (p *Player) TrackName(media.TrackType, int) string { return "" }

// VideoTrackFormat describes format 0 of video track 0.
func (p *Player) VideoTrackFormat(track, format int) (media.VideoTrackFormat, error) {
	if track != 0 || format != 0 {
		return media.VideoTrackFormat{}, fmt.Errorf("video track %d format %d: %w", track, format, ErrUnsupported)
	}
	return media.VideoTrackFormat{
		Dim:        p.dim,
		FrameRate:  p.fps,
		FrameRates: [2]float64{p.fps, p.fps},
		TypeName:   p.sampleFormat.String(),
	}, nil
}

// AudioTrackFormat fails; there is no audio capture.
func (p *Player) AudioTrackFormat(track, format int) error {
	return fmt.Errorf("audio track %d format %d: %w", track, format, ErrUnsupported)
}
