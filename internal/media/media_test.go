package media

import (
	"testing"
	"time"

	"github.com/smazurov/sdinode/internal/frame"
)

func TestVideoSample_Geometry(t *testing.T) {
	buf := frame.NewBuffer(1918, 4, 1920*4)
	s := NewVideoSample(buf, SampleFormatCharBGRA, time.Second, time.Second/24, nil)

	if got := s.Dim(); got != (Dim{X: 1920, Y: 4}) {
		t.Errorf("Dim = %+v, want 1920x4", got)
	}
	if got := s.OutputDim(); got != (Dim{X: 1918, Y: 4}) {
		t.Errorf("OutputDim = %+v, want 1918x4", got)
	}
	if s.Stride() != 1920*4 {
		t.Errorf("Stride = %d", s.Stride())
	}
	if len(s.Buffer()) != 1920*4*4 {
		t.Errorf("len(Buffer) = %d", len(s.Buffer()))
	}
	if !s.IsCacheable() || !s.IsOutputSRGB() {
		t.Error("sample should be cacheable and sRGB")
	}
}

func TestVideoSample_ReleaseOnce(t *testing.T) {
	var released int
	s := NewVideoSample(frame.NewBuffer(2, 2, 8), SampleFormatCharBGRA, 0, 0, func(*frame.Buffer) { released++ })

	s.Release()
	s.Release()

	if released != 1 {
		t.Errorf("release called %d times, want 1", released)
	}
	if s.Frame != nil {
		t.Error("Frame should be cleared after Release")
	}
}

func TestStrings(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{StatePlaying.String(), "playing"},
		{StateClosed.String(), "closed"},
		{StatusConnecting.String(), "connecting"},
		{EventTracksChanged.String(), "TracksChanged"},
		{EventPlaybackSuspended.String(), "PlaybackSuspended"},
		{TrackVideo.String(), "video"},
		{SampleFormatCharBGRA.String(), "BGRA"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}
