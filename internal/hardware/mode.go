package hardware

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ScanType is how the lines of a frame are transmitted.
type ScanType string

// Scan types.
const (
	ScanProgressive        ScanType = "progressive"
	ScanInterlaced         ScanType = "interlaced"
	ScanProgressiveSegment ScanType = "psf"
)

// DisplayMode is a resolution, frame rate and scan type combination.
type DisplayMode struct {
	Name      string
	Width     int
	Height    int
	Duration  int64 // frame duration in TimeScale units
	TimeScale int64
	Scan      ScanType
}

// FPS returns the frame rate.
func (m DisplayMode) FPS() float64 {
	if m.Duration == 0 {
		return 0
	}
	return float64(m.TimeScale) / float64(m.Duration)
}

// FrameInterval returns the wall-clock time between frames.
func (m DisplayMode) FrameInterval() time.Duration {
	if m.TimeScale == 0 {
		return 0
	}
	return time.Duration(m.Duration * int64(time.Second) / m.TimeScale)
}

// IsZero reports whether m is the zero mode.
func (m DisplayMode) IsZero() bool {
	return m.Width == 0 && m.Height == 0
}

func (m DisplayMode) String() string {
	return fmt.Sprintf("%s (%dx%d %.2f %s)", m.Name, m.Width, m.Height, m.FPS(), m.Scan)
}

// Display modes, named after the broadcast convention used by SDI cards.
var (
	ModeNTSC = DisplayMode{"NTSC", 720, 486, 1001, 30000, ScanInterlaced}
	ModePAL  = DisplayMode{"PAL", 720, 576, 1000, 25000, ScanInterlaced}

	ModeHD720p50   = DisplayMode{"HD720p50", 1280, 720, 1000, 50000, ScanProgressive}
	ModeHD720p5994 = DisplayMode{"HD720p5994", 1280, 720, 1001, 60000, ScanProgressive}
	ModeHD720p60   = DisplayMode{"HD720p60", 1280, 720, 1000, 60000, ScanProgressive}

	ModeHD1080p2398 = DisplayMode{"HD1080p2398", 1920, 1080, 1001, 24000, ScanProgressive}
	ModeHD1080p24   = DisplayMode{"HD1080p24", 1920, 1080, 1000, 24000, ScanProgressive}
	ModeHD1080p25   = DisplayMode{"HD1080p25", 1920, 1080, 1000, 25000, ScanProgressive}
	ModeHD1080p2997 = DisplayMode{"HD1080p2997", 1920, 1080, 1001, 30000, ScanProgressive}
	ModeHD1080p30   = DisplayMode{"HD1080p30", 1920, 1080, 1000, 30000, ScanProgressive}
	ModeHD1080p50   = DisplayMode{"HD1080p50", 1920, 1080, 1000, 50000, ScanProgressive}
	ModeHD1080p5994 = DisplayMode{"HD1080p5994", 1920, 1080, 1001, 60000, ScanProgressive}
	ModeHD1080p60   = DisplayMode{"HD1080p60", 1920, 1080, 1000, 60000, ScanProgressive}

	ModeHD1080i50   = DisplayMode{"HD1080i50", 1920, 1080, 1000, 25000, ScanInterlaced}
	ModeHD1080i5994 = DisplayMode{"HD1080i5994", 1920, 1080, 1001, 30000, ScanInterlaced}

	ModeHD1080PsF2398 = DisplayMode{"HD1080PsF2398", 1920, 1080, 1001, 24000, ScanProgressiveSegment}

	Mode4K2160p2398 = DisplayMode{"4K2160p2398", 3840, 2160, 1001, 24000, ScanProgressive}
	Mode4K2160p25   = DisplayMode{"4K2160p25", 3840, 2160, 1000, 25000, ScanProgressive}
	Mode4K2160p2997 = DisplayMode{"4K2160p2997", 3840, 2160, 1001, 30000, ScanProgressive}
	Mode4K2160p30   = DisplayMode{"4K2160p30", 3840, 2160, 1000, 30000, ScanProgressive}
)

// DefaultMode is applied when no mode is configured.
var DefaultMode = ModeHD1080p2398

var modesByName = func() map[string]DisplayMode {
	all := []DisplayMode{
		ModeNTSC, ModePAL,
		ModeHD720p50, ModeHD720p5994, ModeHD720p60,
		ModeHD1080p2398, ModeHD1080p24, ModeHD1080p25, ModeHD1080p2997, ModeHD1080p30,
		ModeHD1080p50, ModeHD1080p5994, ModeHD1080p60,
		ModeHD1080i50, ModeHD1080i5994, ModeHD1080PsF2398,
		Mode4K2160p2398, Mode4K2160p25, Mode4K2160p2997, Mode4K2160p30,
	}
	m := make(map[string]DisplayMode, len(all))
	for _, mode := range all {
		m[strings.ToLower(mode.Name)] = mode
	}
	return m
}()

// ParseDisplayMode resolves a mode by name, case-insensitively.
func ParseDisplayMode(name string) (DisplayMode, error) {
	mode, ok := modesByName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return DisplayMode{}, fmt.Errorf("unknown display mode %q", name)
	}
	return mode, nil
}

// DisplayModes returns every known mode sorted by name.
func DisplayModes() []DisplayMode {
	modes := make([]DisplayMode, 0, len(modesByName))
	for _, m := range modesByName {
		modes = append(modes, m)
	}
	sort.Slice(modes, func(i, j int) bool { return modes[i].Name < modes[j].Name })
	return modes
}
