package testpattern

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smazurov/sdinode/internal/hardware"
)

var smallMode = hardware.DisplayMode{
	Name: "test", Width: 16, Height: 8, Duration: 1, TimeScale: 1000, Scan: hardware.ScanProgressive,
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestCard_DeliversIncreasingCounters(t *testing.T) {
	c := NewCard("a", "A", WithFrameInterval(time.Millisecond))

	var last atomic.Uint64
	var ordered atomic.Bool
	ordered.Store(true)
	c.SetFrameHandler(func(f hardware.VideoFrame) {
		n := FrameCounter(f.Bytes())
		if n <= last.Load() {
			ordered.Store(false)
		}
		last.Store(n)
		if f.Width() != 16 || f.Height() != 8 || f.RowBytes() != 64 {
			ordered.Store(false)
		}
	})

	if err := c.EnableVideoInput(smallMode, hardware.PixelFormat8BitBGRA); err != nil {
		t.Fatalf("EnableVideoInput: %v", err)
	}
	if err := c.StartStreams(); err != nil {
		t.Fatalf("StartStreams: %v", err)
	}
	waitFor(t, func() bool { return c.Delivered() >= 5 })

	if err := c.StopStreams(); err != nil {
		t.Fatalf("StopStreams: %v", err)
	}
	after := c.Delivered()
	time.Sleep(10 * time.Millisecond)
	if c.Delivered() != after {
		t.Error("frames delivered after StopStreams returned")
	}
	if !ordered.Load() {
		t.Error("frames out of order or wrong geometry")
	}
}

func TestCard_RejectsUnsupported(t *testing.T) {
	c := NewCard("a", "A")

	if err := c.EnableVideoInput(hardware.Mode4K2160p25, hardware.PixelFormat8BitBGRA); !errors.Is(err, hardware.ErrUnsupportedMode) {
		t.Errorf("4K mode error = %v, want ErrUnsupportedMode", err)
	}
	if err := c.EnableVideoInput(hardware.ModeHD1080p25, hardware.PixelFormat8BitYUV); !errors.Is(err, hardware.ErrUnsupportedMode) {
		t.Errorf("YUV format error = %v, want ErrUnsupportedMode", err)
	}
	if err := c.StartStreams(); err == nil {
		t.Error("StartStreams without enabled input should fail")
	}
}

func TestCard_NoSignalFlag(t *testing.T) {
	c := NewCard("a", "A", WithFrameInterval(time.Millisecond))
	c.SetSignal(false)

	var flagged atomic.Bool
	c.SetFrameHandler(func(f hardware.VideoFrame) {
		if f.HasNoInputSource() {
			flagged.Store(true)
		}
	})
	_ = c.EnableVideoInput(smallMode, hardware.PixelFormat8BitBGRA)
	_ = c.StartStreams()
	defer c.Close()

	waitFor(t, flagged.Load)
}

func TestCard_Unplug(t *testing.T) {
	c := NewCard("a", "A", WithFrameInterval(time.Millisecond))
	_ = c.EnableVideoInput(smallMode, hardware.PixelFormat8BitBGRA)
	c.SetFrameHandler(func(hardware.VideoFrame) {})
	_ = c.StartStreams()
	waitFor(t, func() bool { return c.Delivered() > 0 })

	c.Unplug()
	_ = c.StopStreams()

	if err := c.StartStreams(); !errors.Is(err, hardware.ErrDeviceGone) {
		t.Errorf("StartStreams after unplug = %v, want ErrDeviceGone", err)
	}
}

func TestDiscovery_EnumerateSkipsUnplugged(t *testing.T) {
	d := NewDiscovery(3)
	d.Cards()[1].Unplug()
	d.Plug("extra", "Extra")

	inputs, err := d.Enumerate(context.Background())
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}

	var ids []string
	for _, in := range inputs {
		ids = append(ids, in.PersistentID())
	}
	want := []string{"testpattern-0", "testpattern-2", "extra"}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d] = %s, want %s", i, ids[i], want[i])
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := d.Enumerate(ctx); err == nil {
		t.Error("Enumerate with cancelled context should fail")
	}
}

func TestCard_ManualStep(t *testing.T) {
	c := NewCard("manual", "Manual", WithManualDelivery())
	if c.Step() {
		t.Fatal("Step succeeded before streaming")
	}

	var got []uint64
	c.SetFrameHandler(func(f hardware.VideoFrame) {
		got = append(got, FrameCounter(f.Bytes()))
	})
	if err := c.EnableVideoInput(smallMode, hardware.PixelFormat8BitBGRA); err != nil {
		t.Fatal(err)
	}
	if err := c.StartStreams(); err != nil {
		t.Fatal(err)
	}
	for range 3 {
		if !c.Step() {
			t.Fatal("Step failed while streaming")
		}
	}
	if err := c.StopStreams(); err != nil {
		t.Fatal(err)
	}
	if c.Step() {
		t.Error("Step succeeded after StopStreams")
	}

	if len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Errorf("counters = %v, want [1 2 3]", got)
	}
	if c.Delivered() != 3 {
		t.Errorf("Delivered = %d", c.Delivered())
	}
}

func TestCard_StopStreamsWaitsForStep(t *testing.T) {
	c := NewCard("manual", "Manual", WithManualDelivery())

	entered := make(chan struct{})
	release := make(chan struct{})
	var stopped, late atomic.Bool
	c.SetFrameHandler(func(hardware.VideoFrame) {
		close(entered)
		<-release
		if stopped.Load() {
			late.Store(true)
		}
	})
	if err := c.EnableVideoInput(smallMode, hardware.PixelFormat8BitBGRA); err != nil {
		t.Fatal(err)
	}
	if err := c.StartStreams(); err != nil {
		t.Fatal(err)
	}

	stepped := make(chan bool, 1)
	go func() { stepped <- c.Step() }()
	<-entered

	stopDone := make(chan struct{})
	go func() {
		_ = c.StopStreams()
		stopped.Store(true)
		close(stopDone)
	}()

	select {
	case <-stopDone:
		t.Fatal("StopStreams returned while a Step was inside the handler")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	select {
	case <-stopDone:
	case <-time.After(2 * time.Second):
		t.Fatal("StopStreams did not return after the handler finished")
	}
	if !<-stepped {
		t.Error("Step reported no frame")
	}
	if late.Load() {
		t.Error("handler ran after StopStreams returned")
	}
	if c.Step() {
		t.Error("Step succeeded after StopStreams")
	}
}
