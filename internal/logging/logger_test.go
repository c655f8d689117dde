package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"
)

func resetForTest(t *testing.T, w *bytes.Buffer) {
	t.Helper()
	mutex.Lock()
	modules = make(map[string]*moduleEntry)
	config = Config{}
	initialized = false
	output = w
	mutex.Unlock()

	t.Cleanup(func() {
		mutex.Lock()
		output = os.Stdout
		modules = make(map[string]*moduleEntry)
		mutex.Unlock()
	})
}

func enabled(l *slog.Logger, level slog.Level) bool {
	return l.Handler().Enabled(context.Background(), level)
}

func TestModuleLevelOverride(t *testing.T) {
	resetForTest(t, &bytes.Buffer{})

	Initialize(Config{
		Level:  "info",
		Format: "text",
		Modules: map[string]string{
			"capture": "debug",
			"api":     "warn",
		},
	})

	tests := []struct {
		module    string
		wantDebug bool
		wantInfo  bool
		wantWarn  bool
	}{
		{"capture", true, true, true},
		{"api", false, false, true},
		{"player", false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.module, func(t *testing.T) {
			logger := GetLogger(tt.module)
			if got := enabled(logger, slog.LevelDebug); got != tt.wantDebug {
				t.Errorf("Debug enabled = %v, want %v", got, tt.wantDebug)
			}
			if got := enabled(logger, slog.LevelInfo); got != tt.wantInfo {
				t.Errorf("Info enabled = %v, want %v", got, tt.wantInfo)
			}
			if got := enabled(logger, slog.LevelWarn); got != tt.wantWarn {
				t.Errorf("Warn enabled = %v, want %v", got, tt.wantWarn)
			}
		})
	}
}

func TestGetLoggerBeforeInitialize(t *testing.T) {
	resetForTest(t, &bytes.Buffer{})

	before := GetLogger("capture")
	if enabled(before, slog.LevelDebug) {
		t.Error("logger created before Initialize should default to info")
	}

	Initialize(Config{Level: "info", Modules: map[string]string{"capture": "debug"}})

	if !enabled(GetLogger("capture"), slog.LevelDebug) {
		t.Error("logger should have debug enabled after Initialize")
	}
}

func TestModuleAttributeWritten(t *testing.T) {
	var buf bytes.Buffer
	resetForTest(t, &buf)
	Initialize(Config{Level: "debug", Format: "text"})

	GetLogger("player").Debug("media opened", "url", "sdi://1")

	out := buf.String()
	for _, want := range []string{"module=player", "media opened", "url=sdi://1", "level=DEBUG"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}
}

func TestSetLevel(t *testing.T) {
	resetForTest(t, &bytes.Buffer{})

	logger := GetLogger("devices")
	if !SetLevel("devices", "error") {
		t.Fatal("SetLevel returned false for a valid level")
	}
	if enabled(logger, slog.LevelWarn) {
		t.Error("warn should be disabled after SetLevel(error)")
	}
	if SetLevel("devices", "loud") {
		t.Error("SetLevel accepted an invalid level")
	}
}

func TestMultiHandler_EachEnabledHandlerWritesOnce(t *testing.T) {
	var buf bytes.Buffer
	debug := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	info := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})

	logger := slog.New(NewMultiHandler(debug, info)).With("module", "test")
	logger.Debug("debug only message")
	logger.Info("both message")

	out := buf.String()
	if n := strings.Count(out, "debug only message"); n != 1 {
		t.Errorf("debug message written %d times, want 1", n)
	}
	if n := strings.Count(out, "both message"); n != 2 {
		t.Errorf("info message written %d times, want 2", n)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input  string
		want   slog.Level
		wantOK bool
	}{
		{"debug", slog.LevelDebug, true},
		{"DEBUG", slog.LevelDebug, true},
		{"info", slog.LevelInfo, true},
		{"warn", slog.LevelWarn, true},
		{"warning", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"invalid", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := parseLevel(tt.input)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("parseLevel(%q) = %v, %v, want %v, %v", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
