package config

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type watchedConfig struct {
	Name  string `toml:"name"`
	Value int    `toml:"value"`
}

func loadWatched(path string) (watchedConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return watchedConfig{}, err
	}
	var cfg watchedConfig
	err = toml.Unmarshal(data, &cfg)
	return cfg, err
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func startWatcher(t *testing.T, initial string, opts ...WatcherOption[watchedConfig]) (*Watcher[watchedConfig], string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(initial), 0o644); err != nil {
		t.Fatal(err)
	}

	opts = append([]WatcherOption[watchedConfig]{WithDebounce[watchedConfig](50 * time.Millisecond)}, opts...)
	w := NewConfigWatcher(path, loadWatched, newTestLogger(), opts...)
	return w, path
}

func run(t *testing.T, w *Watcher[watchedConfig]) {
	t.Helper()
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := w.Stop(); err != nil {
			t.Errorf("Stop: %v", err)
		}
	})
	time.Sleep(50 * time.Millisecond)
}

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestWatcher_Reload(t *testing.T) {
	w, path := startWatcher(t, "name = \"initial\"\nvalue = 1\n")
	received := make(chan watchedConfig, 4)
	w.OnReload(func(cfg watchedConfig) { received <- cfg })
	run(t, w)

	write(t, path, "name = \"updated\"\nvalue = 42\n")

	select {
	case cfg := <-received:
		if cfg.Name != "updated" || cfg.Value != 42 {
			t.Errorf("got %+v", cfg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload")
	}
}

func TestWatcher_ReplacedFile(t *testing.T) {
	w, path := startWatcher(t, "value = 1\n")
	received := make(chan watchedConfig, 4)
	w.OnReload(func(cfg watchedConfig) { received <- cfg })
	run(t, w)

	tmp := path + ".tmp"
	write(t, tmp, "value = 7\n")
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-received:
		if cfg.Value != 7 {
			t.Errorf("Value = %d, want 7", cfg.Value)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload after rename")
	}
}

func TestWatcher_Debounce(t *testing.T) {
	w, path := startWatcher(t, "value = 0\n")
	var calls atomic.Int32
	var last atomic.Int32
	w.OnReload(func(cfg watchedConfig) {
		calls.Add(1)
		last.Store(int32(cfg.Value))
	})
	run(t, w)

	for i := 1; i <= 5; i++ {
		write(t, path, "value = "+string(rune('0'+i))+"\n")
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(300 * time.Millisecond)

	if got := calls.Load(); got != 1 {
		t.Errorf("handler called %d times, want 1", got)
	}
	if got := last.Load(); got != 5 {
		t.Errorf("last value = %d, want 5", got)
	}
}

func TestWatcher_Unsubscribe(t *testing.T) {
	w, path := startWatcher(t, "value = 1\n")
	var kept, removed atomic.Int32
	w.OnReload(func(watchedConfig) { kept.Add(1) })
	unsub := w.OnReload(func(watchedConfig) { removed.Add(1) })
	run(t, w)

	write(t, path, "value = 10\n")
	time.Sleep(250 * time.Millisecond)
	unsub()
	write(t, path, "value = 20\n")
	time.Sleep(250 * time.Millisecond)

	if got := kept.Load(); got != 2 {
		t.Errorf("kept handler: %d calls, want 2", got)
	}
	if got := removed.Load(); got != 1 {
		t.Errorf("removed handler: %d calls, want 1", got)
	}
}

func TestWatcher_ErrorHandler(t *testing.T) {
	errs := make(chan error, 4)
	w, path := startWatcher(t, "value = 1\n", WithErrorHandler[watchedConfig](func(err error) { errs <- err }))
	var calls atomic.Int32
	w.OnReload(func(watchedConfig) { calls.Add(1) })
	run(t, w)

	write(t, path, "value = [broken\n")

	select {
	case err := <-errs:
		if err == nil {
			t.Error("nil error passed to handler")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for error")
	}
	if calls.Load() != 0 {
		t.Error("reload handler called for an invalid file")
	}
}

func TestWatcher_StopWithoutStart(t *testing.T) {
	w := NewConfigWatcher("unused.toml", func(string) (watchedConfig, error) {
		return watchedConfig{}, errors.New("unused")
	}, newTestLogger())
	if err := w.Stop(); err != nil {
		t.Errorf("Stop before Start: %v", err)
	}
}
