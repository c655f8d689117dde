package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Config represents logging configuration.
type Config struct {
	Level   string            `toml:"level"`
	Format  string            `toml:"format"`
	Modules map[string]string `toml:"modules"`
}

type moduleEntry struct {
	logger *slog.Logger
	level  *slog.LevelVar
}

var (
	mutex       sync.RWMutex
	modules     = make(map[string]*moduleEntry)
	config      Config
	initialized bool
	output      io.Writer = os.Stdout
)

// Initialize installs the configuration. Loggers handed out earlier keep
// working; their levels and handlers are updated in place.
func Initialize(cfg Config) {
	mutex.Lock()
	defer mutex.Unlock()

	config = cfg
	initialized = true

	global := levelOrDefault(cfg.Level, slog.LevelInfo)
	for name, entry := range modules {
		entry.level.Set(moduleLevel(name, global))
		entry.logger = newModuleLogger(name, entry.level)
	}

	defaultLevel := &slog.LevelVar{}
	defaultLevel.Set(global)
	slog.SetDefault(slog.New(newHandler(cfg.Format, defaultLevel)))
}

// GetLogger returns the logger for module, creating it on first use.
func GetLogger(module string) *slog.Logger {
	mutex.RLock()
	entry, ok := modules[module]
	mutex.RUnlock()
	if ok {
		return entry.logger
	}

	mutex.Lock()
	defer mutex.Unlock()
	if entry, ok := modules[module]; ok {
		return entry.logger
	}

	level := &slog.LevelVar{}
	level.Set(slog.LevelInfo)
	if initialized {
		level.Set(moduleLevel(module, levelOrDefault(config.Level, slog.LevelInfo)))
	}

	entry = &moduleEntry{level: level, logger: newModuleLogger(module, level)}
	modules[module] = entry
	return entry.logger
}

// SetLevel changes a module's level at runtime. It reports false for an
// unknown level name.
func SetLevel(module, level string) bool {
	l, ok := parseLevel(level)
	if !ok {
		return false
	}
	GetLogger(module)

	mutex.RLock()
	modules[module].level.Set(l)
	mutex.RUnlock()
	return true
}

func moduleLevel(module string, global slog.Level) slog.Level {
	if s, ok := config.Modules[module]; ok {
		if l, ok := parseLevel(s); ok {
			return l
		}
	}
	return global
}

func newModuleLogger(module string, level slog.Leveler) *slog.Logger {
	format := "text"
	if initialized {
		format = config.Format
	}
	return slog.New(newHandler(format, level)).With("module", module)
}

// newHandler writes to stdout when it is attached and to the journal when
// journald is running.
func newHandler(format string, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}

	var stdout slog.Handler
	if format == "json" {
		stdout = slog.NewJSONHandler(output, opts)
	} else {
		stdout = slog.NewTextHandler(output, opts)
	}

	var handlers []slog.Handler
	if output != os.Stdout || isStdoutAvailable() {
		handlers = append(handlers, stdout)
	}
	if IsJournalAvailable() {
		handlers = append(handlers, NewJournalHandler(level))
	}

	switch len(handlers) {
	case 0:
		return stdout
	case 1:
		return handlers[0]
	default:
		return NewMultiHandler(handlers...)
	}
}

// isStdoutAvailable is false when stdout is /dev/null, as under some
// service managers.
func isStdoutAvailable() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	mode := fi.Mode()
	return mode&(os.ModeCharDevice|os.ModeNamedPipe|os.ModeSocket) != 0 || mode.IsRegular()
}

func levelOrDefault(s string, def slog.Level) slog.Level {
	if l, ok := parseLevel(s); ok {
		return l
	}
	return def
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return 0, false
	}
}
