package main

import (
	"log/slog"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/smazurov/sdinode/cmd"
	"github.com/smazurov/sdinode/internal/config"
	"github.com/smazurov/sdinode/internal/logging"
	"github.com/smazurov/sdinode/internal/version"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port string `help:"Port to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`

	// Auth settings; empty credentials disable auth
	AuthUsername string `help:"Basic auth username" default:"" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Capture settings
	CaptureDisplayMode      string `help:"Display mode negotiated on open" default:"HD1080p2398" toml:"capture.display_mode" env:"CAPTURE_DISPLAY_MODE"`
	CaptureSimulatedDevices int    `help:"Number of simulated test pattern inputs" default:"2" toml:"capture.simulated_devices" env:"CAPTURE_SIMULATED_DEVICES"`
	CaptureHotplug          bool   `help:"Rescan devices on kernel hotplug events" default:"false" toml:"capture.hotplug" env:"CAPTURE_HOTPLUG"`

	// Playback settings
	PlaybackTickRate  int `help:"Display ticks per second" default:"60" toml:"playback.tick_rate" env:"PLAYBACK_TICK_RATE"`
	PlaybackQueueSize int `help:"Samples buffered between fetch and present" default:"4" toml:"playback.queue_size" env:"PLAYBACK_QUEUE_SIZE"`

	// Player settings
	PlayerURL string `help:"Device selector opened and played at startup" default:"" toml:"player.url" env:"PLAYER_URL"`

	// NATS settings; an empty url with embedded off disables the bridge
	NatsURL      string `help:"NATS server the event bridge connects to" default:"" toml:"nats.url" env:"NATS_URL"`
	NatsEmbedded bool   `help:"Run an embedded NATS server" default:"false" toml:"nats.embedded" env:"NATS_EMBEDDED"`
	NatsPort     int    `help:"Embedded NATS server port" default:"4222" toml:"nats.port" env:"NATS_PORT"`

	// Metrics settings
	MetricsEnabled bool `help:"Serve Prometheus metrics on /metrics" default:"true" toml:"metrics.enabled" env:"METRICS_ENABLED"`

	// Features settings
	FeaturesTallyLED bool `help:"Mirror the player state on the board LED" default:"false" toml:"features.tally_led" env:"FEATURES_TALLY_LED"`

	// Logging settings
	LoggingLevel    string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat   string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingCapture  string `help:"Capture logging level" default:"" toml:"logging.capture" env:"LOGGING_CAPTURE"`
	LoggingDevices  string `help:"Devices logging level" default:"" toml:"logging.devices" env:"LOGGING_DEVICES"`
	LoggingPlayer   string `help:"Player logging level" default:"" toml:"logging.player" env:"LOGGING_PLAYER"`
	LoggingPlayback string `help:"Playback driver logging level" default:"" toml:"logging.playback" env:"LOGGING_PLAYBACK"`
	LoggingAPI      string `help:"API logging level" default:"" toml:"logging.api" env:"LOGGING_API"`
	LoggingHTTP     string `help:"HTTP request logging level" default:"" toml:"logging.http" env:"LOGGING_HTTP"`
	LoggingNats     string `help:"NATS bridge logging level" default:"" toml:"logging.nats" env:"LOGGING_NATS"`
}

// loggingConfig maps the flat options to per-module levels. Empty module
// levels inherit the global level.
func (o *Options) loggingConfig() logging.Config {
	modules := map[string]string{
		"capture":  o.LoggingCapture,
		"devices":  o.LoggingDevices,
		"player":   o.LoggingPlayer,
		"playback": o.LoggingPlayback,
		"api":      o.LoggingAPI,
		"http":     o.LoggingHTTP,
		"nats":     o.LoggingNats,
	}
	for name, level := range modules {
		if level == "" {
			delete(modules, name)
		}
	}
	return logging.Config{
		Level:   o.LoggingLevel,
		Format:  o.LoggingFormat,
		Modules: modules,
	}
}

func (o *Options) settings() cmd.Settings {
	return cmd.Settings{
		SimulatedDevices: o.CaptureSimulatedDevices,
		DisplayMode:      o.CaptureDisplayMode,
		TickRate:         o.PlaybackTickRate,
		QueueSize:        o.PlaybackQueueSize,
	}
}

func main() {
	var cli humacli.CLI
	var parsed *Options

	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// Flags on the command line win over env and file values
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}
		logging.Initialize(opts.loggingConfig())
		parsed = opts

		app := newService(opts)
		hooks.OnStart(app.run)
		hooks.OnStop(app.stop)
	})

	root := cli.Root()
	root.Use = "sdinode"
	root.Short = "SDI capture to polled playback"
	root.Version = version.Long()

	settings := func() cmd.Settings { return parsed.settings() }
	root.AddCommand(cmd.CreateDevicesCmd(settings))
	root.AddCommand(cmd.CreatePlayCmd(settings))
	root.AddCommand(cmd.CreateModesCmd())

	cli.Run()
}
