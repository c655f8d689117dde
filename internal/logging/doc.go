// Package logging provides slog loggers with per-module levels.
//
// Initialize once at startup:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"capture": "debug",
//			"api":     "warn",
//		},
//	})
//
// and get a logger per module:
//
//	logger := logging.GetLogger("player")
//	logger.Info("Media opened", "url", url)
//
// Every record carries module=<name>. Loggers obtained before Initialize
// are updated in place, so package-level loggers are safe.
//
// Records go to stdout (text or json) when stdout is attached and to the
// systemd journal when journald is running, identified as "sdinode":
//
//	journalctl -t sdinode MODULE=capture
//
// TOML configuration:
//
//	[logging]
//	level = "info"
//	format = "text"
//	capture = "debug"
package logging
