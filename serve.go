package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smazurov/sdinode/internal/api"
	"github.com/smazurov/sdinode/internal/config"
	"github.com/smazurov/sdinode/internal/hardware"
	"github.com/smazurov/sdinode/internal/hardware/testpattern"
	"github.com/smazurov/sdinode/internal/hotplug"
	"github.com/smazurov/sdinode/internal/led"
	"github.com/smazurov/sdinode/internal/logging"
	"github.com/smazurov/sdinode/internal/media"
	"github.com/smazurov/sdinode/internal/module"
	"github.com/smazurov/sdinode/internal/nats"
	"github.com/smazurov/sdinode/internal/playback"
	"github.com/smazurov/sdinode/internal/player"
	"github.com/smazurov/sdinode/internal/samples"
	"github.com/smazurov/sdinode/internal/systemd"
)

// service is the long-running server: device module, one player driven by
// the playback loop, the API, the config watcher and the optional NATS bridge.
type service struct {
	opts     *Options
	logger   *slog.Logger
	notifier *systemd.Notifier

	ctx    context.Context
	cancel context.CancelFunc

	module  *module.Module
	monitor *hotplug.Monitor
	player  *player.Player
	queue   *samples.Queue
	driver  *playback.Driver
	server  *api.Server
	watcher *config.Watcher[config.Reloadable]
	tally   *led.Tally
	natsSrv *nats.Server
	bridge  *nats.Bridge

	driverDone chan struct{}
}

func newService(opts *Options) *service {
	ctx, cancel := context.WithCancel(context.Background())
	logger := logging.GetLogger("main")
	return &service{
		opts:       opts,
		logger:     logger,
		notifier:   systemd.NewNotifier(logger),
		ctx:        ctx,
		cancel:     cancel,
		driverDone: make(chan struct{}),
	}
}

// run blocks serving HTTP until stop.
func (s *service) run() {
	if err := s.start(); err != nil {
		s.logger.Error("Failed to start", "error", err)
		s.stop()
		os.Exit(1)
	}

	s.notifier.Ready()
	go s.notifier.Watchdog(s.ctx)

	s.logger.Info("Starting HTTP server", "port", s.opts.Port)
	if err := s.server.Start(s.opts.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("Failed to start HTTP server", "error", err)
		s.stop()
		os.Exit(1)
	}
}

func (s *service) start() error {
	mode := s.displayMode(s.opts.CaptureDisplayMode)

	var modOpts []module.Option
	if s.opts.CaptureHotplug {
		monitor, err := hotplug.NewMonitor(hotplug.CaptureSubsystems...)
		if err != nil {
			s.logger.Warn("Hotplug monitoring unavailable", "error", err)
		} else {
			s.monitor = monitor
			modOpts = append(modOpts, module.WithHotplug(monitor))
		}
	}

	s.module = module.New(testpattern.NewDiscovery(s.opts.CaptureSimulatedDevices), modOpts...)
	s.module.SetDisplayMode(mode)
	if err := s.module.Startup(s.ctx); err != nil {
		return err
	}
	s.logger.Info("Devices discovered", "count", s.module.Devices().Len(), "display_mode", mode.Name)

	s.queue = samples.NewQueue(s.opts.PlaybackQueueSize)
	s.player = s.module.CreatePlayer(media.EventSinkFunc(s.mediaEvent), s.queue)
	s.driver = playback.NewDriver(s.player, s.queue, playback.WithTickRate(float64(s.opts.PlaybackTickRate)))
	go func() {
		defer close(s.driverDone)
		if err := s.driver.Run(s.ctx); err != nil {
			s.logger.Error("Playback driver failed", "error", err)
		}
	}()

	if s.opts.FeaturesTallyLED {
		ledLogger := logging.GetLogger("led")
		s.tally = led.NewTally(led.New(ledLogger), s.module.Bus(), s.player.ID(), ledLogger)
		s.tally.Start()
	}

	if err := s.startNATS(); err != nil {
		return err
	}

	if s.opts.PlayerURL != "" {
		s.autoOpen(s.opts.PlayerURL)
	}

	apiOpts := &api.Options{
		AuthUsername: s.opts.AuthUsername,
		AuthPassword: s.opts.AuthPassword,
		Module:       s.module,
		Player:       s.player,
		Runner:       s.driver,
	}
	if s.opts.MetricsEnabled {
		apiOpts.PrometheusHandler = promhttp.Handler()
	}
	s.server = api.NewServer(apiOpts)

	s.watchConfig()
	return nil
}

// startNATS starts the embedded server when enabled and connects the event
// bridge. A bridge that cannot reach an external server is only logged.
func (s *service) startNATS() error {
	logger := logging.GetLogger("nats")
	url := s.opts.NatsURL

	if s.opts.NatsEmbedded {
		s.natsSrv = nats.NewServer(nats.ServerOptions{Port: s.opts.NatsPort, Logger: logger})
		if err := s.natsSrv.Start(); err != nil {
			s.natsSrv = nil
			return err
		}
		if url == "" {
			url = s.natsSrv.ClientURL()
		}
	}
	if url == "" {
		return nil
	}

	bridge := nats.NewBridge(url, s.module.Bus(), s.player, s.driver, logger)
	if err := bridge.Start(); err != nil {
		s.logger.Warn("NATS bridge unavailable", "url", url, "error", err)
		return nil
	}
	s.bridge = bridge
	return nil
}

// autoOpen opens and resumes url. Failure is logged; the API can retry.
func (s *service) autoOpen(url string) {
	var openErr error
	if err := s.driver.Do(s.ctx, func() {
		if openErr = s.player.Open(url, nil); openErr == nil {
			openErr = s.player.SetRate(1)
		}
	}); err != nil {
		openErr = err
	}
	if openErr != nil {
		s.logger.Warn("Failed to open startup device", "url", url, "error", openErr)
		return
	}
	s.notifier.Status("playing " + url)
}

func (s *service) mediaEvent(e media.Event) {
	switch e {
	case media.EventMediaOpened:
		s.notifier.Status("opened " + s.player.URL())
	case media.EventMediaClosed:
		s.notifier.Status("idle")
	}
}

// displayMode resolves name, keeping the default for unknown names.
func (s *service) displayMode(name string) hardware.DisplayMode {
	mode, err := hardware.ParseDisplayMode(name)
	if err != nil {
		s.logger.Warn("Invalid display mode, using default", "error", err, "default", hardware.DefaultMode.Name)
		return hardware.DefaultMode
	}
	return mode
}

// watchConfig applies display mode and module log level changes from the
// configuration file without a restart.
func (s *service) watchConfig() {
	if s.opts.Config == "" {
		return
	}
	if _, err := os.Stat(s.opts.Config); err != nil {
		s.logger.Debug("Config file not present, reload disabled", "path", s.opts.Config)
		return
	}

	s.watcher = config.NewConfigWatcher(s.opts.Config, config.LoadReloadable, logging.GetLogger("config"),
		config.WithErrorHandler[config.Reloadable](func(err error) {
			s.logger.Warn("Config reload failed", "error", err)
		}),
	)
	s.watcher.OnReload(func(r config.Reloadable) {
		if r.Capture.DisplayMode != "" {
			mode := s.displayMode(r.Capture.DisplayMode)
			if mode != s.module.DisplayMode() {
				s.module.SetDisplayMode(mode)
				s.logger.Info("Display mode changed, applies on next open", "display_mode", mode.Name)
			}
		}
		for name, level := range r.ModuleLevels() {
			if !logging.SetLevel(name, level) {
				s.logger.Warn("Invalid log level", "module", name, "level", level)
			}
		}
	})
	if err := s.watcher.Start(s.ctx); err != nil {
		s.logger.Warn("Failed to watch config file", "path", s.opts.Config, "error", err)
		s.watcher = nil
	}
}

// stop tears down in reverse start order. It is safe on a partial start.
func (s *service) stop() {
	s.notifier.Stopping()
	s.logger.Info("Shutting down")

	if s.server != nil {
		if err := s.server.Stop(); err != nil {
			s.logger.Error("Error stopping HTTP server", "error", err)
		}
	}
	if s.bridge != nil {
		s.bridge.Stop()
	}
	if s.natsSrv != nil {
		s.natsSrv.Stop()
	}
	if s.watcher != nil {
		if err := s.watcher.Stop(); err != nil {
			s.logger.Warn("Error stopping config watcher", "error", err)
		}
	}

	if s.driver != nil {
		closeCtx, cancel := context.WithTimeout(s.ctx, time.Second)
		if err := s.driver.Do(closeCtx, s.player.Dispose); err != nil {
			s.logger.Warn("Failed to close player", "error", err)
		}
		cancel()
	}
	s.cancel()
	if s.driver != nil {
		<-s.driverDone
	}

	if s.tally != nil {
		s.tally.Stop()
	}
	if s.module != nil {
		s.module.Shutdown()
	}
	if s.monitor != nil {
		if err := s.monitor.Close(); err != nil {
			s.logger.Debug("Closing hotplug monitor", "error", err)
		}
	}
}
