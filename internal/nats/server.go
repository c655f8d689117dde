package nats

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

// RandomPort lets the embedded broker bind any free port. Tests use it.
const RandomPort = server.RANDOM_PORT

const (
	defaultPort = 4222
	defaultHost = "127.0.0.1"
	defaultName = "sdinode"

	// Control requests and event payloads are small JSON documents.
	maxPayload     = 64 * 1024
	maxControlLine = 4096

	readyTimeout = 5 * time.Second
)

// ServerOptions configures the broker that sdinode embeds for its control
// and event subjects. Zero fields take the loopback defaults.
type ServerOptions struct {
	Port   int
	Host   string
	Name   string
	Logger *slog.Logger
}

func (o ServerOptions) withDefaults() ServerOptions {
	if o.Port == 0 {
		o.Port = defaultPort
	}
	if o.Host == "" {
		o.Host = defaultHost
	}
	if o.Name == "" {
		o.Name = defaultName
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Server is the in-process broker the bridge connects to when serve runs
// without an external NATS URL.
type Server struct {
	opts   ServerOptions
	logger *slog.Logger

	mu sync.Mutex
	ns *server.Server
}

// NewServer returns a stopped broker.
func NewServer(opts ServerOptions) *Server {
	opts = opts.withDefaults()
	return &Server{
		opts:   opts,
		logger: opts.Logger.With("component", "nats-server"),
	}
}

func (s *Server) brokerOptions() *server.Options {
	return &server.Options{
		ServerName:     s.opts.Name,
		Host:           s.opts.Host,
		Port:           s.opts.Port,
		MaxPayload:     maxPayload,
		MaxControlLine: maxControlLine,
		NoLog:          true,
		NoSigs:         true,
	}
}

// Start launches the broker and blocks until it accepts clients.
func (s *Server) Start() error {
	ns, err := server.NewServer(s.brokerOptions())
	if err != nil {
		return fmt.Errorf("create broker: %w", err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(readyTimeout) {
		ns.Shutdown()
		return fmt.Errorf("broker on %s:%d not ready after %s", s.opts.Host, s.opts.Port, readyTimeout)
	}

	s.mu.Lock()
	s.ns = ns
	s.mu.Unlock()
	s.logger.Info("NATS server started", "url", ns.ClientURL())
	return nil
}

// Stop shuts the broker down and waits until its listeners are closed.
// It is safe to call on a stopped server.
func (s *Server) Stop() {
	s.mu.Lock()
	ns := s.ns
	s.ns = nil
	s.mu.Unlock()
	if ns == nil {
		return
	}
	s.logger.Info("Stopping NATS server")
	ns.Shutdown()
	ns.WaitForShutdown()
}

func (s *Server) broker() *server.Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ns
}

// ClientURL is the address the bridge dials. Before Start it reflects the
// configured host and port.
func (s *Server) ClientURL() string {
	if ns := s.broker(); ns != nil {
		return ns.ClientURL()
	}
	return fmt.Sprintf("nats://%s:%d", s.opts.Host, s.opts.Port)
}

// IsRunning reports whether the broker is up.
func (s *Server) IsRunning() bool {
	ns := s.broker()
	return ns != nil && ns.Running()
}

// NumClients counts connected clients, zero when stopped.
func (s *Server) NumClients() int {
	if ns := s.broker(); ns != nil {
		return ns.NumClients()
	}
	return 0
}
