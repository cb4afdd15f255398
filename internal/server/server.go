// Package server streams world snapshots to viewers. A Stream is a
// sim.Observer: it keeps the latest snapshot for plain HTTP polling and
// pushes every new one to connected websocket clients.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zeusync/robosim/internal/core/observability/log"
	"github.com/zeusync/robosim/internal/core/sim"
	"github.com/zeusync/robosim/internal/core/world"
)

var _ sim.Observer = (*Stream)(nil)

// Config holds stream server configuration
type Config struct {
	ListenAddr string
	MaxClients int

	// SendBuffer is the number of frames queued per client. A client whose
	// queue is full misses frames until it catches up.
	SendBuffer int

	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() Config {
	return Config{
		ListenAddr:      "127.0.0.1:8080",
		MaxClients:      64,
		SendBuffer:      4,
		WriteTimeout:    5 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}

// frame is one encoded snapshot.
type frame struct {
	steps uint64
	data  []byte
}

// Stream publishes snapshots over HTTP and websockets.
type Stream struct {
	config Config
	logger log.Log

	latest atomic.Pointer[frame]

	mu      sync.Mutex
	clients map[*client]struct{}

	frames  atomic.Uint64
	dropped atomic.Uint64

	// Server state
	running  atomic.Bool
	closed   atomic.Bool
	http     *http.Server
	listener net.Listener
	group    *errgroup.Group
	stopChan chan struct{}
}

// Stats contains stream statistics
type Stats struct {
	Clients int
	Frames  uint64
	Dropped uint64
	Running bool
}

// NewStream creates a stream; it serves nothing until Start or Handler.
func NewStream(config Config, logger log.Log) *Stream {
	defaults := DefaultServerConfig()
	if config.SendBuffer <= 0 {
		config.SendBuffer = defaults.SendBuffer
	}
	if config.MaxClients <= 0 {
		config.MaxClients = defaults.MaxClients
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = defaults.WriteTimeout
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = defaults.ShutdownTimeout
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Stream{
		config:  config,
		logger:  logger.With(log.String("component", "server")),
		clients: make(map[*client]struct{}),
	}
}

// Observe encodes snap once and queues it for every client. It never
// blocks on a slow client.
func (s *Stream) Observe(snap world.Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		s.logger.Error("Failed to encode snapshot", log.Uint64("step", snap.Steps), log.Error(err))
		return
	}
	f := &frame{steps: snap.Steps, data: data}
	s.latest.Store(f)
	s.frames.Add(1)

	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		if !c.offer(f.data) {
			s.dropped.Add(1)
		}
	}
}

// Handler routes GET /snapshot and GET /ws.
func (s *Stream) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /snapshot", s.handleSnapshot)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	return mux
}

// Start listens on config.ListenAddr and serves until Stop is called or ctx
// is done.
func (s *Stream) Start(ctx context.Context) error {
	if s.closed.Load() {
		return ErrServerClosed
	}
	if !s.running.CompareAndSwap(false, true) {
		return ErrServerAlreadyRunning
	}

	listener, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		s.running.Store(false)
		s.logger.Error("Failed to create listener", log.String("addr", s.config.ListenAddr), log.Error(err))
		return errors.Join(ErrListenerFailed, err)
	}
	s.listener = listener
	s.http = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: s.config.WriteTimeout}
	s.stopChan = make(chan struct{})

	g := new(errgroup.Group)
	g.Go(func() error {
		if err := s.http.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		select {
		case <-ctx.Done():
			s.logger.Debug("Context done, stopping")
			go func() { _ = s.Stop(context.Background()) }()
		case <-s.stopChan:
		}
		return nil
	})
	s.group = g

	s.logger.Info("Server listening", log.String("addr", listener.Addr().String()))
	return nil
}

// Addr is the bound listen address, or nil when not running.
func (s *Stream) Addr() net.Addr {
	if !s.running.Load() || s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop shuts the HTTP server down, disconnects every client and waits for
// the serving goroutines.
func (s *Stream) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return ErrServerNotRunning
	}
	s.logger.Info("Stopping server")
	close(s.stopChan)

	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()
	shutdownErr := s.http.Shutdown(ctx)

	s.mu.Lock()
	for c := range s.clients {
		c.close()
	}
	s.mu.Unlock()

	err := errors.Join(shutdownErr, s.group.Wait())
	s.logger.Info("Server stopped", log.Uint64("frames", s.frames.Load()), log.Uint64("dropped", s.dropped.Load()))
	return err
}

// Close stops the stream if needed; it cannot be started again.
func (s *Stream) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if s.running.Load() {
		return s.Stop(context.Background())
	}
	return nil
}

func (s *Stream) Stats() Stats {
	s.mu.Lock()
	n := len(s.clients)
	s.mu.Unlock()
	return Stats{
		Clients: n,
		Frames:  s.frames.Load(),
		Dropped: s.dropped.Load(),
		Running: s.running.Load(),
	}
}

func (s *Stream) register(c *client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return ErrServerClosed
	}
	if len(s.clients) >= s.config.MaxClients {
		return ErrMaxClientsReached
	}
	s.clients[c] = struct{}{}
	return nil
}

func (s *Stream) unregister(c *client) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
}
