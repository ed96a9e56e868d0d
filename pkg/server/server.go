package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/poolserve/pkg/content"
	"github.com/vango-dev/poolserve/pkg/workerpool"
)

// Server is a running accept loop backed by a worker pool.
type Server struct {
	config *ServerConfig
	logger *slog.Logger
	tracer trace.Tracer
	life   *lifecycle

	ready     chan struct{}
	readyOnce sync.Once
	startedAt time.Time

	// mu guards the fields published by the accept goroutine.
	mu       sync.Mutex
	listener net.Listener
	pool     *workerpool.Pool
	store    content.Store

	accepted atomic.Int64
	served   atomic.Int64
	notFound atomic.Int64
	failed   atomic.Int64
}

// Run starts a server for config and returns once it is Running.
//
// Configuration, content and bind failures happen on the accept goroutine and
// are returned by Join. Run itself only fails on a nil config.
func Run(config *ServerConfig) (*Server, error) {
	if config == nil {
		return nil, fmt.Errorf("server: %w: nil config", ErrInvalidConfig)
	}

	cfg := config.Clone()
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.TracerName == "" {
		cfg.TracerName = DefaultTracerName
	}

	handle := &acceptHandle{done: make(chan struct{})}
	s := &Server{
		config:    cfg,
		logger:    cfg.Logger.With("component", "server"),
		tracer:    otel.Tracer(cfg.TracerName),
		life:      newLifecycle(handle),
		ready:     make(chan struct{}),
		startedAt: time.Now(),
	}

	go s.acceptMain(handle)

	s.life.start()
	return s, nil
}

// Join blocks until the server is Stopped and the accept goroutine has exited,
// then returns the error that ended it. Only the first call observes that
// error; later calls return nil once the server is Stopped.
func (s *Server) Join() error {
	s.life.waitUntil(StateStopped)

	h := s.life.takeHandle()
	if h == nil {
		return nil
	}
	<-h.done
	return h.err
}

// Stop marks the server Stopped and closes the listener. Queued connections
// are still served before Join returns. Stop is safe to call more than once.
func (s *Server) Stop() {
	if s.life.stop() {
		s.logger.Info("server stopping", "address", s.config.Address)
	}

	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln != nil {
		_ = ln.Close()
	}
}

// State returns the current lifecycle state.
func (s *Server) State() State {
	return s.life.current()
}

// Ready is closed once the listener is bound, or once the server stopped
// without binding.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound listener address, or nil before binding.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Config returns the server configuration.
func (s *Server) Config() *ServerConfig {
	return s.config
}

func (s *Server) markReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

// acceptMain is the body of the accept goroutine. It always leaves the server
// Stopped, so Join cannot wait forever on a server that failed to start.
func (s *Server) acceptMain(h *acceptHandle) {
	defer close(h.done)
	defer s.markReady()
	defer s.life.stop()

	if s.life.waitUntil(StateRunning, StateStopped) == StateStopped {
		return
	}

	h.err = s.serve()
	if h.err != nil {
		s.logger.Error("server exited", "error", h.err)
	}
}

func (s *Server) serve() error {
	if err := s.config.Validate(); err != nil {
		return err
	}

	store := s.config.Store
	if store == nil {
		fsStore, err := content.NewOSStore(content.DefaultDir, content.ResolveOptions{})
		if err != nil {
			return err
		}
		store = fsStore
	}

	opts := []workerpool.Option{workerpool.WithLogger(s.config.Logger.With("component", "workerpool"))}
	if s.config.Metrics != nil {
		opts = append(opts, workerpool.WithHooks(s.config.Metrics))
	}
	pool, err := workerpool.New(s.config.Threads, opts...)
	if err != nil {
		return err
	}
	// Runs after the listener closes, so queued connections drain last.
	defer pool.Close()

	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return &BindError{Address: s.config.Address, Err: err}
	}
	defer ln.Close()

	s.mu.Lock()
	s.listener = ln
	s.pool = pool
	s.store = store
	s.mu.Unlock()

	s.logger.Info("server starting",
		"address", ln.Addr().String(),
		"threads", s.config.Threads,
		"store", store.String())
	s.markReady()

	return s.acceptLoop(ln, pool, store)
}

func (s *Server) acceptLoop(ln net.Listener, pool *workerpool.Pool, store content.Store) error {
	for {
		if s.life.current() == StateStopped {
			return nil
		}

		conn, err := ln.Accept()
		if err != nil {
			if s.life.current() == StateStopped && errors.Is(err, net.ErrClosed) {
				return nil
			}
			return &ConnError{Op: "accept", Err: err}
		}

		s.accepted.Add(1)
		s.config.Metrics.ConnectionAccepted()

		pool.Execute(func() {
			s.handleConn(conn, store)
		})
	}
}
