// Package admin serves poolserve's operator endpoints on a separate HTTP
// listener: health, status, Prometheus metrics and a WebSocket stream of
// status snapshots.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/poolserve/pkg/metrics"
	"github.com/vango-dev/poolserve/pkg/server"
)

// DefaultEventInterval is the period between /events snapshots.
const DefaultEventInterval = time.Second

// StatusSource is the server view the admin endpoints report on.
// *server.Server satisfies it.
type StatusSource interface {
	State() server.State
	Stats() *server.ServerStats
}

// Config configures the admin listener.
type Config struct {
	// Address is the admin listen address, e.g. "127.0.0.1:9090".
	Address string

	// EventInterval is the period between /events snapshots.
	// Default: 1 second.
	EventInterval time.Duration

	// Logger receives admin logs.
	// Default: slog.Default().
	Logger *slog.Logger
}

// Admin is the operator HTTP surface.
type Admin struct {
	src      StatusSource
	metrics  *metrics.Metrics
	config   Config
	logger   *slog.Logger
	upgrader websocket.Upgrader
	router   chi.Router

	mu       sync.Mutex
	httpSrv  *http.Server
	done     chan struct{}
	doneOnce sync.Once
}

// New builds the admin router. m may be nil, in which case /metrics is not
// mounted.
func New(src StatusSource, m *metrics.Metrics, config Config) *Admin {
	if config.EventInterval <= 0 {
		config.EventInterval = DefaultEventInterval
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	a := &Admin{
		src:     src,
		metrics: m,
		config:  config,
		logger:  config.Logger.With("component", "admin"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		done: make(chan struct{}),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", a.handleHealth)
	r.Get("/status", a.handleStatus)
	r.Get("/events", a.handleEvents)
	if g := m.Gatherer(); g != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	}

	a.router = r
	return a
}

// Handler returns the admin router.
func (a *Admin) Handler() http.Handler {
	return a.router
}

// ListenAndServe serves the admin endpoints on Config.Address until Shutdown.
func (a *Admin) ListenAndServe() error {
	ln, err := net.Listen("tcp", a.config.Address)
	if err != nil {
		return err
	}
	return a.Serve(ln)
}

// Serve serves the admin endpoints on ln until Shutdown.
func (a *Admin) Serve(ln net.Listener) error {
	srv := &http.Server{
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.mu.Lock()
	a.httpSrv = srv
	a.mu.Unlock()

	a.logger.Info("admin listening", "address", ln.Addr().String())
	err := srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown ends open event streams and stops the HTTP server.
func (a *Admin) Shutdown(ctx context.Context) error {
	a.doneOnce.Do(func() { close(a.done) })

	a.mu.Lock()
	srv := a.httpSrv
	a.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (a *Admin) handleHealth(w http.ResponseWriter, r *http.Request) {
	state := a.src.State()
	body := map[string]string{"status": "ok", "state": state.String()}
	status := http.StatusOK
	if state != server.StateRunning {
		body["status"] = "unavailable"
		if state == server.StateStopped {
			body["error"] = server.ErrServerStopped.Error()
		}
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, body)
}

func (a *Admin) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.src.Stats())
}

// handleEvents streams a snapshot every EventInterval until the client leaves
// or the admin server shuts down.
func (a *Admin) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// Drain client frames so close frames are processed.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(a.config.EventInterval)
	defer ticker.Stop()

	for {
		if err := conn.WriteJSON(a.src.Stats()); err != nil {
			a.logger.Debug("event stream closed", "error", err)
			return
		}

		select {
		case <-ticker.C:
		case <-gone:
			return
		case <-a.done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
				time.Now().Add(time.Second))
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
