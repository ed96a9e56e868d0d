package server

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/vango-dev/poolserve/pkg/content"
	"github.com/vango-dev/poolserve/pkg/httpwire"
	"github.com/vango-dev/poolserve/pkg/metrics"
)

const (
	// DefaultAddress is the listen address used when none is configured.
	DefaultAddress = "127.0.0.1:7878"

	// DefaultThreads is the default worker count.
	DefaultThreads = 20

	// DefaultTracerName names the OpenTelemetry tracer.
	DefaultTracerName = "github.com/vango-dev/poolserve/pkg/server"
)

// ServerConfig holds configuration for a Server.
type ServerConfig struct {
	// Address is the TCP address to listen on.
	// Default: "127.0.0.1:7878".
	Address string

	// Threads is the number of pool workers. Must be at least 1.
	// Default: 20.
	Threads int

	// Store serves request paths. When nil, Run serves the "content"
	// directory under the working directory.
	Store content.Store

	// MaxRequestBytes bounds the request head.
	// Default: 8KB.
	MaxRequestBytes int

	// ReadTimeout bounds reading the request head. Zero means no deadline.
	ReadTimeout time.Duration

	// WriteTimeout bounds writing the response. Zero means no deadline.
	WriteTimeout time.Duration

	// Logger receives server and pool logs.
	// Default: slog.Default().
	Logger *slog.Logger

	// Metrics receives pool and request instrumentation. Nil disables it.
	Metrics *metrics.Metrics

	// TracerName names the tracer used for per-connection spans.
	// Default: DefaultTracerName.
	TracerName string
}

// DefaultServerConfig returns a ServerConfig with sensible defaults.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Address:         DefaultAddress,
		Threads:         DefaultThreads,
		MaxRequestBytes: httpwire.DefaultMaxHeadBytes,
		TracerName:      DefaultTracerName,
	}
}

// Clone returns a shallow copy of the config.
func (c *ServerConfig) Clone() *ServerConfig {
	clone := *c
	return &clone
}

// WithAddress returns a copy with the given address.
func (c *ServerConfig) WithAddress(addr string) *ServerConfig {
	clone := c.Clone()
	clone.Address = addr
	return clone
}

// WithThreads returns a copy with the given worker count.
func (c *ServerConfig) WithThreads(n int) *ServerConfig {
	clone := c.Clone()
	clone.Threads = n
	return clone
}

// WithStore returns a copy serving from store.
func (c *ServerConfig) WithStore(store content.Store) *ServerConfig {
	clone := c.Clone()
	clone.Store = store
	return clone
}

// WithTimeouts returns a copy with the given read and write deadlines.
func (c *ServerConfig) WithTimeouts(read, write time.Duration) *ServerConfig {
	clone := c.Clone()
	clone.ReadTimeout = read
	clone.WriteTimeout = write
	return clone
}

// WithLogger returns a copy using logger.
func (c *ServerConfig) WithLogger(logger *slog.Logger) *ServerConfig {
	clone := c.Clone()
	clone.Logger = logger
	return clone
}

// WithMetrics returns a copy reporting to m.
func (c *ServerConfig) WithMetrics(m *metrics.Metrics) *ServerConfig {
	clone := c.Clone()
	clone.Metrics = m
	return clone
}

// Validate checks the config for values that cannot start a server.
func (c *ServerConfig) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("server: %w: address is empty", ErrInvalidConfig)
	}
	if c.Threads < 1 {
		return fmt.Errorf("server: %w: threads must be at least 1, got %d", ErrInvalidConfig, c.Threads)
	}
	if c.MaxRequestBytes < 0 {
		return fmt.Errorf("server: %w: maxRequestBytes must not be negative", ErrInvalidConfig)
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 {
		return fmt.Errorf("server: %w: timeouts must not be negative", ErrInvalidConfig)
	}
	return nil
}
