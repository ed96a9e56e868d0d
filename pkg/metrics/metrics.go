// Package metrics exposes poolserve's Prometheus collectors.
//
// A *Metrics value is safe for concurrent use and every method is a no-op on a
// nil receiver, so callers never need to guard instrumentation.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/poolserve/pkg/httpwire"
)

// Config configures the collectors.
type Config struct {
	// Namespace is the metrics namespace (default: "poolserve").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for job and request durations.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry receives the collectors. It must also be a Gatherer for
	// Gatherer() to return it.
	// Default: a fresh registry per Metrics value.
	Registry prometheus.Registerer
}

// Option configures Metrics.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "poolserve",
		Buckets:   prometheus.DefBuckets,
	}
}

// Metrics holds the server and pool collectors.
type Metrics struct {
	registry prometheus.Registerer

	jobsQueued    prometheus.Counter
	jobsCompleted prometheus.Counter
	jobPanics     prometheus.Counter
	jobDuration   prometheus.Histogram
	workersBusy   prometheus.Gauge

	connectionsAccepted prometheus.Counter
	requestsTotal       *prometheus.CounterVec
	requestDuration     prometheus.Histogram
	responseBytes       prometheus.Counter
	requestErrors       *prometheus.CounterVec
}

// New registers the collectors and returns them.
func New(opts ...Option) *Metrics {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.Registry == nil {
		config.Registry = prometheus.NewRegistry()
	}
	if config.Buckets == nil {
		config.Buckets = prometheus.DefBuckets
	}

	factory := promauto.With(config.Registry)

	return &Metrics{
		registry: config.Registry,

		jobsQueued: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "jobs_queued_total",
			Help:        "Total number of jobs submitted to the worker pool",
			ConstLabels: config.ConstLabels,
		}),

		jobsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "jobs_completed_total",
			Help:        "Total number of jobs the worker pool finished, including panicked ones",
			ConstLabels: config.ConstLabels,
		}),

		jobPanics: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "job_panics_total",
			Help:        "Total number of jobs that panicked inside a worker",
			ConstLabels: config.ConstLabels,
		}),

		jobDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "job_duration_seconds",
			Help:        "Time a worker spent running one job",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		workersBusy: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "workers_busy",
			Help:        "Number of workers currently running a job",
			ConstLabels: config.ConstLabels,
		}),

		connectionsAccepted: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "connections_accepted_total",
			Help:        "Total number of TCP connections accepted",
			ConstLabels: config.ConstLabels,
		}),

		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "requests_total",
			Help:        "Total number of responses written, by status code",
			ConstLabels: config.ConstLabels,
		}, []string{"status"}),

		requestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "request_duration_seconds",
			Help:        "Connection handling duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		responseBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "response_bytes_total",
			Help:        "Total number of response bytes written",
			ConstLabels: config.ConstLabels,
		}),

		requestErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "request_errors_total",
			Help:        "Total number of failed requests by error kind",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),
	}
}

// Gatherer returns the registry for exposition, or nil if the configured
// registerer cannot gather.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return nil
	}
	g, _ := m.registry.(prometheus.Gatherer)
	return g
}

// JobQueued implements workerpool.Hooks.
func (m *Metrics) JobQueued() {
	if m == nil {
		return
	}
	m.jobsQueued.Inc()
}

// JobStarted implements workerpool.Hooks.
func (m *Metrics) JobStarted(int) {
	if m == nil {
		return
	}
	m.workersBusy.Inc()
}

// JobFinished implements workerpool.Hooks.
func (m *Metrics) JobFinished(_ int, d time.Duration, panicked bool) {
	if m == nil {
		return
	}
	m.workersBusy.Dec()
	m.jobsCompleted.Inc()
	m.jobDuration.Observe(d.Seconds())
	if panicked {
		m.jobPanics.Inc()
	}
}

// ConnectionAccepted counts one accepted connection.
func (m *Metrics) ConnectionAccepted() {
	if m == nil {
		return
	}
	m.connectionsAccepted.Inc()
}

// ObserveRequest records one written response.
func (m *Metrics) ObserveRequest(status int, d time.Duration, bytes int) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(strconv.Itoa(status)).Inc()
	m.requestDuration.Observe(d.Seconds())
	m.responseBytes.Add(float64(bytes))
}

// RecordRequestError counts a failed request by error kind.
func (m *Metrics) RecordRequestError(err error) {
	if m == nil || err == nil {
		return
	}
	m.requestErrors.WithLabelValues(ErrorKind(err)).Inc()
}

// ErrorKind returns a low-cardinality label for err.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, httpwire.ErrMalformedRequest):
		return "malformed_request"
	case errors.Is(err, httpwire.ErrUnsupportedMethod):
		return "unsupported_method"
	case errors.Is(err, httpwire.ErrUnsupportedVersion):
		return "unsupported_version"
	case errors.Is(err, httpwire.ErrMalformedPath):
		return "malformed_path"
	case errors.Is(err, httpwire.ErrUnknownStatusCode):
		return "unknown_status"
	case errors.Is(err, httpwire.ErrIO):
		return "io"
	default:
		return "internal"
	}
}
