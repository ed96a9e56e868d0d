package config

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vango-dev/poolserve/internal/errors"
	"github.com/vango-dev/poolserve/pkg/content"
	"github.com/vango-dev/poolserve/pkg/httpwire"
	"github.com/vango-dev/poolserve/pkg/metrics"
	"github.com/vango-dev/poolserve/pkg/server"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "poolserve.json"

	// Content backends.
	BackendFS = "fs"
	BackendS3 = "s3"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// Config represents poolserve.json.
type Config struct {
	// Address is the TCP address to serve on.
	Address string `json:"address,omitempty"`

	// Threads is the worker pool size.
	Threads int `json:"threads,omitempty"`

	// MaxRequestBytes bounds the request head.
	MaxRequestBytes int `json:"maxRequestBytes,omitempty"`

	// ReadTimeout and WriteTimeout are Go duration strings. Empty means none.
	ReadTimeout  string `json:"readTimeout,omitempty"`
	WriteTimeout string `json:"writeTimeout,omitempty"`

	Content ContentConfig `json:"content"`
	Admin   AdminConfig   `json:"admin"`
	Log     LogConfig     `json:"log"`

	// configPath is the path to the loaded config file.
	configPath string
}

// ContentConfig selects where files are served from.
type ContentConfig struct {
	// Backend is "fs" or "s3".
	// Default: "fs"
	Backend string `json:"backend,omitempty"`

	// Dir is the served directory for the fs backend. Relative paths are
	// resolved against the working directory.
	// Default: "content"
	Dir string `json:"dir,omitempty"`

	// AllowDotSegments passes "." and ".." path segments through unchecked.
	AllowDotSegments bool `json:"allowDotSegments,omitempty"`

	S3 S3Config `json:"s3"`
}

// S3Config configures the s3 backend. Credentials come from AWS_ACCESS_KEY_ID,
// AWS_SECRET_ACCESS_KEY and AWS_SESSION_TOKEN.
type S3Config struct {
	Bucket       string `json:"bucket,omitempty"`
	Prefix       string `json:"prefix,omitempty"`
	Region       string `json:"region,omitempty"`
	Endpoint     string `json:"endpoint,omitempty"`
	UsePathStyle bool   `json:"usePathStyle,omitempty"`
}

// AdminConfig configures the operator HTTP listener.
type AdminConfig struct {
	// Address enables the admin listener when set.
	Address string `json:"address,omitempty"`

	// EventInterval is the /events snapshot period.
	// Default: "1s"
	EventInterval string `json:"eventInterval,omitempty"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `json:"level,omitempty"`

	// Format is text or json.
	Format string `json:"format,omitempty"`
}

// New creates a Config with default values.
func New() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load loads poolserve.json from dir.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile loads configuration from path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E100").
				WithDetail("No configuration file at " + path)
		}
		return nil, errors.New("E101").Wrap(err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("E101").
			WithDetail("Failed to parse " + path + ": " + err.Error())
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// LoadFromWorkingDir loads poolserve.json from the working directory, or
// returns the defaults when there is none.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	if !Exists(wd) {
		return New(), nil
	}
	return Load(wd)
}

// Exists reports whether dir contains poolserve.json.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// Path returns the path of the loaded file, or "" for defaults.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills in default values for missing fields.
func (c *Config) applyDefaults() {
	if c.Address == "" {
		c.Address = server.DefaultAddress
	}
	if c.Threads == 0 {
		c.Threads = server.DefaultThreads
	}
	if c.MaxRequestBytes == 0 {
		c.MaxRequestBytes = httpwire.DefaultMaxHeadBytes
	}

	if c.Content.Backend == "" {
		c.Content.Backend = BackendFS
	}
	if c.Content.Dir == "" {
		c.Content.Dir = content.DefaultDir
	}

	if c.Admin.EventInterval == "" {
		c.Admin.EventInterval = "1s"
	}

	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Threads < 1 {
		return errors.New("E102").
			WithDetailf("threads must be at least 1, got %d", c.Threads)
	}
	if c.MaxRequestBytes < 0 {
		return errors.Newf(errors.CategoryConfig, "maxRequestBytes must not be negative, got %d", c.MaxRequestBytes)
	}

	switch c.Content.Backend {
	case BackendFS:
	case BackendS3:
		if c.Content.S3.Bucket == "" {
			return errors.New("E105")
		}
	default:
		return errors.New("E103").
			WithDetailf("content.backend must be \"fs\" or \"s3\", got %q", c.Content.Backend)
	}

	for field, value := range map[string]string{
		"readTimeout":         c.ReadTimeout,
		"writeTimeout":        c.WriteTimeout,
		"admin.eventInterval": c.Admin.EventInterval,
	} {
		if _, err := parseDuration(field, value); err != nil {
			return err
		}
	}

	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.New("E106").
			WithDetailf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// ReadTimeoutDuration returns the parsed read timeout.
func (c *Config) ReadTimeoutDuration() (time.Duration, error) {
	return parseDuration("readTimeout", c.ReadTimeout)
}

// WriteTimeoutDuration returns the parsed write timeout.
func (c *Config) WriteTimeoutDuration() (time.Duration, error) {
	return parseDuration("writeTimeout", c.WriteTimeout)
}

// EventIntervalDuration returns the parsed admin event interval.
func (c *Config) EventIntervalDuration() (time.Duration, error) {
	return parseDuration("admin.eventInterval", c.Admin.EventInterval)
}

// Logger builds the process logger writing to w.
func (c *Config) Logger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch c.Log.Format {
	case "json":
		h = slog.NewJSONHandler(w, opts)
	case "text", "":
		h = slog.NewTextHandler(w, opts)
	default:
		return nil, errors.New("E106").
			WithDetailf("log.format must be text or json, got %q", c.Log.Format)
	}
	return slog.New(h), nil
}

// Store builds the configured content store.
func (c *Config) Store() (content.Store, error) {
	opts := content.ResolveOptions{AllowDotSegments: c.Content.AllowDotSegments}

	switch c.Content.Backend {
	case BackendFS, "":
		return content.NewOSStore(c.Content.Dir, opts)
	case BackendS3:
		s3cfg := c.Content.S3
		if s3cfg.Bucket == "" {
			return nil, errors.New("E105")
		}
		client := content.NewS3Client(content.S3Options{
			Bucket:          s3cfg.Bucket,
			Prefix:          s3cfg.Prefix,
			Region:          s3cfg.Region,
			Endpoint:        s3cfg.Endpoint,
			UsePathStyle:    s3cfg.UsePathStyle,
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		})
		return content.NewS3Store(client, s3cfg.Bucket, s3cfg.Prefix, opts), nil
	default:
		return nil, errors.New("E103").
			WithDetailf("content.backend must be \"fs\" or \"s3\", got %q", c.Content.Backend)
	}
}

// ServerConfig validates the configuration and builds the runtime server
// config, including its content store.
func (c *Config) ServerConfig(logger *slog.Logger, m *metrics.Metrics) (*server.ServerConfig, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	store, err := c.Store()
	if err != nil {
		return nil, err
	}
	read, err := c.ReadTimeoutDuration()
	if err != nil {
		return nil, err
	}
	write, err := c.WriteTimeoutDuration()
	if err != nil {
		return nil, err
	}

	sc := server.DefaultServerConfig().
		WithAddress(c.Address).
		WithThreads(c.Threads).
		WithStore(store).
		WithTimeouts(read, write).
		WithLogger(logger).
		WithMetrics(m)
	sc.MaxRequestBytes = c.MaxRequestBytes
	return sc, nil
}

func parseDuration(field, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return 0, errors.New("E104").
			WithDetailf("%s: %q is not a valid non-negative duration", field, value)
	}
	return d, nil
}

func parseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, errors.New("E106").
			WithDetailf("log.level must be debug, info, warn or error, got %q", level)
	}
}
