package main

import (
	"context"
	stderrors "errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/poolserve/internal/config"
	"github.com/vango-dev/poolserve/internal/errors"
	"github.com/vango-dev/poolserve/pkg/admin"
	"github.com/vango-dev/poolserve/pkg/metrics"
	"github.com/vango-dev/poolserve/pkg/server"
)

type serveOptions struct {
	configPath string
	addr       string
	threads    int
	contentDir string
	adminAddr  string
	logLevel   string
	logFormat  string
}

func serveCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the file server",
		Long: `Start the file server and block until SIGINT or SIGTERM.

Settings come from poolserve.json in the working directory (or --config)
and are overridden by flags.

Examples:
  poolserve serve
  poolserve serve --addr=0.0.0.0:8080 --threads=8
  poolserve serve --content=./public --admin=127.0.0.1:9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to poolserve.json (default: working directory)")
	cmd.Flags().StringVarP(&opts.addr, "addr", "a", "", "Address to listen on (default 127.0.0.1:7878)")
	cmd.Flags().IntVarP(&opts.threads, "threads", "t", 0, "Number of worker threads (default 20)")
	cmd.Flags().StringVar(&opts.contentDir, "content", "", "Directory to serve (default ./content)")
	cmd.Flags().StringVar(&opts.adminAddr, "admin", "", "Address for health, status and metrics endpoints")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.Flags().StringVar(&opts.logFormat, "log-format", "", "Log format: text, json")

	return cmd
}

// loadConfig reads the file named by opts, or the working directory default,
// and applies flag overrides.
func loadConfig(opts serveOptions) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadFile(opts.configPath)
	} else {
		cfg, err = config.LoadFromWorkingDir()
	}
	if err != nil {
		return nil, err
	}

	if opts.addr != "" {
		cfg.Address = opts.addr
	}
	if opts.threads != 0 {
		cfg.Threads = opts.threads
	}
	if opts.contentDir != "" {
		cfg.Content.Backend = config.BackendFS
		cfg.Content.Dir = opts.contentDir
	}
	if opts.adminAddr != "" {
		cfg.Admin.Address = opts.adminAddr
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.logFormat != "" {
		cfg.Log.Format = opts.logFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runServe(ctx context.Context, opts serveOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	logger, err := cfg.Logger(os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	interval, err := cfg.EventIntervalDuration()
	if err != nil {
		return err
	}

	m := metrics.New()
	sc, err := cfg.ServerConfig(logger, m)
	if err != nil {
		return err
	}

	srv, err := server.Run(sc)
	if err != nil {
		return serveError(err)
	}

	<-srv.Ready()
	if addr := srv.Addr(); addr != nil {
		success("Serving %s on http://%s", sc.Store.String(), addr)
		info("%d worker threads", sc.Threads)
	}

	var adm *admin.Admin
	if cfg.Admin.Address != "" && srv.State() == server.StateRunning {
		adm = admin.New(srv, m, admin.Config{
			Address:       cfg.Admin.Address,
			EventInterval: interval,
			Logger:        logger,
		})
		go func() {
			if err := adm.ListenAndServe(); err != nil {
				logger.Error("admin server failed", "error", err)
			}
		}()
		info("Admin on http://%s", cfg.Admin.Address)
	}

	joined := make(chan error, 1)
	go func() { joined <- srv.Join() }()

	select {
	case <-ctx.Done():
		warn("Shutting down...")
		srv.Stop()
		err = <-joined
	case err = <-joined:
	}

	if adm != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if serr := adm.Shutdown(shutdownCtx); serr != nil {
			logger.Warn("admin shutdown", "error", serr)
		}
	}

	if err != nil {
		return serveError(err)
	}
	success("Server stopped")
	return nil
}

// serveError maps server failures onto coded errors.
func serveError(err error) error {
	var bindErr *server.BindError
	switch {
	case stderrors.As(err, &bindErr):
		return errors.New("E200").
			WithDetailf("Could not listen on %s.", bindErr.Address).
			Wrap(err)
	case stderrors.Is(err, server.ErrInvalidConfig):
		return errors.New("E102").Wrap(err)
	default:
		return errors.FromError(err, "E201")
	}
}
