package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wildcastradio/radiolink/internal/api"
	"github.com/wildcastradio/radiolink/internal/auth"
	"github.com/wildcastradio/radiolink/internal/config"
	"github.com/wildcastradio/radiolink/internal/connection"
	"github.com/wildcastradio/radiolink/internal/handover"
	"github.com/wildcastradio/radiolink/internal/logging"
	"github.com/wildcastradio/radiolink/internal/metrics"
	"github.com/wildcastradio/radiolink/internal/reconcile"
	"github.com/wildcastradio/radiolink/internal/transport"
	"github.com/wildcastradio/radiolink/internal/version"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	baseURL    string
	token      string
	logLevel   string
	logFormat  string
}

// app holds what every command builds from config.
type app struct {
	cfg     *config.Config
	cred    auth.Credential
	logger  *slog.Logger
	reg     *prometheus.Registry
	metrics *metrics.Metrics
}

func newApp(opts *globalOptions) (*app, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.LoadWithDefaults(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if opts.baseURL != "" {
		cfg.API.BaseURL = opts.baseURL
	}
	if opts.token != "" {
		cfg.Auth.Token = opts.token
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if opts.logFormat != "" {
		cfg.Logging.Format = opts.logFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	cred, err := cfg.Credential()
	if err != nil {
		return nil, err
	}

	reg := metrics.NewRegistry()
	return &app{
		cfg:     cfg,
		cred:    cred,
		logger:  logger,
		reg:     reg,
		metrics: metrics.New(reg),
	}, nil
}

func (a *app) newManager() (*connection.Manager, error) {
	dial, err := transport.ForKind(a.cfg.Connection.Transport, a.cfg.TransportConfig(), a.logger)
	if err != nil {
		return nil, err
	}

	return connection.NewManager(a.cfg.Connection.ManagerConfig(), dial,
		connection.WithLogger(a.logger),
		connection.WithMetrics(a.metrics),
		connection.OnStateChange(func(from, to connection.State) {
			a.logger.Info("connection state changed", "from", from.String(), "to", to.String())
		}),
	), nil
}

func (a *app) newAPIClient() *api.Client {
	opts := append(a.cfg.API.ClientOptions(),
		api.WithLogger(a.logger),
		api.WithMetrics(a.metrics.API),
	)
	return api.NewClient(a.cfg.API.BaseURL, a.cred, opts...)
}

func (a *app) newHandoverService() *handover.Service {
	runner := reconcile.NewRunner(a.cfg.Reconcile.RunnerConfig(),
		reconcile.WithLogger(a.logger),
		reconcile.WithMetrics(a.metrics.Reconcile),
	)
	return handover.NewService(a.newAPIClient(), runner, a.logger)
}

func (a *app) logStart(command string) {
	a.logger.Info("starting radiolink",
		"command", command,
		"version", version.Version,
		"commit", version.Commit,
		"server", a.cfg.API.BaseURL,
		"credential", a.cred.String(),
	)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
