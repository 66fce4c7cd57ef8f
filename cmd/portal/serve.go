package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/communicare/portal/internal/authclient"
	"github.com/communicare/portal/internal/config"
	"github.com/communicare/portal/internal/drafts"
	"github.com/communicare/portal/internal/events"
	httpserver "github.com/communicare/portal/internal/http"
	"github.com/communicare/portal/internal/logging"
	"github.com/communicare/portal/internal/login"
	"github.com/communicare/portal/internal/registration"
	"github.com/communicare/portal/internal/site"
	"github.com/communicare/portal/internal/telemetry"
	"github.com/communicare/portal/internal/viewer"
)

const instrumentationName = "github.com/communicare/portal"

func newServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the portal HTTP server",
		Long: `Start the portal HTTP server and block until SIGINT or SIGTERM.

Configuration is read from --config (default ~/.config/portal/config.yaml)
and overridden by PORTAL_* environment variables.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := config.LoadWithFile(configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			return run(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to config.yaml")
	return cmd
}

// run starts the portal and blocks until ctx is cancelled.
//
// This function initializes all dependencies and services:
//  1. Initializes telemetry and the logger
//  2. Creates the auth provider client and the event publisher
//  3. Creates the registration and login services
//  4. Starts the HTTP server
//  5. Performs graceful shutdown on context cancellation
func run(ctx context.Context, cfg *config.Config) error {
	tel, err := telemetry.New(ctx, telemetry.FromSettings(cfg.Telemetry, version))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	logCfg, err := logging.FromSettings(cfg.Logging, cfg.Telemetry.ServiceName, tel.IsEnabled())
	if err != nil {
		return fmt.Errorf("failed to configure logger: %w", err)
	}
	logger, err := logging.NewLogger(logCfg, tel.LoggerProvider())
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync() // Best-effort sync on shutdown
	}()

	logger.Info(ctx, "starting portal",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.String("auth_url", cfg.Auth.BaseURL),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout))

	if h := tel.Health(); h.Degraded {
		logger.Warn(ctx, "telemetry degraded", zap.Strings("problems", h.Problems))
	}

	auth, err := authclient.NewClient(cfg.Auth, logger)
	if err != nil {
		return fmt.Errorf("failed to create auth client: %w", err)
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.Events.Enabled {
		nats, err := events.Connect(cfg.Events.URL, cfg.Events.SubjectPrefix)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer nats.Close()
		publisher = nats
		logger.Info(ctx, "publishing events", zap.String("subject_prefix", cfg.Events.SubjectPrefix))
	}

	tracer := tel.Tracer(instrumentationName)

	reg := registration.NewService(auth, registration.Options{
		RequireAddress:  cfg.Registration.RequireAddress,
		NotificationTTL: cfg.Registration.NotificationTTL,
		Drafts: drafts.Options{
			IdleTTL:       cfg.Drafts.IdleTTL,
			SweepInterval: cfg.Drafts.SweepInterval,
			MaxEntries:    cfg.Drafts.MaxDrafts,
		},
		Publisher: publisher,
		Logger:    logger,
		Tracer:    tracer,
	})
	defer reg.Close()

	content, err := site.Default()
	if err != nil {
		return fmt.Errorf("failed to load site content: %w", err)
	}

	srvCfg := &httpserver.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
		Cookies: viewer.CookieOptions{
			Domain: cfg.Session.CookieDomain,
			Secure: cfg.Session.Secure,
			MaxAge: cfg.Session.MaxAge,
		},
	}
	if cfg.RateLimit.Enabled {
		srvCfg.RateLimit = cfg.RateLimit.RatePerSecond
		srvCfg.RateLimitBurst = cfg.RateLimit.Burst
	}

	srv, err := httpserver.NewServer(httpserver.Deps{
		Registration: reg,
		Login: login.NewService(auth, login.Options{
			NotificationTTL: cfg.Registration.NotificationTTL,
			Publisher:       publisher,
			Logger:          logger,
			Tracer:          tracer,
		}),
		Content:   content,
		Logger:    logger,
		Telemetry: tel,
		Metrics:   httpserver.NewHTTPMetrics(tel.Meter(instrumentationName), logger),
	}, srvCfg)
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info(context.Background(), "shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := tel.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("telemetry shutdown: %w", err))
	}
	if err := <-errCh; err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	logger.Info(context.Background(), "portal stopped")
	return nil
}
