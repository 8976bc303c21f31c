package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/critiquelabs/critique/pkg/api"
	"github.com/critiquelabs/critique/pkg/async"
	"github.com/critiquelabs/critique/pkg/audit"
	"github.com/critiquelabs/critique/pkg/config"
	"github.com/critiquelabs/critique/pkg/mail"
	"github.com/critiquelabs/critique/pkg/middleware"
	"github.com/critiquelabs/critique/pkg/observability"
	"github.com/critiquelabs/critique/pkg/storage/postgres"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		observability.NewLogger(observability.ErrorLevel, os.Stderr).
			WithError(err).Error("invalid configuration")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, os.Stdout)
	logger.Info("starting critique API server")

	store, err := postgres.NewPostgresStorage(cfg.Storage, logger)
	if err != nil {
		logger.WithError(err).Error("failed to initialize storage")
		os.Exit(1)
	}
	defer store.Close()

	var metrics *observability.Metrics
	registry := prometheus.NewRegistry()
	if cfg.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
		store.WithMetrics(metrics)
	}

	var sender mail.Sender = mail.NewSMTPSender(
		cfg.Mail.SMTPHost, cfg.Mail.SMTPPort, cfg.Mail.From,
		cfg.Mail.Username, cfg.Mail.Password,
	)
	if metrics != nil {
		sender = mail.NewInstrumentedSender(sender, metrics)
	}

	authenticator := middleware.NewAuthenticator(store, logger)
	auditTrail := audit.NewStore(store.DB())
	server := api.NewServer(store, api.ServerOptions{
		Mail:         sender,
		TokenTTL:     cfg.Auth.TokenTTL,
		Logger:       logger,
		Metrics:      metrics,
		Authenticate: authenticator.Authenticate,
		Audit:        audit.Middleware(auditTrail, logger),
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthServer := newHealthServer(cfg, store, registry)

	shutdown := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return healthServer.Shutdown(ctx)
	})
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return store.Close()
	})

	if metrics != nil {
		gaugeCtx, stopGauges := context.WithCancel(context.Background())
		shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
			stopGauges()
			return nil
		})
		async.Go(logger, "stats-gauges", func() {
			refreshGauges(gaugeCtx, store, logger)
		})
	}

	async.Go(logger, "health-listener", func() {
		logger.WithField("addr", healthServer.Addr).Info("health server listening")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("health server failed")
		}
	})

	async.Go(logger, "api-listener", func() {
		logger.WithField("addr", httpServer.Addr).Info("API server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("API server failed")
			os.Exit(1)
		}
	})

	if err := shutdown.WaitForShutdown(); err != nil {
		logger.WithError(err).Error("shutdown did not complete cleanly")
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

const gaugeRefreshInterval = time.Minute

// refreshGauges keeps the business gauges current until ctx is canceled.
func refreshGauges(ctx context.Context, store *postgres.PostgresStorage, logger *observability.Logger) {
	refresh := func() {
		refreshCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := store.RefreshGauges(refreshCtx); err != nil {
			logger.WithError(err).Warn("failed to refresh business gauges")
		}
	}
	refresh()

	ticker := time.NewTicker(gaugeRefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refresh()
		}
	}
}

// newHealthServer serves liveness, readiness and metrics on a separate port
// so probes and scrapes stay off the public listener.
func newHealthServer(cfg *config.Config, store *postgres.PostgresStorage, registry *prometheus.Registry) *http.Server {
	var redisClient *redis.Client
	if store.Redis() != nil {
		redisClient = store.Redis().Client()
	}
	checker := observability.NewHealthChecker(store.DB(), redisClient)

	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", checker.Liveness)
	healthMux.HandleFunc("/readyz", checker.Readiness)
	if cfg.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}

	return &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}
}
