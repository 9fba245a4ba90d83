// Package main is the entry point for the leadchat server.
package main

import (
	"context"
	"embed"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/mwhitford/leadchat/internal/autosave"
	"github.com/mwhitford/leadchat/internal/clock"
	"github.com/mwhitford/leadchat/internal/config"
	"github.com/mwhitford/leadchat/internal/database"
	"github.com/mwhitford/leadchat/internal/engage"
	"github.com/mwhitford/leadchat/internal/gateway"
	"github.com/mwhitford/leadchat/internal/handler"
	"github.com/mwhitford/leadchat/internal/logging"
	"github.com/mwhitford/leadchat/internal/metrics"
	"github.com/mwhitford/leadchat/internal/middleware"
	"github.com/mwhitford/leadchat/internal/repository"
	"github.com/mwhitford/leadchat/internal/session"
	"github.com/mwhitford/leadchat/internal/shutdown"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(&logging.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Environment: cfg.Server.Environment,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting leadchat server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("env", cfg.Server.Environment),
	)

	ctx := context.Background()
	db, err := database.New(ctx, &cfg.Database, logger.Zap())
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	// db.Close() is handled by the shutdown coordinator.

	migrator := database.NewMigrator(db.Pool, logger.Zap())
	if err := migrator.MigrateFromFS(ctx, migrationFiles, "migrations"); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	captureRepo := repository.NewLeadCaptureRepository(db.Pool)
	gw := gateway.NewHTTPGateway(&cfg.Gateway, logger.Zap())
	m := metrics.New()
	clk := clock.New()

	manager := session.NewManager(session.ManagerConfig{
		IdleTTL:       cfg.Session.IdleTTL,
		EvictInterval: cfg.Session.EvictInterval,
	}, captureRepo, gw, clk, logger.Zap(), m)

	watcher := autosave.NewWatcher(autosave.Config{
		CheckInterval:       cfg.Autosave.CheckInterval,
		InactivityThreshold: cfg.Autosave.InactivityThreshold,
	}, manager, clk, logger.Zap(), m)

	shutdownCoord := shutdown.NewCoordinator(logger.Zap(), 30*time.Second)
	probe := shutdown.NewReadinessProbe(shutdownCoord)

	chatHandler := handler.NewChatHandler(handler.ChatHandlerConfig{
		Manager: manager,
		Engage: engage.Config{
			OpenAfter:       cfg.Engage.OpenAfter,
			ScrollThreshold: cfg.Engage.ScrollThreshold,
		},
		Clock:  clk,
		Logger: logger.Zap(),
	})
	manager.SetOnEvict(chatHandler.StopEngagement)

	healthHandler := handler.NewHealthHandler(handler.HealthHandlerConfig{
		DB:      db,
		Gateway: gw,
		Probe:   probe,
		Logger:  logger.Zap(),
	})

	correlation := middleware.NewRequestCorrelation(logger.Zap())
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window, logger.Zap())

	router := handler.NewRouter(handler.RouterConfig{
		Chat:     chatHandler,
		Leads:    handler.NewLeadsHandler(captureRepo, logger.Zap()),
		Health:   healthHandler,
		LogLevel: handler.NewLogLevelHandler(logger),
		Metrics:  m,
		Middleware: []func(http.Handler) http.Handler{
			correlation.Middleware,
			chimiddleware.RealIP,
			middleware.RequestLogger(logger.Zap()),
			middleware.Recovery(logger.Zap()),
			chimiddleware.Compress(5),
			middleware.RateLimit(rateLimiter),
			middleware.BodySizeLimiterJSON(),
			m.HTTPMiddleware,
		},
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go manager.Run()
	go watcher.Run(ctx)

	go func() {
		logger.Info("server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Shutdown order: stop accepting traffic, then the background workers
	// that feed captures, then the pool everything writes through.
	shutdownCoord.RegisterFunc(shutdown.PhaseDrain, "http-server", func(ctx context.Context) error {
		return server.Shutdown(ctx)
	})
	shutdownCoord.RegisterFunc(shutdown.PhaseShutdown, "autosave-watcher", func(ctx context.Context) error {
		watcher.Stop()
		return nil
	})
	shutdownCoord.RegisterFunc(shutdown.PhaseShutdown, "session-manager", func(ctx context.Context) error {
		manager.Stop()
		return nil
	})
	shutdownCoord.Register(shutdown.PhaseShutdown, shutdown.ServiceFunc{
		ServiceName: "engagement-controllers",
		Fn:          chatHandler.Shutdown,
	})
	shutdownCoord.RegisterFunc(shutdown.PhaseCleanup, "database", func(ctx context.Context) error {
		db.Close()
		return nil
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("received shutdown signal")
	shutdownCoord.Shutdown()
}
