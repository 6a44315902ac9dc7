package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/kosarica/feed-service/config"
	_ "github.com/kosarica/feed-service/docs"
	"github.com/kosarica/feed-service/internal/app"
	"github.com/kosarica/feed-service/internal/database"
	"github.com/kosarica/feed-service/internal/handlers"
	"github.com/kosarica/feed-service/internal/middleware"
	"github.com/kosarica/feed-service/internal/telemetry"
)

// @title Feed Service API
// @version 1.0
// @description Generates supplier XML product feeds from Google Sheets.
// @BasePath /
func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logOut := app.LogOutput(cfg.Logging)
	logger := app.NewLogger(cfg.Logging, logOut)

	logger.Info().Str("source", cfg.Sheets.Source).Msg("Starting feed service")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:     cfg.Telemetry.Enabled,
		Endpoint:    cfg.Telemetry.Endpoint,
		ServiceName: cfg.Telemetry.ServiceName,
	}.ApplyEnv())
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize telemetry")
	} else {
		defer func() {
			if err := shutdownTelemetry(context.Background()); err != nil {
				logger.Warn().Err(err).Msg("Telemetry shutdown failed")
			}
		}()
	}

	if err := os.MkdirAll(cfg.Storage.BasePath, 0755); err != nil {
		logger.Fatal().Err(err).Str("path", cfg.Storage.BasePath).Msg("Failed to create output directory")
	}

	a, err := app.Build(ctx, cfg, logger, logOut)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize feed service")
	}
	defer a.Close()

	var dbStatus func(context.Context) error
	var history handlers.RunHistory
	if a.Runs != nil {
		handleInterruptedRuns(ctx, a, logger)
		dbStatus = database.Status
		history = a.Runs
	}

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	if cfg.Server.InternalAPIKey == "" {
		logger.Warn().Msg("INTERNAL_API_KEY not set, mutating routes are disabled")
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))

	triggerLimiter := middleware.NewIPRateLimiter(middleware.DefaultRateLimiterConfig())
	h := handlers.New(handlers.Deps{
		Refresher: a.Refresher,
		Store:     a.Store,
		RunLogs:   a.RunLogs,
		History:   history,
		DBStatus:  dbStatus,
		Logger:    logger,
	})
	h.Register(router, handlers.RouteConfig{
		InternalAPIKey: cfg.Server.InternalAPIKey,
		TriggerLimiter: triggerLimiter,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("addr", addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		a.Refresher.Start(gctx)
		return nil
	})

	g.Go(func() error {
		triggerLimiter.RunCleanup(gctx, time.Minute)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		a.Refresher.Stop()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Server forced to shutdown")
		}
		if err := a.Refresher.Wait(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("Triggered refreshes did not finish before shutdown")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("Feed service stopped with error")
	}

	logger.Info().Msg("Server exited")
}

// handleInterruptedRuns closes out runs left in the running state by a
// previous process
func handleInterruptedRuns(ctx context.Context, a *app.App, logger *zerolog.Logger) {
	n, err := a.Runs.MarkInterrupted(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to handle interrupted runs")
		return
	}
	if n == 0 {
		logger.Info().Msg("No interrupted runs found")
		return
	}
	logger.Info().Int64("count", n).Msg("Marked interrupted runs")
}
