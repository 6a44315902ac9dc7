// Package app assembles the feed service from configuration. The server and
// the CLI share it so both refresh through identical components.
package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/kosarica/feed-service/config"
	"github.com/kosarica/feed-service/internal/auth"
	"github.com/kosarica/feed-service/internal/database"
	"github.com/kosarica/feed-service/internal/feed"
	"github.com/kosarica/feed-service/internal/pipeline"
	"github.com/kosarica/feed-service/internal/ratelimit"
	"github.com/kosarica/feed-service/internal/runlog"
	"github.com/kosarica/feed-service/internal/sheets"
	"github.com/kosarica/feed-service/internal/storage"
)

// App holds the wired components
type App struct {
	Config    *config.Config
	Logger    *zerolog.Logger
	Client    sheets.Client
	Registry  *sheets.Registry
	Fetcher   *sheets.Fetcher
	Store     *storage.LocalStorage
	RunLogs   *runlog.Manager
	Runs      *database.RunStore
	Refresher *pipeline.Refresher
}

// LogOutput returns the writer the root logger writes to
func LogOutput(cfg config.LoggingConfig) io.Writer {
	if cfg.Format == "json" {
		return os.Stdout
	}
	return zerolog.ConsoleWriter{Out: os.Stdout, NoColor: cfg.NoColor}
}

// NewLogger builds the root logger
func NewLogger(cfg config.LoggingConfig, out io.Writer) *zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	logger := zerolog.New(out).Level(level).With().Timestamp().Str("service", "feed-service").Logger()
	return &logger
}

// NewClient creates the spreadsheet client for the configured source. For
// Google the stored token is validated up front so bad credentials fail
// startup instead of the first refresh.
func NewClient(ctx context.Context, cfg config.SheetsConfig, logger *zerolog.Logger) (sheets.Client, error) {
	switch cfg.Source {
	case config.SourceXLSX:
		return sheets.NewXLSXClient(cfg.XLSXDir), nil
	case config.SourceGoogle:
		ts, err := auth.TokenSource(ctx, cfg.CredentialsJSON, cfg.TokenJSON, logger)
		if err != nil {
			return nil, err
		}
		if _, err := ts.Token(); err != nil {
			return nil, fmt.Errorf("failed to obtain access token: %w", err)
		}
		return sheets.NewGoogleClient(ctx, option.WithTokenSource(ts))
	default:
		return nil, fmt.Errorf("unknown sheets source %q", cfg.Source)
	}
}

// Build wires every component. The database is connected only when a URL is
// configured; Close releases it.
func Build(ctx context.Context, cfg *config.Config, logger *zerolog.Logger, logOut io.Writer) (*App, error) {
	client, err := NewClient(ctx, cfg.Sheets, logger)
	if err != nil {
		return nil, err
	}
	return BuildWithClient(ctx, cfg, logger, logOut, client)
}

// BuildWithClient wires every component around an existing spreadsheet client
func BuildWithClient(ctx context.Context, cfg *config.Config, logger *zerolog.Logger, logOut io.Writer, client sheets.Client) (*App, error) {
	if cfg.Sheets.RegistryID == "" {
		return nil, fmt.Errorf("sheets.registry_id (MASTER_SHEET_ID) is required")
	}

	store, err := storage.NewLocalStorage(cfg.Storage.BasePath)
	if err != nil {
		return nil, err
	}

	policy := pipeline.InstrumentPolicy(ratelimit.NewPolicy(ratelimit.Config{
		MaxAttempts:       cfg.RateLimit.MaxAttempts,
		BackoffUnit:       cfg.RateLimit.BackoffUnit,
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
	}), logger)

	pacer := ratelimit.NewPacer(ratelimit.PacerConfig{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
		MinDelay:          cfg.Refresh.CallDelayMin,
		MaxDelay:          cfg.Refresh.CallDelayMax,
	})

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Client:   client,
		Registry: sheets.NewRegistry(client, policy, pacer, cfg.Sheets.RegistryID, cfg.Sheets.RegistryWorksheet),
		Fetcher:  sheets.NewFetcher(client, policy, pacer, cfg.Refresh.WorksheetDelay),
		Store:    store,
	}
	if cfg.Logging.Dir != "" {
		a.RunLogs = runlog.NewManager(cfg.Logging.Dir, cfg.Logging.Retention, logOut)
	}

	if cfg.Database.URL != "" {
		if err := database.Connect(ctx, cfg.Database.URL, database.PoolConfig{
			MaxConns:    cfg.Database.MaxConnections,
			MinConns:    cfg.Database.MinConnections,
			MaxLifetime: cfg.Database.MaxConnLifetime,
			MaxIdleTime: cfg.Database.MaxConnIdleTime,
		}); err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.Runs = database.NewRunStore(database.Pool())
		if err := a.Runs.EnsureSchema(ctx); err != nil {
			database.Close()
			return nil, err
		}
		logger.Info().Msg("Run history database connected")
	}

	deps := pipeline.Deps{
		Registry: a.Registry,
		Fetcher:  a.Fetcher,
		Writer:   feed.NewWriter(store),
		Pacer:    pacer,
		RunLogs:  a.RunLogs,
		Logger:   logger,
	}
	if a.Runs != nil {
		deps.Recorder = a.Runs
	}

	a.Refresher = pipeline.New(deps, pipeline.Config{
		Interval:              cfg.Refresh.Interval,
		BatchSize:             cfg.Refresh.BatchSize,
		BatchDelay:            cfg.Refresh.BatchDelay,
		MaxConcurrentTriggers: int64(cfg.Refresh.MaxConcurrentTriggers),
		RunOnStart:            cfg.Refresh.RunOnStart,
	})
	return a, nil
}

// Close releases the database pool, if any
func (a *App) Close() {
	if a.Runs != nil {
		database.Close()
	}
}
