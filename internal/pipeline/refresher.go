// Package pipeline runs refresh passes over the supplier registry.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/semaphore"

	"github.com/kosarica/feed-service/internal/feed"
	"github.com/kosarica/feed-service/internal/fingerprint"
	"github.com/kosarica/feed-service/internal/mapping"
	"github.com/kosarica/feed-service/internal/metrics"
	"github.com/kosarica/feed-service/internal/ratelimit"
	"github.com/kosarica/feed-service/internal/runlog"
	"github.com/kosarica/feed-service/internal/sheets"
	"github.com/kosarica/feed-service/internal/telemetry"
	"github.com/kosarica/feed-service/internal/types"
)

var (
	// ErrSupplierNotFound is returned when a requested supplier is not in the registry
	ErrSupplierNotFound = errors.New("supplier not found in registry")

	// ErrTooManyTriggers is returned when the on-demand trigger limit is reached
	ErrTooManyTriggers = errors.New("too many refresh runs in progress")
)

// RegistrySource returns the suppliers to refresh
type RegistrySource interface {
	Suppliers(ctx context.Context) ([]types.SupplierConfig, []sheets.RowIssue, error)
}

// WorksheetSource returns every worksheet of a supplier spreadsheet
type WorksheetSource interface {
	Worksheets(ctx context.Context, spreadsheetID string, logger *zerolog.Logger) ([]types.Worksheet, error)
}

// Recorder persists run history. Recording failures are logged and never
// fail a run.
type Recorder interface {
	StartRun(ctx context.Context, run *types.RunSummary) error
	RecordSupplier(ctx context.Context, runID string, result types.SupplierResult) error
	FinishRun(ctx context.Context, run *types.RunSummary) error
}

// Config holds refresh pacing and scheduling settings
type Config struct {
	Interval              time.Duration
	BatchSize             int
	BatchDelay            time.Duration
	MaxConcurrentTriggers int64
	RunOnStart            bool
}

// DefaultConfig returns the default refresh configuration
func DefaultConfig() Config {
	return Config{
		Interval:              1800 * time.Second,
		BatchSize:             5,
		BatchDelay:            10 * time.Second,
		MaxConcurrentTriggers: 4,
		RunOnStart:            true,
	}
}

// Deps are the collaborators of a Refresher. Cache, Recorder and RunLogs are
// optional.
type Deps struct {
	Registry RegistrySource
	Fetcher  WorksheetSource
	Writer   *feed.Writer
	Cache    *fingerprint.Cache
	Pacer    *ratelimit.Pacer
	Recorder Recorder
	RunLogs  *runlog.Manager
	Logger   *zerolog.Logger
}

// RunOptions narrow or alter a single pass
type RunOptions struct {
	RunID      string
	Trigger    types.RunTrigger
	SupplierID string
	// Force rewrites feeds even when the fingerprint is unchanged
	Force bool
}

// Refresher turns supplier spreadsheets into XML feeds
type Refresher struct {
	registry RegistrySource
	fetcher  WorksheetSource
	writer   *feed.Writer
	cache    *fingerprint.Cache
	pacer    *ratelimit.Pacer
	recorder Recorder
	runlogs  *runlog.Manager
	logger   *zerolog.Logger
	cfg      Config

	locks    *keyedMutex
	status   *Status
	triggers *semaphore.Weighted

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
	stopChan chan struct{}
}

// New creates a refresher
func New(deps Deps, cfg Config) *Refresher {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 1
	}
	if cfg.MaxConcurrentTriggers < 1 {
		cfg.MaxConcurrentTriggers = 1
	}
	if deps.Cache == nil {
		deps.Cache = fingerprint.NewCache()
	}
	if deps.Pacer == nil {
		deps.Pacer = ratelimit.NoopPacer()
	}
	if deps.Logger == nil {
		nop := zerolog.Nop()
		deps.Logger = &nop
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Refresher{
		registry: deps.Registry,
		fetcher:  deps.Fetcher,
		writer:   deps.Writer,
		cache:    deps.Cache,
		pacer:    deps.Pacer,
		recorder: deps.Recorder,
		runlogs:  deps.RunLogs,
		logger:   deps.Logger,
		cfg:      cfg,
		locks:    newKeyedMutex(),
		status:   &Status{},
		triggers: semaphore.NewWeighted(cfg.MaxConcurrentTriggers),
		ctx:      ctx,
		cancel:   cancel,
		stopChan: make(chan struct{}),
	}
}

// Status returns the current refresh state
func (r *Refresher) Status() StatusSnapshot {
	return r.status.Snapshot()
}

// Cache returns the fingerprint cache owned by this refresher
func (r *Refresher) Cache() *fingerprint.Cache {
	return r.cache
}

// Forget drops the cached fingerprint of a supplier so its next refresh
// rewrites the feed even if the spreadsheet is unchanged
func (r *Refresher) Forget(supplierID string) {
	r.cache.Delete(supplierID)
}

// ForgetAll drops every cached fingerprint
func (r *Refresher) ForgetAll() {
	r.cache.Flush()
}

// RunOnce performs one pass over the registry. Per-supplier failures are
// recorded in the summary; only a registry failure or cancellation returns
// an error.
func (r *Refresher) RunOnce(ctx context.Context, opts RunOptions) (*types.RunSummary, error) {
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.Trigger == "" {
		opts.Trigger = types.TriggerSchedule
	}

	logger, closeLog := r.runlogs.Start(r.logger, opts.RunID)
	defer func() {
		if err := closeLog(); err != nil {
			r.logger.Warn().Err(err).Str("run_id", opts.RunID).Msg("Failed to close run log")
		}
		if r.runlogs != nil {
			if n, err := r.runlogs.Prune(); err != nil {
				r.logger.Warn().Err(err).Msg("Failed to prune run logs")
			} else if n > 0 {
				r.logger.Debug().Int("removed", n).Msg("Pruned run logs")
			}
		}
	}()

	ctx, span := telemetry.Tracer().Start(ctx, "refresh.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("run.id", opts.RunID),
		attribute.String("run.trigger", string(opts.Trigger)),
	)

	start := time.Now()
	summary := &types.RunSummary{
		ID:        opts.RunID,
		Trigger:   opts.Trigger,
		Status:    types.RunStatusRunning,
		StartedAt: start,
		Outcomes:  make(map[types.SupplierOutcome]int),
	}

	r.status.begin()
	metrics.SetRunning(true)
	defer func() {
		r.status.end(summary)
		metrics.SetRunning(r.status.Snapshot().Running)
	}()

	if r.recorder != nil {
		if err := r.recorder.StartRun(ctx, summary); err != nil {
			logger.Warn().Err(err).Msg("Failed to record run start")
		}
	}

	logger.Info().
		Str("trigger", string(opts.Trigger)).
		Str("supplier_filter", opts.SupplierID).
		Bool("force", opts.Force).
		Msg("Starting refresh run")

	err := r.runSuppliers(ctx, logger, summary, opts)

	completed := time.Now()
	summary.CompletedAt = &completed
	result := "ok"
	if err != nil {
		summary.Status = types.RunStatusFailed
		summary.Error = err.Error()
		result = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error().Err(err).Dur("duration", completed.Sub(start)).Msg("Refresh run failed")
	} else {
		summary.Status = types.RunStatusCompleted
		logger.Info().
			Int("suppliers", summary.SuppliersTotal).
			Int("written", summary.Outcomes[types.OutcomeWritten]).
			Int("unchanged", summary.Outcomes[types.OutcomeUnchanged]).
			Int("empty", summary.Outcomes[types.OutcomeEmpty]).
			Int("skipped_quota", summary.Outcomes[types.OutcomeSkippedQuota]).
			Int("failed_access", summary.Outcomes[types.OutcomeFailedAccess]).
			Int("failed_write", summary.Outcomes[types.OutcomeFailedWrite]).
			Dur("duration", completed.Sub(start)).
			Msg("Refresh run complete")
	}
	metrics.RecordRun(result, completed.Sub(start))

	if r.recorder != nil {
		// the run context may be cancelled; history should still be closed out
		recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		if err := r.recorder.FinishRun(recCtx, summary); err != nil {
			logger.Warn().Err(err).Msg("Failed to record run completion")
		}
		cancel()
	}

	return summary, err
}

func (r *Refresher) runSuppliers(ctx context.Context, logger *zerolog.Logger, summary *types.RunSummary, opts RunOptions) error {
	suppliers, issues, err := r.registry.Suppliers(ctx)
	if err != nil {
		return fmt.Errorf("registry read failed: %w", err)
	}
	for _, issue := range issues {
		logger.Warn().Int("row", issue.RowNumber).Str("reason", issue.Reason).Msg("Skipping registry row")
	}

	if opts.SupplierID != "" {
		suppliers = filterSuppliers(suppliers, opts.SupplierID)
		if len(suppliers) == 0 {
			return fmt.Errorf("%w: %s", ErrSupplierNotFound, opts.SupplierID)
		}
	}

	summary.SuppliersTotal = len(suppliers)
	logger.Info().Int("suppliers", len(suppliers)).Msg("Loaded supplier registry")

	// suppliers that exhausted retries are not tried again this cycle
	skipped := make(map[string]bool)

	for i := 0; i < len(suppliers); i += r.cfg.BatchSize {
		if i > 0 {
			if err := r.pacer.Pause(ctx, r.cfg.BatchDelay); err != nil {
				return err
			}
		}

		end := min(i+r.cfg.BatchSize, len(suppliers))
		logger.Debug().Int("from", i+1).Int("to", end).Msg("Processing batch")

		for _, supplier := range suppliers[i:end] {
			var result types.SupplierResult
			if skipped[supplier.SupplierID] {
				logger.Warn().Str("supplier_id", supplier.SupplierID).Msg("Supplier already skipped this cycle")
				result = types.SupplierResult{
					SupplierID:   supplier.SupplierID,
					SupplierName: supplier.SupplierName,
					Outcome:      types.OutcomeSkippedQuota,
					Error:        "skipped after quota exhaustion earlier in this cycle",
				}
			} else {
				if err := r.pacer.Jitter(ctx); err != nil {
					return err
				}
				result = r.RefreshSupplier(ctx, logger, supplier, opts.RunID, opts.Force)
				if result.Outcome == types.OutcomeSkippedQuota {
					skipped[supplier.SupplierID] = true
				}
			}

			summary.Count(result)
			metrics.RecordOutcome(result.Outcome, result.ProductCount, result.RejectedCount)
			if result.Outcome == types.OutcomeWritten {
				if name, err := feed.FileName(supplier.SupplierID); err == nil {
					summary.FilesWritten = append(summary.FilesWritten, name)
				}
			}
			if r.recorder != nil {
				if err := r.recorder.RecordSupplier(ctx, opts.RunID, result); err != nil {
					logger.Warn().Err(err).Str("supplier_id", supplier.SupplierID).Msg("Failed to record supplier result")
				}
			}
		}

		if err := ctx.Err(); err != nil {
			return err
		}
	}

	return nil
}

// RefreshSupplier runs fetch, change detection, mapping and serialization
// for one supplier while holding that supplier's lock
func (r *Refresher) RefreshSupplier(ctx context.Context, logger *zerolog.Logger, supplier types.SupplierConfig, runID string, force bool) (result types.SupplierResult) {
	start := time.Now()
	supLog := logger.With().
		Str("supplier_id", supplier.SupplierID).
		Str("supplier_name", supplier.SupplierName).
		Logger()

	result = types.SupplierResult{
		SupplierID:   supplier.SupplierID,
		SupplierName: supplier.SupplierName,
	}
	defer func() { result.Duration = time.Since(start) }()

	ctx, span := telemetry.Tracer().Start(ctx, "refresh.supplier")
	defer span.End()
	span.SetAttributes(attribute.String("supplier.id", supplier.SupplierID))

	unlock := r.locks.Lock(supplier.SupplierID)
	defer unlock()

	worksheets, err := r.fetcher.Worksheets(ctx, supplier.SheetID, &supLog)
	if err != nil {
		result.Error = err.Error()
		span.RecordError(err)
		if ratelimit.IsExhausted(err) {
			result.Outcome = types.OutcomeSkippedQuota
			supLog.Warn().Err(err).Msg("Skipping supplier for this cycle after repeated quota errors")
		} else {
			result.Outcome = types.OutcomeFailedAccess
			supLog.Error().Err(err).Str("sheet_id", supplier.SheetID).Msg("Failed to read supplier spreadsheet")
		}
		span.SetAttributes(attribute.String("supplier.outcome", string(result.Outcome)))
		return result
	}

	fp, changed := r.cache.Check(supplier.SupplierID, worksheets)
	result.Fingerprint = fp
	if !changed && !force {
		result.Outcome = types.OutcomeUnchanged
		supLog.Info().Msg("No changes in spreadsheet, skipping")
		span.SetAttributes(attribute.String("supplier.outcome", string(result.Outcome)))
		return result
	}

	rows, empty := sheets.Flatten(worksheets)
	for _, title := range empty {
		supLog.Info().Str("worksheet", title).Msg("Worksheet has no data rows")
	}
	if len(rows) == 0 {
		result.Outcome = types.OutcomeEmpty
		supLog.Warn().Msg("No data rows in any worksheet, skipping")
		span.SetAttributes(attribute.String("supplier.outcome", string(result.Outcome)))
		return result
	}

	products, rejections := mapping.BuildProducts(rows, supplier.Columns)
	for _, rej := range rejections {
		supLog.Debug().Int("row", rej.RowNumber).Strs("errors", rej.Errors).Msg("Skipping row")
	}
	result.ProductCount = len(products)
	result.RejectedCount = len(rejections)

	written, err := r.writer.Write(ctx, supplier, products, fp, runID)
	if err != nil {
		// cache stays stale so the next cycle retries
		result.Outcome = types.OutcomeFailedWrite
		result.Error = err.Error()
		span.RecordError(err)
		supLog.Error().Err(err).Msg("Failed to write feed")
		span.SetAttributes(attribute.String("supplier.outcome", string(result.Outcome)))
		return result
	}

	r.cache.Set(supplier.SupplierID, fp)
	result.Outcome = types.OutcomeWritten
	supLog.Info().
		Str("file", written.Key).
		Int("products", written.ProductCount).
		Int("rejected", len(rejections)).
		Int("bytes", written.Bytes).
		Msg("Feed written")
	span.SetAttributes(
		attribute.String("supplier.outcome", string(result.Outcome)),
		attribute.Int("supplier.products", written.ProductCount),
	)
	return result
}

func filterSuppliers(suppliers []types.SupplierConfig, supplierID string) []types.SupplierConfig {
	var out []types.SupplierConfig
	for _, s := range suppliers {
		if s.SupplierID == supplierID {
			out = append(out, s)
		}
	}
	return out
}
