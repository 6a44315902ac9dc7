package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kosarica/feed-service/internal/types"
)

// Start runs refresh passes until ctx is cancelled or Stop is called. The
// interval is measured from the end of one pass to the start of the next, so
// a slow pass pushes the schedule out. A failed pass is logged and the loop
// waits the normal interval.
func (r *Refresher) Start(ctx context.Context) {
	r.logger.Info().
		Dur("interval", r.cfg.Interval).
		Int("batch_size", r.cfg.BatchSize).
		Dur("batch_delay", r.cfg.BatchDelay).
		Msg("Starting refresh scheduler")

	ctx, cancel := mergeCancel(ctx, r.ctx)
	defer cancel()

	if !r.cfg.RunOnStart && !r.wait(ctx) {
		return
	}

	for {
		if _, err := r.RunOnce(ctx, RunOptions{Trigger: types.TriggerSchedule}); err != nil {
			r.logger.Error().Err(err).Msg("Scheduled refresh failed")
		}

		if !r.wait(ctx) {
			return
		}
	}
}

func (r *Refresher) wait(ctx context.Context) bool {
	timer := time.NewTimer(r.cfg.Interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		r.logger.Info().Msg("Refresh scheduler stopping (context cancelled)")
		return false
	case <-r.stopChan:
		r.logger.Info().Msg("Refresh scheduler stopping (stop signal)")
		return false
	case <-timer.C:
		return true
	}
}

// Trigger starts one pass in the background and returns its run id without
// waiting for it. Triggered passes run alongside the scheduled loop; the
// per-supplier lock keeps them from interleaving writes to the same feed.
func (r *Refresher) Trigger(opts RunOptions) (string, error) {
	if !r.triggers.TryAcquire(1) {
		return "", ErrTooManyTriggers
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.Trigger == "" {
		opts.Trigger = types.TriggerManual
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.triggers.Release(1)

		if _, err := r.RunOnce(r.ctx, opts); err != nil {
			r.logger.Error().Err(err).Str("run_id", opts.RunID).Msg("Triggered refresh failed")
		}
	}()

	return opts.RunID, nil
}

// Stop ends the scheduler loop and cancels in-flight passes
func (r *Refresher) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopChan)
		r.cancel()
	})
}

// Wait blocks until triggered passes have returned or ctx is done
func (r *Refresher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// mergeCancel returns a context derived from a that is also cancelled when b is
func mergeCancel(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(a)
	stop := context.AfterFunc(b, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
