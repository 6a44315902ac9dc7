package ratelimit

import (
	"context"
	"math/rand/v2"
	"time"

	"golang.org/x/time/rate"
)

// PacerConfig configures request admission and randomized spacing
type PacerConfig struct {
	RequestsPerSecond float64
	Burst             int
	MinDelay          time.Duration
	MaxDelay          time.Duration
}

// Pacer keeps spreadsheet traffic under the upstream quota. Every API call
// waits on a token bucket; callers add randomized gaps between suppliers and
// fixed pauses between batches on top of that.
type Pacer struct {
	limiter  *rate.Limiter
	minDelay time.Duration
	maxDelay time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewPacer creates a pacer. A non-positive RequestsPerSecond disables the
// token bucket.
func NewPacer(cfg PacerConfig) *Pacer {
	p := &Pacer{
		minDelay: cfg.MinDelay,
		maxDelay: cfg.MaxDelay,
		sleep:    SleepContext,
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	if p.maxDelay < p.minDelay {
		p.maxDelay = p.minDelay
	}
	return p
}

// NoopPacer returns a pacer that never waits
func NoopPacer() *Pacer {
	return NewPacer(PacerConfig{})
}

// WithSleep replaces the sleep function (tests record waits instead of blocking)
func (p *Pacer) WithSleep(sleep func(ctx context.Context, d time.Duration) error) *Pacer {
	p.sleep = sleep
	return p
}

// Wait blocks until the token bucket admits one request
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil || p.limiter == nil {
		return ctx.Err()
	}
	return p.limiter.Wait(ctx)
}

// Jitter sleeps for a random duration in [MinDelay, MaxDelay]
func (p *Pacer) Jitter(ctx context.Context) error {
	if p == nil {
		return ctx.Err()
	}
	return p.sleep(ctx, p.jitterDuration())
}

// Pause sleeps for a fixed duration
func (p *Pacer) Pause(ctx context.Context, d time.Duration) error {
	if p == nil {
		return SleepContext(ctx, d)
	}
	return p.sleep(ctx, d)
}

func (p *Pacer) jitterDuration() time.Duration {
	span := p.maxDelay - p.minDelay
	if span <= 0 {
		return p.minDelay
	}
	return p.minDelay + rand.N(span+1)
}
