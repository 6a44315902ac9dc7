package ratelimit

import (
	"context"
	"errors"
	"strconv"
	"time"
)

// ErrQuotaExceeded marks an upstream "too many requests" condition.
// Spreadsheet clients wrap API errors carrying HTTP 429 with it so the
// retry policy can tell quota failures from access failures.
var ErrQuotaExceeded = errors.New("quota exceeded")

// RetryError represents an operation that kept hitting the quota until the
// attempt cap was reached
type RetryError struct {
	Operation string
	Attempts  int
	LastError error
}

func (e *RetryError) Error() string {
	msg := e.Operation + " failed after " + strconv.Itoa(e.Attempts) + " attempts"
	if e.LastError != nil {
		msg += ": " + e.LastError.Error()
	}
	return msg
}

func (e *RetryError) Unwrap() error {
	return e.LastError
}

// IsQuota reports whether err is (or wraps) a quota-exceeded condition
func IsQuota(err error) bool {
	return errors.Is(err, ErrQuotaExceeded)
}

// IsExhausted reports whether err is a retry-exhaustion failure
func IsExhausted(err error) bool {
	var re *RetryError
	return errors.As(err, &re)
}

// LinearBackoff returns a backoff function that waits attempt*unit after the
// given (1-based) failed attempt
func LinearBackoff(unit time.Duration) func(attempt int) time.Duration {
	return func(attempt int) time.Duration {
		return time.Duration(attempt) * unit
	}
}

// Policy is a bounded retry policy applied to every external API call.
// Only quota errors are retried; any other error is returned immediately.
type Policy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
	Sleep       func(ctx context.Context, d time.Duration) error

	// OnRetry is called before each backoff wait
	OnRetry func(operation string, attempt int, wait time.Duration, err error)
	// OnExhausted is called once when the attempt cap is reached
	OnExhausted func(operation string, attempts int, err error)
}

// NewPolicy builds the default policy from config: linear backoff of
// cfg.BackoffUnit per attempt, capped at cfg.MaxAttempts
func NewPolicy(cfg Config) Policy {
	return Policy{
		MaxAttempts: cfg.MaxAttempts,
		Backoff:     LinearBackoff(cfg.BackoffUnit),
		Sleep:       SleepContext,
	}
}

// Do runs fn under the policy
func (p Policy) Do(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	_, err := Retry(ctx, p, operation, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Retry runs fn under the policy and returns its value on success
func Retry[T any](ctx context.Context, p Policy, operation string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	backoff := p.Backoff
	if backoff == nil {
		backoff = LinearBackoff(DefaultConfig().BackoffUnit)
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	for attempt := 1; ; attempt++ {
		value, err := fn(ctx)
		if err == nil {
			return value, nil
		}

		// Access errors and the like are not worth retrying
		if !IsQuota(err) {
			return zero, err
		}

		if attempt >= maxAttempts {
			if p.OnExhausted != nil {
				p.OnExhausted(operation, attempt, err)
			}
			return zero, &RetryError{
				Operation: operation,
				Attempts:  attempt,
				LastError: err,
			}
		}

		wait := backoff(attempt)
		if p.OnRetry != nil {
			p.OnRetry(operation, attempt, wait, err)
		}
		if err := sleep(ctx, wait); err != nil {
			return zero, err
		}
	}
}

// SleepContext blocks for d or until ctx is done
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
