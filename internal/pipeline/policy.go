package pipeline

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/kosarica/feed-service/internal/metrics"
	"github.com/kosarica/feed-service/internal/ratelimit"
)

// InstrumentPolicy attaches logging and metrics to the retry callbacks
func InstrumentPolicy(p ratelimit.Policy, logger *zerolog.Logger) ratelimit.Policy {
	p.OnRetry = func(operation string, attempt int, wait time.Duration, err error) {
		metrics.RecordRetry(operation)
		logger.Warn().
			Err(err).
			Str("operation", operation).
			Int("attempt", attempt).
			Dur("wait", wait).
			Msg("Quota exceeded, backing off")
	}
	p.OnExhausted = func(operation string, attempts int, err error) {
		metrics.RecordExhausted()
		logger.Error().
			Err(err).
			Str("operation", operation).
			Int("attempts", attempts).
			Msg("Quota retries exhausted")
	}
	return p
}
