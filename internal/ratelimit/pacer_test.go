package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacerJitterWithinBounds(t *testing.T) {
	rec := &sleepRecorder{}
	p := NewPacer(PacerConfig{MinDelay: time.Second, MaxDelay: 3 * time.Second}).WithSleep(rec.sleep)

	for i := 0; i < 50; i++ {
		require.NoError(t, p.Jitter(context.Background()))
	}

	require.Len(t, rec.waits, 50)
	for _, w := range rec.waits {
		assert.GreaterOrEqual(t, w, time.Second)
		assert.LessOrEqual(t, w, 3*time.Second)
	}
}

func TestPacerFixedDelayWhenBoundsInverted(t *testing.T) {
	rec := &sleepRecorder{}
	p := NewPacer(PacerConfig{MinDelay: 2 * time.Second, MaxDelay: time.Second}).WithSleep(rec.sleep)

	require.NoError(t, p.Jitter(context.Background()))
	assert.Equal(t, []time.Duration{2 * time.Second}, rec.waits)
}

func TestNoopPacerWaitReturnsImmediately(t *testing.T) {
	p := NoopPacer()
	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, p.Wait(context.Background()))
	}
	assert.Less(t, time.Since(start), time.Second)
}

func TestPacerWaitHonorsCancellation(t *testing.T) {
	p := NewPacer(PacerConfig{RequestsPerSecond: 0.001, Burst: 1})
	ctx, cancel := context.WithCancel(context.Background())

	// First token is available immediately
	require.NoError(t, p.Wait(ctx))

	cancel()
	assert.Error(t, p.Wait(ctx))
}
