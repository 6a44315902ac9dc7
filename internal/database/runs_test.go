package database

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kosarica/feed-service/internal/types"
)

// setupTestDB starts a PostgreSQL container and returns a pool with the run
// schema applied
func setupTestDB(t *testing.T) *pgxpool.Pool {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err, "Failed to start postgres container")
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, NewRunStore(pool).EnsureSchema(ctx))
	return pool
}

func TestRunStore_Lifecycle(t *testing.T) {
	pool := setupTestDB(t)
	store := NewRunStore(pool)
	ctx := context.Background()

	// idempotent
	require.NoError(t, store.EnsureSchema(ctx))

	started := time.Now().UTC().Truncate(time.Millisecond)
	run := &types.RunSummary{ID: "run-1", Trigger: types.TriggerManual, StartedAt: started}
	require.NoError(t, store.StartRun(ctx, run))

	results := []types.SupplierResult{
		{SupplierID: "101", SupplierName: "Acme", Outcome: types.OutcomeWritten, ProductCount: 3, RejectedCount: 1, Fingerprint: "abc", Duration: 1500 * time.Millisecond},
		{SupplierID: "102", Outcome: types.OutcomeSkippedQuota, Error: "quota exceeded"},
	}
	for _, r := range results {
		require.NoError(t, store.RecordSupplier(ctx, run.ID, r))
		run.Count(r)
	}

	completed := started.Add(time.Minute)
	run.Status = types.RunStatusCompleted
	run.CompletedAt = &completed
	run.SuppliersTotal = 2
	require.NoError(t, store.FinishRun(ctx, run))

	runs, err := store.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, types.RunStatusCompleted, runs[0].Status)
	assert.Equal(t, types.TriggerManual, runs[0].Trigger)
	assert.Equal(t, 2, runs[0].SuppliersTotal)
	assert.Equal(t, map[types.SupplierOutcome]int{types.OutcomeWritten: 1, types.OutcomeSkippedQuota: 1}, runs[0].Outcomes)
	require.NotNil(t, runs[0].CompletedAt)

	suppliers, err := store.GetSuppliers(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, suppliers, 2)
	assert.Equal(t, "abc", suppliers[0].Fingerprint)
	assert.Equal(t, 1500*time.Millisecond, suppliers[0].Duration)
	assert.Equal(t, "quota exceeded", suppliers[1].Error)
}

func TestRunStore_MarkInterrupted(t *testing.T) {
	pool := setupTestDB(t)
	store := NewRunStore(pool)
	ctx := context.Background()

	require.NoError(t, store.StartRun(ctx, &types.RunSummary{ID: "stale", Trigger: types.TriggerSchedule, StartedAt: time.Now()}))

	n, err := store.MarkInterrupted(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	runs, err := store.ListRecent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, types.RunStatusInterrupted, runs[0].Status)
}
