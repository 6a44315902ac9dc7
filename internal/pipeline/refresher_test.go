package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kosarica/feed-service/internal/feed"
	"github.com/kosarica/feed-service/internal/ratelimit"
	"github.com/kosarica/feed-service/internal/runlog"
	"github.com/kosarica/feed-service/internal/sheets"
	"github.com/kosarica/feed-service/internal/sheets/sheetstest"
	"github.com/kosarica/feed-service/internal/storage"
	"github.com/kosarica/feed-service/internal/types"
)

var registryHeader = []string{"Post_ID", "Supplier Name", "Google Sheet ID", "ID Column", "Name Column", "Stock Column", "Price Column", "SKU Column", "RRP Column", "Currency Column"}

type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.waits = append(r.waits, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *sleepRecorder) recorded() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.waits...)
}

type fakeRecorder struct {
	mu       sync.Mutex
	started  []string
	results  map[string][]types.SupplierResult
	finished []types.RunSummary
}

func (f *fakeRecorder) StartRun(ctx context.Context, run *types.RunSummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, run.ID)
	return nil
}

func (f *fakeRecorder) RecordSupplier(ctx context.Context, runID string, r types.SupplierResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.results == nil {
		f.results = make(map[string][]types.SupplierResult)
	}
	f.results[runID] = append(f.results[runID], r)
	return nil
}

func (f *fakeRecorder) FinishRun(ctx context.Context, run *types.RunSummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finished = append(f.finished, *run)
	return nil
}

type failingStore struct {
	*storage.LocalStorage
	err error
}

func (s *failingStore) Put(ctx context.Context, key string, content []byte, metadata *storage.Metadata) error {
	return s.err
}

type harness struct {
	client   *sheetstest.Client
	store    *storage.LocalStorage
	retries  *sleepRecorder
	pacing   *sleepRecorder
	recorder *fakeRecorder
	deps     Deps
	cfg      Config
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	h := &harness{
		client:   sheetstest.New(),
		store:    store,
		retries:  &sleepRecorder{},
		pacing:   &sleepRecorder{},
		recorder: &fakeRecorder{},
	}

	policy := ratelimit.NewPolicy(ratelimit.DefaultConfig())
	policy.Sleep = h.retries.sleep
	pacer := ratelimit.NewPacer(ratelimit.PacerConfig{MinDelay: time.Second, MaxDelay: 3 * time.Second}).WithSleep(h.pacing.sleep)
	logger := zerolog.Nop()

	h.deps = Deps{
		Registry: sheets.NewRegistry(h.client, policy, pacer, "master", "Sheet1"),
		Fetcher:  sheets.NewFetcher(h.client, policy, pacer, 0),
		Writer:   feed.NewWriter(store),
		Pacer:    pacer,
		Recorder: h.recorder,
		Logger:   &logger,
	}
	h.cfg = DefaultConfig()
	return h
}

func (h *harness) setRegistry(rows ...[]string) {
	values := append([][]string{registryHeader}, rows...)
	h.client.SetSpreadsheet("master", types.Worksheet{Title: "Sheet1", Values: values})
}

func (h *harness) refresher() *Refresher {
	return New(h.deps, h.cfg)
}

func (h *harness) readFeed(t *testing.T, supplierID string) *feed.Document {
	t.Helper()
	data, err := h.store.Get(context.Background(), supplierID+".xml")
	require.NoError(t, err)
	doc, err := feed.Decode(data)
	require.NoError(t, err)
	return doc
}

func supplierRow(id, sheetID string) []string {
	// ID=A, Name=B, Price=D; other fields unmapped
	return []string{id, "Supplier " + id, sheetID, "A", "B", "-", "D", "-", "-", "-"}
}

func productSheet(title string, rows ...[]string) types.Worksheet {
	values := append([][]string{{"ID", "Name", "Note", "Price"}}, rows...)
	return types.Worksheet{Title: title, Values: values}
}

func quotaErr() error {
	return fmt.Errorf("%w: HTTP 429", ratelimit.ErrQuotaExceeded)
}

func TestRunOnce_EndToEnd(t *testing.T) {
	h := newHarness(t)
	h.setRegistry(supplierRow("101", "s101"))
	h.client.SetSpreadsheet("s101", productSheet("Main",
		[]string{"1", "Widget", "x", "150"},
		[]string{"2", "Gadget", "x", "0"},
	))

	summary, err := h.refresher().RunOnce(context.Background(), RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, types.RunStatusCompleted, summary.Status)
	assert.Equal(t, 1, summary.Outcomes[types.OutcomeWritten])
	assert.Equal(t, []string{"101.xml"}, summary.FilesWritten)

	doc := h.readFeed(t, "101")
	require.Len(t, doc.Products, 1)
	assert.Equal(t, "1", doc.Products[0].ID)
	assert.Equal(t, "Widget", doc.Products[0].Name)
	assert.Equal(t, "150", doc.Products[0].Price)
	assert.Equal(t, "true", doc.Products[0].Stock)
	assert.Equal(t, "UAH", doc.Products[0].Currency)

	require.Len(t, h.recorder.finished, 1)
	results := h.recorder.results[summary.ID]
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].ProductCount)
	assert.Equal(t, 1, results[0].RejectedCount)
}

func TestRunOnce_UnchangedDoesNotTouchFile(t *testing.T) {
	h := newHarness(t)
	h.setRegistry(supplierRow("101", "s101"))
	h.client.SetSpreadsheet("s101", productSheet("Main", []string{"1", "Widget", "x", "150"}))

	r := h.refresher()
	ctx := context.Background()

	_, err := r.RunOnce(ctx, RunOptions{})
	require.NoError(t, err)

	path := filepath.Join(h.store.GetBasePath(), "101.xml")
	past := time.Now().Add(-time.Hour).Truncate(time.Second)
	require.NoError(t, os.Chtimes(path, past, past))

	summary, err := r.RunOnce(ctx, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Outcomes[types.OutcomeUnchanged])
	assert.Empty(t, summary.FilesWritten)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(past), "file must not be rewritten")

	// force bypasses change detection
	summary, err = r.RunOnce(ctx, RunOptions{Force: true})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Outcomes[types.OutcomeWritten])
	info, err = os.Stat(path)
	require.NoError(t, err)
	assert.False(t, info.ModTime().Equal(past))
}

func TestForget_RegeneratesDeletedFeed(t *testing.T) {
	h := newHarness(t)
	h.setRegistry(supplierRow("101", "s101"))
	h.client.SetSpreadsheet("s101", productSheet("Main", []string{"1", "Widget", "x", "150"}))

	r := h.refresher()
	ctx := context.Background()

	_, err := r.RunOnce(ctx, RunOptions{})
	require.NoError(t, err)
	require.NoError(t, h.store.Delete(ctx, "101.xml"))

	summary, err := r.RunOnce(ctx, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Outcomes[types.OutcomeUnchanged])

	r.Forget("101")
	summary, err = r.RunOnce(ctx, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Outcomes[types.OutcomeWritten])

	exists, err := h.store.Exists(ctx, "101.xml")
	require.NoError(t, err)
	assert.True(t, exists)

	r.ForgetAll()
	assert.Zero(t, r.Cache().Len())
}

func TestRunOnce_ChangeInAnyWorksheetRewrites(t *testing.T) {
	h := newHarness(t)
	h.setRegistry(supplierRow("101", "s101"))
	h.client.SetSpreadsheet("s101",
		productSheet("Main", []string{"1", "Widget", "x", "150"}),
		productSheet("Extra", []string{"2", "Gadget", "x", "200"}),
	)

	r := h.refresher()
	ctx := context.Background()
	_, err := r.RunOnce(ctx, RunOptions{})
	require.NoError(t, err)
	assert.Len(t, h.readFeed(t, "101").Products, 2)

	h.client.SetSpreadsheet("s101",
		productSheet("Main", []string{"1", "Widget", "x", "150"}),
		productSheet("Extra", []string{"2", "Gadget", "x", "210"}),
	)
	summary, err := r.RunOnce(ctx, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Outcomes[types.OutcomeWritten])

	doc := h.readFeed(t, "101")
	require.Len(t, doc.Products, 2)
	assert.Equal(t, "210", doc.Products[1].Price)
}

func TestRunOnce_RetryThenSuccess(t *testing.T) {
	h := newHarness(t)
	h.setRegistry(supplierRow("101", "s101"))
	h.client.SetSpreadsheet("s101", productSheet("Main", []string{"1", "Widget", "x", "150"}))
	h.client.FailGet("s101", "Main", quotaErr(), quotaErr(), quotaErr())

	summary, err := h.refresher().RunOnce(context.Background(), RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, []time.Duration{20 * time.Second, 40 * time.Second, 60 * time.Second}, h.retries.recorded())
	assert.Equal(t, 1, summary.Outcomes[types.OutcomeWritten])
	assert.Len(t, h.readFeed(t, "101").Products, 1)
}

func TestRunOnce_RetryExhaustedLeavesFile(t *testing.T) {
	h := newHarness(t)
	h.setRegistry(supplierRow("101", "s101"))
	h.client.SetSpreadsheet("s101", productSheet("Main", []string{"1", "Widget", "x", "150"}))

	r := h.refresher()
	ctx := context.Background()
	_, err := r.RunOnce(ctx, RunOptions{})
	require.NoError(t, err)
	before, err := h.store.Get(ctx, "101.xml")
	require.NoError(t, err)
	cached, _ := r.Cache().Get("101")

	h.client.SetSpreadsheet("s101", productSheet("Main", []string{"1", "Widget", "x", "999"}))
	h.client.FailGet("s101", "Main", quotaErr(), quotaErr(), quotaErr(), quotaErr(), quotaErr())

	summary, err := r.RunOnce(ctx, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Outcomes[types.OutcomeSkippedQuota])

	after, err := h.store.Get(ctx, "101.xml")
	require.NoError(t, err)
	assert.Equal(t, before, after)

	fp, _ := r.Cache().Get("101")
	assert.Equal(t, cached, fp)
	assert.Equal(t, 5, h.client.GetCalls("s101", "Main")-1)
}

func TestRunOnce_ExhaustedSupplierSkippedForRestOfCycle(t *testing.T) {
	h := newHarness(t)
	h.setRegistry(
		supplierRow("101", "s101"),
		supplierRow("102", "s102"),
		supplierRow("101", "s101"),
	)
	h.client.SetSpreadsheet("s101", productSheet("Main", []string{"1", "Widget", "x", "150"}))
	h.client.SetSpreadsheet("s102", productSheet("Main", []string{"1", "Widget", "x", "150"}))
	h.client.FailList("s101", quotaErr(), quotaErr(), quotaErr(), quotaErr(), quotaErr())

	summary, err := h.refresher().RunOnce(context.Background(), RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Outcomes[types.OutcomeSkippedQuota])
	assert.Equal(t, 1, summary.Outcomes[types.OutcomeWritten])
	assert.Equal(t, 5, h.client.ListCalls("s101"))
}

func TestRunOnce_AccessErrorContinues(t *testing.T) {
	h := newHarness(t)
	h.setRegistry(supplierRow("101", "s101"), supplierRow("102", "s102"))
	h.client.FailList("s101", errors.New("403: caller does not have permission"))
	h.client.SetSpreadsheet("s102", productSheet("Main", []string{"1", "Widget", "x", "150"}))

	summary, err := h.refresher().RunOnce(context.Background(), RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Outcomes[types.OutcomeFailedAccess])
	assert.Equal(t, 1, summary.Outcomes[types.OutcomeWritten])
	assert.Empty(t, h.retries.recorded())
	assert.Equal(t, 1, h.client.ListCalls("s101"))
}

func TestRunOnce_EmptySpreadsheet(t *testing.T) {
	h := newHarness(t)
	h.setRegistry(supplierRow("101", "s101"))
	h.client.SetSpreadsheet("s101",
		types.Worksheet{Title: "Main", Values: [][]string{{"ID", "Name"}}},
		types.Worksheet{Title: "Blank"},
	)

	r := h.refresher()
	summary, err := r.RunOnce(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Outcomes[types.OutcomeEmpty])

	exists, err := h.store.Exists(context.Background(), "101.xml")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Zero(t, r.Cache().Len())
}

func TestRunOnce_AllRowsRejectedWritesEmptyFeed(t *testing.T) {
	h := newHarness(t)
	h.setRegistry(supplierRow("101", "s101"))
	h.client.SetSpreadsheet("s101", productSheet("Main", []string{"1", "Widget", "x", "0"}))

	summary, err := h.refresher().RunOnce(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Outcomes[types.OutcomeWritten])
	assert.Empty(t, h.readFeed(t, "101").Products)
}

func TestRunOnce_WriteFailureKeepsCacheStale(t *testing.T) {
	h := newHarness(t)
	h.setRegistry(supplierRow("101", "s101"))
	h.client.SetSpreadsheet("s101", productSheet("Main", []string{"1", "Widget", "x", "150"}))
	h.deps.Writer = feed.NewWriter(&failingStore{LocalStorage: h.store, err: errors.New("disk full")})

	r := h.refresher()
	summary, err := r.RunOnce(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Outcomes[types.OutcomeFailedWrite])

	_, ok := r.Cache().Get("101")
	assert.False(t, ok)
}

func TestRunOnce_RegistryFailure(t *testing.T) {
	h := newHarness(t)
	h.client.FailGet("master", "Sheet1", errors.New("registry unavailable"))

	r := h.refresher()
	summary, err := r.RunOnce(context.Background(), RunOptions{})
	require.Error(t, err)
	assert.Equal(t, types.RunStatusFailed, summary.Status)

	status := r.Status()
	assert.False(t, status.Running)
	assert.Contains(t, status.LastError, "registry unavailable")
	assert.Nil(t, status.LastUpdate)
}

func TestRunOnce_BatchPacing(t *testing.T) {
	h := newHarness(t)
	rows := make([][]string, 0, 7)
	for i := 1; i <= 7; i++ {
		id := fmt.Sprintf("%d", 100+i)
		rows = append(rows, supplierRow(id, "s"+id))
		h.client.SetSpreadsheet("s"+id, productSheet("Main", []string{"1", "Widget", "x", "150"}))
	}
	h.setRegistry(rows...)

	summary, err := h.refresher().RunOnce(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 7, summary.Outcomes[types.OutcomeWritten])

	waits := h.pacing.recorded()
	var batchPauses, jitters int
	for _, w := range waits {
		switch {
		case w == 10*time.Second:
			batchPauses++
		case w >= time.Second && w <= 3*time.Second:
			jitters++
		}
	}
	assert.Equal(t, 1, batchPauses)
	assert.Equal(t, 7, jitters)
}

func TestRunOnce_SupplierFilter(t *testing.T) {
	h := newHarness(t)
	h.setRegistry(supplierRow("101", "s101"), supplierRow("102", "s102"))
	h.client.SetSpreadsheet("s102", productSheet("Main", []string{"1", "Widget", "x", "150"}))

	r := h.refresher()
	summary, err := r.RunOnce(context.Background(), RunOptions{SupplierID: "102"})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.SuppliersTotal)
	assert.Zero(t, h.client.ListCalls("s101"))

	_, err = r.RunOnce(context.Background(), RunOptions{SupplierID: "999"})
	assert.ErrorIs(t, err, ErrSupplierNotFound)
}

func TestRunOnce_WritesRunLog(t *testing.T) {
	h := newHarness(t)
	h.setRegistry(supplierRow("101", "s101"))
	h.client.SetSpreadsheet("s101", productSheet("Main", []string{"1", "Widget", "x", "150"}))
	h.deps.RunLogs = runlog.NewManager(t.TempDir(), 0, nil)

	_, err := h.refresher().RunOnce(context.Background(), RunOptions{RunID: "abc"})
	require.NoError(t, err)

	files, err := h.deps.RunLogs.List()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Contains(t, files[0].Name, "_abc.log")
}

func TestConcurrentRunsDoNotOverlapPerSupplier(t *testing.T) {
	h := newHarness(t)
	h.setRegistry(supplierRow("101", "s101"), supplierRow("102", "s102"))
	h.client.SetSpreadsheet("s101", productSheet("Main", []string{"1", "Widget", "x", "150"}))
	h.client.SetSpreadsheet("s102", productSheet("Main", []string{"1", "Widget", "x", "150"}))

	var active, maxActive atomic.Int32
	h.client.OnGetValues(func(spreadsheetID, worksheet string) {
		if spreadsheetID != "s101" {
			return
		}
		n := active.Add(1)
		for {
			m := maxActive.Load()
			if n <= m || maxActive.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		active.Add(-1)
	})

	r := h.refresher()
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.RunOnce(context.Background(), RunOptions{Force: true})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxActive.Load())
	assert.Zero(t, r.locks.size())
	assert.Len(t, h.readFeed(t, "101").Products, 1)
}

func TestTrigger(t *testing.T) {
	h := newHarness(t)
	h.setRegistry(supplierRow("101", "s101"))
	h.client.SetSpreadsheet("s101", productSheet("Main", []string{"1", "Widget", "x", "150"}))
	h.cfg.MaxConcurrentTriggers = 1

	release := make(chan struct{})
	h.client.OnGetValues(func(spreadsheetID, worksheet string) {
		if spreadsheetID == "s101" {
			<-release
		}
	})

	r := h.refresher()
	runID, err := r.Trigger(RunOptions{})
	require.NoError(t, err)
	assert.NotEmpty(t, runID)

	assert.Eventually(t, func() bool { return r.Status().Running }, time.Second, 5*time.Millisecond)

	_, err = r.Trigger(RunOptions{})
	assert.ErrorIs(t, err, ErrTooManyTriggers)

	close(release)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.Wait(ctx))

	status := r.Status()
	assert.False(t, status.Running)
	assert.Equal(t, runID, status.LastRunID)
	assert.Equal(t, []string{"101.xml"}, status.FilesCreated)
	require.NotNil(t, status.LastUpdate)

	require.Len(t, h.recorder.finished, 1)
	assert.Equal(t, types.TriggerManual, h.recorder.finished[0].Trigger)
}

func TestStartStop(t *testing.T) {
	h := newHarness(t)
	h.setRegistry(supplierRow("101", "s101"))
	h.client.SetSpreadsheet("s101", productSheet("Main", []string{"1", "Widget", "x", "150"}))
	h.cfg.Interval = 10 * time.Millisecond

	r := h.refresher()
	done := make(chan struct{})
	go func() {
		r.Start(context.Background())
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return h.client.GetCalls("master", "Sheet1") >= 2
	}, 2*time.Second, 5*time.Millisecond)

	r.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestStart_RegistryFailureKeepsLooping(t *testing.T) {
	h := newHarness(t)
	h.client.FailGet("master", "Sheet1", errors.New("boom"))
	h.setRegistry()
	h.cfg.Interval = 10 * time.Millisecond

	r := h.refresher()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return h.client.GetCalls("master", "Sheet1") >= 2
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestKeyedMutex(t *testing.T) {
	k := newKeyedMutex()
	unlock := k.Lock("a")
	assert.Equal(t, 1, k.size())

	acquired := make(chan struct{})
	go func() {
		u := k.Lock("a")
		close(acquired)
		u()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while held")
	case <-time.After(20 * time.Millisecond):
	}

	unlock()
	unlock() // idempotent
	<-acquired
	assert.Eventually(t, func() bool { return k.size() == 0 }, time.Second, time.Millisecond)
}
