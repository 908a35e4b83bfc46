package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosaiq/bankfeed/internal/fixtures"
	"github.com/mosaiq/bankfeed/pkg/config"
	"github.com/mosaiq/bankfeed/pkg/domain"
)

type stubSyncer struct {
	mu     sync.Mutex
	synced []string
	fail   map[string]bool
}

func (s *stubSyncer) Reconcile(_ context.Context, conn *domain.Connection) domain.SyncResult {
	s.mu.Lock()
	s.synced = append(s.synced, conn.ExternalID)
	s.mu.Unlock()
	if s.fail[conn.ExternalID] {
		return domain.FailedSyncResult(conn.ID, "provider down")
	}
	return domain.SyncResult{ConnectionID: conn.ID, Success: true, SyncedAt: time.Now().UTC()}
}

func (s *stubSyncer) calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.synced...)
}

func testSyncConfig() config.Sync {
	return config.Sync{
		Enabled:            true,
		StalenessThreshold: 6 * time.Hour,
		BatchSize:          5,
		BatchPause:         2 * time.Second,
		RepeatedFailure:    24 * time.Hour,
		CleanupRetention:   30 * 24 * time.Hour,
		Workers:            2,
		QueueSize:          16,
	}
}

func newTestScheduler(store *fixtures.MemoryStore, syncer Syncer, cfg config.Sync) *Scheduler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := New(fixtures.NewMemoryUoW(store), syncer, cfg, logger)
	s.pause = func(time.Duration) {}
	return s
}

func seedConnection(store *fixtures.MemoryStore, externalID string, status domain.ConnectionStatus, lastSync *time.Time) domain.Connection {
	conn := domain.NewConnection(uuid.New(), "mock", externalID)
	conn.Status = status
	conn.LastSyncAt = lastSync
	return store.SeedConnection(*conn)
}

func hoursAgo(h int) *time.Time {
	t := time.Now().UTC().Add(-time.Duration(h) * time.Hour)
	return &t
}

func TestRunSweep_SelectsOnlyStaleActiveConnections(t *testing.T) {
	store := fixtures.NewMemoryStore()
	seedConnection(store, "mock_stale", domain.ConnectionActive, hoursAgo(12))
	seedConnection(store, "mock_never_synced", domain.ConnectionActive, nil)
	seedConnection(store, "mock_fresh", domain.ConnectionActive, hoursAgo(1))
	seedConnection(store, "mock_pending", domain.ConnectionPending, nil)
	seedConnection(store, "mock_inactive", domain.ConnectionInactive, hoursAgo(48))

	syncer := &stubSyncer{}
	s := newTestScheduler(store, syncer, testSyncConfig())
	s.RunSweep(context.Background())
	require.NoError(t, s.pool.Shutdown(context.Background()))

	assert.ElementsMatch(t, []string{"mock_stale", "mock_never_synced"}, syncer.calls())
}

func TestRunSweep_OneFailingConnectionDoesNotStopTheBatch(t *testing.T) {
	store := fixtures.NewMemoryStore()
	seedConnection(store, "mock_a", domain.ConnectionActive, nil)
	seedConnection(store, "mock_b", domain.ConnectionActive, nil)
	seedConnection(store, "mock_c", domain.ConnectionActive, nil)

	syncer := &stubSyncer{fail: map[string]bool{"mock_b": true}}
	s := newTestScheduler(store, syncer, testSyncConfig())
	s.RunSweep(context.Background())
	require.NoError(t, s.pool.Shutdown(context.Background()))

	assert.ElementsMatch(t, []string{"mock_a", "mock_b", "mock_c"}, syncer.calls())
}

func TestRunSweep_PausesBetweenBatches(t *testing.T) {
	store := fixtures.NewMemoryStore()
	for _, id := range []string{"mock_1", "mock_2", "mock_3", "mock_4", "mock_5"} {
		seedConnection(store, id, domain.ConnectionActive, nil)
	}

	cfg := testSyncConfig()
	cfg.BatchSize = 2
	syncer := &stubSyncer{}
	s := newTestScheduler(store, syncer, cfg)

	pauses := 0
	s.pause = func(d time.Duration) {
		assert.Equal(t, cfg.BatchPause, d)
		pauses++
	}

	s.RunSweep(context.Background())
	require.NoError(t, s.pool.Shutdown(context.Background()))

	// 5 connections in batches of 2 -> 3 batches, 2 pauses.
	assert.Equal(t, 2, pauses)
	assert.Len(t, syncer.calls(), 5)
}

// gaugeSyncer tracks how many reconciles run at once.
type gaugeSyncer struct {
	mu      sync.Mutex
	current int
	peak    int
	total   int
}

func (s *gaugeSyncer) Reconcile(_ context.Context, conn *domain.Connection) domain.SyncResult {
	s.mu.Lock()
	s.current++
	s.total++
	if s.current > s.peak {
		s.peak = s.current
	}
	s.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	s.mu.Lock()
	s.current--
	s.mu.Unlock()
	return domain.SyncResult{ConnectionID: conn.ID, Success: true, SyncedAt: time.Now().UTC()}
}

func TestRunSweep_BatchMembersRunOneAtATime(t *testing.T) {
	store := fixtures.NewMemoryStore()
	for _, id := range []string{"mock_1", "mock_2", "mock_3", "mock_4"} {
		seedConnection(store, id, domain.ConnectionActive, nil)
	}

	cfg := testSyncConfig()
	cfg.BatchSize = 4
	cfg.Workers = 4
	syncer := &gaugeSyncer{}
	s := newTestScheduler(store, syncer, cfg)

	s.RunSweep(context.Background())
	require.NoError(t, s.pool.Shutdown(context.Background()))

	assert.Equal(t, 4, syncer.total)
	assert.Equal(t, 1, syncer.peak, "connections in one batch must not overlap")
}

func TestRunSweep_ZeroBatchSizeStillTerminates(t *testing.T) {
	store := fixtures.NewMemoryStore()
	seedConnection(store, "mock_x", domain.ConnectionActive, nil)
	seedConnection(store, "mock_y", domain.ConnectionActive, nil)

	cfg := testSyncConfig()
	cfg.BatchSize = 0
	syncer := &stubSyncer{}
	s := newTestScheduler(store, syncer, cfg)

	s.RunSweep(context.Background())
	require.NoError(t, s.pool.Shutdown(context.Background()))

	assert.ElementsMatch(t, []string{"mock_x", "mock_y"}, syncer.calls())
}

func TestSyncOne_FlagsConnectionAfterRepeatedFailure(t *testing.T) {
	store := fixtures.NewMemoryStore()
	conn := seedConnection(store, "mock_old_failure", domain.ConnectionActive, hoursAgo(30))

	syncer := &stubSyncer{fail: map[string]bool{"mock_old_failure": true}}
	s := newTestScheduler(store, syncer, testSyncConfig())

	result := s.SyncOne(context.Background(), &conn)

	assert.False(t, result.Success)
	assert.Equal(t, domain.ConnectionError, store.Connections[conn.ID].Status)
}

func TestSyncOne_RecentSuccessSurvivesOneFailure(t *testing.T) {
	store := fixtures.NewMemoryStore()
	conn := seedConnection(store, "mock_recent", domain.ConnectionActive, hoursAgo(2))

	syncer := &stubSyncer{fail: map[string]bool{"mock_recent": true}}
	s := newTestScheduler(store, syncer, testSyncConfig())

	result := s.SyncOne(context.Background(), &conn)

	assert.False(t, result.Success)
	assert.Equal(t, domain.ConnectionActive, store.Connections[conn.ID].Status)
}

func TestRunCleanup_RetiresOnlyDeadConnectionsPastRetention(t *testing.T) {
	store := fixtures.NewMemoryStore()
	old := time.Now().UTC().Add(-45 * 24 * time.Hour)

	errOld := seedConnection(store, "mock_err_old", domain.ConnectionError, nil)
	errOld.UpdatedAt = old
	store.SeedConnection(errOld)

	expOld := seedConnection(store, "mock_exp_old", domain.ConnectionExpired, nil)
	expOld.UpdatedAt = old
	store.SeedConnection(expOld)

	errRecent := seedConnection(store, "mock_err_recent", domain.ConnectionError, nil)
	activeOld := seedConnection(store, "mock_active_old", domain.ConnectionActive, nil)
	activeOld.UpdatedAt = old
	store.SeedConnection(activeOld)

	s := newTestScheduler(store, &stubSyncer{}, testSyncConfig())
	s.RunCleanup(context.Background())

	assert.Equal(t, domain.ConnectionInactive, store.Connections[errOld.ID].Status)
	assert.Equal(t, domain.ConnectionInactive, store.Connections[expOld.ID].Status)
	assert.Equal(t, domain.ConnectionError, store.Connections[errRecent.ID].Status)
	assert.Equal(t, domain.ConnectionActive, store.Connections[activeOld.ID].Status)
}

func TestRunHealthReport_DoesNotPanicOnEmptyStore(t *testing.T) {
	s := newTestScheduler(fixtures.NewMemoryStore(), &stubSyncer{}, testSyncConfig())
	s.RunHealthReport(context.Background())
}
