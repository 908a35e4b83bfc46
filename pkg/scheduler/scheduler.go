// Package scheduler drives reconciliation in the background: a periodic
// sweep over stale connections, a daily cleanup of dead ones, and a weekly
// health report. Jobs fire on cron schedules and execute on a bounded
// worker pool so the timer thread never blocks on provider calls.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mosaiq/bankfeed/pkg/config"
	"github.com/mosaiq/bankfeed/pkg/domain"
	"github.com/mosaiq/bankfeed/pkg/repository"
)

// Syncer reconciles one connection. Satisfied by *sync.Reconciler.
type Syncer interface {
	Reconcile(ctx context.Context, conn *domain.Connection) domain.SyncResult
}

// Scheduler owns the cron entries and the worker pool.
type Scheduler struct {
	cron   *cron.Cron
	pool   *Pool
	uow    repository.UnitOfWork
	syncer Syncer
	cfg    config.Sync
	logger *slog.Logger

	now   func() time.Time
	pause func(time.Duration)
}

// New builds a Scheduler with its own worker pool. Call Start to register
// the cron entries and Stop to drain everything on shutdown.
func New(
	uow repository.UnitOfWork,
	syncer Syncer,
	cfg config.Sync,
	logger *slog.Logger,
) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.Recover(cronLogger))),
		pool:   NewPool(cfg.Workers, cfg.QueueSize, logger),
		uow:    uow,
		syncer: syncer,
		cfg:    cfg,
		logger: logger.With("component", "sync_scheduler"),
		now:    func() time.Time { return time.Now().UTC() },
		pause:  time.Sleep,
	}
}

// Pool exposes the worker pool so the webhook gateway can share it.
func (s *Scheduler) Pool() *Pool {
	return s.pool
}

// Start registers the cron entries and starts the timer. A no-op when sync
// is disabled in config.
func (s *Scheduler) Start() {
	if !s.cfg.Enabled {
		s.logger.Info("background sync disabled")
		return
	}

	entries := []struct {
		spec string
		name string
		job  func()
	}{
		{s.cfg.SweepSpec, "stale sweep", func() { s.RunSweep(context.Background()) }},
		{s.cfg.CleanupSpec, "connection cleanup", func() { s.RunCleanup(context.Background()) }},
		{s.cfg.HealthReportSpec, "health report", func() { s.RunHealthReport(context.Background()) }},
	}
	for _, e := range entries {
		if _, err := s.cron.AddFunc(e.spec, e.job); err != nil {
			s.logger.Error("failed to schedule job", "job", e.name, "spec", e.spec, "error", err)
			continue
		}
		s.logger.Info("scheduled job", "job", e.name, "spec", e.spec)
	}
	s.cron.Start()
}

// Stop halts the timer and drains the worker pool.
func (s *Scheduler) Stop(ctx context.Context) error {
	<-s.cron.Stop().Done()
	return s.pool.Shutdown(ctx)
}

// RunSweep reconciles every ACTIVE connection whose last sync predates the
// staleness threshold. Connections are processed in bounded batches with a
// pause in between so a large backlog cannot burst provider rate limits.
// Within a batch connections run one at a time; a failing connection never
// stops its batch.
func (s *Scheduler) RunSweep(ctx context.Context) {
	cutoff := s.now().Add(-s.cfg.StalenessThreshold)

	var stale []*domain.Connection
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.ConnectionRepository()
		if err != nil {
			return err
		}
		stale, err = repo.ListNeedingSync(ctx, cutoff, 0)
		return err
	})
	if err != nil {
		s.logger.Error("sweep aborted, could not list stale connections", "error", err)
		return
	}
	if len(stale) == 0 {
		s.logger.Info("sweep found no stale connections")
		return
	}
	batchSize := s.cfg.BatchSize
	if batchSize < 1 {
		batchSize = 1
	}
	s.logger.Info("sweep starting", "stale", len(stale), "batch_size", batchSize)

	for start := 0; start < len(stale); start += batchSize {
		end := start + batchSize
		if end > len(stale) {
			end = len(stale)
		}
		s.runBatch(ctx, stale[start:end])
		if end < len(stale) {
			s.pause(s.cfg.BatchPause)
		}
	}
	s.logger.Info("sweep finished", "processed", len(stale))
}

// runBatch processes one batch on a single worker, connection after
// connection, and blocks until the batch is done so the inter-batch pause
// actually spaces the load.
func (s *Scheduler) runBatch(ctx context.Context, batch []*domain.Connection) {
	var wg sync.WaitGroup
	wg.Add(1)
	run := func() {
		defer wg.Done()
		for _, conn := range batch {
			s.SyncOne(ctx, conn)
		}
	}
	if err := s.pool.Submit(run); err != nil {
		s.logger.Warn("batch rejected by pool, running inline", "size", len(batch), "error", err)
		run()
	}
	wg.Wait()
}

// SyncOne reconciles a single connection and flips it to ERROR when its
// last successful sync is still missing or older than the repeated-failure
// threshold after the attempt.
func (s *Scheduler) SyncOne(ctx context.Context, conn *domain.Connection) domain.SyncResult {
	result := s.syncer.Reconcile(ctx, conn)
	if result.Success {
		return result
	}

	failureCutoff := s.now().Add(-s.cfg.RepeatedFailure)
	if conn.LastSyncAt != nil && conn.LastSyncAt.After(failureCutoff) {
		return result
	}

	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.ConnectionRepository()
		if err != nil {
			return err
		}
		conn.Status = domain.ConnectionError
		conn.UpdatedAt = s.now()
		return repo.Update(ctx, conn)
	})
	if err != nil {
		s.logger.Error("failed to flag connection", "connection_id", conn.ID, "error", err)
		return result
	}
	s.logger.Warn("connection flagged after repeated sync failures", "connection_id", conn.ID)
	return result
}

// RunCleanup retires connections stuck in ERROR or EXPIRED beyond the
// retention window by flipping them to INACTIVE. Reversible; rows are
// never deleted.
func (s *Scheduler) RunCleanup(ctx context.Context) {
	cutoff := s.now().Add(-s.cfg.CleanupRetention)
	retired := 0

	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.ConnectionRepository()
		if err != nil {
			return err
		}
		for _, status := range []domain.ConnectionStatus{domain.ConnectionError, domain.ConnectionExpired} {
			dead, err := repo.ListByStatusOlderThan(ctx, status, cutoff)
			if err != nil {
				return err
			}
			for _, conn := range dead {
				conn.Status = domain.ConnectionInactive
				conn.UpdatedAt = s.now()
				if err := repo.Update(ctx, conn); err != nil {
					return err
				}
				retired++
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("cleanup failed", "error", err)
		return
	}
	s.logger.Info("cleanup finished", "retired", retired)
}

// RunHealthReport logs a per-status census of all connections.
func (s *Scheduler) RunHealthReport(ctx context.Context) {
	var counts map[domain.ConnectionStatus]int64
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.ConnectionRepository()
		if err != nil {
			return err
		}
		counts, err = repo.CountByStatus(ctx)
		return err
	})
	if err != nil {
		s.logger.Error("health report failed", "error", err)
		return
	}

	var total int64
	for _, n := range counts {
		total += n
	}
	s.logger.Info("connection health report",
		"total", total,
		"active", counts[domain.ConnectionActive],
		"pending", counts[domain.ConnectionPending],
		"error", counts[domain.ConnectionError],
		"expired", counts[domain.ConnectionExpired],
		"inactive", counts[domain.ConnectionInactive])
}
