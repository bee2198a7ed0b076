package usecase

import (
	"context"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/danuandrian/matchvote/internal/platform/logging"
	"github.com/danuandrian/matchvote/internal/platform/resilience"
)

type JobSchedulerConfig struct {
	LiveInterval         time.Duration
	MatchesInterval      time.Duration
	CompetitionsInterval time.Duration
	LeaseTTL             time.Duration
	SyncLogRetention     time.Duration
}

// JobSchedulerService drives the periodic sync jobs with in-process tickers.
// Each job holds a named lease while it runs, so a tick that fires while the
// previous run is still going is skipped instead of stacking.
type JobSchedulerService struct {
	syncSvc       *SyncService
	reconcilerSvc *ReconcilerService
	leases        *resilience.LeaseGuard
	cfg           JobSchedulerConfig
	logger        *logging.Logger
	wg            conc.WaitGroup
}

func NewJobSchedulerService(
	syncSvc *SyncService,
	reconcilerSvc *ReconcilerService,
	cfg JobSchedulerConfig,
	logger *logging.Logger,
) *JobSchedulerService {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.LiveInterval <= 0 {
		cfg.LiveInterval = 30 * time.Second
	}
	if cfg.MatchesInterval <= 0 {
		cfg.MatchesInterval = time.Hour
	}
	if cfg.CompetitionsInterval <= 0 {
		cfg.CompetitionsInterval = 24 * time.Hour
	}
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = 10 * time.Minute
	}
	if cfg.SyncLogRetention <= 0 {
		cfg.SyncLogRetention = 30 * 24 * time.Hour
	}

	return &JobSchedulerService{
		syncSvc:       syncSvc,
		reconcilerSvc: reconcilerSvc,
		leases:        resilience.NewLeaseGuard(),
		cfg:           cfg,
		logger:        logger,
	}
}

// Start launches the ticker loops. They stop when ctx is cancelled; Wait
// blocks until every loop has exited.
func (s *JobSchedulerService) Start(ctx context.Context) {
	s.wg.Go(func() { s.loop(ctx, "sync-live", s.cfg.LiveInterval, s.runLive) })
	s.wg.Go(func() { s.loop(ctx, "sync-matches", s.cfg.MatchesInterval, s.runMatches) })
	s.wg.Go(func() { s.loop(ctx, "sync-competitions", s.cfg.CompetitionsInterval, s.runCompetitions) })
	s.logger.InfoContext(ctx, "job scheduler started",
		"live_interval", s.cfg.LiveInterval.String(),
		"matches_interval", s.cfg.MatchesInterval.String(),
		"competitions_interval", s.cfg.CompetitionsInterval.String(),
	)
}

func (s *JobSchedulerService) Wait() {
	s.wg.Wait()
}

func (s *JobSchedulerService) loop(ctx context.Context, name string, interval time.Duration, run func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runGuarded(ctx, name, run)
		}
	}
}

func (s *JobSchedulerService) runGuarded(ctx context.Context, name string, run func(context.Context)) {
	if !s.leases.Acquire(name, s.cfg.LeaseTTL) {
		s.logger.WarnContext(ctx, "skip job: previous run still holds lease", "job", name)
		return
	}
	defer s.leases.Release(name)
	run(ctx)
}

// runLive sweeps stale in-play rows first, so a match the provider stopped
// reporting is finalized before the fresh overlay pass.
func (s *JobSchedulerService) runLive(ctx context.Context) {
	if _, err := s.reconcilerSvc.Reconcile(ctx); err != nil {
		s.logger.WarnContext(ctx, "reconciler job failed", "error", err)
	}
	if _, err := s.syncSvc.SyncLiveScores(ctx); err != nil {
		s.logger.WarnContext(ctx, "live sync job failed", "error", err)
	}
}

func (s *JobSchedulerService) runMatches(ctx context.Context) {
	if _, err := s.syncSvc.SyncMatches(ctx, SyncMatchesInput{}); err != nil {
		s.logger.WarnContext(ctx, "matches sync job failed", "error", err)
	}
}

func (s *JobSchedulerService) runCompetitions(ctx context.Context) {
	if _, err := s.syncSvc.SyncCompetitions(ctx); err != nil {
		s.logger.WarnContext(ctx, "competitions sync job failed", "error", err)
	}
	if removed, err := s.syncSvc.PruneSyncLogs(ctx, s.cfg.SyncLogRetention); err != nil {
		s.logger.WarnContext(ctx, "prune sync logs job failed", "error", err)
	} else if removed > 0 {
		s.logger.InfoContext(ctx, "pruned old sync logs", "removed", removed)
	}
}
