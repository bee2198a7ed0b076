package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/danuandrian/matchvote/internal/domain/match"
	"github.com/danuandrian/matchvote/internal/domain/synclog"
	"github.com/danuandrian/matchvote/internal/platform/logging"
)

// ReconcilerService sweeps matches stuck in an in-play status long after
// kickoff and forces them to finished. The sweep is idempotent: a second
// pass over the same data finds nothing to do.
type ReconcilerService struct {
	matchRepo     match.Repository
	liveScoreRepo match.LiveScoreRepository
	syncLogRepo   synclog.Repository
	staleAfter    time.Duration
	logger        *logging.Logger
	now           func() time.Time
}

func NewReconcilerService(
	matchRepo match.Repository,
	liveScoreRepo match.LiveScoreRepository,
	syncLogRepo synclog.Repository,
	staleAfter time.Duration,
	logger *logging.Logger,
) *ReconcilerService {
	if logger == nil {
		logger = logging.Default()
	}
	if staleAfter <= 0 {
		staleAfter = 4 * time.Hour
	}

	return &ReconcilerService{
		matchRepo:     matchRepo,
		liveScoreRepo: liveScoreRepo,
		syncLogRepo:   syncLogRepo,
		staleAfter:    staleAfter,
		logger:        logger,
		now:           time.Now,
	}
}

// Reconcile finalizes stale in-play matches, keeping the overlay score when
// one exists. Rows with a missing or zero match date count as stale too.
func (s *ReconcilerService) Reconcile(ctx context.Context) (synclog.Entry, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ReconcilerService.Reconcile")
	defer span.End()

	if s.matchRepo == nil || s.liveScoreRepo == nil || s.syncLogRepo == nil {
		return synclog.Entry{}, fmt.Errorf("%w: reconciler is not fully configured", ErrDependencyUnavailable)
	}

	startedAt := s.now().UTC()
	cutoff := startedAt.Add(-s.staleAfter)
	stale, err := s.matchRepo.ListStaleInPlay(ctx, cutoff)
	if err != nil {
		return synclog.Entry{}, fmt.Errorf("list stale in-play matches: %w", err)
	}

	var counters syncCounters
	for _, row := range stale {
		counters.processed++
		if err := s.finalizeStale(ctx, row); err != nil {
			counters.failed++
			s.logger.WarnContext(ctx, "finalize stale match failed, continuing", "match_id", row.ID, "error", err)
			continue
		}
		counters.updated++
	}

	entry := synclog.Entry{
		Type:       synclog.TypeCleanup,
		Status:     counters.status(),
		Updated:    counters.updated,
		Processed:  counters.processed,
		StartedAt:  startedAt,
		FinishedAt: s.now().UTC(),
	}
	saved, err := s.syncLogRepo.Append(ctx, entry)
	if err != nil {
		s.logger.ErrorContext(ctx, "append reconciler log failed", "error", err)
		return entry, nil
	}
	s.logger.InfoContext(ctx, "reconciler run recorded",
		"status", saved.Status,
		"updated", saved.Updated,
		"processed", saved.Processed,
	)
	return saved, nil
}

func (s *ReconcilerService) finalizeStale(ctx context.Context, row match.Match) error {
	homeScore := row.HomeScore
	awayScore := row.AwayScore

	overlay, found, err := s.liveScoreRepo.GetByMatchID(ctx, row.ID)
	if err != nil {
		return fmt.Errorf("lookup overlay match_id=%d: %w", row.ID, err)
	}
	if found {
		if overlay.HomeScore != nil {
			homeScore = overlay.HomeScore
		}
		if overlay.AwayScore != nil {
			awayScore = overlay.AwayScore
		}
	}

	if err := s.matchRepo.Finalize(ctx, row.ID, match.StatusFinished, homeScore, awayScore); err != nil {
		return fmt.Errorf("finalize match id=%d: %w", row.ID, err)
	}
	if found {
		if err := s.liveScoreRepo.DeleteByMatchID(ctx, row.ID); err != nil {
			return fmt.Errorf("delete overlay match_id=%d: %w", row.ID, err)
		}
	}
	return nil
}
