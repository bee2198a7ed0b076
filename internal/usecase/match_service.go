package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/danuandrian/matchvote/internal/domain/match"
	"github.com/danuandrian/matchvote/internal/domain/vote"
	"github.com/danuandrian/matchvote/internal/platform/logging"
)

// MatchView is a match row with the live overlay already merged in.
type MatchView struct {
	Match match.Match
	Score match.Scoreboard
}

type MatchService struct {
	matchRepo     match.Repository
	liveScoreRepo match.LiveScoreRepository
	voteRepo      vote.Repository
	logger        *logging.Logger
}

func NewMatchService(
	matchRepo match.Repository,
	liveScoreRepo match.LiveScoreRepository,
	voteRepo vote.Repository,
	logger *logging.Logger,
) *MatchService {
	if logger == nil {
		logger = logging.Default()
	}

	return &MatchService{
		matchRepo:     matchRepo,
		liveScoreRepo: liveScoreRepo,
		voteRepo:      voteRepo,
		logger:        logger,
	}
}

// List returns matches with overlays merged at read time. Overlay rows are
// fetched in one batch keyed by match id.
func (s *MatchService) List(ctx context.Context, filter match.Filter) ([]MatchView, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchService.List")
	defer span.End()

	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	for _, status := range filter.Statuses {
		if match.NormalizeStatus(status) != status {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
		}
	}
	if !filter.DateFrom.IsZero() && !filter.DateTo.IsZero() && filter.DateTo.Before(filter.DateFrom) {
		return nil, fmt.Errorf("%w: date range is inverted", ErrInvalidInput)
	}

	rows, err := s.matchRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	if len(rows) == 0 {
		return []MatchView{}, nil
	}

	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	overlays, err := s.liveScoreRepo.ListByMatchIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list live overlays: %w", err)
	}

	out := make([]MatchView, 0, len(rows))
	for _, row := range rows {
		var live *match.LiveScore
		if overlay, ok := overlays[row.ID]; ok {
			live = &overlay
		}
		out = append(out, MatchView{Match: row, Score: match.EffectiveScore(row, live)})
	}
	return out, nil
}

func (s *MatchService) GetByID(ctx context.Context, id int64) (MatchView, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchService.GetByID")
	defer span.End()

	if id <= 0 {
		return MatchView{}, fmt.Errorf("%w: match id is required", ErrInvalidInput)
	}
	row, found, err := s.matchRepo.GetByID(ctx, id)
	if err != nil {
		return MatchView{}, fmt.Errorf("lookup match id=%d: %w", id, err)
	}
	if !found {
		return MatchView{}, fmt.Errorf("%w: match id=%d", ErrNotFound, id)
	}

	var live *match.LiveScore
	overlay, found, err := s.liveScoreRepo.GetByMatchID(ctx, row.ID)
	if err != nil {
		return MatchView{}, fmt.Errorf("lookup overlay match_id=%d: %w", row.ID, err)
	}
	if found {
		live = &overlay
	}
	return MatchView{Match: row, Score: match.EffectiveScore(row, live)}, nil
}

// ListUpcoming is the homepage feed: scheduled and in-play matches ordered
// by kickoff.
func (s *MatchService) ListUpcoming(ctx context.Context, within time.Duration, limit int) ([]MatchView, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchService.ListUpcoming")
	defer span.End()

	if within <= 0 {
		within = 7 * 24 * time.Hour
	}
	now := time.Now().UTC()
	return s.List(ctx, match.Filter{
		Statuses: []string{match.StatusScheduled, match.StatusLive, match.StatusPaused},
		DateFrom: now.Add(-6 * time.Hour),
		DateTo:   now.Add(within),
		Limit:    limit,
	})
}

// Delete removes a match together with its overlay and ballots.
func (s *MatchService) Delete(ctx context.Context, id int64) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchService.Delete")
	defer span.End()

	if id <= 0 {
		return fmt.Errorf("%w: match id is required", ErrInvalidInput)
	}
	if _, found, err := s.matchRepo.GetByID(ctx, id); err != nil {
		return fmt.Errorf("lookup match id=%d: %w", id, err)
	} else if !found {
		return fmt.Errorf("%w: match id=%d", ErrNotFound, id)
	}

	if removed, err := s.voteRepo.DeleteByMatch(ctx, id); err != nil {
		return fmt.Errorf("purge votes match_id=%d: %w", id, err)
	} else if removed > 0 {
		s.logger.InfoContext(ctx, "purged ballots for deleted match", "match_id", id, "removed", removed)
	}
	if err := s.liveScoreRepo.DeleteByMatchID(ctx, id); err != nil {
		return fmt.Errorf("delete overlay match_id=%d: %w", id, err)
	}
	if err := s.matchRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete match id=%d: %w", id, err)
	}
	return nil
}
