package usecase

import (
	"context"
	"fmt"

	"github.com/danuandrian/matchvote/internal/domain/competition"
	"github.com/danuandrian/matchvote/internal/platform/logging"
)

type CompetitionService struct {
	competitionRepo competition.Repository
	logger          *logging.Logger
}

func NewCompetitionService(competitionRepo competition.Repository, logger *logging.Logger) *CompetitionService {
	if logger == nil {
		logger = logging.Default()
	}

	return &CompetitionService{
		competitionRepo: competitionRepo,
		logger:          logger,
	}
}

func (s *CompetitionService) List(ctx context.Context) ([]competition.Competition, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CompetitionService.List")
	defer span.End()

	return s.competitionRepo.List(ctx)
}

// SetFlags flips the operator switches deciding whether a competition shows
// up and whether the scheduler spends provider quota on it.
func (s *CompetitionService) SetFlags(ctx context.Context, id int64, isActive, syncEnabled bool) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.CompetitionService.SetFlags")
	defer span.End()

	if id <= 0 {
		return fmt.Errorf("%w: competition id is required", ErrInvalidInput)
	}
	if _, found, err := s.competitionRepo.GetByID(ctx, id); err != nil {
		return fmt.Errorf("lookup competition id=%d: %w", id, err)
	} else if !found {
		return fmt.Errorf("%w: competition id=%d", ErrNotFound, id)
	}

	if err := s.competitionRepo.SetFlags(ctx, id, isActive, syncEnabled); err != nil {
		return fmt.Errorf("set competition flags id=%d: %w", id, err)
	}
	s.logger.InfoContext(ctx, "competition flags updated", "competition_id", id, "is_active", isActive, "sync_enabled", syncEnabled)
	return nil
}
