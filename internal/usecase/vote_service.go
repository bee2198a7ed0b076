package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/danuandrian/matchvote/internal/domain/match"
	"github.com/danuandrian/matchvote/internal/domain/vote"
	"github.com/danuandrian/matchvote/internal/platform/logging"
)

// VoteChangePolicy gates whether an existing ballot may be replaced. The
// global switch wins; the per-surface flags refine it.
type VoteChangePolicy struct {
	Allowed  bool
	Homepage bool
	Details  bool
}

func (p VoteChangePolicy) AllowsSurface(surface string) bool {
	if !p.Allowed {
		return false
	}
	switch surface {
	case vote.SurfaceHomepage:
		return p.Homepage
	case vote.SurfaceDetails:
		return p.Details
	default:
		return false
	}
}

type CastVoteInput struct {
	MatchID    int64
	CategoryID int64
	OptionID   int64
	Voter      vote.VoterIdentity
	Surface    string
}

type CastVoteResult struct {
	Vote     vote.Vote
	Replaced bool
	Results  vote.CategoryResults
}

type VoteService struct {
	matchRepo    match.Repository
	categoryRepo vote.CategoryRepository
	optionRepo   vote.OptionRepository
	voteRepo     vote.Repository
	policy       VoteChangePolicy
	logger       *logging.Logger
	now          func() time.Time
}

func NewVoteService(
	matchRepo match.Repository,
	categoryRepo vote.CategoryRepository,
	optionRepo vote.OptionRepository,
	voteRepo vote.Repository,
	policy VoteChangePolicy,
	logger *logging.Logger,
) *VoteService {
	if logger == nil {
		logger = logging.Default()
	}

	return &VoteService{
		matchRepo:    matchRepo,
		categoryRepo: categoryRepo,
		optionRepo:   optionRepo,
		voteRepo:     voteRepo,
		policy:       policy,
		logger:       logger,
		now:          time.Now,
	}
}

// Cast records one ballot per (match, category, voter, surface). A repeat
// ballot replaces the previous one only when the change policy allows it on
// the given surface.
func (s *VoteService) Cast(ctx context.Context, input CastVoteInput) (CastVoteResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.VoteService.Cast")
	defer span.End()

	if input.MatchID <= 0 || input.CategoryID <= 0 || input.OptionID <= 0 {
		return CastVoteResult{}, fmt.Errorf("%w: match, category, and option ids are required", ErrInvalidInput)
	}
	if !vote.ValidSurface(input.Surface) {
		return CastVoteResult{}, fmt.Errorf("%w: unknown surface %q", ErrInvalidInput, input.Surface)
	}
	if !input.Voter.Valid() {
		return CastVoteResult{}, fmt.Errorf("%w: voter identity is required", ErrInvalidInput)
	}

	row, found, err := s.matchRepo.GetByID(ctx, input.MatchID)
	if err != nil {
		return CastVoteResult{}, fmt.Errorf("lookup match id=%d: %w", input.MatchID, err)
	}
	if !found {
		return CastVoteResult{}, fmt.Errorf("%w: match id=%d", ErrNotFound, input.MatchID)
	}
	if row.Status == match.StatusCancelled {
		return CastVoteResult{}, fmt.Errorf("%w: match id=%d is cancelled", ErrInvalidInput, input.MatchID)
	}

	category, found, err := s.categoryRepo.GetByID(ctx, input.CategoryID)
	if err != nil {
		return CastVoteResult{}, fmt.Errorf("lookup category id=%d: %w", input.CategoryID, err)
	}
	if !found || !category.IsActive {
		return CastVoteResult{}, fmt.Errorf("%w: category id=%d", ErrNotFound, input.CategoryID)
	}

	option, found, err := s.optionRepo.GetByID(ctx, input.OptionID)
	if err != nil {
		return CastVoteResult{}, fmt.Errorf("lookup option id=%d: %w", input.OptionID, err)
	}
	if !found || !option.IsActive || option.CategoryID != category.ID || !option.AppliesToMatch(input.MatchID) {
		return CastVoteResult{}, fmt.Errorf("%w: option id=%d", vote.ErrOptionNotFound, input.OptionID)
	}
	if option.Kind == vote.OptionDetailed && input.Surface != vote.SurfaceDetails {
		return CastVoteResult{}, fmt.Errorf("%w: option id=%d is not available on surface %q", ErrInvalidInput, input.OptionID, input.Surface)
	}

	ballot := vote.Vote{
		MatchID:    input.MatchID,
		CategoryID: input.CategoryID,
		OptionID:   input.OptionID,
		VoterKey:   input.Voter.Key(),
		Surface:    input.Surface,
		CreatedAt:  s.now().UTC(),
	}
	cast, err := s.voteRepo.Cast(ctx, ballot, s.policy.AllowsSurface(input.Surface))
	if err != nil {
		return CastVoteResult{}, fmt.Errorf("cast vote match_id=%d category_id=%d: %w", input.MatchID, input.CategoryID, err)
	}

	results, err := s.resultsForCategory(ctx, input.MatchID, category, input.Surface)
	if err != nil {
		// The ballot is stored; losing the fresh tally is not worth a 500.
		s.logger.WarnContext(ctx, "compute results after cast failed", "match_id", input.MatchID, "category_id", category.ID, "error", err)
		results = vote.CategoryResults{CategoryID: category.ID, Key: category.Key, Name: category.Name}
	}

	return CastVoteResult{
		Vote:     cast.Vote,
		Replaced: cast.Replaced,
		Results:  results,
	}, nil
}

// Results tallies every active category for a match. Detailed options are
// excluded on the homepage surface.
func (s *VoteService) Results(ctx context.Context, matchID int64, surface string) ([]vote.CategoryResults, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.VoteService.Results")
	defer span.End()

	if matchID <= 0 {
		return nil, fmt.Errorf("%w: match id is required", ErrInvalidInput)
	}
	if surface == "" {
		surface = vote.SurfaceDetails
	}
	if !vote.ValidSurface(surface) {
		return nil, fmt.Errorf("%w: unknown surface %q", ErrInvalidInput, surface)
	}

	if _, found, err := s.matchRepo.GetByID(ctx, matchID); err != nil {
		return nil, fmt.Errorf("lookup match id=%d: %w", matchID, err)
	} else if !found {
		return nil, fmt.Errorf("%w: match id=%d", ErrNotFound, matchID)
	}

	categories, err := s.categoryRepo.List(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	out := make([]vote.CategoryResults, 0, len(categories))
	for _, category := range categories {
		results, err := s.resultsForCategory(ctx, matchID, category, surface)
		if err != nil {
			return nil, err
		}
		out = append(out, results)
	}
	return out, nil
}

func (s *VoteService) resultsForCategory(ctx context.Context, matchID int64, category vote.Category, surface string) (vote.CategoryResults, error) {
	options, err := s.optionRepo.ListByCategory(ctx, category.ID, true)
	if err != nil {
		return vote.CategoryResults{}, fmt.Errorf("list options category_id=%d: %w", category.ID, err)
	}
	counts, err := s.voteRepo.CountByOption(ctx, matchID, category.ID)
	if err != nil {
		return vote.CategoryResults{}, fmt.Errorf("count votes match_id=%d category_id=%d: %w", matchID, category.ID, err)
	}

	rows := make([]vote.OptionResult, 0, len(options))
	total := 0
	for _, option := range options {
		if !option.AppliesToMatch(matchID) {
			continue
		}
		if option.Kind == vote.OptionDetailed && surface != vote.SurfaceDetails {
			continue
		}
		votes := counts[option.ID]
		total += votes
		rows = append(rows, vote.OptionResult{
			OptionID: option.ID,
			Label:    option.Label,
			Kind:     option.Kind,
			Votes:    votes,
		})
	}
	rows = vote.ComputePercentages(rows)
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Votes != rows[j].Votes {
			return rows[i].Votes > rows[j].Votes
		}
		return rows[i].OptionID < rows[j].OptionID
	})

	return vote.CategoryResults{
		CategoryID: category.ID,
		Key:        category.Key,
		Name:       category.Name,
		TotalVotes: total,
		Options:    rows,
	}, nil
}

// VoterBallot returns the voter's existing ballot for one category, if any.
func (s *VoteService) VoterBallot(ctx context.Context, matchID, categoryID int64, voter vote.VoterIdentity, surface string) (vote.Vote, bool, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.VoteService.VoterBallot")
	defer span.End()

	if matchID <= 0 || categoryID <= 0 {
		return vote.Vote{}, false, fmt.Errorf("%w: match and category ids are required", ErrInvalidInput)
	}
	if !voter.Valid() || !vote.ValidSurface(surface) {
		return vote.Vote{}, false, fmt.Errorf("%w: voter identity and surface are required", ErrInvalidInput)
	}
	return s.voteRepo.GetByVoter(ctx, matchID, categoryID, voter.Key(), surface)
}

// ListCategories returns the category catalog, inactive rows included for
// the admin surface.
func (s *VoteService) ListCategories(ctx context.Context, activeOnly bool) ([]vote.Category, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.VoteService.ListCategories")
	defer span.End()

	return s.categoryRepo.List(ctx, activeOnly)
}

func (s *VoteService) CreateCategory(ctx context.Context, item vote.Category) (vote.Category, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.VoteService.CreateCategory")
	defer span.End()

	item.Key = normalizeCategoryKey(item.Key)
	item.Name = strings.TrimSpace(item.Name)
	if item.Key == "" || item.Name == "" {
		return vote.Category{}, fmt.Errorf("%w: category key and name are required", ErrInvalidInput)
	}
	if _, found, err := s.categoryRepo.GetByKey(ctx, item.Key); err != nil {
		return vote.Category{}, fmt.Errorf("lookup category key=%s: %w", item.Key, err)
	} else if found {
		return vote.Category{}, fmt.Errorf("%w: category key=%s already exists", ErrConflict, item.Key)
	}

	item.CreatedAt = s.now().UTC()
	created, err := s.categoryRepo.Create(ctx, item)
	if err != nil {
		return vote.Category{}, fmt.Errorf("create category key=%s: %w", item.Key, err)
	}
	return created, nil
}

func (s *VoteService) UpdateCategory(ctx context.Context, item vote.Category) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.VoteService.UpdateCategory")
	defer span.End()

	if item.ID <= 0 {
		return fmt.Errorf("%w: category id is required", ErrInvalidInput)
	}
	current, found, err := s.categoryRepo.GetByID(ctx, item.ID)
	if err != nil {
		return fmt.Errorf("lookup category id=%d: %w", item.ID, err)
	}
	if !found {
		return fmt.Errorf("%w: category id=%d", ErrNotFound, item.ID)
	}

	item.Key = normalizeCategoryKey(item.Key)
	item.Name = strings.TrimSpace(item.Name)
	if item.Key == "" || item.Name == "" {
		return fmt.Errorf("%w: category key and name are required", ErrInvalidInput)
	}
	if current.Protected() && item.Key != current.Key {
		return fmt.Errorf("%w: key of category %q cannot change", vote.ErrProtectedCategory, current.Key)
	}
	if item.Key != current.Key {
		if _, exists, err := s.categoryRepo.GetByKey(ctx, item.Key); err != nil {
			return fmt.Errorf("lookup category key=%s: %w", item.Key, err)
		} else if exists {
			return fmt.Errorf("%w: category key=%s already exists", ErrConflict, item.Key)
		}
	}

	if err := s.categoryRepo.Update(ctx, item); err != nil {
		return fmt.Errorf("update category id=%d: %w", item.ID, err)
	}
	return nil
}

func (s *VoteService) DeleteCategory(ctx context.Context, id int64) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.VoteService.DeleteCategory")
	defer span.End()

	if id <= 0 {
		return fmt.Errorf("%w: category id is required", ErrInvalidInput)
	}
	current, found, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("lookup category id=%d: %w", id, err)
	}
	if !found {
		return fmt.Errorf("%w: category id=%d", ErrNotFound, id)
	}
	if current.Protected() {
		return fmt.Errorf("%w: category %q cannot be deleted", vote.ErrProtectedCategory, current.Key)
	}

	if err := s.categoryRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete category id=%d: %w", id, err)
	}
	return nil
}

func (s *VoteService) ListOptions(ctx context.Context, categoryID int64, activeOnly bool) ([]vote.Option, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.VoteService.ListOptions")
	defer span.End()

	if categoryID <= 0 {
		return nil, fmt.Errorf("%w: category id is required", ErrInvalidInput)
	}
	return s.optionRepo.ListByCategory(ctx, categoryID, activeOnly)
}

func (s *VoteService) CreateOption(ctx context.Context, item vote.Option) (vote.Option, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.VoteService.CreateOption")
	defer span.End()

	item.Label = strings.TrimSpace(item.Label)
	if item.CategoryID <= 0 || item.Label == "" {
		return vote.Option{}, fmt.Errorf("%w: option category and label are required", ErrInvalidInput)
	}
	if item.Kind != vote.OptionBasic && item.Kind != vote.OptionDetailed {
		return vote.Option{}, fmt.Errorf("%w: unknown option kind %q", ErrInvalidInput, item.Kind)
	}
	if _, found, err := s.categoryRepo.GetByID(ctx, item.CategoryID); err != nil {
		return vote.Option{}, fmt.Errorf("lookup category id=%d: %w", item.CategoryID, err)
	} else if !found {
		return vote.Option{}, fmt.Errorf("%w: category id=%d", ErrNotFound, item.CategoryID)
	}
	if item.MatchID != nil {
		if _, found, err := s.matchRepo.GetByID(ctx, *item.MatchID); err != nil {
			return vote.Option{}, fmt.Errorf("lookup match id=%d: %w", *item.MatchID, err)
		} else if !found {
			return vote.Option{}, fmt.Errorf("%w: match id=%d", ErrNotFound, *item.MatchID)
		}
	}

	item.CreatedAt = s.now().UTC()
	created, err := s.optionRepo.Create(ctx, item)
	if err != nil {
		return vote.Option{}, fmt.Errorf("create option label=%s: %w", item.Label, err)
	}
	return created, nil
}

func (s *VoteService) UpdateOption(ctx context.Context, item vote.Option) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.VoteService.UpdateOption")
	defer span.End()

	item.Label = strings.TrimSpace(item.Label)
	if item.ID <= 0 || item.Label == "" {
		return fmt.Errorf("%w: option id and label are required", ErrInvalidInput)
	}
	if item.Kind != vote.OptionBasic && item.Kind != vote.OptionDetailed {
		return fmt.Errorf("%w: unknown option kind %q", ErrInvalidInput, item.Kind)
	}
	current, found, err := s.optionRepo.GetByID(ctx, item.ID)
	if err != nil {
		return fmt.Errorf("lookup option id=%d: %w", item.ID, err)
	}
	if !found {
		return fmt.Errorf("%w: option id=%d", ErrNotFound, item.ID)
	}
	// Category and match scope are fixed at creation.
	item.CategoryID = current.CategoryID
	item.MatchID = current.MatchID

	if err := s.optionRepo.Update(ctx, item); err != nil {
		return fmt.Errorf("update option id=%d: %w", item.ID, err)
	}
	return nil
}

func (s *VoteService) DeleteOption(ctx context.Context, id int64) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.VoteService.DeleteOption")
	defer span.End()

	if id <= 0 {
		return fmt.Errorf("%w: option id is required", ErrInvalidInput)
	}
	if _, found, err := s.optionRepo.GetByID(ctx, id); err != nil {
		return fmt.Errorf("lookup option id=%d: %w", id, err)
	} else if !found {
		return fmt.Errorf("%w: option id=%d", ErrNotFound, id)
	}

	if err := s.optionRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete option id=%d: %w", id, err)
	}
	return nil
}

// PurgeMatchVotes removes every ballot for a match. Used when a match row
// is deleted by an operator.
func (s *VoteService) PurgeMatchVotes(ctx context.Context, matchID int64) (int64, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.VoteService.PurgeMatchVotes")
	defer span.End()

	if matchID <= 0 {
		return 0, fmt.Errorf("%w: match id is required", ErrInvalidInput)
	}
	removed, err := s.voteRepo.DeleteByMatch(ctx, matchID)
	if err != nil {
		return 0, fmt.Errorf("purge votes match_id=%d: %w", matchID, err)
	}
	return removed, nil
}

// normalizeCategoryKey folds the raw key to snake_case: lowercase, with any
// run of characters outside [a-z0-9] collapsed into a single underscore.
func normalizeCategoryKey(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	return strings.Join(strings.FieldsFunc(key, func(r rune) bool {
		return (r < 'a' || r > 'z') && (r < '0' || r > '9')
	}), "_")
}
