package vote

import (
	"context"
	"errors"
)

// Sentinel errors surfaced by vote storage. They live here so repositories
// can return them without importing the usecase layer.
var (
	ErrDuplicate         = errors.New("vote already cast")
	ErrChangeNotAllowed  = errors.New("vote change not allowed")
	ErrOptionNotFound    = errors.New("vote option not found")
	ErrProtectedCategory = errors.New("category is protected")
)

// CastResult reports what the transactional cast did.
type CastResult struct {
	Vote             Vote
	Replaced         bool
	PreviousOptionID int64
}

type CategoryRepository interface {
	List(ctx context.Context, activeOnly bool) ([]Category, error)
	GetByID(ctx context.Context, id int64) (Category, bool, error)
	GetByKey(ctx context.Context, key string) (Category, bool, error)
	Create(ctx context.Context, item Category) (Category, error)
	Update(ctx context.Context, item Category) error
	Delete(ctx context.Context, id int64) error
}

type OptionRepository interface {
	ListByCategory(ctx context.Context, categoryID int64, activeOnly bool) ([]Option, error)
	GetByID(ctx context.Context, id int64) (Option, bool, error)
	Create(ctx context.Context, item Option) (Option, error)
	Update(ctx context.Context, item Option) error
	Delete(ctx context.Context, id int64) error
	// AdjustVotesCount applies a delta to the denormalized counter.
	AdjustVotesCount(ctx context.Context, id int64, delta int) error
}

type Repository interface {
	// Cast records a ballot inside one transaction. When the voter already
	// has a vote for (match, category, surface) it either replaces it
	// (allowChange true) or returns ErrDuplicate / ErrChangeNotAllowed.
	Cast(ctx context.Context, item Vote, allowChange bool) (CastResult, error)
	GetByVoter(ctx context.Context, matchID, categoryID int64, voterKey, surface string) (Vote, bool, error)
	// CountByOption recounts stored ballots per option for one match and
	// category. Results are keyed by option ID.
	CountByOption(ctx context.Context, matchID, categoryID int64) (map[int64]int, error)
	DeleteByMatch(ctx context.Context, matchID int64) (int64, error)
}
