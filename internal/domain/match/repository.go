package match

import (
	"context"
	"time"
)

// Filter narrows List calls. Zero values mean "no constraint".
type Filter struct {
	CompetitionID int64
	Statuses      []string
	DateFrom      time.Time
	DateTo        time.Time
	// Search matches team and competition names, case-insensitively.
	Search string
	Limit  int
	Offset int
}

type Repository interface {
	List(ctx context.Context, filter Filter) ([]Match, error)
	GetByID(ctx context.Context, id int64) (Match, bool, error)
	GetByExternalID(ctx context.Context, externalID int64) (Match, bool, error)
	// UpsertByExternalID creates or updates the row keyed by external_id and
	// reports whether a new row was created.
	UpsertByExternalID(ctx context.Context, item Match) (Match, bool, error)
	ListByStatuses(ctx context.Context, statuses []string) ([]Match, error)
	// ListStaleInPlay returns live or paused matches whose match_date is
	// older than the cutoff, including rows with a missing or zero date.
	ListStaleInPlay(ctx context.Context, cutoff time.Time) ([]Match, error)
	// Finalize moves a match to its terminal status and stamps last_updated.
	Finalize(ctx context.Context, id int64, status string, homeScore, awayScore *int) error
	Delete(ctx context.Context, id int64) error
}

type LiveScoreRepository interface {
	Upsert(ctx context.Context, item LiveScore) error
	GetByMatchID(ctx context.Context, matchID int64) (LiveScore, bool, error)
	ListByMatchIDs(ctx context.Context, matchIDs []int64) (map[int64]LiveScore, error)
	DeleteByMatchID(ctx context.Context, matchID int64) error
}
