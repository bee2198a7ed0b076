package competition

import (
	"context"
	"time"
)

type Repository interface {
	List(ctx context.Context) ([]Competition, error)
	ListSyncable(ctx context.Context) ([]Competition, error)
	GetByID(ctx context.Context, id int64) (Competition, bool, error)
	// UpsertByExternalID creates or updates the row keyed by external_id and
	// reports whether a new row was created.
	UpsertByExternalID(ctx context.Context, item Competition) (Competition, bool, error)
	SetFlags(ctx context.Context, id int64, isActive, syncEnabled bool) error
	TouchLastSynced(ctx context.Context, id int64, at time.Time) error
}
