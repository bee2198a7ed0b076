package team

import "context"

type Repository interface {
	GetByID(ctx context.Context, id int64) (Team, bool, error)
	// UpsertByExternalID creates or updates the row keyed by external_id and
	// reports whether a new row was created.
	UpsertByExternalID(ctx context.Context, item Team) (Team, bool, error)
}
