package synclog

import (
	"context"
	"time"
)

type Repository interface {
	Append(ctx context.Context, entry Entry) (Entry, error)
	// List returns the newest entries first, optionally filtered by type.
	List(ctx context.Context, syncType string, limit int) ([]Entry, error)
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
