package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/danuandrian/matchvote/internal/domain/synclog"
)

type SyncLogRepository struct {
	mu     sync.RWMutex
	items  map[int64]synclog.Entry
	nextID int64
}

func NewSyncLogRepository() *SyncLogRepository {
	return &SyncLogRepository{
		items:  make(map[int64]synclog.Entry),
		nextID: 1,
	}
}

func (r *SyncLogRepository) Append(_ context.Context, entry synclog.Entry) (synclog.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry.ID = r.nextID
	r.nextID++
	if entry.StartedAt.IsZero() {
		entry.StartedAt = time.Now().UTC()
	}
	if entry.FinishedAt.IsZero() {
		entry.FinishedAt = time.Now().UTC()
	}
	r.items[entry.ID] = entry
	return entry, nil
}

func (r *SyncLogRepository) List(_ context.Context, syncType string, limit int) ([]synclog.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]synclog.Entry, 0, len(r.items))
	for _, item := range r.items {
		if syncType != "" && item.Type != syncType {
			continue
		}
		out = append(out, item)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *SyncLogRepository) PruneOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int64
	for id, item := range r.items {
		if item.StartedAt.Before(cutoff) {
			delete(r.items, id)
			removed++
		}
	}
	return removed, nil
}
