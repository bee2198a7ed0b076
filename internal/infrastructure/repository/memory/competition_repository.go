package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/danuandrian/matchvote/internal/domain/competition"
)

type CompetitionRepository struct {
	mu     sync.RWMutex
	items  map[int64]competition.Competition
	nextID int64
}

func NewCompetitionRepository() *CompetitionRepository {
	return &CompetitionRepository{
		items:  make(map[int64]competition.Competition),
		nextID: 1,
	}
}

func (r *CompetitionRepository) List(_ context.Context) ([]competition.Competition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]competition.Competition, 0, len(r.items))
	for _, item := range r.items {
		out = append(out, item)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *CompetitionRepository) ListSyncable(_ context.Context) ([]competition.Competition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]competition.Competition, 0, len(r.items))
	for _, item := range r.items {
		if item.Syncable() {
			out = append(out, item)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *CompetitionRepository) GetByID(_ context.Context, id int64) (competition.Competition, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	return item, ok, nil
}

func (r *CompetitionRepository) UpsertByExternalID(_ context.Context, item competition.Competition) (competition.Competition, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, existing := range r.items {
		if existing.ExternalID == item.ExternalID {
			existing.Name = item.Name
			existing.Country = item.Country
			existing.Code = item.Code
			existing.LogoURL = item.LogoURL
			r.items[id] = existing
			return existing, false, nil
		}
	}

	item.ID = r.nextID
	r.nextID++
	r.items[item.ID] = item
	return item, true, nil
}

func (r *CompetitionRepository) SetFlags(_ context.Context, id int64, isActive, syncEnabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok {
		return fmt.Errorf("competition id=%d not found", id)
	}
	item.IsActive = isActive
	item.SyncEnabled = syncEnabled
	r.items[id] = item
	return nil
}

func (r *CompetitionRepository) TouchLastSynced(_ context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok {
		return nil
	}
	at = at.UTC()
	item.LastSyncedAt = &at
	r.items[id] = item
	return nil
}
