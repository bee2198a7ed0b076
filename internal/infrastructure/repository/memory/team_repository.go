package memory

import (
	"context"
	"sync"

	"github.com/danuandrian/matchvote/internal/domain/team"
)

type TeamRepository struct {
	mu     sync.RWMutex
	items  map[int64]team.Team
	nextID int64
}

func NewTeamRepository() *TeamRepository {
	return &TeamRepository{
		items:  make(map[int64]team.Team),
		nextID: 1,
	}
}

func (r *TeamRepository) GetByID(_ context.Context, id int64) (team.Team, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	return item, ok, nil
}

func (r *TeamRepository) UpsertByExternalID(_ context.Context, item team.Team) (team.Team, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, existing := range r.items {
		if existing.ExternalID == item.ExternalID {
			existing.Name = item.Name
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
