package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/danuandrian/matchvote/internal/domain/match"
)

type MatchRepository struct {
	mu     sync.RWMutex
	items  map[int64]match.Match
	nextID int64
}

func NewMatchRepository() *MatchRepository {
	return &MatchRepository{
		items:  make(map[int64]match.Match),
		nextID: 1,
	}
}

func (r *MatchRepository) List(_ context.Context, filter match.Filter) ([]match.Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	statuses := make(map[string]struct{}, len(filter.Statuses))
	for _, status := range filter.Statuses {
		statuses[status] = struct{}{}
	}
	search := strings.ToLower(strings.TrimSpace(filter.Search))

	out := make([]match.Match, 0)
	for _, item := range r.items {
		if filter.CompetitionID > 0 && item.CompetitionID != filter.CompetitionID {
			continue
		}
		if len(statuses) > 0 {
			if _, ok := statuses[item.Status]; !ok {
				continue
			}
		}
		if !filter.DateFrom.IsZero() && item.MatchDate.Before(filter.DateFrom) {
			continue
		}
		if !filter.DateTo.IsZero() && item.MatchDate.After(filter.DateTo) {
			continue
		}
		if search != "" {
			names := strings.ToLower(item.HomeTeamName + " " + item.AwayTeamName)
			if !strings.Contains(names, search) {
				continue
			}
		}
		out = append(out, item)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].MatchDate.Equal(out[j].MatchDate) {
			return out[i].MatchDate.Before(out[j].MatchDate)
		}
		return out[i].ID < out[j].ID
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []match.Match{}, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *MatchRepository) GetByID(_ context.Context, id int64) (match.Match, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	return item, ok, nil
}

func (r *MatchRepository) GetByExternalID(_ context.Context, externalID int64) (match.Match, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, item := range r.items {
		if item.ExternalID == externalID {
			return item, true, nil
		}
	}
	return match.Match{}, false, nil
}

func (r *MatchRepository) UpsertByExternalID(_ context.Context, item match.Match) (match.Match, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, existing := range r.items {
		if existing.ExternalID == item.ExternalID {
			item.ID = id
			item.LastUpdated = time.Now().UTC()
			r.items[id] = item
			return item, false, nil
		}
	}

	item.ID = r.nextID
	r.nextID++
	item.LastUpdated = time.Now().UTC()
	r.items[item.ID] = item
	return item, true, nil
}

func (r *MatchRepository) ListByStatuses(ctx context.Context, statuses []string) ([]match.Match, error) {
	return r.List(ctx, match.Filter{Statuses: statuses})
}

func (r *MatchRepository) ListStaleInPlay(_ context.Context, cutoff time.Time) ([]match.Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]match.Match, 0)
	for _, item := range r.items {
		if !match.IsLiveStatus(item.Status) {
			continue
		}
		if item.MatchDate.IsZero() || item.MatchDate.Before(cutoff) {
			out = append(out, item)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MatchRepository) Finalize(_ context.Context, id int64, status string, homeScore, awayScore *int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok {
		return fmt.Errorf("match id=%d not found", id)
	}
	item.Status = status
	if homeScore != nil {
		item.HomeScore = homeScore
	}
	if awayScore != nil {
		item.AwayScore = awayScore
	}
	item.MatchMinute = nil
	item.LastUpdated = time.Now().UTC()
	r.items[id] = item
	return nil
}

func (r *MatchRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.items, id)
	return nil
}

type LiveScoreRepository struct {
	mu    sync.RWMutex
	items map[int64]match.LiveScore
}

func NewLiveScoreRepository() *LiveScoreRepository {
	return &LiveScoreRepository{items: make(map[int64]match.LiveScore)}
}

func (r *LiveScoreRepository) Upsert(_ context.Context, item match.LiveScore) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item.UpdatedAt = time.Now().UTC()
	r.items[item.MatchID] = item
	return nil
}

func (r *LiveScoreRepository) GetByMatchID(_ context.Context, matchID int64) (match.LiveScore, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[matchID]
	return item, ok, nil
}

func (r *LiveScoreRepository) ListByMatchIDs(_ context.Context, matchIDs []int64) (map[int64]match.LiveScore, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[int64]match.LiveScore, len(matchIDs))
	for _, id := range matchIDs {
		if item, ok := r.items[id]; ok {
			out[id] = item
		}
	}
	return out, nil
}

func (r *LiveScoreRepository) DeleteByMatchID(_ context.Context, matchID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.items, matchID)
	return nil
}
