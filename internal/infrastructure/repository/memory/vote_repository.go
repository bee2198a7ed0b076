package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/danuandrian/matchvote/internal/domain/vote"
)

type VoteCategoryRepository struct {
	mu      sync.RWMutex
	items   map[int64]vote.Category
	nextID  int64
	options *VoteOptionRepository
	votes   *VoteRepository
}

// NewVoteCategoryRepository shares the option and ballot repositories so a
// category delete can reassign its rows to the built-in "other" category,
// mirroring the transactional store.
func NewVoteCategoryRepository(seed []vote.Category, options *VoteOptionRepository, votes *VoteRepository) *VoteCategoryRepository {
	r := &VoteCategoryRepository{
		items:   make(map[int64]vote.Category, len(seed)),
		nextID:  1,
		options: options,
		votes:   votes,
	}
	for _, item := range seed {
		if item.ID == 0 {
			item.ID = r.nextID
		}
		if item.ID >= r.nextID {
			r.nextID = item.ID + 1
		}
		r.items[item.ID] = item
	}
	return r
}

func (r *VoteCategoryRepository) List(_ context.Context, activeOnly bool) ([]vote.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]vote.Category, 0, len(r.items))
	for _, item := range r.items {
		if activeOnly && !item.IsActive {
			continue
		}
		out = append(out, item)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *VoteCategoryRepository) GetByID(_ context.Context, id int64) (vote.Category, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	return item, ok, nil
}

func (r *VoteCategoryRepository) GetByKey(_ context.Context, key string) (vote.Category, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, item := range r.items {
		if item.Key == key {
			return item, true, nil
		}
	}
	return vote.Category{}, false, nil
}

func (r *VoteCategoryRepository) Create(_ context.Context, item vote.Category) (vote.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.items {
		if existing.Key == item.Key {
			return vote.Category{}, vote.ErrDuplicate
		}
	}

	item.ID = r.nextID
	r.nextID++
	item.CreatedAt = time.Now().UTC()
	r.items[item.ID] = item
	return item, nil
}

func (r *VoteCategoryRepository) Update(_ context.Context, item vote.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.items[item.ID]
	if !ok {
		return fmt.Errorf("vote category id=%d not found", item.ID)
	}
	item.CreatedAt = existing.CreatedAt
	r.items[item.ID] = item
	return nil
}

// Delete removes the category after moving its options and ballots to the
// built-in "other" category, so no row is left orphaned.
func (r *VoteCategoryRepository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return nil
	}

	var otherID int64
	for _, item := range r.items {
		if item.Key == vote.CategoryKeyOther {
			otherID = item.ID
			break
		}
	}
	if otherID == 0 {
		return fmt.Errorf("category %q not found, cannot reassign", vote.CategoryKeyOther)
	}

	if r.options != nil {
		r.options.reassignCategory(id, otherID)
	}
	if r.votes != nil {
		r.votes.reassignCategory(ctx, id, otherID)
	}

	delete(r.items, id)
	return nil
}

type VoteOptionRepository struct {
	mu     sync.RWMutex
	items  map[int64]vote.Option
	nextID int64
}

func NewVoteOptionRepository(seed []vote.Option) *VoteOptionRepository {
	r := &VoteOptionRepository{
		items:  make(map[int64]vote.Option, len(seed)),
		nextID: 1,
	}
	for _, item := range seed {
		if item.ID == 0 {
			item.ID = r.nextID
		}
		if item.ID >= r.nextID {
			r.nextID = item.ID + 1
		}
		r.items[item.ID] = item
	}
	return r
}

func (r *VoteOptionRepository) ListByCategory(_ context.Context, categoryID int64, activeOnly bool) ([]vote.Option, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]vote.Option, 0)
	for _, item := range r.items {
		if item.CategoryID != categoryID {
			continue
		}
		if activeOnly && !item.IsActive {
			continue
		}
		out = append(out, item)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *VoteOptionRepository) GetByID(_ context.Context, id int64) (vote.Option, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	return item, ok, nil
}

func (r *VoteOptionRepository) Create(_ context.Context, item vote.Option) (vote.Option, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item.ID = r.nextID
	r.nextID++
	item.CreatedAt = time.Now().UTC()
	r.items[item.ID] = item
	return item, nil
}

func (r *VoteOptionRepository) Update(_ context.Context, item vote.Option) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.items[item.ID]
	if !ok {
		return fmt.Errorf("vote option id=%d not found", item.ID)
	}
	item.VotesCount = existing.VotesCount
	item.CreatedAt = existing.CreatedAt
	r.items[item.ID] = item
	return nil
}

func (r *VoteOptionRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.items, id)
	return nil
}

func (r *VoteOptionRepository) reassignCategory(from, to int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, item := range r.items {
		if item.CategoryID == from {
			item.CategoryID = to
			r.items[id] = item
		}
	}
}

func (r *VoteOptionRepository) AdjustVotesCount(_ context.Context, id int64, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok {
		return fmt.Errorf("vote option id=%d not found", id)
	}
	item.VotesCount += delta
	if item.VotesCount < 0 {
		item.VotesCount = 0
	}
	r.items[id] = item
	return nil
}

type ballotKey struct {
	matchID    int64
	categoryID int64
	voterKey   string
	surface    string
}

type VoteRepository struct {
	mu      sync.Mutex
	items   map[int64]vote.Vote
	byKey   map[ballotKey]int64
	nextID  int64
	options *VoteOptionRepository
}

// NewVoteRepository shares the option repository so counter adjustments land
// on the same rows the cast touches, mirroring the transactional store.
func NewVoteRepository(options *VoteOptionRepository) *VoteRepository {
	return &VoteRepository{
		items:   make(map[int64]vote.Vote),
		byKey:   make(map[ballotKey]int64),
		nextID:  1,
		options: options,
	}
}

func (r *VoteRepository) Cast(ctx context.Context, item vote.Vote, allowChange bool) (vote.CastResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := ballotKey{item.MatchID, item.CategoryID, item.VoterKey, item.Surface}
	now := time.Now().UTC()

	if id, ok := r.byKey[key]; ok {
		existing := r.items[id]
		if existing.OptionID == item.OptionID {
			if !allowChange {
				return vote.CastResult{}, vote.ErrDuplicate
			}
			return vote.CastResult{Vote: existing}, nil
		}
		if !allowChange {
			return vote.CastResult{}, vote.ErrChangeNotAllowed
		}

		previous := existing.OptionID
		existing.OptionID = item.OptionID
		existing.UpdatedAt = now
		r.items[id] = existing
		if r.options != nil {
			_ = r.options.AdjustVotesCount(ctx, previous, -1)
			_ = r.options.AdjustVotesCount(ctx, item.OptionID, 1)
		}
		return vote.CastResult{Vote: existing, Replaced: true, PreviousOptionID: previous}, nil
	}

	item.ID = r.nextID
	r.nextID++
	item.CreatedAt = now
	item.UpdatedAt = now
	r.items[item.ID] = item
	r.byKey[key] = item.ID
	if r.options != nil {
		_ = r.options.AdjustVotesCount(ctx, item.OptionID, 1)
	}
	return vote.CastResult{Vote: item}, nil
}

func (r *VoteRepository) GetByVoter(_ context.Context, matchID, categoryID int64, voterKey, surface string) (vote.Vote, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byKey[ballotKey{matchID, categoryID, voterKey, surface}]
	if !ok {
		return vote.Vote{}, false, nil
	}
	return r.items[id], true, nil
}

func (r *VoteRepository) CountByOption(_ context.Context, matchID, categoryID int64) (map[int64]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[int64]int)
	for _, item := range r.items {
		if item.MatchID == matchID && item.CategoryID == categoryID {
			out[item.OptionID]++
		}
	}
	return out, nil
}

func (r *VoteRepository) DeleteByMatch(ctx context.Context, matchID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int64
	for id, item := range r.items {
		if item.MatchID != matchID {
			continue
		}
		delete(r.items, id)
		delete(r.byKey, ballotKey{item.MatchID, item.CategoryID, item.VoterKey, item.Surface})
		if r.options != nil {
			_ = r.options.AdjustVotesCount(ctx, item.OptionID, -1)
		}
		removed++
	}
	return removed, nil
}

// reassignCategory moves every ballot in the source category to the target
// one. A voter who already holds a ballot in the target category on the same
// match and surface keeps that ballot; the moved one is dropped and its
// option counter decremented.
func (r *VoteRepository) reassignCategory(ctx context.Context, from, to int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, item := range r.items {
		if item.CategoryID != from {
			continue
		}
		delete(r.byKey, ballotKey{item.MatchID, item.CategoryID, item.VoterKey, item.Surface})
		next := ballotKey{item.MatchID, to, item.VoterKey, item.Surface}
		if _, taken := r.byKey[next]; taken {
			delete(r.items, id)
			if r.options != nil {
				_ = r.options.AdjustVotesCount(ctx, item.OptionID, -1)
			}
			continue
		}
		item.CategoryID = to
		r.items[id] = item
		r.byKey[next] = id
	}
}
