package cache

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/danuandrian/matchvote/internal/domain/competition"
	"github.com/danuandrian/matchvote/internal/domain/match"
	"github.com/danuandrian/matchvote/internal/domain/vote"
	basecache "github.com/danuandrian/matchvote/internal/platform/cache"
)

type CompetitionRepository struct {
	next  competition.Repository
	cache *basecache.Store
}

func NewCompetitionRepository(next competition.Repository, cache *basecache.Store) *CompetitionRepository {
	return &CompetitionRepository{next: next, cache: cache}
}

func (r *CompetitionRepository) List(ctx context.Context) ([]competition.Competition, error) {
	v, err := r.cache.GetOrLoad(ctx, "competition:list", func(ctx context.Context) (any, error) {
		items, err := r.next.List(ctx)
		if err != nil {
			return nil, err
		}
		return append([]competition.Competition(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]competition.Competition)
	return append([]competition.Competition(nil), items...), nil
}

func (r *CompetitionRepository) ListSyncable(ctx context.Context) ([]competition.Competition, error) {
	v, err := r.cache.GetOrLoad(ctx, "competition:list:syncable", func(ctx context.Context) (any, error) {
		items, err := r.next.ListSyncable(ctx)
		if err != nil {
			return nil, err
		}
		return append([]competition.Competition(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]competition.Competition)
	return append([]competition.Competition(nil), items...), nil
}

func (r *CompetitionRepository) GetByID(ctx context.Context, id int64) (competition.Competition, bool, error) {
	key := "competition:id:" + strconv.FormatInt(id, 10)
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		item, exists, err := r.next.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return cachedCompetitionByID{value: item, exists: exists}, nil
	})
	if err != nil {
		return competition.Competition{}, false, err
	}

	cached, _ := v.(cachedCompetitionByID)
	return cached.value, cached.exists, nil
}

func (r *CompetitionRepository) UpsertByExternalID(ctx context.Context, item competition.Competition) (competition.Competition, bool, error) {
	saved, created, err := r.next.UpsertByExternalID(ctx, item)
	if err != nil {
		return competition.Competition{}, false, err
	}
	r.cache.DeletePrefix(ctx, "competition:")
	return saved, created, nil
}

func (r *CompetitionRepository) SetFlags(ctx context.Context, id int64, isActive, syncEnabled bool) error {
	if err := r.next.SetFlags(ctx, id, isActive, syncEnabled); err != nil {
		return err
	}
	r.cache.DeletePrefix(ctx, "competition:")
	return nil
}

func (r *CompetitionRepository) TouchLastSynced(ctx context.Context, id int64, at time.Time) error {
	if err := r.next.TouchLastSynced(ctx, id, at); err != nil {
		return err
	}
	r.cache.Delete(ctx, "competition:id:"+strconv.FormatInt(id, 10))
	r.cache.Delete(ctx, "competition:list")
	r.cache.Delete(ctx, "competition:list:syncable")
	return nil
}

type cachedCompetitionByID struct {
	value  competition.Competition
	exists bool
}

type MatchRepository struct {
	next  match.Repository
	cache *basecache.Store
}

func NewMatchRepository(next match.Repository, cache *basecache.Store) *MatchRepository {
	return &MatchRepository{next: next, cache: cache}
}

func (r *MatchRepository) List(ctx context.Context, filter match.Filter) ([]match.Match, error) {
	key := matchListKey(filter)
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		items, err := r.next.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		return append([]match.Match(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]match.Match)
	return append([]match.Match(nil), items...), nil
}

func (r *MatchRepository) GetByID(ctx context.Context, id int64) (match.Match, bool, error) {
	key := "match:id:" + strconv.FormatInt(id, 10)
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		item, exists, err := r.next.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return cachedMatchByID{value: item, exists: exists}, nil
	})
	if err != nil {
		return match.Match{}, false, err
	}

	cached, _ := v.(cachedMatchByID)
	return cached.value, cached.exists, nil
}

func (r *MatchRepository) GetByExternalID(ctx context.Context, externalID int64) (match.Match, bool, error) {
	return r.next.GetByExternalID(ctx, externalID)
}

func (r *MatchRepository) UpsertByExternalID(ctx context.Context, item match.Match) (match.Match, bool, error) {
	saved, created, err := r.next.UpsertByExternalID(ctx, item)
	if err != nil {
		return match.Match{}, false, err
	}
	r.cache.DeletePrefix(ctx, "match:")
	return saved, created, nil
}

func (r *MatchRepository) ListByStatuses(ctx context.Context, statuses []string) ([]match.Match, error) {
	return r.next.ListByStatuses(ctx, statuses)
}

func (r *MatchRepository) ListStaleInPlay(ctx context.Context, cutoff time.Time) ([]match.Match, error) {
	return r.next.ListStaleInPlay(ctx, cutoff)
}

func (r *MatchRepository) Finalize(ctx context.Context, id int64, status string, homeScore, awayScore *int) error {
	if err := r.next.Finalize(ctx, id, status, homeScore, awayScore); err != nil {
		return err
	}
	r.cache.DeletePrefix(ctx, "match:")
	return nil
}

func (r *MatchRepository) Delete(ctx context.Context, id int64) error {
	if err := r.next.Delete(ctx, id); err != nil {
		return err
	}
	r.cache.DeletePrefix(ctx, "match:")
	return nil
}

type cachedMatchByID struct {
	value  match.Match
	exists bool
}

func matchListKey(filter match.Filter) string {
	parts := []string{
		"match:list",
		strconv.FormatInt(filter.CompetitionID, 10),
		strings.Join(filter.Statuses, "|"),
		strconv.FormatInt(filter.DateFrom.Unix(), 10),
		strconv.FormatInt(filter.DateTo.Unix(), 10),
		strings.ToLower(strings.TrimSpace(filter.Search)),
		strconv.Itoa(filter.Limit),
		strconv.Itoa(filter.Offset),
	}
	return strings.Join(parts, ":")
}

type VoteCategoryRepository struct {
	next  vote.CategoryRepository
	cache *basecache.Store
}

func NewVoteCategoryRepository(next vote.CategoryRepository, cache *basecache.Store) *VoteCategoryRepository {
	return &VoteCategoryRepository{next: next, cache: cache}
}

func (r *VoteCategoryRepository) List(ctx context.Context, activeOnly bool) ([]vote.Category, error) {
	key := "vote-category:list:" + strconv.FormatBool(activeOnly)
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		items, err := r.next.List(ctx, activeOnly)
		if err != nil {
			return nil, err
		}
		return append([]vote.Category(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]vote.Category)
	return append([]vote.Category(nil), items...), nil
}

func (r *VoteCategoryRepository) GetByID(ctx context.Context, id int64) (vote.Category, bool, error) {
	key := "vote-category:id:" + strconv.FormatInt(id, 10)
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		item, exists, err := r.next.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return cachedVoteCategoryByID{value: item, exists: exists}, nil
	})
	if err != nil {
		return vote.Category{}, false, err
	}

	cached, _ := v.(cachedVoteCategoryByID)
	return cached.value, cached.exists, nil
}

func (r *VoteCategoryRepository) GetByKey(ctx context.Context, categoryKey string) (vote.Category, bool, error) {
	key := "vote-category:key:" + categoryKey
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		item, exists, err := r.next.GetByKey(ctx, categoryKey)
		if err != nil {
			return nil, err
		}
		return cachedVoteCategoryByID{value: item, exists: exists}, nil
	})
	if err != nil {
		return vote.Category{}, false, err
	}

	cached, _ := v.(cachedVoteCategoryByID)
	return cached.value, cached.exists, nil
}

func (r *VoteCategoryRepository) Create(ctx context.Context, item vote.Category) (vote.Category, error) {
	saved, err := r.next.Create(ctx, item)
	if err != nil {
		return vote.Category{}, err
	}
	r.cache.DeletePrefix(ctx, "vote-category:")
	return saved, nil
}

func (r *VoteCategoryRepository) Update(ctx context.Context, item vote.Category) error {
	if err := r.next.Update(ctx, item); err != nil {
		return err
	}
	r.cache.DeletePrefix(ctx, "vote-category:")
	return nil
}

func (r *VoteCategoryRepository) Delete(ctx context.Context, id int64) error {
	if err := r.next.Delete(ctx, id); err != nil {
		return err
	}
	r.cache.DeletePrefix(ctx, "vote-category:")
	r.cache.DeletePrefix(ctx, "vote-option:")
	return nil
}

type cachedVoteCategoryByID struct {
	value  vote.Category
	exists bool
}

type VoteOptionRepository struct {
	next  vote.OptionRepository
	cache *basecache.Store
}

func NewVoteOptionRepository(next vote.OptionRepository, cache *basecache.Store) *VoteOptionRepository {
	return &VoteOptionRepository{next: next, cache: cache}
}

func (r *VoteOptionRepository) ListByCategory(ctx context.Context, categoryID int64, activeOnly bool) ([]vote.Option, error) {
	key := "vote-option:list:" + strconv.FormatInt(categoryID, 10) + ":" + strconv.FormatBool(activeOnly)
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		items, err := r.next.ListByCategory(ctx, categoryID, activeOnly)
		if err != nil {
			return nil, err
		}
		return append([]vote.Option(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]vote.Option)
	return append([]vote.Option(nil), items...), nil
}

func (r *VoteOptionRepository) GetByID(ctx context.Context, id int64) (vote.Option, bool, error) {
	key := "vote-option:id:" + strconv.FormatInt(id, 10)
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		item, exists, err := r.next.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return cachedVoteOptionByID{value: item, exists: exists}, nil
	})
	if err != nil {
		return vote.Option{}, false, err
	}

	cached, _ := v.(cachedVoteOptionByID)
	return cached.value, cached.exists, nil
}

func (r *VoteOptionRepository) Create(ctx context.Context, item vote.Option) (vote.Option, error) {
	saved, err := r.next.Create(ctx, item)
	if err != nil {
		return vote.Option{}, err
	}
	r.cache.DeletePrefix(ctx, "vote-option:")
	return saved, nil
}

func (r *VoteOptionRepository) Update(ctx context.Context, item vote.Option) error {
	if err := r.next.Update(ctx, item); err != nil {
		return err
	}
	r.cache.DeletePrefix(ctx, "vote-option:")
	return nil
}

func (r *VoteOptionRepository) Delete(ctx context.Context, id int64) error {
	if err := r.next.Delete(ctx, id); err != nil {
		return err
	}
	r.cache.DeletePrefix(ctx, "vote-option:")
	return nil
}

func (r *VoteOptionRepository) AdjustVotesCount(ctx context.Context, id int64, delta int) error {
	if err := r.next.AdjustVotesCount(ctx, id, delta); err != nil {
		return err
	}
	r.cache.Delete(ctx, "vote-option:id:"+strconv.FormatInt(id, 10))
	return nil
}

type cachedVoteOptionByID struct {
	value  vote.Option
	exists bool
}

// LiveScoreRepository keeps live reads coherent with the sync writer: every
// overlay write drops the cached rows so a tick is never served stale.
type LiveScoreRepository struct {
	next  match.LiveScoreRepository
	cache *basecache.Store
}

func NewLiveScoreRepository(next match.LiveScoreRepository, cache *basecache.Store) *LiveScoreRepository {
	return &LiveScoreRepository{next: next, cache: cache}
}

func (r *LiveScoreRepository) Upsert(ctx context.Context, item match.LiveScore) error {
	if err := r.next.Upsert(ctx, item); err != nil {
		return err
	}
	r.cache.DeletePrefix(ctx, "live-score:")
	return nil
}

func (r *LiveScoreRepository) GetByMatchID(ctx context.Context, matchID int64) (match.LiveScore, bool, error) {
	key := "live-score:id:" + strconv.FormatInt(matchID, 10)
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		item, exists, err := r.next.GetByMatchID(ctx, matchID)
		if err != nil {
			return nil, err
		}
		return cachedLiveScoreByMatchID{value: item, exists: exists}, nil
	})
	if err != nil {
		return match.LiveScore{}, false, err
	}

	cached, _ := v.(cachedLiveScoreByMatchID)
	return cached.value, cached.exists, nil
}

func (r *LiveScoreRepository) ListByMatchIDs(ctx context.Context, matchIDs []int64) (map[int64]match.LiveScore, error) {
	ids := append([]int64(nil), matchIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	encoded := make([]string, 0, len(ids))
	for _, id := range ids {
		encoded = append(encoded, strconv.FormatInt(id, 10))
	}
	key := "live-score:ids:" + strings.Join(encoded, ",")

	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		items, err := r.next.ListByMatchIDs(ctx, matchIDs)
		if err != nil {
			return nil, err
		}
		return items, nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.(map[int64]match.LiveScore)
	out := make(map[int64]match.LiveScore, len(items))
	for id, item := range items {
		out[id] = item
	}
	return out, nil
}

func (r *LiveScoreRepository) DeleteByMatchID(ctx context.Context, matchID int64) error {
	if err := r.next.DeleteByMatchID(ctx, matchID); err != nil {
		return err
	}
	r.cache.DeletePrefix(ctx, "live-score:")
	return nil
}

type cachedLiveScoreByMatchID struct {
	value  match.LiveScore
	exists bool
}
