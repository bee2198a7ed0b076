package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/danuandrian/matchvote/internal/domain/competition"
	"github.com/danuandrian/matchvote/internal/domain/match"
	"github.com/danuandrian/matchvote/internal/domain/synclog"
	"github.com/danuandrian/matchvote/internal/domain/team"
	"github.com/danuandrian/matchvote/internal/platform/logging"
)

// MatchDataProvider is the upstream feed contract. The concrete client lives
// under external/ so the sync service stays testable with stubs.
type MatchDataProvider interface {
	FetchCompetitions(ctx context.Context) ([]ExternalCompetition, error)
	FetchMatches(ctx context.Context, competitionExternalID int64, from, to time.Time) ([]ExternalMatch, error)
	FetchLiveMatches(ctx context.Context) ([]ExternalMatch, error)
}

type ExternalCompetition struct {
	ExternalID int64
	Name       string
	Country    string
	Code       string
	LogoURL    string
}

type ExternalTeam struct {
	ExternalID int64
	Name       string
	LogoURL    string
}

type ExternalMatch struct {
	ExternalID            int64
	CompetitionExternalID int64
	HomeTeam              ExternalTeam
	AwayTeam              ExternalTeam
	KickoffAt             time.Time
	Status                string
	HomeScore             *int
	AwayScore             *int
	Minute                *int
	Venue                 string
	Referee               string
	Attendance            *int
}

type SyncConfig struct {
	Enabled      bool
	WindowPast   time.Duration
	WindowFuture time.Duration
	Workers      int
}

type SyncService struct {
	provider        MatchDataProvider
	competitionRepo competition.Repository
	teamRepo        team.Repository
	matchRepo       match.Repository
	liveScoreRepo   match.LiveScoreRepository
	syncLogRepo     synclog.Repository
	cfg             SyncConfig
	logger          *logging.Logger
	now             func() time.Time
}

func NewSyncService(
	provider MatchDataProvider,
	competitionRepo competition.Repository,
	teamRepo team.Repository,
	matchRepo match.Repository,
	liveScoreRepo match.LiveScoreRepository,
	syncLogRepo synclog.Repository,
	cfg SyncConfig,
	logger *logging.Logger,
) *SyncService {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.WindowPast <= 0 {
		cfg.WindowPast = 7 * 24 * time.Hour
	}
	if cfg.WindowFuture <= 0 {
		cfg.WindowFuture = 7 * 24 * time.Hour
	}
	if cfg.Workers < 1 {
		cfg.Workers = 4
	}

	return &SyncService{
		provider:        provider,
		competitionRepo: competitionRepo,
		teamRepo:        teamRepo,
		matchRepo:       matchRepo,
		liveScoreRepo:   liveScoreRepo,
		syncLogRepo:     syncLogRepo,
		cfg:             cfg,
		logger:          logger,
		now:             time.Now,
	}
}

// syncCounters accumulates per-run totals. Partial failures bump failed and
// the run keeps going.
type syncCounters struct {
	created   int
	updated   int
	processed int
	failed    int
}

func (c *syncCounters) status() string {
	switch {
	case c.failed == 0:
		return synclog.StatusSuccess
	case c.processed > c.failed:
		return synclog.StatusPartial
	default:
		return synclog.StatusFailed
	}
}

// SyncCompetitions refreshes the competition catalog from the provider.
// Newly discovered competitions are created with sync disabled so the quota
// is spent only on explicitly enabled ones.
func (s *SyncService) SyncCompetitions(ctx context.Context) (synclog.Entry, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SyncService.SyncCompetitions")
	defer span.End()

	if err := s.ready(); err != nil {
		return synclog.Entry{}, err
	}

	startedAt := s.now().UTC()
	items, err := s.provider.FetchCompetitions(ctx)
	if err != nil {
		entry := s.record(ctx, synclog.Entry{
			Type:      synclog.TypeCompetitions,
			Status:    synclog.StatusFailed,
			Message:   abbreviateError(err),
			StartedAt: startedAt,
		})
		return entry, fmt.Errorf("fetch competitions from provider: %w", err)
	}

	var counters syncCounters
	for _, item := range items {
		if item.ExternalID <= 0 || strings.TrimSpace(item.Name) == "" {
			continue
		}
		counters.processed++
		_, created, err := s.competitionRepo.UpsertByExternalID(ctx, mapExternalCompetitionToDomain(item))
		if err != nil {
			counters.failed++
			s.logger.WarnContext(ctx, "upsert competition failed, continuing", "external_id", item.ExternalID, "error", err)
			continue
		}
		if created {
			counters.created++
		} else {
			counters.updated++
		}
	}

	entry := s.record(ctx, synclog.Entry{
		Type:      synclog.TypeCompetitions,
		Status:    counters.status(),
		Created:   counters.created,
		Updated:   counters.updated,
		Processed: counters.processed,
		StartedAt: startedAt,
	})
	return entry, nil
}

// SyncMatchesInput narrows a fixture sync run. An empty CompetitionIDs
// means every sync-enabled competition; a zero Window keeps the configured
// future bound.
type SyncMatchesInput struct {
	CompetitionIDs []int64
	Window         time.Duration
}

// SyncMatches pulls the fixture window for every sync-enabled competition,
// or just the requested ones. One competition failing does not stop the
// rest; the run ends partial.
func (s *SyncService) SyncMatches(ctx context.Context, input SyncMatchesInput) (synclog.Entry, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SyncService.SyncMatches")
	defer span.End()

	if err := s.ready(); err != nil {
		return synclog.Entry{}, err
	}

	startedAt := s.now().UTC()
	competitions, err := s.competitionRepo.ListSyncable(ctx)
	if err != nil {
		return synclog.Entry{}, fmt.Errorf("list syncable competitions: %w", err)
	}
	if len(input.CompetitionIDs) > 0 {
		wanted := make(map[int64]bool, len(input.CompetitionIDs))
		for _, id := range input.CompetitionIDs {
			wanted[id] = true
		}
		filtered := competitions[:0]
		for _, comp := range competitions {
			if wanted[comp.ID] {
				filtered = append(filtered, comp)
			}
		}
		competitions = filtered
	}

	from, to := s.fixtureWindow(input.Window)

	var counters syncCounters
	for _, comp := range competitions {
		if err := ctx.Err(); err != nil {
			return synclog.Entry{}, err
		}
		if err := s.syncCompetitionMatches(ctx, comp, from, to, &counters); err != nil {
			counters.failed++
			counters.processed++
			s.logger.WarnContext(ctx, "sync matches failed for competition, continuing",
				"competition_id", comp.ID,
				"external_id", comp.ExternalID,
				"error", err,
			)
		}
	}

	entry := s.record(ctx, synclog.Entry{
		Type:      synclog.TypeMatches,
		Status:    counters.status(),
		Created:   counters.created,
		Updated:   counters.updated,
		Processed: counters.processed,
		StartedAt: startedAt,
	})
	return entry, nil
}

// fixtureWindow resolves the fetch bounds. A positive override replaces the
// configured future window; the past bound always comes from config.
func (s *SyncService) fixtureWindow(override time.Duration) (time.Time, time.Time) {
	now := s.now().UTC()
	future := s.cfg.WindowFuture
	if override > 0 {
		future = override
	}
	return now.Add(-s.cfg.WindowPast), now.Add(future)
}

func (s *SyncService) syncCompetitionMatches(ctx context.Context, comp competition.Competition, from, to time.Time, counters *syncCounters) error {
	now := s.now().UTC()
	items, err := s.provider.FetchMatches(ctx, comp.ExternalID, from, to)
	if err != nil {
		return fmt.Errorf("fetch matches competition_external_id=%d: %w", comp.ExternalID, err)
	}

	for _, item := range items {
		if item.ExternalID <= 0 {
			continue
		}
		counters.processed++
		created, err := s.upsertMatch(ctx, comp.ID, item)
		if err != nil {
			counters.failed++
			s.logger.WarnContext(ctx, "upsert match failed, continuing", "external_id", item.ExternalID, "error", err)
			continue
		}
		if created {
			counters.created++
		} else {
			counters.updated++
		}
	}

	if err := s.competitionRepo.TouchLastSynced(ctx, comp.ID, now); err != nil {
		s.logger.WarnContext(ctx, "touch competition last_synced failed", "competition_id", comp.ID, "error", err)
	}
	return nil
}

func (s *SyncService) upsertMatch(ctx context.Context, competitionID int64, item ExternalMatch) (bool, error) {
	homeTeam, _, err := s.teamRepo.UpsertByExternalID(ctx, mapExternalTeamToDomain(item.HomeTeam))
	if err != nil {
		return false, fmt.Errorf("upsert home team external_id=%d: %w", item.HomeTeam.ExternalID, err)
	}
	awayTeam, _, err := s.teamRepo.UpsertByExternalID(ctx, mapExternalTeamToDomain(item.AwayTeam))
	if err != nil {
		return false, fmt.Errorf("upsert away team external_id=%d: %w", item.AwayTeam.ExternalID, err)
	}

	row := mapExternalMatchToDomain(item, competitionID, homeTeam.ID, awayTeam.ID, s.now().UTC())
	saved, created, err := s.matchRepo.UpsertByExternalID(ctx, row)
	if err != nil {
		return false, fmt.Errorf("upsert match external_id=%d: %w", item.ExternalID, err)
	}

	// Terminal matches no longer carry an overlay; the final score lives on
	// the base row.
	if match.IsTerminalStatus(row.Status) {
		if err := s.liveScoreRepo.DeleteByMatchID(ctx, saved.ID); err != nil {
			s.logger.WarnContext(ctx, "delete overlay for terminal match failed", "match_id", saved.ID, "error", err)
		}
	}
	return created, nil
}

// SyncLiveScores updates the overlay table for in-play matches. Matches the
// repository does not know yet are skipped; the next fixture sync creates
// the base row.
func (s *SyncService) SyncLiveScores(ctx context.Context) (synclog.Entry, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SyncService.SyncLiveScores")
	defer span.End()

	if err := s.ready(); err != nil {
		return synclog.Entry{}, err
	}

	startedAt := s.now().UTC()
	items, err := s.provider.FetchLiveMatches(ctx)
	if err != nil {
		entry := s.record(ctx, synclog.Entry{
			Type:      synclog.TypeLive,
			Status:    synclog.StatusFailed,
			Message:   abbreviateError(err),
			StartedAt: startedAt,
		})
		return entry, fmt.Errorf("fetch live matches from provider: %w", err)
	}

	var counters syncCounters
	for _, item := range items {
		if item.ExternalID <= 0 {
			continue
		}
		counters.processed++
		if err := s.applyLiveUpdate(ctx, item); err != nil {
			counters.failed++
			s.logger.WarnContext(ctx, "apply live update failed, continuing", "external_id", item.ExternalID, "error", err)
			continue
		}
		counters.updated++
	}

	entry := s.record(ctx, synclog.Entry{
		Type:      synclog.TypeLive,
		Status:    counters.status(),
		Updated:   counters.updated,
		Processed: counters.processed,
		StartedAt: startedAt,
	})
	return entry, nil
}

func (s *SyncService) applyLiveUpdate(ctx context.Context, item ExternalMatch) error {
	row, found, err := s.matchRepo.GetByExternalID(ctx, item.ExternalID)
	if err != nil {
		return fmt.Errorf("lookup match external_id=%d: %w", item.ExternalID, err)
	}
	if !found {
		s.logger.DebugContext(ctx, "skip live update for unknown match", "external_id", item.ExternalID)
		return nil
	}

	status := match.NormalizeStatus(item.Status)
	if match.IsTerminalStatus(status) {
		if err := s.matchRepo.Finalize(ctx, row.ID, status, item.HomeScore, item.AwayScore); err != nil {
			return fmt.Errorf("finalize match id=%d: %w", row.ID, err)
		}
		if err := s.liveScoreRepo.DeleteByMatchID(ctx, row.ID); err != nil {
			return fmt.Errorf("delete overlay match_id=%d: %w", row.ID, err)
		}
		return nil
	}

	overlay := match.LiveScore{
		MatchID:     row.ID,
		HomeScore:   item.HomeScore,
		AwayScore:   item.AwayScore,
		Status:      status,
		MatchMinute: item.Minute,
		UpdatedAt:   s.now().UTC(),
	}
	if err := s.liveScoreRepo.Upsert(ctx, overlay); err != nil {
		return fmt.Errorf("upsert overlay match_id=%d: %w", row.ID, err)
	}
	return nil
}

// FullResync refreshes the catalog, fans fixture syncs out over a bounded
// worker pool, one task per sync-enabled competition, and closes with a
// live-score pass so in-play overlays are fresh too.
func (s *SyncService) FullResync(ctx context.Context) (synclog.Entry, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SyncService.FullResync")
	defer span.End()

	if err := s.ready(); err != nil {
		return synclog.Entry{}, err
	}

	startedAt := s.now().UTC()
	if _, err := s.SyncCompetitions(ctx); err != nil {
		return synclog.Entry{}, err
	}

	competitions, err := s.competitionRepo.ListSyncable(ctx)
	if err != nil {
		return synclog.Entry{}, fmt.Errorf("list syncable competitions: %w", err)
	}

	pool, err := ants.NewPool(s.cfg.Workers)
	if err != nil {
		return synclog.Entry{}, fmt.Errorf("create resync worker pool: %w", err)
	}
	defer pool.Release()

	from, to := s.fixtureWindow(0)

	var mu sync.Mutex
	var counters syncCounters
	var wg sync.WaitGroup

	for _, comp := range competitions {
		comp := comp
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			var local syncCounters
			err := s.syncCompetitionMatches(ctx, comp, from, to, &local)
			mu.Lock()
			defer mu.Unlock()
			counters.created += local.created
			counters.updated += local.updated
			counters.processed += local.processed
			counters.failed += local.failed
			if err != nil {
				counters.failed++
				counters.processed++
				s.logger.WarnContext(ctx, "resync failed for competition, continuing",
					"competition_id", comp.ID,
					"error", err,
				)
			}
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			counters.failed++
			counters.processed++
			mu.Unlock()
			s.logger.WarnContext(ctx, "submit resync task failed", "competition_id", comp.ID, "error", submitErr)
		}
	}
	wg.Wait()

	if live, err := s.SyncLiveScores(ctx); err != nil {
		counters.failed++
		counters.processed++
		s.logger.WarnContext(ctx, "live pass failed during full resync, continuing", "error", err)
	} else {
		counters.updated += live.Updated
		counters.processed += live.Processed
	}

	entry := s.record(ctx, synclog.Entry{
		Type:      synclog.TypeFull,
		Status:    counters.status(),
		Created:   counters.created,
		Updated:   counters.updated,
		Processed: counters.processed,
		StartedAt: startedAt,
	})
	return entry, nil
}

// PruneSyncLogs drops run history older than the retention window.
func (s *SyncService) PruneSyncLogs(ctx context.Context, retention time.Duration) (int64, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SyncService.PruneSyncLogs")
	defer span.End()

	if retention <= 0 {
		return 0, fmt.Errorf("%w: retention must be > 0", ErrInvalidInput)
	}
	removed, err := s.syncLogRepo.PruneOlderThan(ctx, s.now().UTC().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("prune sync logs: %w", err)
	}
	return removed, nil
}

// ListSyncLogs exposes run history for the admin surface.
func (s *SyncService) ListSyncLogs(ctx context.Context, syncType string, limit int) ([]synclog.Entry, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SyncService.ListSyncLogs")
	defer span.End()

	if limit <= 0 || limit > 200 {
		limit = 50
	}
	items, err := s.syncLogRepo.List(ctx, strings.TrimSpace(syncType), limit)
	if err != nil {
		return nil, fmt.Errorf("list sync logs: %w", err)
	}
	return items, nil
}

func (s *SyncService) ready() error {
	if !s.cfg.Enabled {
		return fmt.Errorf("%w: match data sync is disabled (FOOTBALL_DATA_ENABLED=false)", ErrDependencyUnavailable)
	}
	if s.provider == nil || s.competitionRepo == nil || s.teamRepo == nil || s.matchRepo == nil || s.liveScoreRepo == nil || s.syncLogRepo == nil {
		return fmt.Errorf("%w: match data sync is not fully configured", ErrDependencyUnavailable)
	}
	return nil
}

func (s *SyncService) record(ctx context.Context, entry synclog.Entry) synclog.Entry {
	entry.FinishedAt = s.now().UTC()
	saved, err := s.syncLogRepo.Append(ctx, entry)
	if err != nil {
		s.logger.ErrorContext(ctx, "append sync log failed", "type", entry.Type, "error", err)
		return entry
	}
	s.logger.InfoContext(ctx, "sync run recorded",
		"type", saved.Type,
		"status", saved.Status,
		"created", saved.Created,
		"updated", saved.Updated,
		"processed", saved.Processed,
		"duration_ms", saved.Duration().Milliseconds(),
	)
	return saved
}

func mapExternalCompetitionToDomain(item ExternalCompetition) competition.Competition {
	return competition.Competition{
		ExternalID: item.ExternalID,
		Name:       strings.TrimSpace(item.Name),
		Country:    strings.TrimSpace(item.Country),
		Code:       strings.TrimSpace(item.Code),
		LogoURL:    strings.TrimSpace(item.LogoURL),
	}
}

func mapExternalTeamToDomain(item ExternalTeam) team.Team {
	return team.Team{
		ExternalID: item.ExternalID,
		Name:       strings.TrimSpace(item.Name),
		LogoURL:    strings.TrimSpace(item.LogoURL),
	}
}

func mapExternalMatchToDomain(item ExternalMatch, competitionID, homeTeamID, awayTeamID int64, now time.Time) match.Match {
	return match.Match{
		ExternalID:    item.ExternalID,
		CompetitionID: competitionID,
		HomeTeamID:    homeTeamID,
		AwayTeamID:    awayTeamID,
		MatchDate:     item.KickoffAt.UTC(),
		Status:        match.NormalizeStatus(item.Status),
		HomeScore:     item.HomeScore,
		AwayScore:     item.AwayScore,
		MatchMinute:   item.Minute,
		Venue:         strings.TrimSpace(item.Venue),
		Referee:       strings.TrimSpace(item.Referee),
		Attendance:    item.Attendance,
		LastUpdated:   now,
	}
}

func abbreviateError(err error) string {
	if err == nil {
		return ""
	}
	text := err.Error()
	if len(text) <= 500 {
		return text
	}
	return text[:500] + "..."
}
