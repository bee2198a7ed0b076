package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/danuandrian/matchvote/internal/domain/competition"
	"github.com/danuandrian/matchvote/internal/domain/match"
	"github.com/danuandrian/matchvote/internal/domain/synclog"
	"github.com/danuandrian/matchvote/internal/infrastructure/repository/memory"
	"github.com/danuandrian/matchvote/internal/platform/logging"
)

type stubProvider struct {
	competitions    []ExternalCompetition
	matches         map[int64][]ExternalMatch
	live            []ExternalMatch
	competitionsErr error
	matchesErr      error
	liveErr         error

	lastFrom time.Time
	lastTo   time.Time
}

func (p *stubProvider) FetchCompetitions(_ context.Context) ([]ExternalCompetition, error) {
	return p.competitions, p.competitionsErr
}

func (p *stubProvider) FetchMatches(_ context.Context, competitionExternalID int64, from, to time.Time) ([]ExternalMatch, error) {
	p.lastFrom, p.lastTo = from, to
	if p.matchesErr != nil {
		return nil, p.matchesErr
	}
	return p.matches[competitionExternalID], nil
}

func (p *stubProvider) FetchLiveMatches(_ context.Context) ([]ExternalMatch, error) {
	return p.live, p.liveErr
}

type syncFixture struct {
	provider        *stubProvider
	competitionRepo *memory.CompetitionRepository
	teamRepo        *memory.TeamRepository
	matchRepo       *memory.MatchRepository
	liveScoreRepo   *memory.LiveScoreRepository
	syncLogRepo     *memory.SyncLogRepository
	service         *SyncService
}

func newSyncFixture(t *testing.T, provider *stubProvider) *syncFixture {
	t.Helper()

	f := &syncFixture{
		provider:        provider,
		competitionRepo: memory.NewCompetitionRepository(),
		teamRepo:        memory.NewTeamRepository(),
		matchRepo:       memory.NewMatchRepository(),
		liveScoreRepo:   memory.NewLiveScoreRepository(),
		syncLogRepo:     memory.NewSyncLogRepository(),
	}
	f.service = NewSyncService(
		provider,
		f.competitionRepo,
		f.teamRepo,
		f.matchRepo,
		f.liveScoreRepo,
		f.syncLogRepo,
		SyncConfig{Enabled: true, Workers: 2},
		logging.NewNop(),
	)
	return f
}

func (f *syncFixture) seedSyncableCompetition(t *testing.T, externalID int64, name string) competition.Competition {
	t.Helper()

	comp, _, err := f.competitionRepo.UpsertByExternalID(t.Context(), competition.Competition{
		ExternalID:  externalID,
		Name:        name,
		IsActive:    true,
		SyncEnabled: true,
	})
	if err != nil {
		t.Fatalf("seed competition failed: %v", err)
	}
	return comp
}

func TestSyncService_SyncCompetitions_RecordsRun(t *testing.T) {
	provider := &stubProvider{
		competitions: []ExternalCompetition{
			{ExternalID: 2021, Name: "Premier League", Country: "England", Code: "PL"},
			{ExternalID: 2014, Name: "La Liga", Country: "Spain", Code: "PD"},
			{ExternalID: 0, Name: "bogus"},
			{ExternalID: 9000, Name: "   "},
		},
	}
	f := newSyncFixture(t, provider)

	entry, err := f.service.SyncCompetitions(t.Context())
	if err != nil {
		t.Fatalf("sync competitions failed: %v", err)
	}
	if entry.Type != synclog.TypeCompetitions {
		t.Fatalf("expected type %q, got %q", synclog.TypeCompetitions, entry.Type)
	}
	if entry.Status != synclog.StatusSuccess {
		t.Fatalf("expected status success, got %q", entry.Status)
	}
	if entry.Created != 2 || entry.Processed != 2 {
		t.Fatalf("expected 2 created / 2 processed, got created=%d processed=%d", entry.Created, entry.Processed)
	}

	listed, err := f.competitionRepo.List(t.Context())
	if err != nil {
		t.Fatalf("list competitions failed: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 competitions stored, got %d", len(listed))
	}
	for _, comp := range listed {
		if comp.SyncEnabled {
			t.Fatalf("expected new competition %d to start with sync disabled", comp.ExternalID)
		}
	}

	logs, err := f.syncLogRepo.List(t.Context(), synclog.TypeCompetitions, 10)
	if err != nil {
		t.Fatalf("list sync logs failed: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 recorded run, got %d", len(logs))
	}
}

func TestSyncService_SyncCompetitions_SecondRunUpdates(t *testing.T) {
	provider := &stubProvider{
		competitions: []ExternalCompetition{{ExternalID: 2021, Name: "Premier League"}},
	}
	f := newSyncFixture(t, provider)

	if _, err := f.service.SyncCompetitions(t.Context()); err != nil {
		t.Fatalf("first sync failed: %v", err)
	}

	provider.competitions[0].Name = "Premier League (new)"
	entry, err := f.service.SyncCompetitions(t.Context())
	if err != nil {
		t.Fatalf("second sync failed: %v", err)
	}
	if entry.Created != 0 || entry.Updated != 1 {
		t.Fatalf("expected 0 created / 1 updated, got created=%d updated=%d", entry.Created, entry.Updated)
	}
}

func TestSyncService_Disabled_FailsFast(t *testing.T) {
	f := newSyncFixture(t, &stubProvider{})
	f.service.cfg.Enabled = false

	if _, err := f.service.SyncCompetitions(t.Context()); !errors.Is(err, ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got %v", err)
	}
	if _, err := f.service.SyncMatches(t.Context(), SyncMatchesInput{}); !errors.Is(err, ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got %v", err)
	}
	if _, err := f.service.SyncLiveScores(t.Context()); !errors.Is(err, ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got %v", err)
	}
}

func TestSyncService_SyncCompetitions_ProviderFailure(t *testing.T) {
	provider := &stubProvider{competitionsErr: errors.New("upstream down")}
	f := newSyncFixture(t, provider)

	entry, err := f.service.SyncCompetitions(t.Context())
	if err == nil {
		t.Fatal("expected provider error to surface")
	}
	if entry.Status != synclog.StatusFailed {
		t.Fatalf("expected failed run recorded, got %q", entry.Status)
	}
	if entry.Message == "" {
		t.Fatal("expected failure message on the run entry")
	}
}

func TestSyncService_SyncMatches_UpsertsTeamsAndMatches(t *testing.T) {
	kickoff := time.Date(2026, 8, 29, 19, 30, 0, 0, time.UTC)
	provider := &stubProvider{
		matches: map[int64][]ExternalMatch{
			2021: {
				{
					ExternalID: 501,
					HomeTeam:   ExternalTeam{ExternalID: 61, Name: "Chelsea"},
					AwayTeam:   ExternalTeam{ExternalID: 64, Name: "Liverpool"},
					KickoffAt:  kickoff,
					Status:     "timed",
					Venue:      "Stamford Bridge",
				},
				{
					ExternalID: 502,
					HomeTeam:   ExternalTeam{ExternalID: 64, Name: "Liverpool"},
					AwayTeam:   ExternalTeam{ExternalID: 61, Name: "Chelsea"},
					KickoffAt:  kickoff.Add(24 * time.Hour),
					Status:     "scheduled",
				},
			},
		},
	}
	f := newSyncFixture(t, provider)
	f.seedSyncableCompetition(t, 2021, "Premier League")

	entry, err := f.service.SyncMatches(t.Context(), SyncMatchesInput{})
	if err != nil {
		t.Fatalf("sync matches failed: %v", err)
	}
	if entry.Type != synclog.TypeMatches {
		t.Fatalf("expected type %q, got %q", synclog.TypeMatches, entry.Type)
	}
	if entry.Created != 2 || entry.Processed != 2 || entry.Status != synclog.StatusSuccess {
		t.Fatalf("unexpected run entry: %+v", entry)
	}

	// A second identical run only updates the rows it already knows.
	entry, err = f.service.SyncMatches(t.Context(), SyncMatchesInput{})
	if err != nil {
		t.Fatalf("second sync matches failed: %v", err)
	}
	if entry.Created != 0 || entry.Updated != 2 {
		t.Fatalf("expected 0 created / 2 updated on rerun, got created=%d updated=%d", entry.Created, entry.Updated)
	}

	row, found, err := f.matchRepo.GetByExternalID(t.Context(), 501)
	if err != nil || !found {
		t.Fatalf("expected match 501 stored, found=%t err=%v", found, err)
	}
	if row.Status != match.StatusScheduled {
		t.Fatalf("expected status normalized to scheduled, got %q", row.Status)
	}
	if row.HomeTeamID == 0 || row.AwayTeamID == 0 || row.HomeTeamID == row.AwayTeamID {
		t.Fatalf("expected distinct team ids, got home=%d away=%d", row.HomeTeamID, row.AwayTeamID)
	}

	comps, err := f.competitionRepo.ListSyncable(t.Context())
	if err != nil {
		t.Fatalf("list syncable failed: %v", err)
	}
	if comps[0].LastSyncedAt == nil {
		t.Fatal("expected last synced timestamp to be touched")
	}
}

func TestSyncService_SyncMatches_PartialFailure(t *testing.T) {
	provider := &stubProvider{
		matches: map[int64][]ExternalMatch{
			2021: {
				{
					ExternalID: 501,
					HomeTeam:   ExternalTeam{ExternalID: 61, Name: "Chelsea"},
					AwayTeam:   ExternalTeam{ExternalID: 64, Name: "Liverpool"},
					Status:     "timed",
				},
			},
		},
		matchesErr: nil,
	}
	f := newSyncFixture(t, provider)
	f.seedSyncableCompetition(t, 2021, "Premier League")
	f.seedSyncableCompetition(t, 2014, "La Liga")

	// The second competition has no fixture list; an empty window is fine
	// and does not fail the run.
	entry, err := f.service.SyncMatches(t.Context(), SyncMatchesInput{})
	if err != nil {
		t.Fatalf("sync matches failed: %v", err)
	}
	if entry.Status != synclog.StatusSuccess || entry.Created != 1 {
		t.Fatalf("unexpected run entry: %+v", entry)
	}

	// Now make every fetch fail: the run is recorded as failed per
	// competition but the call itself does not error.
	provider.matchesErr = errors.New("quota exceeded")
	entry, err = f.service.SyncMatches(t.Context(), SyncMatchesInput{})
	if err != nil {
		t.Fatalf("sync matches with failing provider errored: %v", err)
	}
	if entry.Status != synclog.StatusFailed {
		t.Fatalf("expected failed status, got %q", entry.Status)
	}
	if entry.Processed != 2 {
		t.Fatalf("expected both competitions counted, got %d", entry.Processed)
	}
}

func TestSyncService_SyncMatches_NarrowedRun(t *testing.T) {
	provider := &stubProvider{
		matches: map[int64][]ExternalMatch{
			2021: {{
				ExternalID: 501,
				HomeTeam:   ExternalTeam{ExternalID: 61, Name: "Chelsea"},
				AwayTeam:   ExternalTeam{ExternalID: 64, Name: "Liverpool"},
				Status:     "timed",
			}},
			2014: {{
				ExternalID: 601,
				HomeTeam:   ExternalTeam{ExternalID: 81, Name: "Barcelona"},
				AwayTeam:   ExternalTeam{ExternalID: 86, Name: "Real Madrid"},
				Status:     "timed",
			}},
		},
	}
	f := newSyncFixture(t, provider)
	premier := f.seedSyncableCompetition(t, 2021, "Premier League")
	f.seedSyncableCompetition(t, 2014, "La Liga")

	entry, err := f.service.SyncMatches(t.Context(), SyncMatchesInput{
		CompetitionIDs: []int64{premier.ID},
		Window:         48 * time.Hour,
	})
	if err != nil {
		t.Fatalf("narrowed sync failed: %v", err)
	}
	if entry.Created != 1 {
		t.Fatalf("expected only the requested competition synced, got created=%d", entry.Created)
	}
	if _, found, _ := f.matchRepo.GetByExternalID(t.Context(), 601); found {
		t.Fatal("expected the excluded competition untouched")
	}

	// The window override replaces the future bound; the configured past
	// bound (7 days by default) stays.
	span := provider.lastTo.Sub(provider.lastFrom)
	if span != 7*24*time.Hour+48*time.Hour {
		t.Fatalf("expected a 7d+48h fetch window, got span %s", span)
	}
}

func TestSyncService_SyncLiveScores_OverlayAndFinalize(t *testing.T) {
	f := newSyncFixture(t, &stubProvider{})

	liveRow, _, err := f.matchRepo.UpsertByExternalID(t.Context(), match.Match{
		ExternalID: 501, CompetitionID: 1, HomeTeamID: 1, AwayTeamID: 2,
		MatchDate: time.Date(2026, 8, 30, 15, 0, 0, 0, time.UTC),
		Status:    match.StatusLive,
	})
	if err != nil {
		t.Fatalf("seed live match failed: %v", err)
	}
	endingRow, _, err := f.matchRepo.UpsertByExternalID(t.Context(), match.Match{
		ExternalID: 502, CompetitionID: 1, HomeTeamID: 2, AwayTeamID: 1,
		MatchDate: time.Date(2026, 8, 30, 13, 0, 0, 0, time.UTC),
		Status:    match.StatusLive,
	})
	if err != nil {
		t.Fatalf("seed ending match failed: %v", err)
	}

	one, two, minute := 1, 2, 67
	f.provider.live = []ExternalMatch{
		{ExternalID: 501, Status: "in_play", HomeScore: &one, AwayScore: &one, Minute: &minute},
		{ExternalID: 502, Status: "full_time", HomeScore: &two, AwayScore: &one},
		{ExternalID: 999, Status: "in_play"},
	}

	entry, err := f.service.SyncLiveScores(t.Context())
	if err != nil {
		t.Fatalf("sync live scores failed: %v", err)
	}
	if entry.Type != synclog.TypeLive || entry.Status != synclog.StatusSuccess {
		t.Fatalf("unexpected run entry: %+v", entry)
	}

	overlay, found, err := f.liveScoreRepo.GetByMatchID(t.Context(), liveRow.ID)
	if err != nil || !found {
		t.Fatalf("expected overlay for live match, found=%t err=%v", found, err)
	}
	if overlay.Status != match.StatusLive || *overlay.HomeScore != 1 || *overlay.MatchMinute != 67 {
		t.Fatalf("unexpected overlay: %+v", overlay)
	}

	finished, _, err := f.matchRepo.GetByID(t.Context(), endingRow.ID)
	if err != nil {
		t.Fatalf("get finished match failed: %v", err)
	}
	if finished.Status != match.StatusFinished {
		t.Fatalf("expected finished status, got %q", finished.Status)
	}
	if finished.HomeScore == nil || *finished.HomeScore != 2 || finished.AwayScore == nil || *finished.AwayScore != 1 {
		t.Fatalf("expected final score 2-1 on base row, got %+v", finished)
	}
	if _, found, _ := f.liveScoreRepo.GetByMatchID(t.Context(), endingRow.ID); found {
		t.Fatal("expected overlay removed for finished match")
	}
}

func TestSyncService_FullResync_FansOut(t *testing.T) {
	kickoff := time.Date(2026, 8, 29, 19, 30, 0, 0, time.UTC)
	provider := &stubProvider{
		competitions: []ExternalCompetition{
			{ExternalID: 2021, Name: "Premier League"},
		},
		matches: map[int64][]ExternalMatch{
			2021: {{
				ExternalID: 501,
				HomeTeam:   ExternalTeam{ExternalID: 61, Name: "Chelsea"},
				AwayTeam:   ExternalTeam{ExternalID: 64, Name: "Liverpool"},
				KickoffAt:  kickoff,
				Status:     "timed",
			}},
			2014: {{
				ExternalID: 601,
				HomeTeam:   ExternalTeam{ExternalID: 81, Name: "Barcelona"},
				AwayTeam:   ExternalTeam{ExternalID: 86, Name: "Real Madrid"},
				KickoffAt:  kickoff,
				Status:     "timed",
			}},
		},
	}
	one, minute := 1, 30
	provider.live = []ExternalMatch{
		{ExternalID: 501, Status: "in_play", HomeScore: &one, AwayScore: &one, Minute: &minute},
	}
	f := newSyncFixture(t, provider)
	f.seedSyncableCompetition(t, 2021, "Premier League")
	f.seedSyncableCompetition(t, 2014, "La Liga")

	entry, err := f.service.FullResync(t.Context())
	if err != nil {
		t.Fatalf("full resync failed: %v", err)
	}
	if entry.Type != synclog.TypeFull || entry.Status != synclog.StatusSuccess {
		t.Fatalf("unexpected run entry: %+v", entry)
	}
	if entry.Created != 2 {
		t.Fatalf("expected 2 matches created across competitions, got %d", entry.Created)
	}

	// The closing live pass ran against the rows the fixture sync created.
	row, found, err := f.matchRepo.GetByExternalID(t.Context(), 501)
	if err != nil || !found {
		t.Fatalf("expected match 501 stored, found=%t err=%v", found, err)
	}
	overlay, found, err := f.liveScoreRepo.GetByMatchID(t.Context(), row.ID)
	if err != nil || !found {
		t.Fatalf("expected overlay from the live pass, found=%t err=%v", found, err)
	}
	if overlay.MatchMinute == nil || *overlay.MatchMinute != 30 {
		t.Fatalf("unexpected overlay: %+v", overlay)
	}

	logs, err := f.syncLogRepo.List(t.Context(), synclog.TypeLive, 10)
	if err != nil {
		t.Fatalf("list live runs failed: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected the live pass recorded, got %d runs", len(logs))
	}
}

func TestSyncService_PruneSyncLogs(t *testing.T) {
	f := newSyncFixture(t, &stubProvider{})

	now := time.Now().UTC()
	for _, age := range []time.Duration{time.Hour, 48 * time.Hour, 900 * time.Hour} {
		_, err := f.syncLogRepo.Append(t.Context(), synclog.Entry{
			Type:       synclog.TypeLive,
			Status:     synclog.StatusSuccess,
			StartedAt:  now.Add(-age),
			FinishedAt: now.Add(-age).Add(time.Second),
		})
		if err != nil {
			t.Fatalf("append sync log failed: %v", err)
		}
	}

	removed, err := f.service.PruneSyncLogs(t.Context(), 720*time.Hour)
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 pruned entry, got %d", removed)
	}

	if _, err := f.service.PruneSyncLogs(t.Context(), 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for zero retention, got %v", err)
	}
}
