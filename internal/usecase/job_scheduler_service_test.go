package usecase

import (
	"testing"
	"time"

	"github.com/danuandrian/matchvote/internal/domain/match"
	"github.com/danuandrian/matchvote/internal/domain/synclog"
	"github.com/danuandrian/matchvote/internal/platform/logging"
)

func TestJobScheduler_LiveRun_SweepsStaleBeforeSyncing(t *testing.T) {
	f := newSyncFixture(t, &stubProvider{})
	reconciler := NewReconcilerService(f.matchRepo, f.liveScoreRepo, f.syncLogRepo, 4*time.Hour, logging.NewNop())
	scheduler := NewJobSchedulerService(f.service, reconciler, JobSchedulerConfig{}, logging.NewNop())

	// A live match the provider stopped reporting, well past the stale
	// cutoff.
	stale, _, err := f.matchRepo.UpsertByExternalID(t.Context(), match.Match{
		ExternalID: 501, CompetitionID: 1, HomeTeamID: 1, AwayTeamID: 2,
		MatchDate: time.Now().UTC().Add(-8 * time.Hour),
		Status:    match.StatusLive,
	})
	if err != nil {
		t.Fatalf("seed stale match failed: %v", err)
	}

	scheduler.runLive(t.Context())

	finalized, _, err := f.matchRepo.GetByID(t.Context(), stale.ID)
	if err != nil {
		t.Fatalf("get match failed: %v", err)
	}
	if finalized.Status != match.StatusFinished {
		t.Fatalf("expected stale match finalized before the live pass, got %q", finalized.Status)
	}

	// Both passes recorded a run.
	for _, syncType := range []string{synclog.TypeCleanup, synclog.TypeLive} {
		logs, err := f.syncLogRepo.List(t.Context(), syncType, 10)
		if err != nil {
			t.Fatalf("list %s runs failed: %v", syncType, err)
		}
		if len(logs) != 1 {
			t.Fatalf("expected one %s run, got %d", syncType, len(logs))
		}
	}
}

func TestJobScheduler_MatchesRun_RecordsFixtureSync(t *testing.T) {
	f := newSyncFixture(t, &stubProvider{})
	reconciler := NewReconcilerService(f.matchRepo, f.liveScoreRepo, f.syncLogRepo, 4*time.Hour, logging.NewNop())
	scheduler := NewJobSchedulerService(f.service, reconciler, JobSchedulerConfig{}, logging.NewNop())

	scheduler.runMatches(t.Context())

	logs, err := f.syncLogRepo.List(t.Context(), synclog.TypeMatches, 10)
	if err != nil {
		t.Fatalf("list matches runs failed: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected one matches run, got %d", len(logs))
	}
}
