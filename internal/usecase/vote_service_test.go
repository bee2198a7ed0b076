package usecase

import (
	"errors"
	"testing"
	"time"

	"github.com/danuandrian/matchvote/internal/domain/match"
	"github.com/danuandrian/matchvote/internal/domain/vote"
	"github.com/danuandrian/matchvote/internal/infrastructure/repository/memory"
	"github.com/danuandrian/matchvote/internal/platform/logging"
)

type voteFixture struct {
	matchRepo    *memory.MatchRepository
	categoryRepo *memory.VoteCategoryRepository
	optionRepo   *memory.VoteOptionRepository
	voteRepo     *memory.VoteRepository
	service      *VoteService
	matchID      int64
}

func newVoteFixture(t *testing.T, policy VoteChangePolicy) *voteFixture {
	t.Helper()

	f := &voteFixture{
		matchRepo:  memory.NewMatchRepository(),
		optionRepo: memory.NewVoteOptionRepository(memory.SeedVoteOptions()),
	}
	f.voteRepo = memory.NewVoteRepository(f.optionRepo)
	f.categoryRepo = memory.NewVoteCategoryRepository(memory.SeedVoteCategories(), f.optionRepo, f.voteRepo)
	f.service = NewVoteService(f.matchRepo, f.categoryRepo, f.optionRepo, f.voteRepo, policy, logging.NewNop())

	row, _, err := f.matchRepo.UpsertByExternalID(t.Context(), match.Match{
		ExternalID: 501, CompetitionID: 1, HomeTeamID: 1, AwayTeamID: 2,
		MatchDate: time.Date(2026, 8, 30, 15, 0, 0, 0, time.UTC),
		Status:    match.StatusScheduled,
	})
	if err != nil {
		t.Fatalf("seed match failed: %v", err)
	}
	f.matchID = row.ID
	return f
}

func (f *voteFixture) cast(t *testing.T, optionID int64, voter vote.VoterIdentity, surface string) (CastVoteResult, error) {
	t.Helper()
	return f.service.Cast(t.Context(), CastVoteInput{
		MatchID:    f.matchID,
		CategoryID: memory.CategoryIDMatchWinner,
		OptionID:   optionID,
		Voter:      voter,
		Surface:    surface,
	})
}

func TestVoteService_Cast_OnePerVoterAndSurface(t *testing.T) {
	f := newVoteFixture(t, VoteChangePolicy{})
	guest := vote.VoterIdentity{BrowserID: "b-123"}

	result, err := f.cast(t, 1, guest, vote.SurfaceHomepage)
	if err != nil {
		t.Fatalf("first cast failed: %v", err)
	}
	if result.Replaced {
		t.Fatal("first cast should not be a replacement")
	}
	if result.Vote.VoterKey != "guest:b-123" {
		t.Fatalf("unexpected voter key %q", result.Vote.VoterKey)
	}
	if result.Results.TotalVotes != 1 {
		t.Fatalf("expected tally of 1 after cast, got %d", result.Results.TotalVotes)
	}

	// Same voter, same surface, same option: rejected.
	if _, err := f.cast(t, 1, guest, vote.SurfaceHomepage); !errors.Is(err, vote.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	// Same voter on the other surface is a separate ballot.
	if _, err := f.cast(t, 1, guest, vote.SurfaceDetails); err != nil {
		t.Fatalf("cast on details surface failed: %v", err)
	}

	// A user never collides with a guest.
	if _, err := f.cast(t, 2, vote.VoterIdentity{UserID: 42}, vote.SurfaceHomepage); err != nil {
		t.Fatalf("user cast failed: %v", err)
	}
}

func TestVoteService_Cast_ChangePolicy(t *testing.T) {
	f := newVoteFixture(t, VoteChangePolicy{})
	guest := vote.VoterIdentity{BrowserID: "b-123"}

	if _, err := f.cast(t, 1, guest, vote.SurfaceHomepage); err != nil {
		t.Fatalf("first cast failed: %v", err)
	}
	if _, err := f.cast(t, 2, guest, vote.SurfaceHomepage); !errors.Is(err, vote.ErrChangeNotAllowed) {
		t.Fatalf("expected ErrChangeNotAllowed with change disabled, got %v", err)
	}

	allowed := newVoteFixture(t, VoteChangePolicy{Allowed: true, Homepage: true, Details: true})
	if _, err := allowed.cast(t, 1, guest, vote.SurfaceHomepage); err != nil {
		t.Fatalf("first cast failed: %v", err)
	}
	result, err := allowed.cast(t, 2, guest, vote.SurfaceHomepage)
	if err != nil {
		t.Fatalf("replacement cast failed: %v", err)
	}
	if !result.Replaced {
		t.Fatal("expected replacement")
	}
	if result.Vote.OptionID != 2 {
		t.Fatalf("expected ballot moved to option 2, got %d", result.Vote.OptionID)
	}

	// The denormalized counters moved with the ballot.
	old, _, err := allowed.optionRepo.GetByID(t.Context(), 1)
	if err != nil {
		t.Fatalf("get old option failed: %v", err)
	}
	if old.VotesCount != 0 {
		t.Fatalf("expected old option counter back at 0, got %d", old.VotesCount)
	}
	current, _, err := allowed.optionRepo.GetByID(t.Context(), 2)
	if err != nil {
		t.Fatalf("get new option failed: %v", err)
	}
	if current.VotesCount != 1 {
		t.Fatalf("expected new option counter at 1, got %d", current.VotesCount)
	}
}

func TestVoteService_Cast_SurfaceGating(t *testing.T) {
	f := newVoteFixture(t, VoteChangePolicy{})

	// Option 4 is a detailed rating option: only the details surface may
	// carry it.
	_, err := f.service.Cast(t.Context(), CastVoteInput{
		MatchID:    f.matchID,
		CategoryID: memory.CategoryIDMatchRating,
		OptionID:   4,
		Voter:      vote.VoterIdentity{BrowserID: "b-1"},
		Surface:    vote.SurfaceHomepage,
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for detailed option on homepage, got %v", err)
	}

	if _, err := f.service.Cast(t.Context(), CastVoteInput{
		MatchID:    f.matchID,
		CategoryID: memory.CategoryIDMatchRating,
		OptionID:   4,
		Voter:      vote.VoterIdentity{BrowserID: "b-1"},
		Surface:    vote.SurfaceDetails,
	}); err != nil {
		t.Fatalf("detailed option on details surface failed: %v", err)
	}
}

func TestVoteService_Cast_Validation(t *testing.T) {
	f := newVoteFixture(t, VoteChangePolicy{})
	guest := vote.VoterIdentity{BrowserID: "b-1"}

	if _, err := f.service.Cast(t.Context(), CastVoteInput{
		MatchID: f.matchID, CategoryID: memory.CategoryIDMatchWinner, OptionID: 1,
		Voter: vote.VoterIdentity{}, Surface: vote.SurfaceHomepage,
	}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty voter, got %v", err)
	}

	if _, err := f.service.Cast(t.Context(), CastVoteInput{
		MatchID: 9999, CategoryID: memory.CategoryIDMatchWinner, OptionID: 1,
		Voter: guest, Surface: vote.SurfaceHomepage,
	}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown match, got %v", err)
	}

	// Option from another category is rejected.
	if _, err := f.service.Cast(t.Context(), CastVoteInput{
		MatchID: f.matchID, CategoryID: memory.CategoryIDMatchWinner, OptionID: 4,
		Voter: guest, Surface: vote.SurfaceDetails,
	}); !errors.Is(err, vote.ErrOptionNotFound) {
		t.Fatalf("expected ErrOptionNotFound for cross-category option, got %v", err)
	}

	// Cancelled matches do not take ballots.
	cancelled, _, err := f.matchRepo.UpsertByExternalID(t.Context(), match.Match{
		ExternalID: 502, CompetitionID: 1, HomeTeamID: 1, AwayTeamID: 2,
		Status: match.StatusCancelled,
	})
	if err != nil {
		t.Fatalf("seed cancelled match failed: %v", err)
	}
	if _, err := f.service.Cast(t.Context(), CastVoteInput{
		MatchID: cancelled.ID, CategoryID: memory.CategoryIDMatchWinner, OptionID: 1,
		Voter: guest, Surface: vote.SurfaceHomepage,
	}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for cancelled match, got %v", err)
	}
}

func TestVoteService_Results_PercentagesAndSurface(t *testing.T) {
	f := newVoteFixture(t, VoteChangePolicy{})

	for i, optionID := range []int64{1, 1, 1, 2} {
		if _, err := f.cast(t, optionID, vote.VoterIdentity{UserID: int64(i + 1)}, vote.SurfaceHomepage); err != nil {
			t.Fatalf("cast %d failed: %v", i, err)
		}
	}

	results, err := f.service.Results(t.Context(), f.matchID, vote.SurfaceHomepage)
	if err != nil {
		t.Fatalf("results failed: %v", err)
	}

	var winner *vote.CategoryResults
	for i := range results {
		if results[i].Key == "match_winner" {
			winner = &results[i]
		}
		if results[i].Key == "match_rating" && len(results[i].Options) != 0 {
			t.Fatalf("expected detailed options hidden on homepage, got %d", len(results[i].Options))
		}
	}
	if winner == nil {
		t.Fatal("match_winner category missing from results")
	}
	if winner.TotalVotes != 4 {
		t.Fatalf("expected 4 total votes, got %d", winner.TotalVotes)
	}

	byOption := map[int64]vote.OptionResult{}
	for _, row := range winner.Options {
		byOption[row.OptionID] = row
	}
	if byOption[1].Percentage != 75.0 || byOption[2].Percentage != 25.0 || byOption[3].Percentage != 0.0 {
		t.Fatalf("unexpected percentages: %+v", winner.Options)
	}
	if winner.Options[0].OptionID != 1 {
		t.Fatalf("expected highest-voted option first, got %d", winner.Options[0].OptionID)
	}
}

func TestVoteService_VoterBallot(t *testing.T) {
	f := newVoteFixture(t, VoteChangePolicy{})
	guest := vote.VoterIdentity{BrowserID: "b-9"}

	if _, _, err := f.service.VoterBallot(t.Context(), f.matchID, memory.CategoryIDMatchWinner, guest, vote.SurfaceHomepage); err != nil {
		t.Fatalf("ballot lookup before cast errored: %v", err)
	}

	if _, err := f.cast(t, 3, guest, vote.SurfaceHomepage); err != nil {
		t.Fatalf("cast failed: %v", err)
	}

	ballot, found, err := f.service.VoterBallot(t.Context(), f.matchID, memory.CategoryIDMatchWinner, guest, vote.SurfaceHomepage)
	if err != nil {
		t.Fatalf("ballot lookup failed: %v", err)
	}
	if !found || ballot.OptionID != 3 {
		t.Fatalf("expected ballot on option 3, found=%t ballot=%+v", found, ballot)
	}
}

func TestVoteService_CategoryAdmin(t *testing.T) {
	f := newVoteFixture(t, VoteChangePolicy{})

	created, err := f.service.CreateCategory(t.Context(), vote.Category{Key: " Goal Of The Match ", Name: "Goal of the Match", IsActive: true, SortOrder: 5})
	if err != nil {
		t.Fatalf("create category failed: %v", err)
	}
	if created.Key != "goal_of_the_match" {
		t.Fatalf("expected normalized key, got %q", created.Key)
	}

	if _, err := f.service.CreateCategory(t.Context(), vote.Category{Key: "match_winner", Name: "Duplicate"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate key, got %v", err)
	}

	if err := f.service.DeleteCategory(t.Context(), memory.CategoryIDOther); !errors.Is(err, vote.ErrProtectedCategory) {
		t.Fatalf("expected ErrProtectedCategory, got %v", err)
	}

	if err := f.service.UpdateCategory(t.Context(), vote.Category{
		ID: memory.CategoryIDOther, Key: "renamed", Name: "Renamed", IsActive: true,
	}); !errors.Is(err, vote.ErrProtectedCategory) {
		t.Fatalf("expected ErrProtectedCategory on key change, got %v", err)
	}

	// Renaming the protected category without touching the key is fine.
	if err := f.service.UpdateCategory(t.Context(), vote.Category{
		ID: memory.CategoryIDOther, Key: vote.CategoryKeyOther, Name: "Anything Else", IsActive: true, SortOrder: 99,
	}); err != nil {
		t.Fatalf("rename of protected category failed: %v", err)
	}

	if err := f.service.DeleteCategory(t.Context(), created.ID); err != nil {
		t.Fatalf("delete category failed: %v", err)
	}
}

func TestVoteService_CategoryKeyNormalization(t *testing.T) {
	f := newVoteFixture(t, VoteChangePolicy{})

	created, err := f.service.CreateCategory(t.Context(), vote.Category{Key: "Best-Goal!", Name: "Best Goal", IsActive: true})
	if err != nil {
		t.Fatalf("create category failed: %v", err)
	}
	if created.Key != "best_goal" {
		t.Fatalf("expected punctuation folded to underscores, got %q", created.Key)
	}

	// Separator runs collapse instead of stacking underscores.
	collapsed, err := f.service.CreateCategory(t.Context(), vote.Category{Key: "  fan -- favourite  ", Name: "Fan Favourite", IsActive: true})
	if err != nil {
		t.Fatalf("create category failed: %v", err)
	}
	if collapsed.Key != "fan_favourite" {
		t.Fatalf("expected collapsed key, got %q", collapsed.Key)
	}
}

func TestVoteService_DeleteCategory_ReassignsToOther(t *testing.T) {
	f := newVoteFixture(t, VoteChangePolicy{})

	category, err := f.service.CreateCategory(t.Context(), vote.Category{Key: "best_goal", Name: "Best Goal", IsActive: true})
	if err != nil {
		t.Fatalf("create category failed: %v", err)
	}
	option, err := f.service.CreateOption(t.Context(), vote.Option{
		CategoryID: category.ID, Label: "Volley", Kind: vote.OptionBasic, IsActive: true,
	})
	if err != nil {
		t.Fatalf("create option failed: %v", err)
	}
	if _, err := f.service.Cast(t.Context(), CastVoteInput{
		MatchID: f.matchID, CategoryID: category.ID, OptionID: option.ID,
		Voter: vote.VoterIdentity{BrowserID: "b-7"}, Surface: vote.SurfaceHomepage,
	}); err != nil {
		t.Fatalf("cast failed: %v", err)
	}

	if err := f.service.DeleteCategory(t.Context(), category.ID); err != nil {
		t.Fatalf("delete category failed: %v", err)
	}

	moved, found, err := f.optionRepo.GetByID(t.Context(), option.ID)
	if err != nil {
		t.Fatalf("get option failed: %v", err)
	}
	if !found {
		t.Fatalf("option %d gone after category delete, want reassignment", option.ID)
	}
	if moved.CategoryID != memory.CategoryIDOther {
		t.Fatalf("expected option reassigned to category %d, got %d", memory.CategoryIDOther, moved.CategoryID)
	}

	// The ballot follows its option into the fallback category.
	counts, err := f.voteRepo.CountByOption(t.Context(), f.matchID, memory.CategoryIDOther)
	if err != nil {
		t.Fatalf("count votes failed: %v", err)
	}
	if counts[option.ID] != 1 {
		t.Fatalf("expected ballot moved with its option, counts=%v", counts)
	}
}

func TestVoteService_MatchScopedOptions(t *testing.T) {
	f := newVoteFixture(t, VoteChangePolicy{})

	other, _, err := f.matchRepo.UpsertByExternalID(t.Context(), match.Match{
		ExternalID: 503, CompetitionID: 1, HomeTeamID: 3, AwayTeamID: 4,
		MatchDate: time.Date(2026, 8, 31, 18, 0, 0, 0, time.UTC),
		Status:    match.StatusScheduled,
	})
	if err != nil {
		t.Fatalf("seed second match failed: %v", err)
	}

	pinned, err := f.service.CreateOption(t.Context(), vote.Option{
		CategoryID: memory.CategoryIDBestPlayer,
		MatchID:    &other.ID,
		Label:      "Derby Hero",
		Kind:       vote.OptionBasic,
		IsActive:   true,
	})
	if err != nil {
		t.Fatalf("create pinned option failed: %v", err)
	}

	// The pinned option takes no ballots on any other match.
	if _, err := f.service.Cast(t.Context(), CastVoteInput{
		MatchID: f.matchID, CategoryID: memory.CategoryIDBestPlayer, OptionID: pinned.ID,
		Voter: vote.VoterIdentity{BrowserID: "b-1"}, Surface: vote.SurfaceHomepage,
	}); !errors.Is(err, vote.ErrOptionNotFound) {
		t.Fatalf("expected ErrOptionNotFound on the wrong match, got %v", err)
	}

	if _, err := f.service.Cast(t.Context(), CastVoteInput{
		MatchID: other.ID, CategoryID: memory.CategoryIDBestPlayer, OptionID: pinned.ID,
		Voter: vote.VoterIdentity{BrowserID: "b-1"}, Surface: vote.SurfaceHomepage,
	}); err != nil {
		t.Fatalf("cast on the pinned match failed: %v", err)
	}

	// Results only list the option on its own match.
	results, err := f.service.Results(t.Context(), f.matchID, vote.SurfaceHomepage)
	if err != nil {
		t.Fatalf("results failed: %v", err)
	}
	for _, category := range results {
		for _, row := range category.Options {
			if row.OptionID == pinned.ID {
				t.Fatalf("pinned option leaked into match %d results", f.matchID)
			}
		}
	}

	// Creating an option pinned to an unknown match is rejected.
	missing := int64(9999)
	if _, err := f.service.CreateOption(t.Context(), vote.Option{
		CategoryID: memory.CategoryIDBestPlayer, MatchID: &missing,
		Label: "Ghost", Kind: vote.OptionBasic, IsActive: true,
	}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown match, got %v", err)
	}
}

func TestVoteService_OptionAdmin(t *testing.T) {
	f := newVoteFixture(t, VoteChangePolicy{})

	created, err := f.service.CreateOption(t.Context(), vote.Option{
		CategoryID: memory.CategoryIDBestPlayer,
		Label:      "Player of the Match",
		Kind:       vote.OptionDetailed,
		SortOrder:  1,
		IsActive:   true,
	})
	if err != nil {
		t.Fatalf("create option failed: %v", err)
	}

	if _, err := f.service.CreateOption(t.Context(), vote.Option{CategoryID: 9999, Label: "x", Kind: vote.OptionBasic}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown category, got %v", err)
	}
	if _, err := f.service.CreateOption(t.Context(), vote.Option{CategoryID: memory.CategoryIDBestPlayer, Label: "x", Kind: "weird"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown kind, got %v", err)
	}

	// Updates cannot move an option across categories.
	if err := f.service.UpdateOption(t.Context(), vote.Option{
		ID: created.ID, CategoryID: memory.CategoryIDMatchWinner,
		Label: "Renamed", Kind: vote.OptionDetailed, IsActive: true,
	}); err != nil {
		t.Fatalf("update option failed: %v", err)
	}
	updated, _, err := f.optionRepo.GetByID(t.Context(), created.ID)
	if err != nil {
		t.Fatalf("get option failed: %v", err)
	}
	if updated.CategoryID != memory.CategoryIDBestPlayer {
		t.Fatalf("expected category pinned to %d, got %d", memory.CategoryIDBestPlayer, updated.CategoryID)
	}
	if updated.Label != "Renamed" {
		t.Fatalf("expected label updated, got %q", updated.Label)
	}

	if err := f.service.DeleteOption(t.Context(), created.ID); err != nil {
		t.Fatalf("delete option failed: %v", err)
	}
	if err := f.service.DeleteOption(t.Context(), created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double delete, got %v", err)
	}
}
