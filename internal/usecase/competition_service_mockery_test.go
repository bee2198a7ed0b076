package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/danuandrian/matchvote/internal/domain/competition"
	competitionmock "github.com/danuandrian/matchvote/internal/mocks/domain/competition"
	"github.com/danuandrian/matchvote/internal/platform/logging"
	"github.com/stretchr/testify/mock"
)

func TestCompetitionService_List_UsingMockery(t *testing.T) {
	t.Parallel()

	repo := competitionmock.NewRepository(t)
	service := NewCompetitionService(repo, logging.NewNop())

	expected := []competition.Competition{
		{ID: 1, ExternalID: 2021, Name: "Premier League", IsActive: true},
		{ID: 2, ExternalID: 2014, Name: "La Liga"},
	}
	repo.
		On("List", mock.Anything).
		Return(expected, nil).
		Once()

	got, err := service.List(context.Background())
	if err != nil {
		t.Fatalf("list competitions: %v", err)
	}
	if len(got) != len(expected) {
		t.Fatalf("unexpected competition count: got=%d want=%d", len(got), len(expected))
	}
	if got[0].Name != expected[0].Name {
		t.Fatalf("unexpected competition name: got=%s want=%s", got[0].Name, expected[0].Name)
	}
}

func TestCompetitionService_SetFlags_UsingMockery(t *testing.T) {
	t.Parallel()

	repo := competitionmock.NewRepository(t)
	service := NewCompetitionService(repo, logging.NewNop())

	repo.
		On("GetByID", mock.Anything, int64(7)).
		Return(competition.Competition{ID: 7, ExternalID: 2021}, true, nil).
		Once()
	repo.
		On("SetFlags", mock.Anything, int64(7), true, false).
		Return(nil).
		Once()

	if err := service.SetFlags(context.Background(), 7, true, false); err != nil {
		t.Fatalf("set competition flags: %v", err)
	}
}

func TestCompetitionService_SetFlags_NotFoundUsingMockery(t *testing.T) {
	t.Parallel()

	repo := competitionmock.NewRepository(t)
	service := NewCompetitionService(repo, logging.NewNop())

	repo.
		On("GetByID", mock.Anything, int64(99)).
		Return(competition.Competition{}, false, nil).
		Once()

	err := service.SetFlags(context.Background(), 99, true, true)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
