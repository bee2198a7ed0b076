package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/danuandrian/matchvote/internal/domain/match"
	"github.com/danuandrian/matchvote/internal/infrastructure/repository/memory"
	"github.com/danuandrian/matchvote/internal/platform/logging"
	"github.com/danuandrian/matchvote/internal/usecase"
)

const testJobToken = "test-job-token"

type routerFixture struct {
	router  http.Handler
	matchID int64
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()

	matchRepo := memory.NewMatchRepository()
	liveRepo := memory.NewLiveScoreRepository()
	optionRepo := memory.NewVoteOptionRepository(memory.SeedVoteOptions())
	voteRepo := memory.NewVoteRepository(optionRepo)
	categoryRepo := memory.NewVoteCategoryRepository(memory.SeedVoteCategories(), optionRepo, voteRepo)
	competitionRepo := memory.NewCompetitionRepository()

	logger := logging.NewNop()
	matchService := usecase.NewMatchService(matchRepo, liveRepo, voteRepo, logger)
	voteService := usecase.NewVoteService(matchRepo, categoryRepo, optionRepo, voteRepo, usecase.VoteChangePolicy{}, logger)
	competitionService := usecase.NewCompetitionService(competitionRepo, logger)

	handler := NewHandler(matchService, voteService, competitionService, nil, nil, nil, 0, logger)

	row, _, err := matchRepo.UpsertByExternalID(t.Context(), match.Match{
		ExternalID: 701, CompetitionID: 1, HomeTeamID: 1, AwayTeamID: 2,
		HomeTeamName: "Arsenal", AwayTeamName: "Chelsea",
		MatchDate: time.Date(2026, 8, 30, 17, 30, 0, 0, time.UTC),
		Status:    match.StatusScheduled,
	})
	if err != nil {
		t.Fatalf("seed match failed: %v", err)
	}

	return &routerFixture{
		router:  NewRouter(handler, logger, nil, testJobToken),
		matchID: row.ID,
	}
}

func (f *routerFixture) do(t *testing.T, method, path, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	if err := sonic.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response body: %v", err)
	}
	return body
}

func TestRouter_Healthz(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(t, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
}

func TestRouter_GetMatch(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(t, http.MethodGet, "/v1/matches/1", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeEnvelope(t, rec)
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object, got %v", body)
	}
	if got, _ := data["homeTeamName"].(string); got != "Arsenal" {
		t.Fatalf("unexpected home team %q", got)
	}
	if got, _ := data["status"].(string); got != "scheduled" {
		t.Fatalf("unexpected status %q", got)
	}

	rec = f.do(t, http.MethodGet, "/v1/matches/999", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
	rec = f.do(t, http.MethodGet, "/v1/matches/not-a-number", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestRouter_ListMatches_Search(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(t, http.MethodGet, "/v1/matches?search=arse", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeEnvelope(t, rec)
	items, ok := body["data"].([]any)
	if !ok || len(items) != 1 {
		t.Fatalf("expected the Arsenal match, got %v", body["data"])
	}

	rec = f.do(t, http.MethodGet, "/v1/matches?search=liverpool", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body = decodeEnvelope(t, rec)
	if items, ok := body["data"].([]any); !ok || len(items) != 0 {
		t.Fatalf("expected no matches, got %v", body["data"])
	}
}

func TestRouter_CastVoteFlow(t *testing.T) {
	f := newRouterFixture(t)
	header := http.Header{"X-Browser-Id": []string{"browser-1"}}

	rec := f.do(t, http.MethodPost, "/v1/matches/1/votes",
		`{"categoryId": 1, "optionId": 1, "surface": "homepage"}`, header)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeEnvelope(t, rec)
	data, _ := body["data"].(map[string]any)
	voteObj, _ := data["vote"].(map[string]any)
	if got, _ := voteObj["optionId"].(float64); got != 1 {
		t.Fatalf("unexpected option id %v", voteObj["optionId"])
	}

	// Same ballot again conflicts while vote changes are disabled.
	rec = f.do(t, http.MethodPost, "/v1/matches/1/votes",
		`{"categoryId": 1, "optionId": 1, "surface": "homepage"}`, header)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodGet, "/v1/matches/1/votes?surface=homepage", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodGet, "/v1/matches/1/votes/me?category_id=1&surface=homepage", "", header)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body = decodeEnvelope(t, rec)
	ballot, _ := body["data"].(map[string]any)
	if got, _ := ballot["optionId"].(float64); got != 1 {
		t.Fatalf("unexpected ballot %v", body["data"])
	}
}

func TestRouter_CastVote_RejectsBadPayload(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/matches/1/votes", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for empty body, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodPost, "/v1/matches/1/votes",
		`{"categoryId": 1, "optionId": 1, "surface": "sidebar", "browserId": "b-1"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for unknown surface, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodPost, "/v1/matches/1/votes",
		`{"categoryId": 1, "optionId": 1, "surface": "homepage", "browserId": "b-1", "bogus": true}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for unknown field, got %d", rec.Code)
	}
}

func TestRouter_AdminRequiresToken(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(t, http.MethodGet, "/v1/admin/categories", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 without token, got %d", rec.Code)
	}

	header := http.Header{"X-Internal-Job-Token": []string{testJobToken}}
	rec = f.do(t, http.MethodGet, "/v1/admin/categories", "", header)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 with token, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeEnvelope(t, rec)
	items, ok := body["data"].([]any)
	if !ok || len(items) != 4 {
		t.Fatalf("expected 4 seeded categories, got %v", body["data"])
	}
}

func TestRouter_JobsWithoutSyncServiceAreUnavailable(t *testing.T) {
	f := newRouterFixture(t)
	header := http.Header{"X-Internal-Job-Token": []string{testJobToken}}

	rec := f.do(t, http.MethodPost, "/v1/internal/jobs/sync-live", "", header)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_AdminQuotaWithoutProviderIsUnavailable(t *testing.T) {
	f := newRouterFixture(t)
	header := http.Header{"X-Internal-Job-Token": []string{testJobToken}}

	rec := f.do(t, http.MethodGet, "/v1/admin/quota", "", header)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d: %s", rec.Code, rec.Body.String())
	}
}
