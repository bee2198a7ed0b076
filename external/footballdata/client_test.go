package footballdata

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/danuandrian/matchvote/internal/platform/logging"
	"github.com/danuandrian/matchvote/internal/platform/resilience"
	"github.com/danuandrian/matchvote/internal/usecase"
)

func newTestClient(t *testing.T, handler http.Handler, maxRetries int) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(ClientConfig{
		BaseURL:    server.URL,
		APIKey:     "test-token",
		Timeout:    2 * time.Second,
		MaxRetries: maxRetries,
		Logger:     logging.NewNop(),
	})
}

func TestClient_FetchCompetitions(t *testing.T) {
	var gotAuth atomic.Value
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/competitions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		gotAuth.Store(r.Header.Get("X-Auth-Token"))
		w.Header().Set("X-Requests-Available-Minute", "9")
		_, _ = w.Write([]byte(`{
			"competitions": [
				{"id": 2021, "name": " Premier League ", "code": "PL", "emblem": "https://crests.example/pl.png", "area": {"name": "England"}},
				{"id": 0, "name": "ignored"}
			]
		}`))
	}), 0)

	items, err := client.FetchCompetitions(t.Context())
	if err != nil {
		t.Fatalf("fetch competitions failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected rows without an id to be skipped, got %d rows", len(items))
	}
	if items[0].ExternalID != 2021 || items[0].Name != "Premier League" || items[0].Country != "England" {
		t.Fatalf("unexpected competition %+v", items[0])
	}
	if auth, _ := gotAuth.Load().(string); auth != "test-token" {
		t.Fatalf("expected auth header, got %q", auth)
	}

	quota := client.QuotaStatus()
	if quota.RequestsMade != 1 || quota.Remaining != 9 {
		t.Fatalf("unexpected quota %+v", quota)
	}
	if quota.LastRequest == nil {
		t.Fatal("expected last request timestamp")
	}
}

func TestClient_FetchMatches(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/competitions/2021/matches" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Get("dateFrom") != "2026-08-23" || r.URL.Query().Get("dateTo") != "2026-09-06" {
			t.Errorf("unexpected date window %q", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{
			"matches": [
				{
					"id": 9001,
					"utcDate": "2026-08-30T14:00:00Z",
					"status": "TIMED",
					"venue": "Anfield",
					"competition": {"id": 2021},
					"homeTeam": {"id": 64, "name": "Liverpool", "crest": "https://crests.example/64.png"},
					"awayTeam": {"id": 65, "name": "Manchester City"},
					"score": {"fullTime": {"home": null, "away": null}},
					"referees": [{"name": "Michael Oliver"}]
				}
			]
		}`))
	}), 0)

	from := time.Date(2026, 8, 23, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 9, 6, 0, 0, 0, 0, time.UTC)
	items, err := client.FetchMatches(t.Context(), 2021, from, to)
	if err != nil {
		t.Fatalf("fetch matches failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 match, got %d", len(items))
	}

	row := items[0]
	if row.ExternalID != 9001 || row.CompetitionExternalID != 2021 {
		t.Fatalf("unexpected ids %+v", row)
	}
	if row.HomeTeam.ExternalID != 64 || row.HomeTeam.Name != "Liverpool" {
		t.Fatalf("unexpected home team %+v", row.HomeTeam)
	}
	if row.Status != "TIMED" || row.Venue != "Anfield" || row.Referee != "Michael Oliver" {
		t.Fatalf("unexpected metadata %+v", row)
	}
	want := time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC)
	if !row.KickoffAt.Equal(want) {
		t.Fatalf("unexpected kickoff %v", row.KickoffAt)
	}
	if row.HomeScore != nil || row.AwayScore != nil {
		t.Fatalf("expected nil scores before kickoff, got %+v", row)
	}

	if _, err := client.FetchMatches(t.Context(), 0, from, to); err == nil {
		t.Fatal("expected error for missing competition id")
	}
}

func TestClient_FetchLiveMatches_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("status") != "LIVE,IN_PLAY,PAUSED" {
			t.Errorf("unexpected status filter %q", r.URL.RawQuery)
		}
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{
			"matches": [
				{
					"id": 9002,
					"status": "IN_PLAY",
					"minute": 67,
					"competition": {"id": 2021},
					"homeTeam": {"id": 64, "name": "Liverpool"},
					"awayTeam": {"id": 65, "name": "Manchester City"},
					"score": {"fullTime": {"home": 2, "away": 1}}
				}
			]
		}`))
	}), 2)

	items, err := client.FetchLiveMatches(t.Context())
	if err != nil {
		t.Fatalf("fetch live matches failed: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected one retry, got %d calls", got)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 match, got %d", len(items))
	}
	row := items[0]
	if row.HomeScore == nil || *row.HomeScore != 2 || row.Minute == nil || *row.Minute != 67 {
		t.Fatalf("unexpected live row %+v", row)
	}
}

func TestClient_NonRetryableStatusFailsFast(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message": "restricted"}`))
	}), 3)

	if _, err := client.FetchCompetitions(t.Context()); err == nil {
		t.Fatal("expected error for forbidden response")
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected no retries on 403, got %d calls", got)
	}
}

func TestClient_CircuitBreakerShortCircuits(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	client := NewClient(ClientConfig{
		BaseURL: server.URL,
		APIKey:  "test-token",
		Timeout: 2 * time.Second,
		Logger:  logging.NewNop(),
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 1,
			OpenTimeout:      time.Minute,
			HalfOpenMaxReq:   1,
		},
	})

	if _, err := client.FetchCompetitions(t.Context()); err == nil {
		t.Fatal("expected error for failing provider")
	}
	if _, err := client.FetchCompetitions(t.Context()); !errors.Is(err, usecase.ErrDependencyUnavailable) {
		t.Fatalf("expected short circuit, got %v", err)
	}
}
