package footballdata

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"

	"github.com/danuandrian/matchvote/internal/platform/logging"
	"github.com/danuandrian/matchvote/internal/platform/resilience"
	"github.com/danuandrian/matchvote/internal/usecase"
)

const (
	defaultBaseURL   = "https://api.football-data.org/v4"
	authHeader       = "X-Auth-Token"
	quotaHeader      = "X-Requests-Available-Minute"
	liveStatusFilter = "LIVE,IN_PLAY,PAUSED"
	maxResponseBytes = 6 << 20
	providerDateOnly = "2006-01-02"
)

var errFootballDataTransient = crerr.New("football-data transient failure")

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	MaxRetries     int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	maxRetries     int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight

	requestCount    atomic.Int64
	quotaRemaining  atomic.Int64
	lastRequestUnix atomic.Int64
}

// Quota reports how the provider budget is being spent. Remaining comes from
// the provider's per-minute header and is -1 until the first response.
type Quota struct {
	RequestsMade int64      `json:"requestsMade"`
	Remaining    int64      `json:"remaining"`
	LastRequest  *time.Time `json:"lastRequest,omitempty"`
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 15 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	c := &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         strings.TrimSpace(cfg.APIKey),
		maxRetries:     maxInt(cfg.MaxRetries, 0),
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
	c.quotaRemaining.Store(-1)
	return c
}

func (c *Client) FetchCompetitions(ctx context.Context) ([]usecase.ExternalCompetition, error) {
	var envelope competitionsEnvelope
	if err := c.doJSON(ctx, "/competitions", nil, &envelope); err != nil {
		return nil, fmt.Errorf("fetch competitions: %w", err)
	}

	out := make([]usecase.ExternalCompetition, 0, len(envelope.Competitions))
	for _, item := range envelope.Competitions {
		if item.ID <= 0 {
			continue
		}
		out = append(out, usecase.ExternalCompetition{
			ExternalID: item.ID,
			Name:       strings.TrimSpace(item.Name),
			Country:    strings.TrimSpace(item.Area.Name),
			Code:       strings.TrimSpace(item.Code),
			LogoURL:    strings.TrimSpace(item.Emblem),
		})
	}
	return out, nil
}

func (c *Client) FetchMatches(ctx context.Context, competitionExternalID int64, from, to time.Time) ([]usecase.ExternalMatch, error) {
	if competitionExternalID <= 0 {
		return nil, fmt.Errorf("competition external id must be greater than zero")
	}

	path := fmt.Sprintf("/competitions/%d/matches", competitionExternalID)
	query := map[string]string{}
	if !from.IsZero() {
		query["dateFrom"] = from.UTC().Format(providerDateOnly)
	}
	if !to.IsZero() {
		query["dateTo"] = to.UTC().Format(providerDateOnly)
	}

	var envelope matchesEnvelope
	if err := c.doJSON(ctx, path, query, &envelope); err != nil {
		return nil, fmt.Errorf("fetch matches competition=%d: %w", competitionExternalID, err)
	}
	return mapMatchItems(envelope.Matches), nil
}

func (c *Client) FetchLiveMatches(ctx context.Context) ([]usecase.ExternalMatch, error) {
	query := map[string]string{"status": liveStatusFilter}

	var envelope matchesEnvelope
	if err := c.doJSON(ctx, "/matches", query, &envelope); err != nil {
		return nil, fmt.Errorf("fetch live matches: %w", err)
	}
	return mapMatchItems(envelope.Matches), nil
}

// QuotaStatus is a snapshot for the admin surface.
func (c *Client) QuotaStatus() Quota {
	out := Quota{
		RequestsMade: c.requestCount.Load(),
		Remaining:    c.quotaRemaining.Load(),
	}
	if unix := c.lastRequestUnix.Load(); unix > 0 {
		at := time.Unix(unix, 0).UTC()
		out.LastRequest = &at
	}
	return out
}

func (c *Client) doJSON(ctx context.Context, path string, query map[string]string, target any) error {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "football-data circuit breaker rejected request", "state", c.breaker.State())
			return fmt.Errorf("%w: match data provider is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	values := url.Values{}
	for key, value := range query {
		values.Set(key, value)
	}

	fullURL := c.baseURL + path
	if encoded := values.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	key := path + "?" + values.Encode()
	out, err, _ := c.flight.Do(key, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if reqErr != nil && isTransient(reqErr) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		return err
	}

	raw, ok := out.([]byte)
	if !ok {
		return fmt.Errorf("unexpected response payload type %T", out)
	}

	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode provider payload: %w", err)
	}
	return nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("accept", "application/json")
		req.Header.Set(authHeader, c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %s", errFootballDataTransient, sanitizeSensitiveText(err.Error(), c.apiKey))
		} else {
			c.observeResponse(resp)
			raw, readErr := readBody(resp.Body)
			_ = resp.Body.Close()
			if readErr != nil {
				lastErr = fmt.Errorf("%w: read response body: %v", errFootballDataTransient, readErr)
			} else if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return raw, nil
			} else {
				if isRetryableStatus(resp.StatusCode) {
					lastErr = fmt.Errorf("%w: provider status=%d body=%s", errFootballDataTransient, resp.StatusCode, abbreviateBody(raw))
				} else {
					return nil, fmt.Errorf("provider status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
				}
			}
		}

		if attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(attempt+1) * time.Second
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("provider request failed")
	}
	c.logger.WarnContext(ctx, "football-data request failed", "url", fullURL, "error", lastErr)
	return nil, lastErr
}

func (c *Client) observeResponse(resp *http.Response) {
	c.requestCount.Add(1)
	c.lastRequestUnix.Store(time.Now().Unix())
	if raw := strings.TrimSpace(resp.Header.Get(quotaHeader)); raw != "" {
		if remaining, err := strconv.ParseInt(raw, 10, 64); err == nil {
			c.quotaRemaining.Store(remaining)
		}
	}
}

// readBody drains the response through a pooled buffer so hot sync loops do
// not allocate a fresh scratch buffer per request.
func readBody(body io.Reader) ([]byte, error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	if _, err := io.Copy(buf, io.LimitReader(body, maxResponseBytes)); err != nil {
		return nil, err
	}
	out := make([]byte, len(buf.B))
	copy(out, buf.B)
	return out, nil
}

func mapMatchItems(items []matchItem) []usecase.ExternalMatch {
	out := make([]usecase.ExternalMatch, 0, len(items))
	for _, item := range items {
		if item.ID <= 0 {
			continue
		}
		row := usecase.ExternalMatch{
			ExternalID:            item.ID,
			CompetitionExternalID: item.Competition.ID,
			HomeTeam: usecase.ExternalTeam{
				ExternalID: item.HomeTeam.ID,
				Name:       strings.TrimSpace(item.HomeTeam.Name),
				LogoURL:    strings.TrimSpace(item.HomeTeam.Crest),
			},
			AwayTeam: usecase.ExternalTeam{
				ExternalID: item.AwayTeam.ID,
				Name:       strings.TrimSpace(item.AwayTeam.Name),
				LogoURL:    strings.TrimSpace(item.AwayTeam.Crest),
			},
			Status:     strings.TrimSpace(item.Status),
			HomeScore:  item.Score.FullTime.Home,
			AwayScore:  item.Score.FullTime.Away,
			Minute:     item.Minute,
			Venue:      strings.TrimSpace(item.Venue),
			Attendance: item.Attendance,
		}
		if parsed := parseProviderDateTime(item.UTCDate); parsed != nil {
			row.KickoffAt = *parsed
		}
		if len(item.Referees) > 0 {
			row.Referee = strings.TrimSpace(item.Referees[0].Name)
		}
		out = append(out, row)
	}
	return out
}

func parseProviderDateTime(raw string) *time.Time {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil
	}

	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05Z07:00",
		"2006-01-02 15:04:05",
	}
	for _, layout := range layouts {
		parsed, err := time.Parse(layout, value)
		if err == nil {
			v := parsed.UTC()
			return &v
		}
	}
	return nil
}

func sanitizeSensitiveText(value, secret string) string {
	value = strings.TrimSpace(value)
	if value == "" || secret == "" {
		return value
	}
	return strings.ReplaceAll(value, secret, "REDACTED")
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	return stderrors.Is(err, errFootballDataTransient)
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}

func maxInt(left, right int) int {
	if left > right {
		return left
	}
	return right
}

type competitionsEnvelope struct {
	Competitions []competitionItem `json:"competitions"`
}

type competitionItem struct {
	ID     int64    `json:"id"`
	Name   string   `json:"name"`
	Code   string   `json:"code"`
	Emblem string   `json:"emblem"`
	Area   areaItem `json:"area"`
}

type areaItem struct {
	Name string `json:"name"`
}

type matchesEnvelope struct {
	Matches []matchItem `json:"matches"`
}

type matchItem struct {
	ID          int64           `json:"id"`
	UTCDate     string          `json:"utcDate"`
	Status      string          `json:"status"`
	Minute      *int            `json:"minute"`
	Venue       string          `json:"venue"`
	Attendance  *int            `json:"attendance"`
	Competition competitionItem `json:"competition"`
	HomeTeam    teamItem        `json:"homeTeam"`
	AwayTeam    teamItem        `json:"awayTeam"`
	Score       scoreItem       `json:"score"`
	Referees    []refereeItem   `json:"referees"`
}

type teamItem struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Crest string `json:"crest"`
}

type scoreItem struct {
	FullTime scorePair `json:"fullTime"`
}

type scorePair struct {
	Home *int `json:"home"`
	Away *int `json:"away"`
}

type refereeItem struct {
	Name string `json:"name"`
}
