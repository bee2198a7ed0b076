package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danuandrian/matchvote/external/footballdata"
	"github.com/danuandrian/matchvote/internal/domain/competition"
	"github.com/danuandrian/matchvote/internal/domain/match"
	"github.com/danuandrian/matchvote/internal/platform/logging"
	"github.com/danuandrian/matchvote/internal/usecase"
	"github.com/go-playground/validator/v10"
)

// QuotaReporter surfaces the upstream provider budget on the admin API.
type QuotaReporter interface {
	QuotaStatus() footballdata.Quota
}

type Handler struct {
	matchService       *usecase.MatchService
	voteService        *usecase.VoteService
	competitionService *usecase.CompetitionService
	syncService        *usecase.SyncService
	reconciler         *usecase.ReconcilerService
	quota              QuotaReporter
	syncLogRetention   time.Duration
	logger             *logging.Logger
	validator          *validator.Validate
}

func NewHandler(
	matchService *usecase.MatchService,
	voteService *usecase.VoteService,
	competitionService *usecase.CompetitionService,
	syncService *usecase.SyncService,
	reconciler *usecase.ReconcilerService,
	quota QuotaReporter,
	syncLogRetention time.Duration,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		matchService:       matchService,
		voteService:        voteService,
		competitionService: competitionService,
		syncService:        syncService,
		reconciler:         reconciler,
		quota:              quota,
		syncLogRetention:   syncLogRetention,
		logger:             logger,
		validator:          validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ListCompetitions(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListCompetitions")
	defer span.End()

	competitions, err := h.competitionService.List(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "list competitions failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]competitionDTO, 0, len(competitions))
	for _, c := range competitions {
		items = append(items, competitionToDTO(c))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) ListMatches(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListMatches")
	defer span.End()

	filter, err := parseMatchFilter(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	views, err := h.matchService.List(ctx, filter)
	if err != nil {
		h.logger.WarnContext(ctx, "list matches failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]matchDTO, 0, len(views))
	for _, v := range views {
		items = append(items, matchToDTO(v))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) ListUpcomingMatches(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListUpcomingMatches")
	defer span.End()

	within := time.Duration(0)
	if raw := strings.TrimSpace(r.URL.Query().Get("within")); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			writeError(ctx, w, fmt.Errorf("%w: invalid within duration %q", usecase.ErrInvalidInput, raw))
			return
		}
		within = parsed
	}
	limit, err := parseOptionalInt(r.URL.Query().Get("limit"))
	if err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid limit", usecase.ErrInvalidInput))
		return
	}

	views, err := h.matchService.ListUpcoming(ctx, within, limit)
	if err != nil {
		h.logger.WarnContext(ctx, "list upcoming matches failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]matchDTO, 0, len(views))
	for _, v := range views {
		items = append(items, matchToDTO(v))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) GetMatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetMatch")
	defer span.End()

	matchID, err := parsePathID(r, "matchID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	view, err := h.matchService.GetByID(ctx, matchID)
	if err != nil {
		h.logger.WarnContext(ctx, "get match failed", "match_id", matchID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, matchToDTO(view))
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

func parsePathID(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(r.PathValue(name))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s %q", usecase.ErrInvalidInput, name, raw)
	}
	return id, nil
}

func parseOptionalInt(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func parseMatchFilter(r *http.Request) (match.Filter, error) {
	query := r.URL.Query()
	filter := match.Filter{}

	if raw := strings.TrimSpace(query.Get("competition_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return match.Filter{}, fmt.Errorf("%w: invalid competition_id %q", usecase.ErrInvalidInput, raw)
		}
		filter.CompetitionID = id
	}
	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		for _, status := range strings.Split(raw, ",") {
			status = strings.TrimSpace(status)
			if status == "" {
				continue
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	if raw := strings.TrimSpace(query.Get("date_from")); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return match.Filter{}, fmt.Errorf("%w: invalid date_from %q", usecase.ErrInvalidInput, raw)
		}
		filter.DateFrom = from
	}
	if raw := strings.TrimSpace(query.Get("date_to")); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return match.Filter{}, fmt.Errorf("%w: invalid date_to %q", usecase.ErrInvalidInput, raw)
		}
		filter.DateTo = to
	}
	filter.Search = strings.TrimSpace(query.Get("search"))

	limit, err := parseOptionalInt(query.Get("limit"))
	if err != nil {
		return match.Filter{}, fmt.Errorf("%w: invalid limit", usecase.ErrInvalidInput)
	}
	offset, err := parseOptionalInt(query.Get("offset"))
	if err != nil {
		return match.Filter{}, fmt.Errorf("%w: invalid offset", usecase.ErrInvalidInput)
	}
	filter.Limit = limit
	filter.Offset = offset

	return filter, nil
}

type competitionDTO struct {
	ID           int64  `json:"id"`
	ExternalID   int64  `json:"externalId"`
	Name         string `json:"name"`
	Country      string `json:"country"`
	Code         string `json:"code"`
	LogoURL      string `json:"logoUrl"`
	IsActive     bool   `json:"isActive"`
	SyncEnabled  bool   `json:"syncEnabled"`
	LastSyncedAt string `json:"lastSyncedAt,omitempty"`
}

type matchDTO struct {
	ID            int64  `json:"id"`
	ExternalID    int64  `json:"externalId"`
	CompetitionID int64  `json:"competitionId"`
	HomeTeamID    int64  `json:"homeTeamId"`
	AwayTeamID    int64  `json:"awayTeamId"`
	HomeTeamName  string `json:"homeTeamName"`
	AwayTeamName  string `json:"awayTeamName"`
	MatchDate     string `json:"matchDate,omitempty"`
	Status        string `json:"status"`
	HomeScore     *int   `json:"homeScore"`
	AwayScore     *int   `json:"awayScore"`
	MatchMinute   *int   `json:"matchMinute,omitempty"`
	Venue         string `json:"venue,omitempty"`
	Referee       string `json:"referee,omitempty"`
	Attendance    *int   `json:"attendance,omitempty"`
	LastUpdated   string `json:"lastUpdated"`
}

func competitionToDTO(v competition.Competition) competitionDTO {
	out := competitionDTO{
		ID:          v.ID,
		ExternalID:  v.ExternalID,
		Name:        v.Name,
		Country:     v.Country,
		Code:        v.Code,
		LogoURL:     v.LogoURL,
		IsActive:    v.IsActive,
		SyncEnabled: v.SyncEnabled,
	}
	if v.LastSyncedAt != nil {
		out.LastSyncedAt = v.LastSyncedAt.UTC().Format(time.RFC3339)
	}
	return out
}

// matchToDTO renders the merged view: status, scores, and minute come from
// the overlay-aware scoreboard, the rest from the base row.
func matchToDTO(v usecase.MatchView) matchDTO {
	out := matchDTO{
		ID:            v.Match.ID,
		ExternalID:    v.Match.ExternalID,
		CompetitionID: v.Match.CompetitionID,
		HomeTeamID:    v.Match.HomeTeamID,
		AwayTeamID:    v.Match.AwayTeamID,
		HomeTeamName:  v.Match.HomeTeamName,
		AwayTeamName:  v.Match.AwayTeamName,
		Status:        v.Score.Status,
		HomeScore:     v.Score.HomeScore,
		AwayScore:     v.Score.AwayScore,
		MatchMinute:   v.Score.MatchMinute,
		Venue:         v.Match.Venue,
		Referee:       v.Match.Referee,
		Attendance:    v.Match.Attendance,
		LastUpdated:   v.Match.LastUpdated.UTC().Format(time.RFC3339),
	}
	if !v.Match.MatchDate.IsZero() {
		out.MatchDate = v.Match.MatchDate.UTC().Format(time.RFC3339)
	}
	return out
}
