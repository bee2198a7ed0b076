package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/danuandrian/matchvote/internal/domain/synclog"
	"github.com/danuandrian/matchvote/internal/domain/vote"
	"github.com/danuandrian/matchvote/internal/usecase"
)

type categoryUpsertRequest struct {
	Key       string `json:"key" validate:"required,max=64"`
	Name      string `json:"name" validate:"required,max=128"`
	IsActive  bool   `json:"isActive"`
	SortOrder int    `json:"sortOrder" validate:"gte=0"`
}

type optionUpsertRequest struct {
	Label string `json:"label" validate:"required,max=128"`
	Kind  string `json:"kind" validate:"required,oneof=basic detailed"`
	// MatchID pins a custom option to one match; omitted means the option
	// is offered everywhere.
	MatchID   *int64 `json:"matchId" validate:"omitempty,gt=0"`
	SortOrder int    `json:"sortOrder" validate:"gte=0"`
	IsActive  bool   `json:"isActive"`
}

type competitionFlagsRequest struct {
	IsActive    bool `json:"isActive"`
	SyncEnabled bool `json:"syncEnabled"`
}

type syncLogDTO struct {
	ID         int64  `json:"id"`
	Type       string `json:"type"`
	Status     string `json:"status"`
	Created    int    `json:"itemsCreated"`
	Updated    int    `json:"itemsUpdated"`
	Processed  int    `json:"itemsProcessed"`
	Message    string `json:"message,omitempty"`
	StartedAt  string `json:"startedAt"`
	FinishedAt string `json:"finishedAt"`
	DurationMS int64  `json:"durationMs"`
}

func decodeRequest(r *http.Request, target any) error {
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is required", usecase.ErrInvalidInput)
		}
		return fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}

func (h *Handler) AdminListCategories(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.AdminListCategories")
	defer span.End()

	categories, err := h.voteService.ListCategories(ctx, false)
	if err != nil {
		h.logger.ErrorContext(ctx, "admin list categories failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]categoryDTO, 0, len(categories))
	for _, c := range categories {
		items = append(items, categoryToDTO(c))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) AdminCreateCategory(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.AdminCreateCategory")
	defer span.End()

	var req categoryUpsertRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	created, err := h.voteService.CreateCategory(ctx, vote.Category{
		Key:       req.Key,
		Name:      req.Name,
		IsActive:  req.IsActive,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "create category failed", "key", req.Key, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, categoryToDTO(created))
}

func (h *Handler) AdminUpdateCategory(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.AdminUpdateCategory")
	defer span.End()

	categoryID, err := parsePathID(r, "categoryID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req categoryUpsertRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	if err := h.voteService.UpdateCategory(ctx, vote.Category{
		ID:        categoryID,
		Key:       req.Key,
		Name:      req.Name,
		IsActive:  req.IsActive,
		SortOrder: req.SortOrder,
	}); err != nil {
		h.logger.WarnContext(ctx, "update category failed", "category_id", categoryID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]int64{"id": categoryID})
}

func (h *Handler) AdminDeleteCategory(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.AdminDeleteCategory")
	defer span.End()

	categoryID, err := parsePathID(r, "categoryID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	if err := h.voteService.DeleteCategory(ctx, categoryID); err != nil {
		h.logger.WarnContext(ctx, "delete category failed", "category_id", categoryID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]int64{"id": categoryID})
}

func (h *Handler) AdminListCategoryOptions(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.AdminListCategoryOptions")
	defer span.End()

	categoryID, err := parsePathID(r, "categoryID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	options, err := h.voteService.ListOptions(ctx, categoryID, false)
	if err != nil {
		h.logger.WarnContext(ctx, "admin list options failed", "category_id", categoryID, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]optionDTO, 0, len(options))
	for _, o := range options {
		items = append(items, optionToDTO(o))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) AdminCreateOption(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.AdminCreateOption")
	defer span.End()

	categoryID, err := parsePathID(r, "categoryID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req optionUpsertRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	created, err := h.voteService.CreateOption(ctx, vote.Option{
		CategoryID: categoryID,
		MatchID:    req.MatchID,
		Label:      req.Label,
		Kind:       req.Kind,
		SortOrder:  req.SortOrder,
		IsActive:   req.IsActive,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "create option failed", "category_id", categoryID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, optionToDTO(created))
}

func (h *Handler) AdminUpdateOption(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.AdminUpdateOption")
	defer span.End()

	optionID, err := parsePathID(r, "optionID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req optionUpsertRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	if err := h.voteService.UpdateOption(ctx, vote.Option{
		ID:        optionID,
		Label:     req.Label,
		Kind:      req.Kind,
		SortOrder: req.SortOrder,
		IsActive:  req.IsActive,
	}); err != nil {
		h.logger.WarnContext(ctx, "update option failed", "option_id", optionID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]int64{"id": optionID})
}

func (h *Handler) AdminDeleteOption(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.AdminDeleteOption")
	defer span.End()

	optionID, err := parsePathID(r, "optionID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	if err := h.voteService.DeleteOption(ctx, optionID); err != nil {
		h.logger.WarnContext(ctx, "delete option failed", "option_id", optionID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]int64{"id": optionID})
}

func (h *Handler) AdminSetCompetitionFlags(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.AdminSetCompetitionFlags")
	defer span.End()

	competitionID, err := parsePathID(r, "competitionID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req competitionFlagsRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	if err := h.competitionService.SetFlags(ctx, competitionID, req.IsActive, req.SyncEnabled); err != nil {
		h.logger.WarnContext(ctx, "set competition flags failed", "competition_id", competitionID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]int64{"id": competitionID})
}

func (h *Handler) AdminDeleteMatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.AdminDeleteMatch")
	defer span.End()

	matchID, err := parsePathID(r, "matchID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	if err := h.matchService.Delete(ctx, matchID); err != nil {
		h.logger.WarnContext(ctx, "delete match failed", "match_id", matchID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]int64{"id": matchID})
}

func (h *Handler) AdminListSyncLogs(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.AdminListSyncLogs")
	defer span.End()

	query := r.URL.Query()
	syncType := strings.TrimSpace(query.Get("type"))
	limit, err := parseOptionalInt(query.Get("limit"))
	if err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid limit", usecase.ErrInvalidInput))
		return
	}

	entries, err := h.syncService.ListSyncLogs(ctx, syncType, limit)
	if err != nil {
		h.logger.WarnContext(ctx, "list sync logs failed", "type", syncType, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]syncLogDTO, 0, len(entries))
	for _, entry := range entries {
		items = append(items, syncLogToDTO(entry))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) AdminQuotaStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.AdminQuotaStatus")
	defer span.End()

	if h.quota == nil {
		writeError(ctx, w, fmt.Errorf("%w: match data provider is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	writeSuccess(ctx, w, http.StatusOK, h.quota.QuotaStatus())
}

func syncLogToDTO(v synclog.Entry) syncLogDTO {
	return syncLogDTO{
		ID:         v.ID,
		Type:       v.Type,
		Status:     v.Status,
		Created:    v.Created,
		Updated:    v.Updated,
		Processed:  v.Processed,
		Message:    v.Message,
		StartedAt:  v.StartedAt.UTC().Format(time.RFC3339),
		FinishedAt: v.FinishedAt.UTC().Format(time.RFC3339),
		DurationMS: v.Duration().Milliseconds(),
	}
}
