package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/danuandrian/matchvote/internal/domain/vote"
	"github.com/danuandrian/matchvote/internal/usecase"
)

type castVoteRequest struct {
	CategoryID int64  `json:"categoryId" validate:"required,gt=0"`
	OptionID   int64  `json:"optionId" validate:"required,gt=0"`
	Surface    string `json:"surface" validate:"required,oneof=homepage details"`
	UserID     int64  `json:"userId" validate:"gte=0"`
	BrowserID  string `json:"browserId" validate:"max=128"`
}

type castVoteResponse struct {
	Vote     voteDTO              `json:"vote"`
	Replaced bool                 `json:"replaced"`
	Results  vote.CategoryResults `json:"results"`
}

type voteDTO struct {
	ID         int64  `json:"id"`
	MatchID    int64  `json:"matchId"`
	CategoryID int64  `json:"categoryId"`
	OptionID   int64  `json:"optionId"`
	Surface    string `json:"surface"`
	CreatedAt  string `json:"createdAt"`
}

type categoryDTO struct {
	ID        int64  `json:"id"`
	Key       string `json:"key"`
	Name      string `json:"name"`
	IsActive  bool   `json:"isActive"`
	SortOrder int    `json:"sortOrder"`
	Protected bool   `json:"protected"`
}

type optionDTO struct {
	ID         int64  `json:"id"`
	CategoryID int64  `json:"categoryId"`
	MatchID    *int64 `json:"matchId,omitempty"`
	Label      string `json:"label"`
	Kind       string `json:"kind"`
	SortOrder  int    `json:"sortOrder"`
	IsActive   bool   `json:"isActive"`
	VotesCount int    `json:"votesCount"`
}

func (h *Handler) CastVote(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.CastVote")
	defer span.End()

	matchID, err := parsePathID(r, "matchID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req castVoteRequest
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			writeError(ctx, w, fmt.Errorf("%w: request body is required", usecase.ErrInvalidInput))
			return
		}
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
		return
	}
	if strings.TrimSpace(req.BrowserID) == "" {
		req.BrowserID = strings.TrimSpace(r.Header.Get("X-Browser-Id"))
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.voteService.Cast(ctx, usecase.CastVoteInput{
		MatchID:    matchID,
		CategoryID: req.CategoryID,
		OptionID:   req.OptionID,
		Voter:      vote.VoterIdentity{UserID: req.UserID, BrowserID: req.BrowserID},
		Surface:    req.Surface,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "cast vote failed", "match_id", matchID, "category_id", req.CategoryID, "error", err)
		writeError(ctx, w, err)
		return
	}

	status := http.StatusCreated
	if result.Replaced {
		status = http.StatusOK
	}
	writeSuccess(ctx, w, status, castVoteResponse{
		Vote:     voteToDTO(result.Vote),
		Replaced: result.Replaced,
		Results:  result.Results,
	})
}

func (h *Handler) GetVoteResults(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetVoteResults")
	defer span.End()

	matchID, err := parsePathID(r, "matchID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	surface := strings.TrimSpace(r.URL.Query().Get("surface"))

	results, err := h.voteService.Results(ctx, matchID, surface)
	if err != nil {
		h.logger.WarnContext(ctx, "get vote results failed", "match_id", matchID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, results)
}

func (h *Handler) GetVoterBallot(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetVoterBallot")
	defer span.End()

	matchID, err := parsePathID(r, "matchID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	query := r.URL.Query()
	categoryID, err := strconv.ParseInt(strings.TrimSpace(query.Get("category_id")), 10, 64)
	if err != nil || categoryID <= 0 {
		writeError(ctx, w, fmt.Errorf("%w: invalid category_id", usecase.ErrInvalidInput))
		return
	}
	surface := strings.TrimSpace(query.Get("surface"))

	var userID int64
	if raw := strings.TrimSpace(query.Get("user_id")); raw != "" {
		userID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || userID < 0 {
			writeError(ctx, w, fmt.Errorf("%w: invalid user_id", usecase.ErrInvalidInput))
			return
		}
	}
	browserID := strings.TrimSpace(query.Get("browser_id"))
	if browserID == "" {
		browserID = strings.TrimSpace(r.Header.Get("X-Browser-Id"))
	}

	ballot, found, err := h.voteService.VoterBallot(ctx, matchID, categoryID, vote.VoterIdentity{UserID: userID, BrowserID: browserID}, surface)
	if err != nil {
		h.logger.WarnContext(ctx, "get voter ballot failed", "match_id", matchID, "category_id", categoryID, "error", err)
		writeError(ctx, w, err)
		return
	}
	if !found {
		writeSuccess(ctx, w, http.StatusOK, nil)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, voteToDTO(ballot))
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListCategories")
	defer span.End()

	categories, err := h.voteService.ListCategories(ctx, true)
	if err != nil {
		h.logger.ErrorContext(ctx, "list categories failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]categoryDTO, 0, len(categories))
	for _, c := range categories {
		items = append(items, categoryToDTO(c))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) ListCategoryOptions(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListCategoryOptions")
	defer span.End()

	categoryID, err := parsePathID(r, "categoryID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	options, err := h.voteService.ListOptions(ctx, categoryID, true)
	if err != nil {
		h.logger.WarnContext(ctx, "list options failed", "category_id", categoryID, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]optionDTO, 0, len(options))
	for _, o := range options {
		items = append(items, optionToDTO(o))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func voteToDTO(v vote.Vote) voteDTO {
	return voteDTO{
		ID:         v.ID,
		MatchID:    v.MatchID,
		CategoryID: v.CategoryID,
		OptionID:   v.OptionID,
		Surface:    v.Surface,
		CreatedAt:  v.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func categoryToDTO(v vote.Category) categoryDTO {
	return categoryDTO{
		ID:        v.ID,
		Key:       v.Key,
		Name:      v.Name,
		IsActive:  v.IsActive,
		SortOrder: v.SortOrder,
		Protected: v.Protected(),
	}
}

func optionToDTO(v vote.Option) optionDTO {
	return optionDTO{
		ID:         v.ID,
		CategoryID: v.CategoryID,
		MatchID:    v.MatchID,
		Label:      v.Label,
		Kind:       v.Kind,
		SortOrder:  v.SortOrder,
		IsActive:   v.IsActive,
		VotesCount: v.VotesCount,
	}
}
