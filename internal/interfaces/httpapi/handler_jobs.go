package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danuandrian/matchvote/internal/domain/synclog"
	"github.com/danuandrian/matchvote/internal/usecase"
)

func (h *Handler) runSyncJob(w http.ResponseWriter, r *http.Request, spanName string, run func(context.Context) (synclog.Entry, error)) {
	ctx, span := startSpan(r.Context(), spanName)
	defer span.End()

	if h.syncService == nil {
		writeError(ctx, w, fmt.Errorf("%w: sync service is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	entry, err := run(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "sync job failed", "type", entry.Type, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, syncLogToDTO(entry))
}

func (h *Handler) RunSyncCompetitionsJob(w http.ResponseWriter, r *http.Request) {
	h.runSyncJob(w, r, "httpapi.Handler.RunSyncCompetitionsJob", func(ctx context.Context) (synclog.Entry, error) {
		return h.syncService.SyncCompetitions(ctx)
	})
}

// RunSyncMatchesJob accepts optional competition_ids (comma separated) and
// window (Go duration) query parameters to narrow the run.
func (h *Handler) RunSyncMatchesJob(w http.ResponseWriter, r *http.Request) {
	input, err := parseSyncMatchesInput(r)
	if err != nil {
		ctx, span := startSpan(r.Context(), "httpapi.Handler.RunSyncMatchesJob")
		defer span.End()
		writeError(ctx, w, err)
		return
	}
	h.runSyncJob(w, r, "httpapi.Handler.RunSyncMatchesJob", func(ctx context.Context) (synclog.Entry, error) {
		return h.syncService.SyncMatches(ctx, input)
	})
}

func parseSyncMatchesInput(r *http.Request) (usecase.SyncMatchesInput, error) {
	query := r.URL.Query()
	input := usecase.SyncMatchesInput{}

	if raw := strings.TrimSpace(query.Get("competition_ids")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil || id <= 0 {
				return usecase.SyncMatchesInput{}, fmt.Errorf("%w: invalid competition_ids %q", usecase.ErrInvalidInput, raw)
			}
			input.CompetitionIDs = append(input.CompetitionIDs, id)
		}
	}
	if raw := strings.TrimSpace(query.Get("window")); raw != "" {
		window, err := time.ParseDuration(raw)
		if err != nil || window <= 0 {
			return usecase.SyncMatchesInput{}, fmt.Errorf("%w: invalid window %q", usecase.ErrInvalidInput, raw)
		}
		input.Window = window
	}
	return input, nil
}

func (h *Handler) RunSyncLiveJob(w http.ResponseWriter, r *http.Request) {
	h.runSyncJob(w, r, "httpapi.Handler.RunSyncLiveJob", func(ctx context.Context) (synclog.Entry, error) {
		return h.syncService.SyncLiveScores(ctx)
	})
}

func (h *Handler) RunFullResyncJob(w http.ResponseWriter, r *http.Request) {
	h.runSyncJob(w, r, "httpapi.Handler.RunFullResyncJob", func(ctx context.Context) (synclog.Entry, error) {
		return h.syncService.FullResync(ctx)
	})
}

func (h *Handler) RunReconcileJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunReconcileJob")
	defer span.End()

	if h.reconciler == nil {
		writeError(ctx, w, fmt.Errorf("%w: reconciler is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	entry, err := h.reconciler.Reconcile(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "reconcile job failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, syncLogToDTO(entry))
}

func (h *Handler) RunCleanupJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunCleanupJob")
	defer span.End()

	if h.syncService == nil {
		writeError(ctx, w, fmt.Errorf("%w: sync service is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	pruned, err := h.syncService.PruneSyncLogs(ctx, h.syncLogRetention)
	if err != nil {
		h.logger.ErrorContext(ctx, "cleanup job failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]int64{"pruned": pruned})
}
