package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerPublicRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/competitions", handler.ListCompetitions)
	mux.HandleFunc("GET /v1/matches", handler.ListMatches)
	mux.HandleFunc("GET /v1/matches/upcoming", handler.ListUpcomingMatches)
	mux.HandleFunc("GET /v1/matches/{matchID}", handler.GetMatch)
	mux.HandleFunc("GET /v1/matches/{matchID}/votes", handler.GetVoteResults)
	mux.HandleFunc("POST /v1/matches/{matchID}/votes", handler.CastVote)
	mux.HandleFunc("GET /v1/matches/{matchID}/votes/me", handler.GetVoterBallot)
	mux.HandleFunc("GET /v1/categories", handler.ListCategories)
	mux.HandleFunc("GET /v1/categories/{categoryID}/options", handler.ListCategoryOptions)
}

func registerAdminRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	admin := func(h http.HandlerFunc) http.Handler {
		return RequireInternalJobToken(internalJobToken, h)
	}

	mux.Handle("GET /v1/admin/categories", admin(handler.AdminListCategories))
	mux.Handle("POST /v1/admin/categories", admin(handler.AdminCreateCategory))
	mux.Handle("PUT /v1/admin/categories/{categoryID}", admin(handler.AdminUpdateCategory))
	mux.Handle("DELETE /v1/admin/categories/{categoryID}", admin(handler.AdminDeleteCategory))
	mux.Handle("GET /v1/admin/categories/{categoryID}/options", admin(handler.AdminListCategoryOptions))
	mux.Handle("POST /v1/admin/categories/{categoryID}/options", admin(handler.AdminCreateOption))
	mux.Handle("PUT /v1/admin/options/{optionID}", admin(handler.AdminUpdateOption))
	mux.Handle("DELETE /v1/admin/options/{optionID}", admin(handler.AdminDeleteOption))
	mux.Handle("PUT /v1/admin/competitions/{competitionID}/flags", admin(handler.AdminSetCompetitionFlags))
	mux.Handle("DELETE /v1/admin/matches/{matchID}", admin(handler.AdminDeleteMatch))
	mux.Handle("GET /v1/admin/sync-logs", admin(handler.AdminListSyncLogs))
	mux.Handle("GET /v1/admin/quota", admin(handler.AdminQuotaStatus))
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle("POST /v1/internal/jobs/sync-competitions", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunSyncCompetitionsJob)))
	mux.Handle("POST /v1/internal/jobs/sync-matches", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunSyncMatchesJob)))
	mux.Handle("POST /v1/internal/jobs/sync-live", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunSyncLiveJob)))
	mux.Handle("POST /v1/internal/jobs/full-resync", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunFullResyncJob)))
	mux.Handle("POST /v1/internal/jobs/reconcile", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunReconcileJob)))
	mux.Handle("POST /v1/internal/jobs/cleanup", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunCleanupJob)))
}
