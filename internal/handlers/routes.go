package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// conditionalHTTPLogger only logs HTTP requests when HTTP logging is enabled
func (h *Handlers) conditionalHTTPLogger(next http.Handler) http.Handler {
	logger := middleware.Logger(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Log != nil && h.Log.IsHTTPLoggingEnabled() {
			logger.ServeHTTP(w, r)
		} else {
			next.ServeHTTP(w, r)
		}
	})
}

// Router returns a configured chi router with all routes
func (h *Handlers) Router() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.conditionalHTTPLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RedirectSlashes)
	r.Use(middleware.Timeout(60 * time.Second))

	// WebSocket
	if h.Hub != nil {
		r.Get("/ws", h.Hub.ServeWs)
	}

	// Spectator API (public)
	r.Get("/api/events/{id}", h.handleGetEvent)
	r.Get("/api/events/{id}/tally", h.handleGetTally)
	r.Get("/api/events/{id}/join-qr", h.handleJoinQR)
	r.Post("/api/events/{id}/vote", h.handleSubmitVote)
	r.Get("/api/events/{id}/vote-status/{candidateID}", h.handleVoteStatus)
	r.Get("/api/candidates", h.handleListCandidates)

	// Operator auth (public)
	r.Post("/api/operator/login", h.handleOperatorLogin)
	r.Post("/api/operator/logout", h.handleOperatorLogout)
	r.Get("/api/operator/check", h.handleAuthCheck)

	// Control-room API (protected)
	r.Group(func(r chi.Router) {
		r.Use(h.Auth.RequireAuthAPI)

		// Events
		r.Get("/api/control/events", h.handleListEvents)
		r.Post("/api/control/events", h.handleCreateEvent)
		r.Delete("/api/control/events/{id}", h.handleDeleteEvent)

		// Show flow
		r.Post("/api/control/events/{id}/stage", h.handleCallToStage)
		r.Post("/api/control/events/{id}/voting", h.handleToggleVoting)
		r.Post("/api/control/events/{id}/end-performance", h.handleEndPerformance)
		r.Post("/api/control/events/{id}/reveal-winner", h.handleRevealWinner)
		r.Post("/api/control/events/{id}/status", h.handleSetStatus)

		// Lineup
		r.Put("/api/control/events/{id}/lineup", h.handleSaveLineup)
		r.Post("/api/control/lineup/reorder", h.handleReorderLineup)

		// Candidates
		r.Get("/api/control/candidates", h.handleGetCandidates)
		r.Get("/api/control/candidates/finalists", h.handleGetFinalists)
		r.Post("/api/control/candidates", h.handleCreateCandidate)
		r.Put("/api/control/candidates/{id}", h.handleUpdateCandidate)
		r.Delete("/api/control/candidates/{id}", h.handleDeleteCandidate)
	})

	return r
}
