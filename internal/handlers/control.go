package handlers

import (
	"net/http"

	"github.com/abarreto/stagevote/internal/models"
)

// Control-room API: every live-event state transition enters here. All
// routes are behind operator auth.

// handleCreateEvent creates a live event, optionally seeding the lineup
func (h *Handlers) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.SessionID == "" {
		req.SessionID = h.Session
	}

	event, err := h.Show.CreateEvent(r.Context(), req.SessionID, models.EventType(req.EventType), req.CandidateIDs)
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, event)
}

// handleListEvents returns a session's events
func (h *Handlers) handleListEvents(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		sessionID = h.Session
	}
	if sessionID == "" {
		respondError(w, BadRequest("session query parameter is required"))
		return
	}
	events, err := h.Show.ListEvents(r.Context(), sessionID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, events)
}

// handleDeleteEvent purges an event with its lineup and votes
func (h *Handlers) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	if err := h.Show.DeleteEvent(r.Context(), eventID); err != nil {
		respondError(w, err)
		return
	}
	if h.Tracker != nil {
		h.Tracker.Forget(eventID)
	}
	respondDeleted(w)
}

// handleCallToStage brings a candidate on stage
func (h *Handlers) handleCallToStage(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	var req CallToStageRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := h.Show.CallToStage(r.Context(), eventID, req.CandidateID, req.LineupID); err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, "Candidate called to stage")
}

// handleToggleVoting opens or closes the vote window
func (h *Handlers) handleToggleVoting(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	var req ToggleVotingRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := h.Show.ToggleVoting(r.Context(), eventID, req.Open); err != nil {
		respondError(w, err)
		return
	}
	if req.Open {
		respondSuccess(w, "Voting opened")
	} else {
		respondSuccess(w, "Voting closed")
	}
}

// handleEndPerformance completes the current lineup slot
func (h *Handlers) handleEndPerformance(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	var req EndPerformanceRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := h.Show.EndPerformance(r.Context(), eventID, req.LineupID); err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, "Performance ended")
}

// handleRevealWinner sets the winner; clients animate from the row change
func (h *Handlers) handleRevealWinner(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	var req RevealWinnerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := h.Show.RevealWinner(r.Context(), eventID, req.CandidateID); err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, "Winner revealed")
}

// handleSetStatus pauses, resumes or completes the show
func (h *Handlers) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	var req SetStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := h.Show.SetShowStatus(r.Context(), eventID, models.EventStatus(req.Status)); err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, "Status updated")
}

// handleSaveLineup destructively replaces the running order
func (h *Handlers) handleSaveLineup(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	var req SaveLineupRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := h.Show.SaveLineup(r.Context(), eventID, req.CandidateIDs); err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, "Lineup saved")
}

// handleReorderLineup applies position changes
func (h *Handlers) handleReorderLineup(w http.ResponseWriter, r *http.Request) {
	var req ReorderLineupRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := h.Show.ReorderLineup(r.Context(), req.Updates); err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, "Lineup reordered")
}

// ==================== Candidates ====================

func (h *Handlers) handleGetCandidates(w http.ResponseWriter, r *http.Request) {
	candidates, err := h.Candidate.ListCandidates(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, candidates)
}

func (h *Handlers) handleGetFinalists(w http.ResponseWriter, r *http.Request) {
	finalists, err := h.Candidate.ListFinalists(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, finalists)
}

func (h *Handlers) handleCreateCandidate(w http.ResponseWriter, r *http.Request) {
	var req CandidateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	id, err := h.Candidate.CreateCandidate(r.Context(), req.toService())
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, IDResponse{ID: id})
}

func (h *Handlers) handleUpdateCandidate(w http.ResponseWriter, r *http.Request) {
	id, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	var req CandidateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := h.Candidate.UpdateCandidate(r.Context(), id, req.toService()); err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, "Candidate updated")
}

func (h *Handlers) handleDeleteCandidate(w http.ResponseWriter, r *http.Request) {
	id, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	if err := h.Candidate.DeleteCandidate(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	respondDeleted(w)
}
