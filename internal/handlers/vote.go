package handlers

import (
	"net/http"
)

// handleSubmitVote casts one vote for the current performer. The device
// fingerprint comes from the provider, never from the request body, so a
// client cannot vote on behalf of another device.
func (h *Handlers) handleSubmitVote(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	var req VoteSubmitRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.CandidateID == 0 {
		respondError(w, BadRequest("candidate_id is required"))
		return
	}

	fp := h.Fingerprint.StableID(w, r)
	receipt, err := h.Vote.Submit(r.Context(), eventID, req.CandidateID, fp)
	if err != nil {
		respondError(w, err)
		return
	}

	respondOK(w, receipt)
}

// handleVoteStatus reports whether this device already voted for a
// candidate, so a reloaded page can restore its "voted" mark
func (h *Handlers) handleVoteStatus(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	candidateID, err := parseIntParam(r, "candidateID")
	if err != nil {
		respondError(w, err)
		return
	}

	fp := h.Fingerprint.StableID(w, r)
	voted, err := h.Vote.HasVoted(r.Context(), eventID, candidateID, fp)
	if err != nil {
		respondError(w, err)
		return
	}

	respondOK(w, VoteStatusResponse{CandidateID: candidateID, HasVoted: voted})
}
