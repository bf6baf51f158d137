package handlers

import (
	"fmt"
	"net/http"

	"github.com/skip2/go-qrcode"
)

// handleGetEvent returns the public view of a live event: the row itself,
// the running order, and the current tally
func (h *Handlers) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	event, err := h.Show.GetEvent(r.Context(), eventID)
	if err != nil {
		respondError(w, err)
		return
	}

	lineup, err := h.Show.Lineup(r.Context(), eventID)
	if err != nil {
		respondError(w, err)
		return
	}

	tally, err := h.tally(r, eventID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondOK(w, EventDetailResponse{Event: *event, Lineup: lineup, Tally: tally})
}

// handleGetTally returns live per-candidate counts
func (h *Handlers) handleGetTally(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	tally, err := h.tally(r, eventID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, tally)
}

// tally prefers the incremental mirror over a full ledger count
func (h *Handlers) tally(r *http.Request, eventID int) (map[int]int, error) {
	if h.Tracker != nil {
		snapshot, err := h.Tracker.Snapshot(eventID)
		if err == nil {
			return snapshot.Tally, nil
		}
	}
	return h.Vote.Tally(r.Context(), eventID)
}

// handleJoinQR serves a QR code that deep-links a phone to the event's
// spectator page
func (h *Handlers) handleJoinQR(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	if _, err := h.Show.GetEvent(r.Context(), eventID); err != nil {
		respondError(w, err)
		return
	}

	baseURL, err := h.Settings.GetBaseURL(r.Context())
	if err != nil || baseURL == "" {
		baseURL = "http://" + r.Host
	}

	url := fmt.Sprintf("%s/watch/%d", baseURL, eventID)
	png, err := qrcode.Encode(url, qrcode.Medium, 256)
	if err != nil {
		respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(png)
}

// handleListCandidates returns the public candidate roster
func (h *Handlers) handleListCandidates(w http.ResponseWriter, r *http.Request) {
	candidates, err := h.Candidate.ListCandidates(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, candidates)
}
