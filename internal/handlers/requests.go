package handlers

import (
	"github.com/abarreto/stagevote/internal/models"
	"github.com/abarreto/stagevote/internal/services"
)

// CreateEventRequest starts a new live event
type CreateEventRequest struct {
	SessionID    string `json:"session_id"`
	EventType    string `json:"event_type"`
	CandidateIDs []int  `json:"candidate_ids,omitempty"`
}

// CallToStageRequest brings a lineup slot on stage
type CallToStageRequest struct {
	CandidateID int `json:"candidate_id"`
	LineupID    int `json:"lineup_id"`
}

// ToggleVotingRequest opens or closes the vote window
type ToggleVotingRequest struct {
	Open bool `json:"open"`
}

// EndPerformanceRequest completes a lineup slot
type EndPerformanceRequest struct {
	LineupID int `json:"lineup_id"`
}

// RevealWinnerRequest records the winner for the reveal
type RevealWinnerRequest struct {
	CandidateID int `json:"candidate_id"`
}

// SetStatusRequest changes the coarse show state
type SetStatusRequest struct {
	Status string `json:"status"`
}

// SaveLineupRequest destructively replaces the running order
type SaveLineupRequest struct {
	CandidateIDs []int `json:"candidate_ids"`
}

// ReorderLineupRequest moves lineup slots
type ReorderLineupRequest struct {
	Updates []services.LineupPositionUpdate `json:"updates"`
}

// VoteSubmitRequest casts a vote for the current performer
type VoteSubmitRequest struct {
	CandidateID int `json:"candidate_id"`
}

// CandidateRequest carries candidate fields for create/update
type CandidateRequest struct {
	Name       string `json:"name"`
	Category   string `json:"category"`
	PhotoURL   string `json:"photo_url"`
	IsFinalist bool   `json:"is_finalist"`
}

func (r CandidateRequest) toService() services.Candidate {
	return services.Candidate{
		Name:       r.Name,
		Category:   models.Category(r.Category),
		PhotoURL:   r.PhotoURL,
		IsFinalist: r.IsFinalist,
	}
}

// LoginRequest authenticates the control-room operator
type LoginRequest struct {
	Password string `json:"password"`
}
