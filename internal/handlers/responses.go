package handlers

import "github.com/abarreto/stagevote/internal/models"

// EventDetailResponse is the public view of a live event
type EventDetailResponse struct {
	Event  models.LiveEvent    `json:"event"`
	Lineup []models.LineupItem `json:"lineup"`
	Tally  map[int]int         `json:"tally"`
}

// VoteStatusResponse reports whether this device voted for a candidate
type VoteStatusResponse struct {
	CandidateID int  `json:"candidate_id"`
	HasVoted    bool `json:"has_voted"`
}

// IDResponse returns the id of a created resource
type IDResponse struct {
	ID int64 `json:"id"`
}
