package models

import "time"

// EventType distinguishes the two show formats
type EventType string

const (
	EventSemifinal EventType = "semifinal"
	EventFinal     EventType = "final"
)

// EventStatus is the coarse show state of a live event
type EventStatus string

const (
	EventPending   EventStatus = "pending"
	EventLive      EventStatus = "live"
	EventPaused    EventStatus = "paused"
	EventCompleted EventStatus = "completed"
)

// LineupStatus tracks a single performance slot
type LineupStatus string

const (
	LineupPending    LineupStatus = "pending"
	LineupPerforming LineupStatus = "performing"
	LineupCompleted  LineupStatus = "completed"
)

// Category is a candidate age bracket. Lineup seeding for the finale
// orders groups child -> teen -> adult.
type Category string

const (
	CategoryChild Category = "child"
	CategoryTeen  Category = "teen"
	CategoryAdult Category = "adult"
)

// LiveEvent is the single row driving a running show. Spectator clients
// mirror it wholesale on every change notification.
type LiveEvent struct {
	ID                 int         `json:"id"`
	SessionID          string      `json:"session_id"`
	EventType          EventType   `json:"event_type"`
	Status             EventStatus `json:"status"`
	CurrentCandidateID *int        `json:"current_candidate_id"`
	CurrentCategory    *Category   `json:"current_category"`
	IsVotingOpen       bool        `json:"is_voting_open"`
	WinnerCandidateID  *int        `json:"winner_candidate_id"`
	WinnerRevealedAt   *time.Time  `json:"winner_revealed_at"`
}

// LineupItem is one candidate's scheduled slot within a live event.
// Timing fields are nullable and backfilled rather than overwritten,
// so started_at <= ended_at <= vote_closed_at holds once set.
type LineupItem struct {
	ID           int          `json:"id"`
	LiveEventID  int          `json:"live_event_id"`
	CandidateID  int          `json:"candidate_id"`
	Position     int          `json:"position"`
	Status       LineupStatus `json:"status"`
	StartedAt    *time.Time   `json:"started_at"`
	EndedAt      *time.Time   `json:"ended_at"`
	VoteOpenedAt *time.Time   `json:"vote_opened_at"`
	VoteClosedAt *time.Time   `json:"vote_closed_at"`

	// Joined from candidates for display; not persisted on the lineup row
	CandidateName string   `json:"candidate_name,omitempty"`
	Category      Category `json:"category,omitempty"`
	PhotoURL      string   `json:"photo_url,omitempty"`
}

// Candidate is a contest participant
type Candidate struct {
	ID         int      `json:"id"`
	Name       string   `json:"name"`
	Category   Category `json:"category"`
	PhotoURL   string   `json:"photo_url"`
	IsFinalist bool     `json:"is_finalist"`
}

// VoteNotice is the change-feed payload emitted for each accepted
// ledger insert. Clients fold these into a running per-candidate count.
type VoteNotice struct {
	LiveEventID int    `json:"live_event_id"`
	CandidateID int    `json:"candidate_id"`
	Fingerprint string `json:"fingerprint"`
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
