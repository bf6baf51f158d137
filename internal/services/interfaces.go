package services

import (
	"context"

	"github.com/abarreto/stagevote/internal/models"
)

// ShowServicer defines the control-room operations driving a live show
type ShowServicer interface {
	CreateEvent(ctx context.Context, sessionID string, eventType models.EventType, orderedCandidateIDs []int) (*models.LiveEvent, error)
	GetEvent(ctx context.Context, eventID int) (*models.LiveEvent, error)
	ListEvents(ctx context.Context, sessionID string) ([]models.LiveEvent, error)
	Lineup(ctx context.Context, eventID int) ([]models.LineupItem, error)
	CallToStage(ctx context.Context, eventID, candidateID, lineupID int) error
	ToggleVoting(ctx context.Context, eventID int, open bool) error
	EndPerformance(ctx context.Context, eventID, lineupID int) error
	RevealWinner(ctx context.Context, eventID, candidateID int) error
	SetShowStatus(ctx context.Context, eventID int, status models.EventStatus) error
	ReorderLineup(ctx context.Context, updates []LineupPositionUpdate) error
	SaveLineup(ctx context.Context, eventID int, candidateIDs []int) error
	DeleteEvent(ctx context.Context, eventID int) error
}

// VoteServicer defines the spectator-facing vote operations
type VoteServicer interface {
	Submit(ctx context.Context, eventID, candidateID int, fp string) (*VoteReceipt, error)
	HasVoted(ctx context.Context, eventID, candidateID int, fp string) (bool, error)
	Tally(ctx context.Context, eventID int) (map[int]int, error)
}

// CandidateServicer defines candidate roster operations
type CandidateServicer interface {
	ListCandidates(ctx context.Context) ([]models.Candidate, error)
	ListByCategory(ctx context.Context, category models.Category) ([]models.Candidate, error)
	ListFinalists(ctx context.Context) ([]models.Candidate, error)
	GetCandidate(ctx context.Context, id int) (*models.Candidate, error)
	CreateCandidate(ctx context.Context, c Candidate) (int64, error)
	UpdateCandidate(ctx context.Context, id int, c Candidate) error
	SetFinalist(ctx context.Context, id int, finalist bool) error
	DeleteCandidate(ctx context.Context, id int) error
}

// SettingsServicer defines the interface for settings operations
type SettingsServicer interface {
	GetBaseURL(ctx context.Context) (string, error)
	SetBaseURL(ctx context.Context, url string) error
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// Ensure concrete types implement interfaces
var (
	_ ShowServicer      = (*ShowService)(nil)
	_ VoteServicer      = (*VoteService)(nil)
	_ CandidateServicer = (*CandidateService)(nil)
	_ SettingsServicer  = (*SettingsService)(nil)
)
