package repository

import (
	"context"
	"time"

	"github.com/abarreto/stagevote/internal/models"
)

// EventRepository defines live event row operations
type EventRepository interface {
	CreateEvent(ctx context.Context, sessionID string, eventType models.EventType) (int64, error)
	GetEvent(ctx context.Context, id int) (*models.LiveEvent, error)
	ListEvents(ctx context.Context, sessionID string) ([]models.LiveEvent, error)
	SetOnStage(ctx context.Context, eventID, candidateID int) error
	ClearStage(ctx context.Context, eventID int) error
	SetEventStatus(ctx context.Context, eventID int, status models.EventStatus) error
	SetCurrentCategory(ctx context.Context, eventID int, category *models.Category) error
	SetVotingOpen(ctx context.Context, eventID int, open bool) error
	SetWinner(ctx context.Context, eventID, candidateID int, revealedAt time.Time) error
	DeleteEvent(ctx context.Context, id int) error
}

// LineupRepository defines lineup slot operations
type LineupRepository interface {
	CreateLineupItem(ctx context.Context, eventID, candidateID, position int) (int64, error)
	GetLineupItem(ctx context.Context, id int) (*models.LineupItem, error)
	ListLineup(ctx context.Context, eventID int) ([]models.LineupItem, error)
	GetPerformingItem(ctx context.Context, eventID int) (*models.LineupItem, error)
	MarkPerforming(ctx context.Context, id int, startedAt time.Time) error
	SetEnded(ctx context.Context, id int, endedAt time.Time) error
	StampVoteOpened(ctx context.Context, id int, openedAt time.Time) error
	StampVoteClosed(ctx context.Context, id int, closedAt time.Time) error
	CompleteItem(ctx context.Context, id int, closedAt time.Time) error
	UpdateLineupPosition(ctx context.Context, id, position int) error
	DeleteLineup(ctx context.Context, eventID int) error
}

// VoteRepository defines vote ledger operations
type VoteRepository interface {
	InsertVote(ctx context.Context, eventID, candidateID int, fingerprint string) (inserted bool, err error)
	HasVoted(ctx context.Context, eventID, candidateID int, fingerprint string) (bool, error)
	CountVotes(ctx context.Context, eventID int) (map[int]int, error)
	CountVotesForCandidate(ctx context.Context, eventID, candidateID int) (int, error)
	DeleteVotes(ctx context.Context, eventID int) error
}

// CandidateRepository defines candidate data operations
type CandidateRepository interface {
	ListCandidates(ctx context.Context) ([]models.Candidate, error)
	ListCandidatesByCategory(ctx context.Context, category models.Category) ([]models.Candidate, error)
	ListFinalists(ctx context.Context) ([]models.Candidate, error)
	GetCandidate(ctx context.Context, id int) (*models.Candidate, error)
	CreateCandidate(ctx context.Context, name string, category models.Category, photoURL string, finalist bool) (int64, error)
	UpdateCandidate(ctx context.Context, id int, name string, category models.Category, photoURL string, finalist bool) error
	SetFinalist(ctx context.Context, id int, finalist bool) error
	DeleteCandidate(ctx context.Context, id int) error
}

// SettingsRepository defines settings data operations
type SettingsRepository interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// FullRepository combines all repository interfaces
// Use this when a service needs access to multiple domains
type FullRepository interface {
	EventRepository
	LineupRepository
	VoteRepository
	CandidateRepository
	SettingsRepository
}

// Ensure Repository implements all interfaces
var _ FullRepository = (*Repository)(nil)
