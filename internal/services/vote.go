package services

import (
	"context"

	"github.com/abarreto/stagevote/internal/errors"
	"github.com/abarreto/stagevote/internal/logger"
	"github.com/abarreto/stagevote/internal/repository"
)

// VoteServiceRepository defines the repository methods needed by VoteService
type VoteServiceRepository interface {
	repository.EventRepository
	repository.VoteRepository
}

// VoteService is the server half of the vote submission guard: it checks
// the vote window, accepts exactly one ledger row per (event, candidate,
// device) and treats duplicates as success. Deduplication is per performer,
// not per show: a spectator may support every act they like.
type VoteService struct {
	log  logger.Logger
	repo VoteServiceRepository
}

// NewVoteService creates a new VoteService
func NewVoteService(log logger.Logger, repo VoteServiceRepository) *VoteService {
	return &VoteService{log: log, repo: repo}
}

// VoteReceipt is the outcome of a vote submission. Duplicate is
// informational only; a duplicate is not an error.
type VoteReceipt struct {
	Status      string `json:"status"`
	CandidateID int    `json:"candidate_id"`
	Duplicate   bool   `json:"duplicate"`
}

// Submit records one vote. Preconditions: the vote window is open and the
// candidate is the current performer. Racing submissions from the same
// device are resolved by the ledger's uniqueness constraint; the loser
// sees the same receipt as the winner.
func (s *VoteService) Submit(ctx context.Context, eventID, candidateID int, fp string) (*VoteReceipt, error) {
	event, err := s.repo.GetEvent(ctx, eventID)
	if err == repository.ErrNotFound {
		return nil, errors.NotFoundf("event %d not found", eventID)
	}
	if err != nil {
		return nil, err
	}

	if !event.IsVotingOpen {
		return nil, ErrVotingClosed
	}
	if event.CurrentCandidateID == nil || *event.CurrentCandidateID != candidateID {
		return nil, ErrNotOnStage
	}

	inserted, err := s.repo.InsertVote(ctx, eventID, candidateID, fp)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "record vote")
	}

	if inserted {
		s.log.Info("Vote recorded", "event_id", eventID, "candidate_id", candidateID)
	} else {
		s.log.Debug("Duplicate vote ignored", "event_id", eventID, "candidate_id", candidateID)
	}

	return &VoteReceipt{
		Status:      "accepted",
		CandidateID: candidateID,
		Duplicate:   !inserted,
	}, nil
}

// HasVoted reports whether this device already voted for the candidate
func (s *VoteService) HasVoted(ctx context.Context, eventID, candidateID int, fp string) (bool, error) {
	return s.repo.HasVoted(ctx, eventID, candidateID, fp)
}

// Tally returns the per-candidate vote counts for an event
func (s *VoteService) Tally(ctx context.Context, eventID int) (map[int]int, error) {
	return s.repo.CountVotes(ctx, eventID)
}
