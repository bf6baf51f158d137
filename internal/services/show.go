package services

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"

	"github.com/abarreto/stagevote/internal/errors"
	"github.com/abarreto/stagevote/internal/logger"
	"github.com/abarreto/stagevote/internal/models"
	"github.com/abarreto/stagevote/internal/notify"
	"github.com/abarreto/stagevote/internal/repository"
)

// ShowServiceRepository defines the repository methods needed by ShowService
type ShowServiceRepository interface {
	repository.EventRepository
	repository.LineupRepository
	repository.VoteRepository
	repository.CandidateRepository
}

// ShowService is the control room: every live-event state transition goes
// through it, issued by a single operator. It is not safe for two
// operators driving the same event; the last write wins.
type ShowService struct {
	log      logger.Logger
	repo     ShowServiceRepository
	clock    clockwork.Clock
	dispatch notify.Dispatcher
}

// NewShowService creates a new ShowService
func NewShowService(log logger.Logger, repo ShowServiceRepository, clock clockwork.Clock, dispatch notify.Dispatcher) *ShowService {
	return &ShowService{
		log:      log,
		repo:     repo,
		clock:    clock,
		dispatch: dispatch,
	}
}

// LineupPositionUpdate moves one lineup slot to a new position
type LineupPositionUpdate struct {
	ID       int `json:"id"`
	Position int `json:"position"`
}

// CreateEvent creates a live event in status pending and seeds its lineup.
// An explicit candidate order wins; otherwise the finale auto-populates
// from finalists in stage order (child, teen, adult, alphabetical).
// Lineup seeding is best-effort: a seeding failure is logged but never
// rolls back the created event.
func (s *ShowService) CreateEvent(ctx context.Context, sessionID string, eventType models.EventType, orderedCandidateIDs []int) (*models.LiveEvent, error) {
	if sessionID == "" {
		return nil, ErrSessionRequired
	}
	if eventType != models.EventSemifinal && eventType != models.EventFinal {
		return nil, ErrInvalidEventType
	}

	id, err := s.repo.CreateEvent(ctx, sessionID, eventType)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "create event")
	}
	eventID := int(id)

	candidateIDs := orderedCandidateIDs
	if len(candidateIDs) == 0 && eventType == models.EventFinal {
		finalists, err := s.repo.ListFinalists(ctx)
		if err != nil {
			s.log.Warn("finalist lookup failed, event created without lineup", "event_id", eventID, "error", err)
			return s.repo.GetEvent(ctx, eventID)
		}
		for _, c := range finalists {
			candidateIDs = append(candidateIDs, c.ID)
		}
	}

	for i, candidateID := range candidateIDs {
		if _, err := s.repo.CreateLineupItem(ctx, eventID, candidateID, i+1); err != nil {
			s.log.Warn("lineup seeding stopped", "event_id", eventID, "candidate_id", candidateID, "error", err)
			break
		}
	}

	s.log.Info("Live event created", "event_id", eventID, "type", eventType, "lineup_size", len(candidateIDs))
	return s.repo.GetEvent(ctx, eventID)
}

// GetEvent retrieves a live event by id
func (s *ShowService) GetEvent(ctx context.Context, eventID int) (*models.LiveEvent, error) {
	event, err := s.repo.GetEvent(ctx, eventID)
	if err == repository.ErrNotFound {
		return nil, errors.NotFoundf("event %d not found", eventID)
	}
	return event, err
}

// ListEvents returns the session's events, newest first
func (s *ShowService) ListEvents(ctx context.Context, sessionID string) ([]models.LiveEvent, error) {
	return s.repo.ListEvents(ctx, sessionID)
}

// Lineup returns the running order for an event
func (s *ShowService) Lineup(ctx context.Context, eventID int) ([]models.LineupItem, error) {
	return s.repo.ListLineup(ctx, eventID)
}

// CallToStage brings a candidate on stage: the event goes live with the
// candidate current, the lineup slot becomes performing with fresh timing.
// Voting is NOT opened; that is a separate operator step.
// Calling it again for the same candidate simply resets the timing.
// A previous performer left in status performing is NOT auto-closed; the
// operator is expected to have called EndPerformance first.
func (s *ShowService) CallToStage(ctx context.Context, eventID, candidateID, lineupID int) error {
	event, err := s.GetEvent(ctx, eventID)
	if err != nil {
		return err
	}

	item, err := s.repo.GetLineupItem(ctx, lineupID)
	if err == repository.ErrNotFound {
		return errors.NotFoundf("lineup item %d not found", lineupID)
	}
	if err != nil {
		return err
	}
	if item.LiveEventID != eventID || item.CandidateID != candidateID {
		return &LineupMismatchError{LineupID: lineupID}
	}

	now := s.clock.Now()
	if err := s.repo.MarkPerforming(ctx, lineupID, now); err != nil {
		return errors.Wrap(err, errors.ErrInternal, "mark performing")
	}
	if err := s.repo.SetOnStage(ctx, eventID, candidateID); err != nil {
		return errors.Wrap(err, errors.ErrInternal, "set on stage")
	}
	if err := s.repo.SetCurrentCategory(ctx, eventID, &item.Category); err != nil {
		// Category scoping only affects the reveal pool; the reveal
		// falls back safely when it is stale
		s.log.Warn("failed to update current category", "event_id", eventID, "error", err)
	}

	s.log.Info("Candidate called to stage", "event_id", eventID, "candidate_id", candidateID, "lineup_id", lineupID)
	s.dispatch.Send(event.SessionID, notify.RolePublic, notify.Notification{
		Title: "On stage now",
		Body:  fmt.Sprintf("%s is about to perform!", item.CandidateName),
		Tag:   "on-stage",
	})
	return nil
}

// ToggleVoting opens or closes the vote window for the current performer.
// Opening freezes the performance: ended_at is stamped if still unset and
// vote_opened_at is re-stamped (every open wins; ended_at is the field
// that never moves once set). Closing stamps vote_closed_at. Out-of-order
// operator actions are tolerated and merely leave timing gaps behind.
func (s *ShowService) ToggleVoting(ctx context.Context, eventID int, open bool) error {
	event, err := s.GetEvent(ctx, eventID)
	if err != nil {
		return err
	}

	performing, err := s.repo.GetPerformingItem(ctx, eventID)
	if err != nil && err != repository.ErrNotFound {
		return err
	}

	now := s.clock.Now()
	if performing != nil {
		if open {
			if err := s.repo.SetEnded(ctx, performing.ID, now); err != nil {
				return errors.Wrap(err, errors.ErrInternal, "freeze performance")
			}
			if err := s.repo.StampVoteOpened(ctx, performing.ID, now); err != nil {
				return errors.Wrap(err, errors.ErrInternal, "stamp vote opened")
			}
		} else {
			if err := s.repo.StampVoteClosed(ctx, performing.ID, now); err != nil {
				return errors.Wrap(err, errors.ErrInternal, "stamp vote closed")
			}
		}
	}

	if err := s.repo.SetVotingOpen(ctx, eventID, open); err != nil {
		return errors.Wrap(err, errors.ErrInternal, "set voting open")
	}

	s.log.Info("Vote window toggled", "event_id", eventID, "open", open)
	s.notifyVoteWindow(event.SessionID, open, performing)
	return nil
}

func (s *ShowService) notifyVoteWindow(sessionID string, open bool, performing *models.LineupItem) {
	n := notify.Notification{Tag: "vote-window"}
	if open {
		n.Title = "Voting is open"
		n.Body = "Cast your vote now!"
		if performing != nil {
			n.Body = fmt.Sprintf("Cast your vote for %s now!", performing.CandidateName)
		}
	} else {
		n.Title = "Voting is closed"
		n.Body = "The vote window has closed."
		if performing != nil {
			n.Body = fmt.Sprintf("Voting for %s has closed.", performing.CandidateName)
		}
	}
	s.dispatch.Send(sessionID, notify.RolePublic, n)
}

// EndPerformance completes a lineup slot and clears the stage. Missing
// ended_at and vote_opened_at are backfilled so analytics always see
// non-null timing for completed performances, even when the operator
// skipped steps. Voting is forced closed.
func (s *ShowService) EndPerformance(ctx context.Context, eventID, lineupID int) error {
	if _, err := s.GetEvent(ctx, eventID); err != nil {
		return err
	}

	item, err := s.repo.GetLineupItem(ctx, lineupID)
	if err == repository.ErrNotFound {
		return errors.NotFoundf("lineup item %d not found", lineupID)
	}
	if err != nil {
		return err
	}
	if item.LiveEventID != eventID {
		return &LineupMismatchError{LineupID: lineupID}
	}

	now := s.clock.Now()
	if err := s.repo.CompleteItem(ctx, lineupID, now); err != nil {
		return errors.Wrap(err, errors.ErrInternal, "complete performance")
	}
	if err := s.repo.ClearStage(ctx, eventID); err != nil {
		return errors.Wrap(err, errors.ErrInternal, "clear stage")
	}

	s.log.Info("Performance ended", "event_id", eventID, "lineup_id", lineupID)
	return nil
}

// RevealWinner records the winner exactly once. Every connected device
// reads the same winner id from the event row and runs the same reveal
// animation; re-running the reveal for an event is a conflict.
func (s *ShowService) RevealWinner(ctx context.Context, eventID, candidateID int) error {
	event, err := s.GetEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if event.WinnerCandidateID != nil {
		return ErrWinnerRevealed
	}

	err = s.repo.SetWinner(ctx, eventID, candidateID, s.clock.Now())
	if err == repository.ErrNotFound {
		// Lost a race with another reveal; same outcome for the operator
		return ErrWinnerRevealed
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "set winner")
	}

	s.log.Info("Winner revealed", "event_id", eventID, "candidate_id", candidateID)
	s.dispatch.Send(event.SessionID, notify.RolePublic, notify.Notification{
		Title: "The moment has come",
		Body:  "The winner is about to be revealed!",
		Tag:   "reveal",
	})
	return nil
}

// SetShowStatus updates the coarse show state (pause, resume, complete)
func (s *ShowService) SetShowStatus(ctx context.Context, eventID int, status models.EventStatus) error {
	switch status {
	case models.EventPending, models.EventLive, models.EventPaused, models.EventCompleted:
	default:
		return ErrInvalidStatus
	}
	if _, err := s.GetEvent(ctx, eventID); err != nil {
		return err
	}
	return s.repo.SetEventStatus(ctx, eventID, status)
}

// ReorderLineup applies position changes one at a time. The first failure
// aborts and surfaces; earlier updates stay applied. Position is cosmetic
// ordering, so partial application is acceptable.
func (s *ShowService) ReorderLineup(ctx context.Context, updates []LineupPositionUpdate) error {
	for _, u := range updates {
		if err := s.repo.UpdateLineupPosition(ctx, u.ID, u.Position); err != nil {
			if err == repository.ErrNotFound {
				return errors.NotFoundf("lineup item %d not found", u.ID)
			}
			return errors.Wrap(err, errors.ErrInternal, "reorder lineup")
		}
	}
	return nil
}

// SaveLineup destructively replaces the running order. Meant for use
// before the show starts; it will happily discard in-progress timing,
// which is the caller's responsibility to avoid.
func (s *ShowService) SaveLineup(ctx context.Context, eventID int, candidateIDs []int) error {
	if _, err := s.GetEvent(ctx, eventID); err != nil {
		return err
	}
	if len(candidateIDs) == 0 {
		return ErrEmptyLineup
	}

	if err := s.repo.DeleteLineup(ctx, eventID); err != nil {
		return errors.Wrap(err, errors.ErrInternal, "clear lineup")
	}
	for i, candidateID := range candidateIDs {
		if _, err := s.repo.CreateLineupItem(ctx, eventID, candidateID, i+1); err != nil {
			return errors.Wrap(err, errors.ErrInternal, "insert lineup item")
		}
	}

	s.log.Info("Lineup saved", "event_id", eventID, "size", len(candidateIDs))
	return nil
}

// DeleteEvent purges an event: votes first, then lineup, then the event
// row, in dependency order for the foreign keys.
func (s *ShowService) DeleteEvent(ctx context.Context, eventID int) error {
	if _, err := s.GetEvent(ctx, eventID); err != nil {
		return err
	}

	if err := s.repo.DeleteVotes(ctx, eventID); err != nil {
		return errors.Wrap(err, errors.ErrInternal, "delete votes")
	}
	if err := s.repo.DeleteLineup(ctx, eventID); err != nil {
		return errors.Wrap(err, errors.ErrInternal, "delete lineup")
	}
	if err := s.repo.DeleteEvent(ctx, eventID); err != nil {
		return errors.Wrap(err, errors.ErrInternal, "delete event")
	}

	s.log.Info("Live event deleted", "event_id", eventID)
	return nil
}
