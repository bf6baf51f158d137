package services

import "fmt"

// Service errors
var (
	ErrVotingClosed     = &ServiceError{Message: "voting is currently closed"}
	ErrNotOnStage       = &ServiceError{Message: "candidate is not on stage"}
	ErrWinnerRevealed   = &ServiceError{Message: "winner has already been revealed"}
	ErrEmptyLineup      = &ServiceError{Message: "lineup is empty"}
	ErrInvalidStatus    = &ServiceError{Message: "invalid event status"}
	ErrInvalidCategory  = &ServiceError{Message: "invalid candidate category"}
	ErrNameRequired     = &ServiceError{Message: "candidate name is required"}
	ErrSessionRequired  = &ServiceError{Message: "session id is required"}
	ErrInvalidEventType = &ServiceError{Message: "event type must be semifinal or final"}
)

// ServiceError represents a service-level error
type ServiceError struct {
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}

// LineupMismatchError reports a lineup slot that does not belong to the
// event or candidate the operator named
type LineupMismatchError struct {
	LineupID int
}

func (e *LineupMismatchError) Error() string {
	return fmt.Sprintf("lineup item %d does not match the requested event and candidate", e.LineupID)
}
