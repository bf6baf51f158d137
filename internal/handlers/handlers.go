package handlers

import (
	"github.com/abarreto/stagevote/internal/auth"
	"github.com/abarreto/stagevote/internal/fingerprint"
	"github.com/abarreto/stagevote/internal/livesync"
	"github.com/abarreto/stagevote/internal/services"
	"github.com/abarreto/stagevote/internal/websocket"
)

// Handlers holds all HTTP handler dependencies
type Handlers struct {
	Show        services.ShowServicer
	Vote        services.VoteServicer
	Candidate   services.CandidateServicer
	Settings    services.SettingsServicer
	Auth        *auth.Auth
	Hub         *websocket.Hub
	Tracker     *livesync.Tracker
	Fingerprint fingerprint.Provider
	Log         HTTPLogger

	// Session is the session events belong to when a request names none
	Session string
}

// HTTPLogger is an interface for loggers that support HTTP logging control
type HTTPLogger interface {
	IsHTTPLoggingEnabled() bool
}

// New creates a new Handlers instance with all dependencies
func New(
	show services.ShowServicer,
	vote services.VoteServicer,
	candidate services.CandidateServicer,
	settings services.SettingsServicer,
	operatorAuth *auth.Auth,
	hub *websocket.Hub,
	tracker *livesync.Tracker,
	fp fingerprint.Provider,
	log HTTPLogger,
	session string,
) *Handlers {
	return &Handlers{
		Show:        show,
		Vote:        vote,
		Candidate:   candidate,
		Settings:    settings,
		Auth:        operatorAuth,
		Hub:         hub,
		Tracker:     tracker,
		Fingerprint: fp,
		Log:         log,
		Session:     session,
	}
}

// NoopHTTPLogger is a test logger that always returns false for HTTP logging
type NoopHTTPLogger struct{}

func (NoopHTTPLogger) IsHTTPLoggingEnabled() bool { return false }

// NewForTesting creates a Handlers instance for exercising API endpoints.
// The hub and tracker are left nil; endpoints degrade to direct queries.
func NewForTesting(
	show services.ShowServicer,
	vote services.VoteServicer,
	candidate services.CandidateServicer,
	settings services.SettingsServicer,
) *Handlers {
	return &Handlers{
		Show:        show,
		Vote:        vote,
		Candidate:   candidate,
		Settings:    settings,
		Auth:        auth.New("test-password"),
		Fingerprint: fingerprint.NewCookieProvider("test-salt"),
		Log:         NoopHTTPLogger{},
		Session:     "test-session",
	}
}
