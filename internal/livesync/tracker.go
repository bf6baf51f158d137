package livesync

import (
	"context"
	"sync"

	"github.com/abarreto/stagevote/internal/bus"
	"github.com/abarreto/stagevote/internal/logger"
)

// Tracker lazily starts one Mirror per live event and hands out
// snapshots. The websocket layer uses it to greet newly connected
// spectators with current state, and the tally endpoint serves from it
// instead of re-querying the ledger on every request.
type Tracker struct {
	log   logger.Logger
	feed  bus.Feed
	store Store

	mu      sync.Mutex
	mirrors map[int]*Mirror
	ctx     context.Context
}

// NewTracker creates a tracker; mirrors it starts live until ctx ends
func NewTracker(ctx context.Context, log logger.Logger, feed bus.Feed, store Store) *Tracker {
	return &Tracker{
		log:     log,
		feed:    feed,
		store:   store,
		mirrors: make(map[int]*Mirror),
		ctx:     ctx,
	}
}

// Mirror returns the running mirror for an event, starting one on first
// use. Returns an error when the event does not exist.
func (t *Tracker) Mirror(eventID int) (*Mirror, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if m, ok := t.mirrors[eventID]; ok {
		return m, nil
	}

	m := NewMirror(t.log, t.feed, t.store, eventID, nil)
	if err := m.Start(t.ctx); err != nil {
		return nil, err
	}
	t.mirrors[eventID] = m
	return m, nil
}

// Snapshot returns current state for an event via its mirror
func (t *Tracker) Snapshot(eventID int) (Snapshot, error) {
	m, err := t.Mirror(eventID)
	if err != nil {
		return Snapshot{}, err
	}
	return m.Snapshot(), nil
}

// Forget drops the mirror for a deleted event
func (t *Tracker) Forget(eventID int) {
	t.mu.Lock()
	delete(t.mirrors, eventID)
	t.mu.Unlock()
}
