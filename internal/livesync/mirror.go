// Package livesync keeps a local view of a live event in step with the
// change feed, the way each spectator device does: wholesale row
// replacement for the event, incremental counting for votes, and a full
// resync whenever notifications may have been missed.
package livesync

import (
	"context"
	"sync"
	"time"

	"github.com/abarreto/stagevote/internal/bus"
	"github.com/abarreto/stagevote/internal/logger"
	"github.com/abarreto/stagevote/internal/models"
)

// Store is the read side needed for resynchronization
type Store interface {
	GetEvent(ctx context.Context, id int) (*models.LiveEvent, error)
	CountVotes(ctx context.Context, eventID int) (map[int]int, error)
}

// Snapshot is an immutable copy of the mirrored state
type Snapshot struct {
	Event models.LiveEvent `json:"event"`
	Tally map[int]int      `json:"tally"`
}

// Mirror follows one live event. Event notices replace the local row
// wholesale (the row is small; partial merges buy nothing), vote notices
// bump a per-candidate counter without re-querying the ledger. Duplicate
// event payloads are no-ops, so out-of-order redelivery is harmless.
type Mirror struct {
	log     logger.Logger
	feed    bus.Feed
	store   Store
	eventID int

	mu       sync.RWMutex
	event    models.LiveEvent
	tally    map[int]int
	synced   bool
	onChange func(Snapshot)
}

// NewMirror creates a mirror for one event. onChange, if non-nil, is
// invoked with a fresh snapshot after every applied change.
func NewMirror(log logger.Logger, feed bus.Feed, store Store, eventID int, onChange func(Snapshot)) *Mirror {
	return &Mirror{
		log:      log,
		feed:     feed,
		store:    store,
		eventID:  eventID,
		tally:    make(map[int]int),
		onChange: onChange,
	}
}

// Start resyncs and then follows the change feed until ctx is cancelled.
// Subscriptions are taken before the resync so nothing published during
// the initial fetch is lost.
func (m *Mirror) Start(ctx context.Context) error {
	eventSub := m.feed.Subscribe(bus.TableLiveEvents, m.eventID)
	voteSub := m.feed.Subscribe(bus.TableLiveVotes, m.eventID)

	if err := m.Resync(ctx); err != nil {
		eventSub.Cancel()
		voteSub.Cancel()
		return err
	}

	go func() {
		defer eventSub.Cancel()
		defer voteSub.Cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case notice := <-eventSub.C:
				m.applyEventNotice(notice)
			case notice := <-voteSub.C:
				m.applyVoteNotice(notice)
			}
		}
	}()
	return nil
}

// Resync re-fetches the event row and recounts the tally from the store.
// Required after any gap in the feed (reconnect, dropped notices);
// incremental updates resume only from a synced baseline.
func (m *Mirror) Resync(ctx context.Context) error {
	event, err := m.store.GetEvent(ctx, m.eventID)
	if err != nil {
		return err
	}
	tally, err := m.store.CountVotes(ctx, m.eventID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.event = *event
	m.tally = tally
	m.synced = true
	m.mu.Unlock()

	m.notifyChange()
	return nil
}

func (m *Mirror) applyEventNotice(notice bus.Notice) {
	event, ok := notice.Payload.(*models.LiveEvent)
	if !ok || event == nil {
		m.log.Debug("ignoring malformed event notice", "event_id", m.eventID)
		return
	}

	m.mu.Lock()
	if !m.synced || eventsEqual(m.event, *event) {
		m.mu.Unlock()
		return // duplicate or pre-sync delivery
	}
	m.event = *event
	m.mu.Unlock()

	m.notifyChange()
}

func (m *Mirror) applyVoteNotice(notice bus.Notice) {
	vote, ok := notice.Payload.(models.VoteNotice)
	if !ok {
		m.log.Debug("ignoring malformed vote notice", "event_id", m.eventID)
		return
	}

	m.mu.Lock()
	if !m.synced {
		m.mu.Unlock()
		return
	}
	m.tally[vote.CandidateID]++
	m.mu.Unlock()

	m.notifyChange()
}

func (m *Mirror) notifyChange() {
	if m.onChange != nil {
		m.onChange(m.Snapshot())
	}
}

// Event returns a copy of the mirrored event row
func (m *Mirror) Event() models.LiveEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.event
}

// Tally returns a copy of the per-candidate counts
func (m *Mirror) Tally() map[int]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tally := make(map[int]int, len(m.tally))
	for k, v := range m.tally {
		tally[k] = v
	}
	return tally
}

// VotesFor returns one candidate's mirrored count
func (m *Mirror) VotesFor(candidateID int) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tally[candidateID]
}

// Snapshot returns a consistent copy of event and tally together
func (m *Mirror) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tally := make(map[int]int, len(m.tally))
	for k, v := range m.tally {
		tally[k] = v
	}
	return Snapshot{Event: m.event, Tally: tally}
}

// eventsEqual compares the fields spectators render. Pointer fields are
// compared by value.
func eventsEqual(a, b models.LiveEvent) bool {
	return a.ID == b.ID &&
		a.SessionID == b.SessionID &&
		a.EventType == b.EventType &&
		a.Status == b.Status &&
		a.IsVotingOpen == b.IsVotingOpen &&
		intPtrEqual(a.CurrentCandidateID, b.CurrentCandidateID) &&
		categoryPtrEqual(a.CurrentCategory, b.CurrentCategory) &&
		intPtrEqual(a.WinnerCandidateID, b.WinnerCandidateID) &&
		timePtrEqual(a.WinnerRevealedAt, b.WinnerRevealedAt)
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func categoryPtrEqual(a, b *models.Category) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
