package bus

import (
	"sync"

	"github.com/abarreto/stagevote/internal/logger"
)

// Table names used as change-feed topics
const (
	TableLiveEvents = "live_events"
	TableLiveVotes  = "live_votes"
)

// KeyAll subscribes to every row of a table regardless of scope id
const KeyAll = 0

// Notice is one row-level change notification: an immutable snapshot of
// the row (or insert payload) after the write settled.
type Notice struct {
	Table   string
	Key     int
	Payload interface{}
}

// Feed delivers row snapshots to subscribers. The store publishes a
// Notice after every committed write; subscribers must tolerate
// duplicates and make no ordering assumptions across keys.
type Feed interface {
	Subscribe(table string, key int) *Subscription
	Publish(table string, key int, payload interface{})
}

// Subscription is one subscriber's view of a (table, key) stream.
// Cancel exactly once when done; C is closed afterwards.
type Subscription struct {
	C      chan Notice
	cancel func()
	once   sync.Once
}

// Cancel detaches the subscription from the feed and closes C
func (s *Subscription) Cancel() {
	s.once.Do(s.cancel)
}

// Memory is an in-process Feed. Delivery is non-blocking: a subscriber
// whose buffer is full loses the notice and must resync, the same
// contract a remote change feed gives after a disconnect.
type Memory struct {
	log  logger.Logger
	mu   sync.RWMutex
	subs map[string]map[*Subscription]int // table -> subscription -> key
}

// NewMemory creates an in-process change feed
func NewMemory(log logger.Logger) *Memory {
	return &Memory{
		log:  log,
		subs: make(map[string]map[*Subscription]int),
	}
}

// Subscribe registers interest in (table, key). key == KeyAll receives
// notices for every key of the table.
func (m *Memory) Subscribe(table string, key int) *Subscription {
	sub := &Subscription{C: make(chan Notice, 64)}
	sub.cancel = func() {
		m.mu.Lock()
		if set, ok := m.subs[table]; ok {
			delete(set, sub)
		}
		m.mu.Unlock()
		close(sub.C)
	}

	m.mu.Lock()
	if m.subs[table] == nil {
		m.subs[table] = make(map[*Subscription]int)
	}
	m.subs[table][sub] = key
	m.mu.Unlock()
	return sub
}

// Publish fans a notice out to matching subscribers
func (m *Memory) Publish(table string, key int, payload interface{}) {
	notice := Notice{Table: table, Key: key, Payload: payload}

	m.mu.RLock()
	defer m.mu.RUnlock()
	for sub, want := range m.subs[table] {
		if want != KeyAll && want != key {
			continue
		}
		select {
		case sub.C <- notice:
		default:
			// Subscriber is not draining; it will notice the gap on resync
			m.log.Debug("change feed subscriber lagging, notice dropped", "table", table, "key", key)
		}
	}
}
