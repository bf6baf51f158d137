// Package notify is the fire-and-forget push port of the control room.
// Show control must never stall or fail because a notification could not
// be delivered, so dispatch is asynchronous and errors are swallowed.
package notify

import (
	"github.com/abarreto/stagevote/internal/logger"
)

// Roles a notification can target
const (
	RolePublic   = "public"
	RoleOperator = "operator"
)

// Notification is a small push payload for subscribed devices
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Tag   string `json:"tag,omitempty"`
	URL   string `json:"url,omitempty"`
}

// Sender is the delivery transport. Implementations may fail; the
// dispatcher decides what to do about it.
type Sender interface {
	Send(sessionID, role string, n Notification) error
}

// Dispatcher is what services call. Send never blocks and never reports
// failure.
type Dispatcher interface {
	Send(sessionID, role string, n Notification)
}

// AsyncDispatcher delivers on a goroutine and logs failures at debug,
// matching the caller contract: a lost push is invisible to the show.
type AsyncDispatcher struct {
	log    logger.Logger
	sender Sender
}

// NewAsync creates a dispatcher over the given transport
func NewAsync(log logger.Logger, sender Sender) *AsyncDispatcher {
	return &AsyncDispatcher{log: log, sender: sender}
}

// Send dispatches without waiting for delivery
func (d *AsyncDispatcher) Send(sessionID, role string, n Notification) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				d.log.Debug("notification sender panicked", "panic", r)
			}
		}()
		if err := d.sender.Send(sessionID, role, n); err != nil {
			d.log.Debug("notification dropped", "role", role, "title", n.Title, "error", err)
		}
	}()
}

// Noop discards every notification. Used in tests and when no transport
// is configured.
type Noop struct{}

func (Noop) Send(string, string, Notification) {}

var _ Dispatcher = (*AsyncDispatcher)(nil)
var _ Dispatcher = Noop{}
