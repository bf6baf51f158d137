package websocket

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/abarreto/stagevote/internal/bus"
	"github.com/abarreto/stagevote/internal/livesync"
	"github.com/abarreto/stagevote/internal/logger"
	"github.com/abarreto/stagevote/internal/models"
	"github.com/abarreto/stagevote/internal/notify"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Spectators connect from arbitrary origins
	},
}

// SnapshotProvider supplies current event state for newly connected clients
type SnapshotProvider interface {
	Snapshot(eventID int) (livesync.Snapshot, error)
}

// envelope targets a broadcast: eventID 0 reaches every client, a role
// filter of "" reaches every role
type envelope struct {
	eventID int
	role    string
	msg     models.WSMessage
}

// greeting carries a fetched snapshot back into the hub loop, the only
// place where a client's registration state is settled
type greeting struct {
	client *Client
	msg    models.WSMessage
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	log        logger.Logger
	clients    map[*Client]bool
	broadcast  chan envelope
	register   chan *Client
	unregister chan *Client
	greet      chan greeting
	mutex      sync.RWMutex
	snapshots  SnapshotProvider
}

// Client is a middleman between the websocket connection and the hub
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan models.WSMessage
	eventID int
	role    string
}

// New creates a new Hub instance with injected dependencies
func New(log logger.Logger, snapshots SnapshotProvider) *Hub {
	return &Hub{
		log:        log,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan envelope),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		greet:      make(chan greeting),
		snapshots:  snapshots,
	}
}

// Start begins the hub's main loop in a goroutine
func (h *Hub) Start() {
	go h.run()
}

// run handles client registration/unregistration and message broadcasting
func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()
			h.log.Debug("Client connected", "event_id", client.eventID, "role", client.role, "total_clients", len(h.clients))

			// Greet the new client with the current show state so it
			// renders without waiting for the next change. The fetch runs
			// off-loop; delivery comes back through the loop so a client
			// that disconnected in the meantime is skipped, not sent to.
			go func() {
				if h.snapshots == nil || client.eventID == 0 {
					return
				}
				snapshot, err := h.snapshots.Snapshot(client.eventID)
				if err != nil {
					h.log.Debug("snapshot for new client failed", "event_id", client.eventID, "error", err)
					return
				}
				h.greet <- greeting{client: client, msg: models.WSMessage{Type: "snapshot", Payload: snapshot}}
			}()

		case g := <-h.greet:
			h.mutex.RLock()
			registered := h.clients[g.client]
			h.mutex.RUnlock()
			if registered {
				select {
				case g.client.send <- g.msg:
				default:
				}
			}

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mutex.Unlock()
			h.log.Debug("Client disconnected", "total_clients", len(h.clients))

		case env := <-h.broadcast:
			h.mutex.RLock()
			for client := range h.clients {
				if env.eventID != 0 && client.eventID != env.eventID {
					continue
				}
				if env.role != "" && client.role != env.role {
					continue
				}
				select {
				case client.send <- env.msg:
				default:
					// Client's send channel is full, unregister
					go func(c *Client) {
						h.unregister <- c
					}(client)
				}
			}
			h.mutex.RUnlock()
		}
	}
}

// BroadcastMessage sends a message to all connected clients
func (h *Hub) BroadcastMessage(msgType string, payload interface{}) {
	h.broadcast <- envelope{msg: models.WSMessage{Type: msgType, Payload: payload}}
}

// BroadcastEvent sends a message to clients watching one event
func (h *Hub) BroadcastEvent(eventID int, msgType string, payload interface{}) {
	h.broadcast <- envelope{eventID: eventID, msg: models.WSMessage{Type: msgType, Payload: payload}}
}

// Send implements notify.Sender: notifications reach clients subscribed
// with the matching role
func (h *Hub) Send(_ string, role string, n notify.Notification) error {
	h.broadcast <- envelope{role: role, msg: models.WSMessage{Type: "notification", Payload: n}}
	return nil
}

// BridgeFeed forwards change-feed notices to connected clients: event row
// snapshots as event_update, accepted votes as vote_cast. Runs until the
// subscriptions close.
func (h *Hub) BridgeFeed(feed bus.Feed) {
	eventSub := feed.Subscribe(bus.TableLiveEvents, bus.KeyAll)
	voteSub := feed.Subscribe(bus.TableLiveVotes, bus.KeyAll)

	go func() {
		for {
			select {
			case notice, ok := <-eventSub.C:
				if !ok {
					return
				}
				h.BroadcastEvent(notice.Key, "event_update", notice.Payload)
			case notice, ok := <-voteSub.C:
				if !ok {
					return
				}
				if vote, ok := notice.Payload.(models.VoteNotice); ok {
					// Fingerprint stays server-side
					h.BroadcastEvent(notice.Key, "vote_cast", map[string]interface{}{
						"candidate_id": vote.CandidateID,
					})
				}
			}
		}
	}()
}

// readPump pumps messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("WebSocket error", "error", err)
			}
			break
		}

		var msg models.WSMessage
		if err := json.Unmarshal(message, &msg); err == nil {
			c.hub.log.Debug("Received message", "type", msg.Type)
		}
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}

			msgBytes, _ := json.Marshal(message)
			w.Write(msgBytes)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWs handles websocket requests from clients. Spectator pages pass
// ?event=<id>; role defaults to public.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("WebSocket upgrade error", "error", err)
		return
	}

	eventID, _ := strconv.Atoi(r.URL.Query().Get("event"))
	role := r.URL.Query().Get("role")
	if role == "" {
		role = notify.RolePublic
	}

	client := &Client{
		hub:     h,
		conn:    conn,
		send:    make(chan models.WSMessage, 256),
		eventID: eventID,
		role:    role,
	}
	h.register <- client

	// Allow collection of memory referenced by the caller by doing all work in new goroutines
	go client.writePump()
	go client.readPump()
}
