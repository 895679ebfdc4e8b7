// Package realtime is the server side of the socket channel: a hub of
// authenticated websocket clients keyed by user, plus the presence table.
package realtime

import (
	"errors"
	"sync"

	"arc_community_backend/internal/events"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Hub tracks live clients per user and implements events.Publisher.
type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]map[*Client]struct{}

	// presenceMu orders each presence change with its broadcast.
	presenceMu sync.Mutex
	presence   *Presence
	logger     *zap.Logger
}

var _ events.Publisher = (*Hub)(nil)

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:  make(map[uuid.UUID]map[*Client]struct{}),
		presence: NewPresence(),
		logger:   logger.Named("RealtimeHub"),
	}
}

// Presence exposes the presence table.
func (h *Hub) Presence() *Presence {
	return h.presence
}

// register adds c. The first connection of a user marks them online and
// broadcasts it. The new client always receives the presence snapshot.
func (h *Hub) register(c *Client) {
	h.presenceMu.Lock()
	defer h.presenceMu.Unlock()

	h.mu.Lock()
	set, ok := h.clients[c.userID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}
	first := len(set) == 1
	var update events.PresencePayload
	if first {
		update = h.presence.Online(c.userID, c.username)
	}
	h.mu.Unlock()

	h.logger.Debug("Client connected", zap.String("userID", c.userID.String()), zap.Bool("first", first))
	if first {
		h.Broadcast(update)
	}
	h.deliver(c, h.presence.Snapshot())
}

// unregister removes c. It is safe to call more than once.
func (h *Hub) unregister(c *Client) {
	h.presenceMu.Lock()
	defer h.presenceMu.Unlock()

	h.mu.Lock()
	set, ok := h.clients[c.userID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, present := set[c]; !present {
		h.mu.Unlock()
		return
	}
	delete(set, c)
	last := len(set) == 0
	var update events.PresencePayload
	if last {
		delete(h.clients, c.userID)
		update = h.presence.Offline(c.userID)
	}
	h.mu.Unlock()

	c.close()
	h.logger.Debug("Client disconnected", zap.String("userID", c.userID.String()), zap.Bool("last", last))
	if last {
		h.Broadcast(update)
	}
}

// handleInbound processes one frame read from c.
func (h *Hub) handleInbound(c *Client, raw []byte) {
	ev, err := events.Decode(raw)
	if err != nil {
		msg := "invalid event"
		if errors.Is(err, events.ErrInvalidPayload) || errors.Is(err, events.ErrUnknownType) {
			msg = err.Error()
		}
		h.deliver(c, events.ErrorPayload{Message: msg})
		return
	}
	change, ok := ev.(events.StatusChangePayload)
	if !ok {
		h.deliver(c, events.ErrorPayload{Message: "unsupported event " + string(ev.EventType())})
		return
	}
	h.presenceMu.Lock()
	defer h.presenceMu.Unlock()
	update, ok := h.presence.SetStatus(c.userID, change.Status)
	if !ok {
		h.logger.Warn("Status change from untracked user", zap.String("userID", c.userID.String()))
		h.deliver(c, events.ErrorPayload{Message: "presence not tracked for this connection"})
		return
	}
	h.Broadcast(update)
}

// SendToUser delivers ev to every socket of userID.
func (h *Hub) SendToUser(userID uuid.UUID, ev events.Event) {
	msg, err := events.Encode(ev)
	if err != nil {
		h.logger.Error("Failed to encode event", zap.Error(err), zap.String("type", string(ev.EventType())))
		return
	}
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients[userID]))
	for c := range h.clients[userID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.enqueue(c, msg)
	}
}

// Broadcast delivers ev to every connected socket.
func (h *Hub) Broadcast(ev events.Event) {
	msg, err := events.Encode(ev)
	if err != nil {
		h.logger.Error("Failed to encode event", zap.Error(err), zap.String("type", string(ev.EventType())))
		return
	}
	h.mu.RLock()
	var targets []*Client
	for _, set := range h.clients {
		for c := range set {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.enqueue(c, msg)
	}
}

func (h *Hub) IsOnline(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

// Online returns the number of users with a live socket.
func (h *Hub) Online() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) deliver(c *Client, ev events.Event) {
	msg, err := events.Encode(ev)
	if err != nil {
		h.logger.Error("Failed to encode event", zap.Error(err))
		return
	}
	h.enqueue(c, msg)
}

// enqueue never blocks. A client whose buffer is full is dropped.
func (h *Hub) enqueue(c *Client, msg []byte) {
	select {
	case c.send <- msg:
	case <-c.done:
	default:
		h.logger.Warn("Send buffer full, dropping client", zap.String("userID", c.userID.String()))
		go h.unregister(c)
	}
}

// Stop closes every connection.
func (h *Hub) Stop() {
	h.mu.Lock()
	var all []*Client
	for _, set := range h.clients {
		for c := range set {
			all = append(all, c)
		}
	}
	h.clients = make(map[uuid.UUID]map[*Client]struct{})
	h.mu.Unlock()

	for _, c := range all {
		c.close()
	}
	h.logger.Info("Realtime hub stopped", zap.Int("closedClients", len(all)))
}
