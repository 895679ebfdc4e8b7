// Package eventstest provides an in-memory events.Publisher for tests.
package eventstest

import (
	"sync"

	"arc_community_backend/internal/events"

	"github.com/google/uuid"
)

// Sent is one recorded delivery. UserID is uuid.Nil for broadcasts.
type Sent struct {
	UserID uuid.UUID
	Event  events.Event
}

// Recorder records every published event.
type Recorder struct {
	mu     sync.Mutex
	sent   []Sent
	online map[uuid.UUID]bool
}

func NewRecorder() *Recorder {
	return &Recorder{online: map[uuid.UUID]bool{}}
}

func (r *Recorder) SendToUser(userID uuid.UUID, ev events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, Sent{UserID: userID, Event: ev})
}

func (r *Recorder) Broadcast(ev events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, Sent{Event: ev})
}

func (r *Recorder) IsOnline(userID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.online[userID]
}

// SetOnline marks a user as having a live socket.
func (r *Recorder) SetOnline(userID uuid.UUID, online bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.online[userID] = online
}

// Sent returns a copy of everything published so far.
func (r *Recorder) Sent() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Sent, len(r.sent))
	copy(out, r.sent)
	return out
}

// OfType filters recorded deliveries by event type.
func (r *Recorder) OfType(t events.Type) []Sent {
	var out []Sent
	for _, s := range r.Sent() {
		if s.Event.EventType() == t {
			out = append(out, s)
		}
	}
	return out
}
