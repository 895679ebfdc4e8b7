package realtime

import (
	"sort"
	"sync"

	"arc_community_backend/internal/events"

	"github.com/google/uuid"
)

type presenceEntry struct {
	username string
	status   string
}

// Presence is the in-memory userId -> {username, status} table. It holds
// only users with at least one live socket.
type Presence struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]presenceEntry
}

func NewPresence() *Presence {
	return &Presence{entries: make(map[uuid.UUID]presenceEntry)}
}

// Online adds a user as online.
func (p *Presence) Online(userID uuid.UUID, username string) events.PresencePayload {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries[userID] = presenceEntry{username: username, status: events.StatusOnline}
	return events.PresencePayload{UserID: userID.String(), Username: username, Status: events.StatusOnline}
}

// SetStatus changes the status of a tracked user. ok is false when the user
// is not tracked.
func (p *Presence) SetStatus(userID uuid.UUID, status string) (events.PresencePayload, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[userID]
	if !ok {
		return events.PresencePayload{}, false
	}
	e.status = status
	p.entries[userID] = e
	return events.PresencePayload{UserID: userID.String(), Username: e.username, Status: status}, true
}

// Offline removes a user and returns the offline update to broadcast.
func (p *Presence) Offline(userID uuid.UUID) events.PresencePayload {
	p.mu.Lock()
	defer p.mu.Unlock()
	e := p.entries[userID]
	delete(p.entries, userID)
	return events.PresencePayload{UserID: userID.String(), Username: e.username, Status: events.StatusOffline}
}

// Status returns the current status, or offline.
func (p *Presence) Status(userID uuid.UUID) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if e, ok := p.entries[userID]; ok {
		return e.status
	}
	return events.StatusOffline
}

// Snapshot lists every tracked user ordered by username.
func (p *Presence) Snapshot() events.PresenceSnapshotPayload {
	p.mu.RLock()
	users := make([]events.PresencePayload, 0, len(p.entries))
	for id, e := range p.entries {
		users = append(users, events.PresencePayload{UserID: id.String(), Username: e.username, Status: e.status})
	}
	p.mu.RUnlock()
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return events.PresenceSnapshotPayload{Users: users}
}
