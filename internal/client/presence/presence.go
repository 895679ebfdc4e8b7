// Package presence projects the hub's presence broadcasts into a sorted
// list and lets the user pick their own status.
package presence

import (
	"errors"
	"sort"
	"sync"

	"arc_community_backend/internal/client/socket"
	"arc_community_backend/internal/events"

	"go.uber.org/zap"
)

var ErrInvalidStatus = errors.New("invalid presence status")

// Info is what the panel knows about one user.
type Info struct {
	Username string
	Status   string
}

// Entry is one row of the sorted panel.
type Entry struct {
	UserID   string
	Username string
	Status   string
}

var priority = map[string]int{
	events.StatusOnline: 0,
	events.StatusAway:   1,
	events.StatusBusy:   2,
	events.StatusDND:    3,
}

// Priority ranks a status for display. Unknown statuses sort last.
func Priority(status string) int {
	if p, ok := priority[status]; ok {
		return p
	}
	return len(priority)
}

// Sort orders users by status priority, then username, then id.
func Sort(users map[string]Info) []Entry {
	out := make([]Entry, 0, len(users))
	for id, info := range users {
		out = append(out, Entry{UserID: id, Username: info.Username, Status: info.Status})
	}
	sort.Slice(out, func(i, j int) bool {
		pi, pj := Priority(out[i].Status), Priority(out[j].Status)
		if pi != pj {
			return pi < pj
		}
		if out[i].Username != out[j].Username {
			return out[i].Username < out[j].Username
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

// Panel holds the live presence map.
type Panel struct {
	mu    sync.RWMutex
	users map[string]Info
}

func NewPanel() *Panel {
	return &Panel{users: make(map[string]Info)}
}

// Apply upserts one user, or removes them when they go offline.
func (p *Panel) Apply(u events.PresencePayload) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if u.Status == events.StatusOffline {
		delete(p.users, u.UserID)
		return
	}
	p.users[u.UserID] = Info{Username: u.Username, Status: u.Status}
}

// ApplySnapshot replaces the whole map.
func (p *Panel) ApplySnapshot(s events.PresenceSnapshotPayload) {
	users := make(map[string]Info, len(s.Users))
	for _, u := range s.Users {
		users[u.UserID] = Info{Username: u.Username, Status: u.Status}
	}
	p.mu.Lock()
	p.users = users
	p.mu.Unlock()
}

func (p *Panel) Entries() []Entry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return Sort(p.users)
}

func (p *Panel) Status(userID string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	info, ok := p.users[userID]
	return info.Status, ok
}

// Subscribe feeds presence events from bus into the panel.
func (p *Panel) Subscribe(bus socket.Bus) (unsubscribe func()) {
	update := bus.On(events.TypePresenceUpdate, func(ev events.Event) {
		if u, ok := ev.(events.PresencePayload); ok {
			p.Apply(u)
		}
	})
	snapshot := bus.On(events.TypePresenceSnapshot, func(ev events.Event) {
		if s, ok := ev.(events.PresenceSnapshotPayload); ok {
			p.ApplySnapshot(s)
		}
	})
	return func() {
		bus.Off(update)
		bus.Off(snapshot)
	}
}

// StatusSelector emits the user's chosen status. It does not wait for the
// hub to echo the change back.
type StatusSelector struct {
	bus      socket.Bus
	onSelect func(status string)
	logger   *zap.Logger
}

// NewStatusSelector creates a selector. onSelect may be nil.
func NewStatusSelector(bus socket.Bus, onSelect func(status string), logger *zap.Logger) *StatusSelector {
	return &StatusSelector{bus: bus, onSelect: onSelect, logger: logger.Named("StatusSelector")}
}

func (s *StatusSelector) Select(status string) error {
	if !events.ValidStatus(status) {
		return ErrInvalidStatus
	}
	if err := s.bus.Emit(events.StatusChangePayload{Status: status}); err != nil {
		s.logger.Warn("Failed to emit status change", zap.String("status", status), zap.Error(err))
		return err
	}
	if s.onSelect != nil {
		s.onSelect(status)
	}
	return nil
}
