// Package sharedtest provides in-memory implementations of the cross-module
// interfaces in package shared.
package sharedtest

import (
	"context"
	"strings"
	"sync"
	"time"

	"arc_community_backend/internal/common"
	"arc_community_backend/internal/shared"

	"github.com/google/uuid"
)

// Directory is an in-memory shared.UserDirectory.
type Directory struct {
	mu    sync.Mutex
	users map[uuid.UUID]*shared.User
}

func NewDirectory() *Directory {
	return &Directory{users: map[uuid.UUID]*shared.User{}}
}

// Add registers a user with the given username and returns it.
func (d *Directory) Add(username string) *shared.User {
	d.mu.Lock()
	defer d.mu.Unlock()
	u := &shared.User{ID: uuid.New(), Username: username, Role: shared.RoleUser, CreatedAt: time.Now()}
	d.users[u.ID] = u
	return u
}

func (d *Directory) GetUserByID(_ context.Context, id uuid.UUID) (*shared.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if u, ok := d.users[id]; ok {
		return u, nil
	}
	return nil, common.ErrNotFound.WithDetails("User not found with this ID.")
}

func (d *Directory) GetUserByUsername(_ context.Context, username string) (*shared.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range d.users {
		if strings.EqualFold(u.Username, username) {
			return u, nil
		}
	}
	return nil, common.ErrNotFound.WithDetails("User not found with this username.")
}

func (d *Directory) GetSummaries(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]shared.UserSummary, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[uuid.UUID]shared.UserSummary, len(ids))
	for _, id := range ids {
		if u, ok := d.users[id]; ok {
			out[id] = u.Summary()
		}
	}
	return out, nil
}

// Notifier records every notification instead of storing it.
type Notifier struct {
	mu   sync.Mutex
	sent []shared.NotificationInput
	Err  error
}

func (n *Notifier) Notify(_ context.Context, in shared.NotificationInput) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Err != nil {
		return n.Err
	}
	n.sent = append(n.sent, in)
	return nil
}

// Sent returns recorded notifications, optionally only those for userID.
func (n *Notifier) Sent(userID ...uuid.UUID) []shared.NotificationInput {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []shared.NotificationInput
	for _, in := range n.sent {
		if len(userID) == 0 || in.UserID == userID[0] {
			out = append(out, in)
		}
	}
	return out
}

// Activity records feed entries.
type Activity struct {
	mu      sync.Mutex
	entries []shared.ActivityEntry
}

func (a *Activity) Record(_ context.Context, e shared.ActivityEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
}

// Kinds returns the recorded kinds for userID in order.
func (a *Activity) Kinds(userID uuid.UUID) []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []string
	for _, e := range a.entries {
		if e.UserID == userID {
			out = append(out, e.Kind)
		}
	}
	return out
}
