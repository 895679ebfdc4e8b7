// Package notifications keeps the client's notification list in sync with
// the server and resolves where a notification leads.
package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"arc_community_backend/internal/client/api"
	"arc_community_backend/internal/client/session"
	"arc_community_backend/internal/client/socket"
	"arc_community_backend/internal/client/toast"
	"arc_community_backend/internal/events"

	"go.uber.org/zap"
)

const (
	FilterAll    = "all"
	FilterUnread = "unread"
)

var ErrNoTarget = errors.New("notification has no navigation target")

// API is the part of the backend client the center needs.
type API interface {
	ListNotifications(ctx context.Context, filter string) ([]api.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context) error
	DeleteNotification(ctx context.Context, id string) error
	DeleteReadNotifications(ctx context.Context) error
}

// Target is where opening a notification navigates to.
type Target struct {
	Link string
	View string
	Tab  string
}

// Center mutates local state only after the server confirms a change.
type Center struct {
	api     API
	bus     socket.Bus
	toaster toast.Toaster
	session *session.Session
	logger  *zap.Logger
	now     func() time.Time

	mu       sync.Mutex
	items    []api.Notification
	listener *socket.ListenerID
}

func NewCenter(a API, bus socket.Bus, toaster toast.Toaster, sess *session.Session, logger *zap.Logger) *Center {
	return &Center{
		api:     a,
		bus:     bus,
		toaster: toaster,
		session: sess,
		logger:  logger.Named("NotificationCenter"),
		now:     time.Now,
	}
}

// Load replaces the list with the server's view for filter.
func (c *Center) Load(ctx context.Context, filter string) error {
	if filter != FilterAll && filter != FilterUnread {
		return fmt.Errorf("unknown notification filter %q", filter)
	}
	items, err := c.api.ListNotifications(ctx, filter)
	if err != nil {
		c.toaster.Error("Could not load notifications: " + api.Message(err))
		return err
	}
	c.mu.Lock()
	c.items = items
	c.mu.Unlock()
	return nil
}

// Items returns a copy of the list, newest first.
func (c *Center) Items() []api.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]api.Notification(nil), c.items...)
}

func (c *Center) UnreadCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, it := range c.items {
		if !it.IsRead {
			n++
		}
	}
	return n
}

// Subscribe registers the new-notification handler once.
func (c *Center) Subscribe() (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listener == nil {
		id := c.bus.On(events.TypeNewNotification, c.onNotification)
		c.listener = &id
	}
	return func() {
		c.mu.Lock()
		id := c.listener
		c.listener = nil
		c.mu.Unlock()
		if id != nil {
			c.bus.Off(*id)
		}
	}
}

func (c *Center) onNotification(ev events.Event) {
	p, ok := ev.(events.NotificationPayload)
	if !ok {
		return
	}
	n := api.Notification{
		ID:        p.ID,
		Type:      p.Type,
		Title:     p.Title,
		Message:   p.Message,
		Link:      p.Link,
		Data:      p.Data,
		IsRead:    p.IsRead,
		CreatedAt: p.CreatedAt,
		Sender:    p.Sender,
	}
	if n.ID == "" {
		n.ID = strconv.FormatInt(c.now().UnixMilli(), 10)
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = c.now()
	}
	c.mu.Lock()
	c.items = append([]api.Notification{n}, c.items...)
	c.mu.Unlock()

	title := n.Title
	if title == "" {
		title = n.Message
	}
	c.toaster.Info(title)
}

func (c *Center) MarkAsRead(ctx context.Context, id string) error {
	if err := c.api.MarkNotificationRead(ctx, id); err != nil {
		c.toaster.Error("Could not mark notification as read: " + api.Message(err))
		return err
	}
	c.mutate(func(items []api.Notification) []api.Notification {
		for i := range items {
			if items[i].ID == id {
				items[i].IsRead = true
			}
		}
		return items
	})
	return nil
}

func (c *Center) Delete(ctx context.Context, id string) error {
	if err := c.api.DeleteNotification(ctx, id); err != nil {
		c.toaster.Error("Could not delete notification: " + api.Message(err))
		return err
	}
	c.mutate(func(items []api.Notification) []api.Notification {
		return filter(items, func(n api.Notification) bool { return n.ID != id })
	})
	return nil
}

func (c *Center) MarkAllAsRead(ctx context.Context) error {
	if err := c.api.MarkAllNotificationsRead(ctx); err != nil {
		c.toaster.Error("Could not mark notifications as read: " + api.Message(err))
		return err
	}
	c.mutate(func(items []api.Notification) []api.Notification {
		for i := range items {
			items[i].IsRead = true
		}
		return items
	})
	return nil
}

func (c *Center) DeleteAllRead(ctx context.Context) error {
	if err := c.api.DeleteReadNotifications(ctx); err != nil {
		c.toaster.Error("Could not delete read notifications: " + api.Message(err))
		return err
	}
	c.mutate(func(items []api.Notification) []api.Notification {
		return filter(items, func(n api.Notification) bool { return !n.IsRead })
	})
	return nil
}

func (c *Center) mutate(fn func([]api.Notification) []api.Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = fn(c.items)
}

// Open marks n read if needed and navigates to its target. A failed mark is
// reported but does not block navigation. A tab is handed to the target view
// through the session's one-shot key.
func (c *Center) Open(ctx context.Context, n api.Notification) (Target, error) {
	if !n.IsRead {
		_ = c.MarkAsRead(ctx, n.ID)
	}
	target, err := ResolveTarget(n)
	if err != nil {
		return Target{}, err
	}
	if target.Tab != "" {
		c.session.SetOnce(session.TargetTabKey, target.Tab)
	}
	view := target.View
	if target.Link != "" {
		view = target.Link
	}
	if err := c.session.Navigate(view); err != nil {
		c.logger.Warn("Failed to persist navigation", zap.Error(err))
	}
	return target, nil
}

// ResolveTarget prefers a flat link. Otherwise Data must hold {view, tab},
// either as an object or as a JSON string containing one.
func ResolveTarget(n api.Notification) (Target, error) {
	if n.Link != nil && *n.Link != "" {
		return Target{Link: *n.Link}, nil
	}
	if len(n.Data) == 0 || string(n.Data) == "null" {
		return Target{}, ErrNoTarget
	}

	raw := []byte(n.Data)
	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		raw = []byte(encoded)
	}
	var nav struct {
		View string `json:"view"`
		Tab  string `json:"tab"`
	}
	if err := json.Unmarshal(raw, &nav); err != nil {
		return Target{}, fmt.Errorf("%w: %v", ErrNoTarget, err)
	}
	if nav.View == "" {
		return Target{}, ErrNoTarget
	}
	return Target{View: nav.View, Tab: nav.Tab}, nil
}

func filter(items []api.Notification, keep func(api.Notification) bool) []api.Notification {
	out := items[:0]
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}
