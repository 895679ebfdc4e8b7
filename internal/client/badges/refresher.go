// Package badges keeps the unread counters shown next to navigation entries.
package badges

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const DefaultInterval = 30 * time.Second

// Counter fetches the unread totals.
type Counter interface {
	UnreadNotificationCount(ctx context.Context) (int64, error)
	UnreadMessageCount(ctx context.Context, since time.Time) (int64, error)
}

// Counts is a snapshot of the badges.
type Counts struct {
	Notifications int64
	Messages      int64
	RefreshedAt   time.Time
}

// Refresher polls both counters. Failures are logged and the previous
// value is kept.
type Refresher struct {
	api      Counter
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time

	mu     sync.RWMutex
	counts Counts
	since  time.Time
}

func NewRefresher(api Counter, interval time.Duration, logger *zap.Logger) *Refresher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Refresher{api: api, interval: interval, logger: logger.Named("BadgeRefresher"), now: time.Now}
}

// SetMessagesSince moves the point after which messages count as unread.
func (r *Refresher) SetMessagesSince(t time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.since = t
}

func (r *Refresher) Counts() Counts {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.counts
}

// Run refreshes immediately and then every interval until ctx is done.
// onRefresh, if set, receives each new snapshot.
func (r *Refresher) Run(ctx context.Context, onRefresh func(Counts)) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		c := r.Refresh(ctx)
		if onRefresh != nil {
			onRefresh(c)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Refresh fetches both counters once.
func (r *Refresher) Refresh(ctx context.Context) Counts {
	r.mu.RLock()
	since := r.since
	r.mu.RUnlock()

	notifications, nErr := r.api.UnreadNotificationCount(ctx)
	if nErr != nil {
		r.logger.Warn("Failed to refresh notification badge", zap.Error(nErr))
	}
	messages, mErr := r.api.UnreadMessageCount(ctx, since)
	if mErr != nil {
		r.logger.Warn("Failed to refresh message badge", zap.Error(mErr))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if nErr == nil {
		r.counts.Notifications = notifications
	}
	if mErr == nil {
		r.counts.Messages = messages
	}
	if nErr == nil || mErr == nil {
		r.counts.RefreshedAt = r.now()
	}
	return r.counts
}
