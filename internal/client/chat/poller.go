// Package chat polls a group channel and posts to it.
package chat

import (
	"context"
	"sync"
	"time"

	"arc_community_backend/internal/group"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultInterval = 2 * time.Second
	fetchLimit      = 100
)

// MessageLister fetches the latest messages of a channel.
type MessageLister interface {
	ListMessages(ctx context.Context, groupID, channelID uuid.UUID, limit int) ([]group.MessageResponse, error)
}

// Poller fetches the current channel immediately and then every interval.
// Fetches may overlap; each carries a sequence number and only a result
// newer than the last applied one, for the channel still selected, is kept.
type Poller struct {
	api      MessageLister
	groupID  uuid.UUID
	interval time.Duration
	onUpdate func(channelID uuid.UUID, msgs []group.MessageResponse)
	logger   *zap.Logger

	mu       sync.Mutex
	channel  uuid.UUID
	seq      uint64
	applied  uint64
	messages []group.MessageResponse
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewPoller creates a stopped poller. onUpdate may be nil.
func NewPoller(api MessageLister, groupID uuid.UUID, interval time.Duration, onUpdate func(uuid.UUID, []group.MessageResponse), logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		api:      api,
		groupID:  groupID,
		interval: interval,
		onUpdate: onUpdate,
		logger:   logger.Named("ChatPoller").With(zap.String("groupID", groupID.String())),
	}
}

// SetChannel stops polling the previous channel and starts on channelID.
func (p *Poller) SetChannel(ctx context.Context, channelID uuid.UUID) {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.channel = channelID
	p.messages = nil
	p.mu.Unlock()

	p.wg.Add(1)
	go p.loop(loopCtx, channelID)
}

// Stop cancels the loop and waits for it to exit. In-flight fetches finish
// on their own and are discarded.
func (p *Poller) Stop() {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.channel = uuid.Nil
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Poller) Channel() uuid.UUID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.channel
}

// Messages returns a copy of the last applied result.
func (p *Poller) Messages() []group.MessageResponse {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]group.MessageResponse(nil), p.messages...)
}

func (p *Poller) loop(ctx context.Context, channelID uuid.UUID) {
	defer p.wg.Done()
	go p.fetch(ctx, channelID)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			go p.fetch(ctx, channelID)
		}
	}
}

func (p *Poller) fetch(ctx context.Context, channelID uuid.UUID) {
	seq := p.nextSeq()
	msgs, err := p.api.ListMessages(ctx, p.groupID, channelID, fetchLimit)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Warn("Message poll failed", zap.String("channelID", channelID.String()), zap.Error(err))
		}
		return
	}
	p.apply(seq, channelID, msgs)
}

func (p *Poller) nextSeq() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	return p.seq
}

// apply stores msgs unless they are stale. It reports whether they were kept.
func (p *Poller) apply(seq uint64, channelID uuid.UUID, msgs []group.MessageResponse) bool {
	p.mu.Lock()
	if channelID != p.channel || seq <= p.applied {
		p.mu.Unlock()
		return false
	}
	p.applied = seq
	p.messages = msgs
	cb := p.onUpdate
	p.mu.Unlock()

	if cb != nil {
		cb(channelID, append([]group.MessageResponse(nil), msgs...))
	}
	return true
}

// appendLocal adds a just-posted message if its channel is still current.
func (p *Poller) appendLocal(msg group.MessageResponse) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if msg.ChannelID != p.channel {
		return
	}
	for _, m := range p.messages {
		if m.ID == msg.ID {
			return
		}
	}
	p.messages = append(p.messages, msg)
}
