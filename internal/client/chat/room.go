package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"arc_community_backend/internal/client/api"
	"arc_community_backend/internal/client/toast"
	"arc_community_backend/internal/group"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrNoChannel    = errors.New("no channel selected")
)

// API is the part of the backend client a room needs.
type API interface {
	MessageLister
	ListChannels(ctx context.Context, groupID uuid.UUID) ([]group.ChannelResponse, error)
	CreateChannel(ctx context.Context, groupID uuid.UUID, name string) (*group.ChannelResponse, error)
	DeleteChannel(ctx context.Context, groupID, channelID uuid.UUID) error
	PostMessage(ctx context.Context, groupID, channelID uuid.UUID, content string) (*group.MessageResponse, error)
	ToggleReaction(ctx context.Context, groupID, messageID uuid.UUID, emoji string) (*group.MessageResponse, error)
}

// Room is one group's chat: its channels, the polled messages of the
// selected channel and the compose draft.
type Room struct {
	api     API
	groupID uuid.UUID
	poller  *Poller
	toaster toast.Toaster
	logger  *zap.Logger

	mu       sync.Mutex
	channels []group.ChannelResponse
	draft    string
}

func NewRoom(a API, groupID uuid.UUID, interval time.Duration, toaster toast.Toaster, onUpdate func(uuid.UUID, []group.MessageResponse), logger *zap.Logger) *Room {
	return &Room{
		api:     a,
		groupID: groupID,
		poller:  NewPoller(a, groupID, interval, onUpdate, logger),
		toaster: toaster,
		logger:  logger.Named("ChatRoom"),
	}
}

func (r *Room) LoadChannels(ctx context.Context) ([]group.ChannelResponse, error) {
	channels, err := r.api.ListChannels(ctx, r.groupID)
	if err != nil {
		r.toaster.Error("Could not load channels: " + api.Message(err))
		return nil, err
	}
	r.mu.Lock()
	r.channels = channels
	r.mu.Unlock()
	return channels, nil
}

func (r *Room) Channels() []group.ChannelResponse {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]group.ChannelResponse(nil), r.channels...)
}

// ChannelBySlug finds a loaded channel.
func (r *Room) ChannelBySlug(slug string) (group.ChannelResponse, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.channels {
		if c.Slug == slug || c.ID.String() == slug {
			return c, true
		}
	}
	return group.ChannelResponse{}, false
}

// Select starts polling channelID.
func (r *Room) Select(ctx context.Context, channelID uuid.UUID) {
	r.poller.SetChannel(ctx, channelID)
}

func (r *Room) Close() {
	r.poller.Stop()
}

func (r *Room) Messages() []group.MessageResponse {
	return r.poller.Messages()
}

func (r *Room) SetDraft(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.draft = text
}

func (r *Room) Draft() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.draft
}

// Send posts the draft. The draft is cleared before the request and restored
// verbatim if it fails.
func (r *Room) Send(ctx context.Context) (*group.MessageResponse, error) {
	channelID := r.poller.Channel()
	if channelID == uuid.Nil {
		return nil, ErrNoChannel
	}

	r.mu.Lock()
	text := r.draft
	if strings.TrimSpace(text) == "" {
		r.mu.Unlock()
		return nil, ErrEmptyMessage
	}
	r.draft = ""
	r.mu.Unlock()

	msg, err := r.api.PostMessage(ctx, r.groupID, channelID, text)
	if err != nil {
		r.mu.Lock()
		r.draft = text
		r.mu.Unlock()
		r.toaster.Error("Could not send message: " + api.Message(err))
		return nil, err
	}
	r.poller.appendLocal(*msg)
	return msg, nil
}

func (r *Room) React(ctx context.Context, messageID uuid.UUID, emoji string) (*group.MessageResponse, error) {
	msg, err := r.api.ToggleReaction(ctx, r.groupID, messageID, emoji)
	if err != nil {
		r.toaster.Error("Could not react: " + api.Message(err))
		return nil, err
	}
	return msg, nil
}

func (r *Room) CreateChannel(ctx context.Context, name string) (*group.ChannelResponse, error) {
	ch, err := r.api.CreateChannel(ctx, r.groupID, name)
	if err != nil {
		r.toaster.Error("Could not create channel: " + api.Message(err))
		return nil, err
	}
	r.toaster.Success("Channel #" + ch.Slug + " created.")
	return ch, nil
}

func (r *Room) DeleteChannel(ctx context.Context, channelID uuid.UUID) error {
	if err := r.api.DeleteChannel(ctx, r.groupID, channelID); err != nil {
		r.toaster.Error("Could not delete channel: " + api.Message(err))
		return err
	}
	r.toaster.Success("Channel deleted.")
	return nil
}
