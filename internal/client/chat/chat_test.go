package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"arc_community_backend/internal/client/toast"
	"arc_community_backend/internal/group"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeChat struct {
	mu      sync.Mutex
	calls   int
	gate    chan struct{}
	posted  []string
	postErr error
	// respond builds the result of the n-th ListMessages call (1-based).
	respond func(n int, channelID uuid.UUID) []group.MessageResponse
}

func (f *fakeChat) ListMessages(ctx context.Context, _, channelID uuid.UUID, _ int) ([]group.MessageResponse, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	gate := f.gate
	f.mu.Unlock()
	if n == 1 && gate != nil {
		<-gate
	}
	if f.respond == nil {
		return nil, nil
	}
	return f.respond(n, channelID), nil
}

func (f *fakeChat) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeChat) ListChannels(context.Context, uuid.UUID) ([]group.ChannelResponse, error) {
	return []group.ChannelResponse{{ID: uuid.New(), Name: "General", Slug: "general"}}, nil
}

func (f *fakeChat) CreateChannel(_ context.Context, _ uuid.UUID, name string) (*group.ChannelResponse, error) {
	return &group.ChannelResponse{ID: uuid.New(), Name: name, Slug: name}, nil
}

func (f *fakeChat) DeleteChannel(context.Context, uuid.UUID, uuid.UUID) error { return nil }

func (f *fakeChat) PostMessage(_ context.Context, groupID, channelID uuid.UUID, content string) (*group.MessageResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.postErr != nil {
		return nil, f.postErr
	}
	f.posted = append(f.posted, content)
	return &group.MessageResponse{ID: uuid.New(), GroupID: groupID, ChannelID: channelID, Content: content}, nil
}

func (f *fakeChat) ToggleReaction(_ context.Context, _, messageID uuid.UUID, emoji string) (*group.MessageResponse, error) {
	return &group.MessageResponse{ID: messageID, Reactions: map[string][]uuid.UUID{emoji: {uuid.New()}}}, nil
}

func msg(channelID uuid.UUID, content string) group.MessageResponse {
	return group.MessageResponse{ID: uuid.New(), ChannelID: channelID, Content: content}
}

func TestPoller_ApplyGuards(t *testing.T) {
	p := NewPoller(&fakeChat{}, uuid.New(), time.Hour, nil, zap.NewNop())
	ch := uuid.New()
	p.channel = ch

	assert.True(t, p.apply(2, ch, []group.MessageResponse{msg(ch, "newer")}))
	assert.False(t, p.apply(1, ch, []group.MessageResponse{msg(ch, "older")}), "older sequence must be discarded")
	assert.False(t, p.apply(3, uuid.New(), nil), "other channel must be discarded")
	require.Len(t, p.Messages(), 1)
	assert.Equal(t, "newer", p.Messages()[0].Content)
}

func TestPoller_SlowResponseDoesNotOverwriteNewer(t *testing.T) {
	ch := uuid.New()
	fake := &fakeChat{
		gate: make(chan struct{}),
		respond: func(n int, channelID uuid.UUID) []group.MessageResponse {
			if n == 1 {
				return []group.MessageResponse{msg(channelID, "stale")}
			}
			return []group.MessageResponse{msg(channelID, "fresh")}
		},
	}
	p := NewPoller(fake, uuid.New(), 10*time.Millisecond, nil, zap.NewNop())
	p.SetChannel(context.Background(), ch)
	defer p.Stop()

	require.Eventually(t, func() bool {
		m := p.Messages()
		return len(m) == 1 && m[0].Content == "fresh"
	}, 2*time.Second, 5*time.Millisecond)

	close(fake.gate)
	time.Sleep(50 * time.Millisecond)
	m := p.Messages()
	require.Len(t, m, 1)
	assert.Equal(t, "fresh", m[0].Content)
}

func TestPoller_SetChannelSwitchesAndStopHalts(t *testing.T) {
	first, second := uuid.New(), uuid.New()
	updates := make(chan uuid.UUID, 64)
	fake := &fakeChat{respond: func(_ int, channelID uuid.UUID) []group.MessageResponse {
		return []group.MessageResponse{msg(channelID, channelID.String())}
	}}
	p := NewPoller(fake, uuid.New(), 10*time.Millisecond, func(ch uuid.UUID, _ []group.MessageResponse) {
		select {
		case updates <- ch:
		default:
		}
	}, zap.NewNop())

	p.SetChannel(context.Background(), first)
	require.Eventually(t, func() bool { return fake.Calls() >= 2 }, 2*time.Second, 5*time.Millisecond)

	p.SetChannel(context.Background(), second)
	require.Eventually(t, func() bool {
		m := p.Messages()
		return len(m) == 1 && m[0].ChannelID == second
	}, 2*time.Second, 5*time.Millisecond)

	p.Stop()
	calls := fake.Calls()
	time.Sleep(50 * time.Millisecond)
	assert.LessOrEqual(t, fake.Calls(), calls+1, "polling must stop")
	assert.Equal(t, uuid.Nil, p.Channel())
}

func newRoom(t *testing.T, fake *fakeChat) (*Room, *toast.Recorder) {
	t.Helper()
	rec := toast.NewRecorder()
	loaded := make(chan struct{}, 1)
	r := NewRoom(fake, uuid.New(), time.Hour, rec, func(uuid.UUID, []group.MessageResponse) {
		select {
		case loaded <- struct{}{}:
		default:
		}
	}, zap.NewNop())
	channels, err := r.LoadChannels(context.Background())
	require.NoError(t, err)
	r.Select(context.Background(), channels[0].ID)
	t.Cleanup(r.Close)
	select {
	case <-loaded:
	case <-time.After(2 * time.Second):
		t.Fatal("initial fetch did not complete")
	}
	return r, rec
}

func TestRoom_SendFailureRestoresDraft(t *testing.T) {
	fake := &fakeChat{postErr: errors.New("503")}
	r, rec := newRoom(t, fake)

	draft := "  anyone up for Spaceport?  "
	r.SetDraft(draft)
	_, err := r.Send(context.Background())
	require.Error(t, err)
	assert.Equal(t, draft, r.Draft())
	assert.Empty(t, r.Messages())
	assert.Equal(t, 1, rec.Count(toast.KindError))
}

func TestRoom_SendSuccessAppends(t *testing.T) {
	fake := &fakeChat{}
	r, _ := newRoom(t, fake)

	r.SetDraft("gg")
	sent, err := r.Send(context.Background())
	require.NoError(t, err)
	assert.Empty(t, r.Draft())
	require.Len(t, r.Messages(), 1)
	assert.Equal(t, sent.ID, r.Messages()[0].ID)
	assert.Equal(t, []string{"gg"}, fake.posted)

	r.SetDraft("   ")
	_, err = r.Send(context.Background())
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestRoom_SendWithoutChannel(t *testing.T) {
	r := NewRoom(&fakeChat{}, uuid.New(), time.Hour, toast.NewRecorder(), nil, zap.NewNop())
	r.SetDraft("hello")
	_, err := r.Send(context.Background())
	assert.ErrorIs(t, err, ErrNoChannel)
	assert.Equal(t, "hello", r.Draft())
}

func TestRoom_ChannelLookupAndRestCalls(t *testing.T) {
	r, rec := newRoom(t, &fakeChat{})
	ch, ok := r.ChannelBySlug("general")
	require.True(t, ok)

	_, err := r.CreateChannel(context.Background(), "raids")
	require.NoError(t, err)
	require.NoError(t, r.DeleteChannel(context.Background(), ch.ID))
	assert.Equal(t, 2, rec.Count(toast.KindSuccess))

	m, err := r.React(context.Background(), uuid.New(), "🔥")
	require.NoError(t, err)
	assert.Len(t, m.Reactions["🔥"], 1)
}
