package socket

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"arc_community_backend/internal/auth"
	"arc_community_backend/internal/client/session"
	"arc_community_backend/internal/config"
	"arc_community_backend/internal/events"
	"arc_community_backend/internal/realtime"
	"arc_community_backend/internal/shared"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestDispatch_DropsInvalidFramesAndHonoursOff(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	c := New("ws://unused", session.New(), zap.New(core))

	var got []string
	first := c.On(events.TypeNewMessage, func(ev events.Event) {
		got = append(got, "first:"+ev.(events.MessagePayload).ID)
	})
	c.On(events.TypeNewMessage, func(ev events.Event) {
		got = append(got, "second:"+ev.(events.MessagePayload).ID)
	})

	raw, err := events.Encode(events.MessagePayload{ID: "m1", ChannelID: "c1"})
	require.NoError(t, err)
	c.dispatch(raw)
	c.dispatch([]byte(`{"type":"new-message","data":{"content":"no ids"}}`))
	c.dispatch([]byte(`{"type":"mystery","data":{}}`))

	c.Off(first)
	c.dispatch(raw)

	assert.Equal(t, []string{"first:m1", "second:m1", "second:m1"}, got)
	assert.Equal(t, 2, logs.Len())
}

func TestEmit_RequiresConnection(t *testing.T) {
	c := New("ws://unused", session.New(), zap.NewNop())
	assert.ErrorIs(t, c.Emit(events.StatusChangePayload{Status: events.StatusAway}), ErrNotConnected)
	assert.ErrorIs(t, c.Emit(events.StatusChangePayload{Status: "sleeping"}), events.ErrInvalidPayload)
}

func TestClient_AgainstHub(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{JWTSecretKey: "socket-secret", JWTAccessTokenExpiryMinutes: time.Hour, WSAllowedOrigins: []string{"*"}}
	tokens := auth.NewJWTService(cfg, auth.NewInMemoryBlocklistService(time.Minute), zap.NewNop())
	hub := realtime.NewHub(zap.NewNop())
	r := gin.New()
	realtime.NewHandler(hub, tokens, cfg, zap.NewNop()).RegisterRoutes(r.Group("/api"))
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		hub.Stop()
		srv.Close()
	})

	me := &shared.User{ID: uuid.New(), Username: "raider", Role: shared.RoleUser}
	token, _, err := tokens.GenerateAccessToken(me)
	require.NoError(t, err)
	sess := session.New()
	require.NoError(t, sess.Login(token, me.ID.String(), me.Username))

	c := New("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/ws", sess, zap.NewNop())
	snapshots := make(chan events.PresenceSnapshotPayload, 1)
	updates := make(chan events.PresencePayload, 4)
	c.On(events.TypePresenceSnapshot, func(ev events.Event) { snapshots <- ev.(events.PresenceSnapshotPayload) })
	c.On(events.TypePresenceUpdate, func(ev events.Event) { updates <- ev.(events.PresencePayload) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, c.Connect(ctx))
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	select {
	case snap := <-snapshots:
		require.Len(t, snap.Users, 1)
		assert.Equal(t, "raider", snap.Users[0].Username)
	case <-time.After(3 * time.Second):
		t.Fatal("no presence snapshot")
	}

	require.NoError(t, c.Emit(events.StatusChangePayload{Status: events.StatusBusy}))
	deadline := time.After(3 * time.Second)
	for {
		select {
		case u := <-updates:
			if u.Status == events.StatusBusy {
				assert.Equal(t, me.ID.String(), u.UserID)
				cancel()
				select {
				case <-done:
				case <-time.After(3 * time.Second):
					t.Fatal("Run did not return after cancel")
				}
				return
			}
		case <-deadline:
			t.Fatal("no busy presence update")
		}
	}
}
