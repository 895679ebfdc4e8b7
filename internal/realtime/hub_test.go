package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"arc_community_backend/internal/auth"
	"arc_community_backend/internal/config"
	"arc_community_backend/internal/events"
	"arc_community_backend/internal/shared"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testServer struct {
	hub    *Hub
	tokens shared.TokenService
	srv    *httptest.Server
}

func newTestServer(t *testing.T, origins ...string) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	cfg := &config.Config{JWTSecretKey: "socket-secret", JWTAccessTokenExpiryMinutes: time.Hour, WSAllowedOrigins: origins}
	tokens := auth.NewJWTService(cfg, auth.NewInMemoryBlocklistService(time.Minute), zap.NewNop())
	hub := NewHub(zap.NewNop())

	r := gin.New()
	NewHandler(hub, tokens, cfg, zap.NewNop()).RegisterRoutes(r.Group("/api"))
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		hub.Stop()
		srv.Close()
	})
	return &testServer{hub: hub, tokens: tokens, srv: srv}
}

func (ts *testServer) dial(t *testing.T, u *shared.User) *websocket.Conn {
	t.Helper()
	token, _, err := ts.tokens.GenerateAccessToken(u)
	require.NoError(t, err)
	url := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/api/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// expect reads frames until one of type typ arrives.
func expect(t *testing.T, conn *websocket.Conn, typ events.Type) events.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for %s", typ)
		ev, err := events.Decode(raw)
		require.NoError(t, err)
		if ev.EventType() == typ {
			return ev
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, ev events.Event) {
	t.Helper()
	raw, err := events.Encode(ev)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, raw))
}

func newUser(name string) *shared.User {
	return &shared.User{ID: uuid.New(), Username: name, Role: shared.RoleUser}
}

func TestHub_PresenceLifecycle(t *testing.T) {
	ts := newTestServer(t)
	alice, bob := newUser("alice"), newUser("bob")

	aliceConn := ts.dial(t, alice)
	snap := expect(t, aliceConn, events.TypePresenceSnapshot).(events.PresenceSnapshotPayload)
	require.Len(t, snap.Users, 1)
	assert.Equal(t, "alice", snap.Users[0].Username)

	bobConn := ts.dial(t, bob)
	joined := expect(t, aliceConn, events.TypePresenceUpdate).(events.PresencePayload)
	// alice may first see her own online update.
	if joined.UserID == alice.ID.String() {
		joined = expect(t, aliceConn, events.TypePresenceUpdate).(events.PresencePayload)
	}
	assert.Equal(t, bob.ID.String(), joined.UserID)
	assert.Equal(t, events.StatusOnline, joined.Status)

	snap = expect(t, bobConn, events.TypePresenceSnapshot).(events.PresenceSnapshotPayload)
	assert.Len(t, snap.Users, 2)
	assert.True(t, ts.hub.IsOnline(bob.ID))

	send(t, bobConn, events.StatusChangePayload{Status: events.StatusAway})
	away := expect(t, aliceConn, events.TypePresenceUpdate).(events.PresencePayload)
	assert.Equal(t, bob.ID.String(), away.UserID)
	assert.Equal(t, events.StatusAway, away.Status)
	assert.Equal(t, events.StatusAway, ts.hub.Presence().Status(bob.ID))

	require.NoError(t, bobConn.WriteMessage(websocket.TextMessage, []byte(`{"type":"status-change","data":{"status":"sleeping"}}`)))
	errEv := expect(t, bobConn, events.TypeError).(events.ErrorPayload)
	assert.Contains(t, errEv.Message, "sleeping")

	require.NoError(t, bobConn.Close())
	gone := expect(t, aliceConn, events.TypePresenceUpdate).(events.PresencePayload)
	assert.Equal(t, bob.ID.String(), gone.UserID)
	assert.Equal(t, events.StatusOffline, gone.Status)
	assert.Eventually(t, func() bool { return !ts.hub.IsOnline(bob.ID) }, time.Second, 10*time.Millisecond)
	assert.Equal(t, events.StatusOffline, ts.hub.Presence().Status(bob.ID))
}

func TestHub_SendToUserReachesEverySocket(t *testing.T) {
	ts := newTestServer(t)
	alice := newUser("alice")
	first := ts.dial(t, alice)
	second := ts.dial(t, alice)
	expect(t, first, events.TypePresenceSnapshot)
	expect(t, second, events.TypePresenceSnapshot)
	assert.Equal(t, 1, ts.hub.Online())

	ts.hub.SendToUser(alice.ID, events.NotificationPayload{Type: "system", Title: "Maintenance", CreatedAt: time.Now()})
	for _, conn := range []*websocket.Conn{first, second} {
		n := expect(t, conn, events.TypeNewNotification).(events.NotificationPayload)
		assert.Equal(t, "Maintenance", n.Title)
	}

	// Closing one of two sockets keeps the user online.
	require.NoError(t, first.Close())
	time.Sleep(50 * time.Millisecond)
	assert.True(t, ts.hub.IsOnline(alice.ID))
}

func TestHandler_RejectsMissingToken(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.srv.URL + "/api/ws")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	url := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/api/ws?token=garbage"
	_, resp, err = websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandler_ChecksOrigin(t *testing.T) {
	ts := newTestServer(t, "https://hub.example.com")
	token, _, err := ts.tokens.GenerateAccessToken(newUser("alice"))
	require.NoError(t, err)
	url := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/api/ws?token=" + token

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"https://evil.example.com"}})
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"https://hub.example.com"}})
	require.NoError(t, err)
	conn.Close()
}

func TestPresence_Snapshot(t *testing.T) {
	p := NewPresence()
	a, b := uuid.New(), uuid.New()
	p.Online(b, "zed")
	p.Online(a, "amy")
	_, ok := p.SetStatus(b, events.StatusDND)
	assert.True(t, ok)
	_, ok = p.SetStatus(uuid.New(), events.StatusAway)
	assert.False(t, ok)

	snap := p.Snapshot()
	require.Len(t, snap.Users, 2)
	assert.Equal(t, "amy", snap.Users[0].Username)
	assert.Equal(t, events.StatusDND, snap.Users[1].Status)
	assert.NoError(t, snap.Validate())

	off := p.Offline(b)
	assert.Equal(t, events.StatusOffline, off.Status)
	assert.Equal(t, "zed", off.Username)
	assert.Len(t, p.Snapshot().Users, 1)
}

func TestHub_ReconnectDuringDisconnectKeepsPresence(t *testing.T) {
	hub := NewHub(zap.NewNop())
	u := newUser("flicker")

	for i := 0; i < 200; i++ {
		old := newClient(hub, nil, u.ID, u.Username)
		hub.register(old)
		fresh := newClient(hub, nil, u.ID, u.Username)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() { defer wg.Done(); hub.unregister(old) }()
		go func() { defer wg.Done(); hub.register(fresh) }()
		wg.Wait()

		require.True(t, hub.IsOnline(u.ID))
		require.Equal(t, events.StatusOnline, hub.Presence().Status(u.ID), "round %d", i)
		_, ok := hub.Presence().SetStatus(u.ID, events.StatusBusy)
		require.True(t, ok, "round %d", i)

		hub.unregister(fresh)
		require.Equal(t, events.StatusOffline, hub.Presence().Status(u.ID))
	}
}

func TestHub_StatusChangeFromUntrackedClientGetsError(t *testing.T) {
	hub := NewHub(zap.NewNop())
	u := newUser("ghost")
	c := newClient(hub, nil, u.ID, u.Username)

	raw, err := events.Encode(events.StatusChangePayload{Status: events.StatusAway})
	require.NoError(t, err)
	hub.handleInbound(c, raw)

	select {
	case msg := <-c.send:
		ev, err := events.Decode(msg)
		require.NoError(t, err)
		_, isErr := ev.(events.ErrorPayload)
		assert.True(t, isErr)
	default:
		t.Fatal("expected an error event")
	}
	assert.Equal(t, events.StatusOffline, hub.Presence().Status(u.ID))
}
