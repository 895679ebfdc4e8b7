package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"arc_community_backend/internal/client/api"
	"arc_community_backend/internal/client/session"
	"arc_community_backend/internal/client/socket/sockettest"
	"arc_community_backend/internal/client/toast"
	"arc_community_backend/internal/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) ListNotifications(ctx context.Context, filter string) ([]api.Notification, error) {
	args := m.Called(ctx, filter)
	items, _ := args.Get(0).([]api.Notification)
	return items, args.Error(1)
}

func (m *MockAPI) MarkNotificationRead(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockAPI) MarkAllNotificationsRead(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockAPI) DeleteNotification(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockAPI) DeleteReadNotifications(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func strPtr(s string) *string { return &s }

func seed() []api.Notification {
	return []api.Notification{
		{ID: "n3", Title: "Offer accepted", IsRead: false},
		{ID: "n2", Title: "Friend request", IsRead: true},
		{ID: "n1", Title: "Reply", IsRead: false},
	}
}

func newCenter(t *testing.T) (*Center, *MockAPI, *sockettest.Bus, *toast.Recorder, *session.Session) {
	t.Helper()
	m := new(MockAPI)
	bus := sockettest.New()
	rec := toast.NewRecorder()
	sess := session.New()
	c := NewCenter(m, bus, rec, sess, zap.NewNop())
	m.On("ListNotifications", mock.Anything, FilterAll).Return(seed(), nil).Once()
	require.NoError(t, c.Load(context.Background(), FilterAll))
	return c, m, bus, rec, sess
}

func TestLoad_RejectsUnknownFilter(t *testing.T) {
	c := NewCenter(new(MockAPI), sockettest.New(), toast.NewRecorder(), session.New(), zap.NewNop())
	assert.Error(t, c.Load(context.Background(), "starred"))
}

func TestMarkAllAsRead_OnlyAfterServerConfirms(t *testing.T) {
	c, m, _, rec, _ := newCenter(t)

	m.On("MarkAllNotificationsRead", mock.Anything).Return(errors.New("timeout")).Once()
	require.Error(t, c.MarkAllAsRead(context.Background()))
	assert.Equal(t, 2, c.UnreadCount(), "no item changes before the server confirms")
	assert.Equal(t, 1, rec.Count(toast.KindError))

	m.On("MarkAllNotificationsRead", mock.Anything).Return(nil).Once()
	require.NoError(t, c.MarkAllAsRead(context.Background()))
	for _, n := range c.Items() {
		assert.True(t, n.IsRead, n.ID)
	}
}

func TestMarkAsReadAndDelete(t *testing.T) {
	c, m, _, _, _ := newCenter(t)

	m.On("MarkNotificationRead", mock.Anything, "n1").Return(nil)
	require.NoError(t, c.MarkAsRead(context.Background(), "n1"))
	assert.Equal(t, 1, c.UnreadCount())

	m.On("DeleteNotification", mock.Anything, "n3").Return(errors.New("boom")).Once()
	require.Error(t, c.Delete(context.Background(), "n3"))
	assert.Len(t, c.Items(), 3)

	m.On("DeleteNotification", mock.Anything, "n3").Return(nil).Once()
	require.NoError(t, c.Delete(context.Background(), "n3"))
	assert.Len(t, c.Items(), 2)
}

func TestDeleteAllRead(t *testing.T) {
	c, m, _, _, _ := newCenter(t)
	m.On("DeleteReadNotifications", mock.Anything).Return(nil)
	require.NoError(t, c.DeleteAllRead(context.Background()))
	ids := []string{}
	for _, n := range c.Items() {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"n3", "n1"}, ids)
}

func TestSubscribe_PrependsAndSynthesizesID(t *testing.T) {
	c, _, bus, rec, _ := newCenter(t)
	fixed := time.UnixMilli(1767225600123)
	c.now = func() time.Time { return fixed }

	c.Subscribe()
	unsubscribe := c.Subscribe()
	assert.Equal(t, 1, bus.Listeners(events.TypeNewNotification))

	bus.Publish(events.NotificationPayload{Type: "trade", Title: "New offer", Message: "raider sent an offer"})
	items := c.Items()
	require.Len(t, items, 4)
	assert.Equal(t, "1767225600123", items[0].ID)
	assert.Equal(t, "New offer", items[0].Title)
	assert.Equal(t, []toast.Toast{{Kind: toast.KindInfo, Message: "New offer"}}, rec.Toasts())

	bus.Publish(events.NotificationPayload{ID: "srv-id", Title: "Another"})
	assert.Equal(t, "srv-id", c.Items()[0].ID)

	unsubscribe()
	assert.Equal(t, 0, bus.Listeners(events.TypeNewNotification))
}

func TestResolveTarget(t *testing.T) {
	obj := json.RawMessage(`{"view":"marketplace","tab":"offers"}`)
	str, err := json.Marshal(`{"view":"friends","tab":"requests"}`)
	require.NoError(t, err)

	cases := []struct {
		name string
		n    api.Notification
		want Target
		err  bool
	}{
		{"flat link wins", api.Notification{Link: strPtr("/marketplace/listings/1"), Data: obj}, Target{Link: "/marketplace/listings/1"}, false},
		{"object data", api.Notification{Data: obj}, Target{View: "marketplace", Tab: "offers"}, false},
		{"string data", api.Notification{Data: str}, Target{View: "friends", Tab: "requests"}, false},
		{"no view", api.Notification{Data: json.RawMessage(`{"tab":"x"}`)}, Target{}, true},
		{"garbage", api.Notification{Data: json.RawMessage(`"not json"`)}, Target{}, true},
		{"nothing", api.Notification{}, Target{}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ResolveTarget(tc.n)
			if tc.err {
				assert.ErrorIs(t, err, ErrNoTarget)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestOpen_MarksReadAndHandsOffTab(t *testing.T) {
	c, m, _, _, sess := newCenter(t)
	m.On("MarkNotificationRead", mock.Anything, "n9").Return(nil)

	n := api.Notification{ID: "n9", Data: json.RawMessage(`{"view":"marketplace","tab":"offers"}`)}
	target, err := c.Open(context.Background(), n)
	require.NoError(t, err)
	assert.Equal(t, "marketplace", target.View)
	assert.Equal(t, "marketplace", sess.Current())
	tab, ok := sess.TakeOnce(session.TargetTabKey)
	assert.True(t, ok)
	assert.Equal(t, "offers", tab)
	m.AssertCalled(t, "MarkNotificationRead", mock.Anything, "n9")

	read := api.Notification{ID: "n2", IsRead: true, Link: strPtr("/groups")}
	_, err = c.Open(context.Background(), read)
	require.NoError(t, err)
	m.AssertNotCalled(t, "MarkNotificationRead", mock.Anything, "n2")
	assert.Equal(t, "/groups", sess.Current())
}
