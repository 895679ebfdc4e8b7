package badges

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type MockCounter struct {
	mock.Mock
}

func (m *MockCounter) UnreadNotificationCount(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCounter) UnreadMessageCount(ctx context.Context, since time.Time) (int64, error) {
	args := m.Called(ctx, since)
	return args.Get(0).(int64), args.Error(1)
}

func TestRefresh_SwallowsErrorsAndKeepsPreviousValue(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	m := new(MockCounter)
	r := NewRefresher(m, time.Minute, zap.New(core))
	ctx := context.Background()
	since := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r.SetMessagesSince(since)

	m.On("UnreadNotificationCount", ctx).Return(int64(4), nil).Once()
	m.On("UnreadMessageCount", ctx, since).Return(int64(9), nil).Once()
	c := r.Refresh(ctx)
	assert.Equal(t, int64(4), c.Notifications)
	assert.Equal(t, int64(9), c.Messages)

	m.On("UnreadNotificationCount", ctx).Return(int64(0), errors.New("offline")).Once()
	m.On("UnreadMessageCount", ctx, since).Return(int64(11), nil).Once()
	c = r.Refresh(ctx)
	assert.Equal(t, int64(4), c.Notifications)
	assert.Equal(t, int64(11), c.Messages)
	assert.Equal(t, 1, logs.Len())
	assert.Equal(t, c, r.Counts())
}

func TestRun_RefreshesImmediatelyAndOnTick(t *testing.T) {
	m := new(MockCounter)
	m.On("UnreadNotificationCount", mock.Anything).Return(int64(1), nil)
	m.On("UnreadMessageCount", mock.Anything, time.Time{}).Return(int64(2), nil)
	r := NewRefresher(m, 10*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	seen := make(chan Counts, 16)
	done := make(chan struct{})
	go func() {
		r.Run(ctx, func(c Counts) {
			select {
			case seen <- c:
			default:
			}
		})
		close(done)
	}()

	for i := 0; i < 3; i++ {
		select {
		case c := <-seen:
			assert.Equal(t, int64(1), c.Notifications)
		case <-time.After(2 * time.Second):
			t.Fatal("refresh did not fire")
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		require.Fail(t, "Run did not stop")
	}
}

func TestNewRefresher_DefaultsInterval(t *testing.T) {
	r := NewRefresher(new(MockCounter), 0, zap.NewNop())
	assert.Equal(t, DefaultInterval, r.interval)
}
