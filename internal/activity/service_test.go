package activity

import (
	"context"
	"errors"
	"testing"
	"time"

	"arc_community_backend/internal/common"
	"arc_community_backend/internal/platform/database"
	"arc_community_backend/internal/shared"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, a *Activity) error {
	return m.Called(ctx, a).Error(0)
}

func (m *MockRepository) List(ctx context.Context, userID *uuid.UUID, page, pageSize int) ([]Activity, *common.Pagination, error) {
	args := m.Called(ctx, userID, page, pageSize)
	items, _ := args.Get(0).([]Activity)
	p, _ := args.Get(1).(*common.Pagination)
	return items, p, args.Error(2)
}

type staticDirectory map[uuid.UUID]shared.UserSummary

func (d staticDirectory) GetUserByID(context.Context, uuid.UUID) (*shared.User, error) {
	return nil, errors.New("not used")
}

func (d staticDirectory) GetUserByUsername(context.Context, string) (*shared.User, error) {
	return nil, errors.New("not used")
}

func (d staticDirectory) GetSummaries(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]shared.UserSummary, error) {
	out := map[uuid.UUID]shared.UserSummary{}
	for _, id := range ids {
		if s, ok := d[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

func TestRecord_SwallowsRepositoryErrors(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, staticDirectory{}, zap.NewNop())
	repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down"))

	assert.NotPanics(t, func() {
		svc.Record(context.Background(), shared.ActivityEntry{UserID: uuid.New(), Kind: KindFriendAdded, Summary: "x"})
	})
	repo.AssertExpectations(t)
}

func TestList_NewestFirstWithUsers(t *testing.T) {
	db, err := database.NewInMemory()
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Activity{}))

	alice, bob := uuid.New(), uuid.New()
	dir := staticDirectory{alice: {ID: alice, Username: "alice"}}
	repo := NewGORMRepository(db)
	svc := NewService(repo, dir, zap.NewNop())
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i, uid := range []uuid.UUID{alice, bob, alice} {
		require.NoError(t, repo.Create(ctx, &Activity{UserID: uid, Kind: KindListingCreated, Summary: "entry", CreatedAt: base.Add(time.Duration(i) * time.Minute)}))
	}

	all, pagination, err := svc.List(ctx, nil, 1, 20)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, int64(3), pagination.TotalItems)
	assert.True(t, all[0].CreatedAt.After(all[1].CreatedAt))
	require.NotNil(t, all[0].User)
	assert.Equal(t, "alice", all[0].User.Username)
	assert.Nil(t, all[1].User)

	mine, _, err := svc.List(ctx, &alice, 1, 20)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}
