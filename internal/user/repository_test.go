package user

import (
	"context"
	"testing"

	"arc_community_backend/internal/common"
	"arc_community_backend/internal/platform/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type RepositoryTestSuite struct {
	suite.Suite
	repo Repository
}

func (s *RepositoryTestSuite) SetupTest() {
	db, err := database.NewInMemory()
	s.Require().NoError(err)
	s.Require().NoError(db.AutoMigrate(&User{}))
	s.repo = NewGORMRepository(db)
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}

func (s *RepositoryTestSuite) TestCreateAndFind() {
	ctx := context.Background()
	u := &User{Username: "Raider", Email: " Raider@Example.com ", PasswordHash: "x", Role: "user"}
	s.Require().NoError(s.repo.Create(ctx, u))
	s.NotEqual(uuid.Nil, u.ID)

	byEmail, err := s.repo.FindByEmail(ctx, "RAIDER@example.com")
	s.Require().NoError(err)
	s.Equal(u.ID, byEmail.ID)

	byName, err := s.repo.FindByUsername(ctx, "raider")
	s.Require().NoError(err)
	s.Equal(u.ID, byName.ID)

	_, err = s.repo.FindByID(ctx, uuid.New())
	s.ErrorIs(err, common.ErrNotFound)
}

func (s *RepositoryTestSuite) TestCreate_DuplicateEmailIsConflict() {
	ctx := context.Background()
	s.Require().NoError(s.repo.Create(ctx, &User{Username: "one", Email: "dup@example.com", PasswordHash: "x", Role: "user"}))

	err := s.repo.Create(ctx, &User{Username: "two", Email: "dup@example.com", PasswordHash: "x", Role: "user"})
	s.ErrorIs(err, common.ErrConflict)
}

func (s *RepositoryTestSuite) TestFindByIDs() {
	ctx := context.Background()
	a := &User{Username: "alpha", Email: "a@example.com", PasswordHash: "x", Role: "user"}
	b := &User{Username: "bravo", Email: "b@example.com", PasswordHash: "x", Role: "user"}
	s.Require().NoError(s.repo.Create(ctx, a))
	s.Require().NoError(s.repo.Create(ctx, b))

	users, err := s.repo.FindByIDs(ctx, []uuid.UUID{a.ID, b.ID, uuid.New()})
	s.Require().NoError(err)
	s.Len(users, 2)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("supersecret")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "supersecret"))
	assert.False(t, CheckPassword(hash, "supersecreT"))
}
