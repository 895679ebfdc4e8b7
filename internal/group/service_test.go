package group

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"arc_community_backend/internal/activity"
	"arc_community_backend/internal/common"
	"arc_community_backend/internal/events"
	"arc_community_backend/internal/events/eventstest"
	"arc_community_backend/internal/platform/database"
	"arc_community_backend/internal/shared"
	"arc_community_backend/internal/shared/sharedtest"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type GroupServiceTestSuite struct {
	suite.Suite
	users     *sharedtest.Directory
	notifier  *sharedtest.Notifier
	activity  *sharedtest.Activity
	publisher *eventstest.Recorder
	service   *ServiceImplementation

	leader, member, outsider *shared.User
}

func (s *GroupServiceTestSuite) SetupTest() {
	db, err := database.NewInMemory()
	s.Require().NoError(err)
	s.Require().NoError(db.AutoMigrate(&Group{}, &GroupMember{}, &Channel{}, &Message{}, &Reaction{}))

	n := 0
	codes := func() string {
		n++
		return fmt.Sprintf("CODE%04d", n)
	}
	s.users = sharedtest.NewDirectory()
	s.notifier = &sharedtest.Notifier{}
	s.activity = &sharedtest.Activity{}
	s.publisher = eventstest.NewRecorder()
	s.service = NewService(NewGORMRepository(db), s.users, s.publisher, s.notifier, s.activity, codes, zap.NewNop())

	s.leader = s.users.Add("leader")
	s.member = s.users.Add("member")
	s.outsider = s.users.Add("outsider")
}

func TestGroupServiceTestSuite(t *testing.T) {
	suite.Run(t, new(GroupServiceTestSuite))
}

// setupGroup creates a group led by s.leader that s.member has joined.
func (s *GroupServiceTestSuite) setupGroup() (*GroupResponse, ChannelResponse) {
	ctx := context.Background()
	g, err := s.service.CreateGroup(ctx, s.leader.ID, CreateGroupRequest{Name: "Speranza Scavengers"})
	s.Require().NoError(err)
	_, err = s.service.Join(ctx, s.member.ID, g.InviteCode)
	s.Require().NoError(err)
	channels, err := s.service.ListChannels(ctx, s.leader.ID, g.ID)
	s.Require().NoError(err)
	s.Require().Len(channels, 1)
	return g, channels[0]
}

func (s *GroupServiceTestSuite) TestCreateAndJoin() {
	ctx := context.Background()
	g, err := s.service.CreateGroup(ctx, s.leader.ID, CreateGroupRequest{Name: "  Speranza Scavengers "})
	s.Require().NoError(err)
	s.Equal("Speranza Scavengers", g.Name)
	s.Equal("CODE0001", g.InviteCode)
	s.Equal(RoleLeader, g.MyRole)
	s.Equal(1, g.MemberCount)

	channels, err := s.service.ListChannels(ctx, s.leader.ID, g.ID)
	s.Require().NoError(err)
	s.Require().Len(channels, 1)
	s.Equal(GeneralChannelSlug, channels[0].Slug)

	_, err = s.service.GetGroup(ctx, s.outsider.ID, g.ID)
	s.ErrorIs(err, common.ErrForbidden)

	_, err = s.service.Join(ctx, s.member.ID, "nope")
	s.ErrorIs(err, common.ErrNotFound)

	joined, err := s.service.Join(ctx, s.member.ID, " CODE0001 ")
	s.Require().NoError(err)
	s.Equal(RoleMember, joined.MyRole)
	s.Len(joined.Members, 2)
	s.Equal([]string{activity.KindGroupJoined}, s.activity.Kinds(s.member.ID))

	_, err = s.service.Join(ctx, s.member.ID, "CODE0001")
	s.ErrorIs(err, common.ErrConflict)

	mine, err := s.service.MyGroups(ctx, s.member.ID)
	s.Require().NoError(err)
	s.Require().Len(mine, 1)
	s.Equal(2, mine[0].MemberCount)
}

func (s *GroupServiceTestSuite) TestPromoteAndChannels() {
	ctx := context.Background()
	g, general := s.setupGroup()

	_, err := s.service.CreateChannel(ctx, s.member.ID, g.ID, CreateChannelRequest{Name: "Loot Runs"})
	s.ErrorIs(err, common.ErrForbidden, "plain members cannot create channels")

	_, err = s.service.Promote(ctx, s.member.ID, g.ID, s.member.ID)
	s.ErrorIs(err, common.ErrForbidden)

	promoted, err := s.service.Promote(ctx, s.leader.ID, g.ID, s.member.ID)
	s.Require().NoError(err)
	s.Equal(RoleOfficer, promoted.Role)
	s.Len(s.notifier.Sent(s.member.ID), 1)

	_, err = s.service.Promote(ctx, s.leader.ID, g.ID, s.member.ID)
	s.ErrorIs(err, common.ErrConflict)

	ch, err := s.service.CreateChannel(ctx, s.member.ID, g.ID, CreateChannelRequest{Name: "Loot Runs"})
	s.Require().NoError(err)
	s.Equal("loot-runs", ch.Slug)

	_, err = s.service.CreateChannel(ctx, s.leader.ID, g.ID, CreateChannelRequest{Name: "loot runs"})
	s.ErrorIs(err, common.ErrConflict)

	s.ErrorIs(s.service.DeleteChannel(ctx, s.member.ID, g.ID, ch.ID), common.ErrForbidden)
	s.ErrorIs(s.service.DeleteChannel(ctx, s.leader.ID, g.ID, general.ID), common.ErrBadRequest)
	s.Require().NoError(s.service.DeleteChannel(ctx, s.leader.ID, g.ID, ch.ID))

	channels, err := s.service.ListChannels(ctx, s.member.ID, g.ID)
	s.Require().NoError(err)
	s.Len(channels, 1)
}

func (s *GroupServiceTestSuite) TestMessagesAndReactions() {
	ctx := context.Background()
	g, general := s.setupGroup()

	_, err := s.service.PostMessage(ctx, s.outsider.ID, g.ID, general.ID, PostMessageRequest{Content: "hi"})
	s.ErrorIs(err, common.ErrForbidden)

	first, err := s.service.PostMessage(ctx, s.member.ID, g.ID, general.ID, PostMessageRequest{Content: " heading topside "})
	s.Require().NoError(err)
	s.Equal("heading topside", first.Content)
	s.Require().NotNil(first.Author)
	s.Equal("member", first.Author.Username)

	pushed := s.publisher.OfType(events.TypeNewMessage)
	s.Require().Len(pushed, 1, "only the other member is notified")
	s.Equal(s.leader.ID, pushed[0].UserID)
	s.Equal("member", pushed[0].Event.(events.MessagePayload).AuthorUsername)

	second, err := s.service.PostMessage(ctx, s.leader.ID, g.ID, general.ID, PostMessageRequest{Content: "bring stitchers"})
	s.Require().NoError(err)

	msgs, err := s.service.ListMessages(ctx, s.leader.ID, g.ID, general.ID, 0)
	s.Require().NoError(err)
	s.Require().Len(msgs, 2)
	s.Equal(first.ID, msgs[0].ID)

	reacted, err := s.service.ToggleReaction(ctx, s.member.ID, g.ID, second.ID, "🔥")
	s.Require().NoError(err)
	s.Equal([]uuid.UUID{s.member.ID}, reacted.Reactions["🔥"])
	reacted, err = s.service.ToggleReaction(ctx, s.leader.ID, g.ID, second.ID, "🔥")
	s.Require().NoError(err)
	s.Len(reacted.Reactions["🔥"], 2)
	reacted, err = s.service.ToggleReaction(ctx, s.member.ID, g.ID, second.ID, "🔥")
	s.Require().NoError(err)
	s.Equal([]uuid.UUID{s.leader.ID}, reacted.Reactions["🔥"])

	_, err = s.service.DeleteMessage(ctx, s.member.ID, g.ID, second.ID)
	s.ErrorIs(err, common.ErrForbidden, "members cannot delete other people's messages")

	deleted, err := s.service.DeleteMessage(ctx, s.leader.ID, g.ID, first.ID)
	s.Require().NoError(err)
	s.True(deleted.Deleted)
	s.Equal(DeletedMessagePlaceholder, deleted.Content)

	_, err = s.service.ToggleReaction(ctx, s.leader.ID, g.ID, first.ID, "👍")
	s.ErrorIs(err, common.ErrConflict)

	msgs, err = s.service.ListMessages(ctx, s.member.ID, g.ID, general.ID, 10)
	s.Require().NoError(err)
	s.Equal(DeletedMessagePlaceholder, msgs[0].Content)
}

func (s *GroupServiceTestSuite) TestUnreadCount() {
	ctx := context.Background()
	g, general := s.setupGroup()
	before := time.Now().Add(-time.Minute)

	for _, content := range []string{"one", "two"} {
		_, err := s.service.PostMessage(ctx, s.leader.ID, g.ID, general.ID, PostMessageRequest{Content: content})
		s.Require().NoError(err)
	}
	_, err := s.service.PostMessage(ctx, s.member.ID, g.ID, general.ID, PostMessageRequest{Content: "mine"})
	s.Require().NoError(err)

	got, err := s.service.UnreadCount(ctx, s.member.ID, before)
	s.Require().NoError(err)
	s.EqualValues(2, got.Count, "own messages are not unread")

	got, err = s.service.UnreadCount(ctx, s.outsider.ID, before)
	s.Require().NoError(err)
	s.Zero(got.Count)

	got, err = s.service.UnreadCount(ctx, s.member.ID, time.Now().Add(time.Minute))
	s.Require().NoError(err)
	s.Zero(got.Count)
}

func TestHandler_UnreadCountRejectsBadSince(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(nil, zap.NewNop()).RegisterRoutes(r.Group("/api"), func(c *gin.Context) { c.Next() })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/messages/unread-count?since=yesterday", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/groups/not-a-uuid", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
