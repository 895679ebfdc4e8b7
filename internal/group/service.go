// File: internal/group/service.go
package group

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"arc_community_backend/internal/activity"
	"arc_community_backend/internal/common"
	"arc_community_backend/internal/events"
	"arc_community_backend/internal/platform/crypto"
	"arc_community_backend/internal/shared"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

const (
	DefaultMessageLimit = 50
	MaxMessageLimit     = 200
)

// Service defines the interface for group and chat business logic.
type Service interface {
	CreateGroup(ctx context.Context, userID uuid.UUID, req CreateGroupRequest) (*GroupResponse, error)
	MyGroups(ctx context.Context, userID uuid.UUID) ([]GroupResponse, error)
	GetGroup(ctx context.Context, userID, groupID uuid.UUID) (*GroupResponse, error)
	Join(ctx context.Context, userID uuid.UUID, inviteCode string) (*GroupResponse, error)
	Promote(ctx context.Context, actorID, groupID, userID uuid.UUID) (*MemberResponse, error)

	ListChannels(ctx context.Context, userID, groupID uuid.UUID) ([]ChannelResponse, error)
	CreateChannel(ctx context.Context, userID, groupID uuid.UUID, req CreateChannelRequest) (*ChannelResponse, error)
	DeleteChannel(ctx context.Context, userID, groupID, channelID uuid.UUID) error

	ListMessages(ctx context.Context, userID, groupID, channelID uuid.UUID, limit int) ([]MessageResponse, error)
	PostMessage(ctx context.Context, userID, groupID, channelID uuid.UUID, req PostMessageRequest) (*MessageResponse, error)
	DeleteMessage(ctx context.Context, userID, groupID, messageID uuid.UUID) (*MessageResponse, error)
	ToggleReaction(ctx context.Context, userID, groupID, messageID uuid.UUID, emoji string) (*MessageResponse, error)

	UnreadCount(ctx context.Context, userID uuid.UUID, since time.Time) (*UnreadCount, error)
}

// ServiceImplementation implements the Service interface.
type ServiceImplementation struct {
	repo      Repository
	users     shared.UserDirectory
	publisher events.Publisher
	notifier  shared.Notifier
	activity  shared.ActivityRecorder
	codes     crypto.CodeGenerator
	logger    *zap.Logger
}

// NewService creates a new group service.
func NewService(
	repo Repository,
	users shared.UserDirectory,
	publisher events.Publisher,
	notifier shared.Notifier,
	recorder shared.ActivityRecorder,
	codes crypto.CodeGenerator,
	logger *zap.Logger,
) *ServiceImplementation {
	return &ServiceImplementation{
		repo:      repo,
		users:     users,
		publisher: publisher,
		notifier:  notifier,
		activity:  recorder,
		codes:     codes,
		logger:    logger.Named("GroupService"),
	}
}

// membership returns the caller's membership or ErrForbidden.
func (s *ServiceImplementation) membership(ctx context.Context, groupID, userID uuid.UUID) (*GroupMember, error) {
	if _, err := s.repo.FindGroupByID(ctx, groupID); err != nil {
		return nil, err
	}
	m, err := s.repo.FindMember(ctx, groupID, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrForbidden.WithDetails("You are not a member of this group.")
		}
		return nil, err
	}
	return m, nil
}

func (s *ServiceImplementation) recordJoin(ctx context.Context, userID uuid.UUID, g *Group) {
	ref := g.ID
	s.activity.Record(ctx, shared.ActivityEntry{
		UserID:  userID,
		Kind:    activity.KindGroupJoined,
		Summary: fmt.Sprintf("joined %s", g.Name),
		RefType: "group",
		RefID:   &ref,
	})
}

// --- Groups ---

func (s *ServiceImplementation) CreateGroup(ctx context.Context, userID uuid.UUID, req CreateGroupRequest) (*GroupResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, common.ErrUnprocessableEntity.WithDetails("Group name must not be blank.")
	}
	g := &Group{
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		LeaderID:    userID,
		InviteCode:  s.codes(),
	}
	leader := &GroupMember{UserID: userID, Role: RoleLeader, JoinedAt: time.Now()}
	general := &Channel{Name: "General", Slug: GeneralChannelSlug}
	if err := s.repo.CreateGroup(ctx, g, leader, general); err != nil {
		s.logger.Error("Failed to create group", zap.Error(err), zap.String("userID", userID.String()))
		return nil, common.ErrInternalServer
	}
	s.recordJoin(ctx, userID, g)
	s.logger.Info("Group created", zap.String("groupID", g.ID.String()), zap.String("leaderID", userID.String()))
	return s.GetGroup(ctx, userID, g.ID)
}

func (s *ServiceImplementation) MyGroups(ctx context.Context, userID uuid.UUID) ([]GroupResponse, error) {
	groups, err := s.repo.ListGroupsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(groups))
	for i := range groups {
		ids[i] = groups[i].ID
	}
	counts, err := s.repo.CountMembers(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]GroupResponse, 0, len(groups))
	for i := range groups {
		g := &groups[i]
		role := RoleMember
		if m, err := s.repo.FindMember(ctx, g.ID, userID); err == nil {
			role = m.Role
		}
		out = append(out, GroupResponse{
			ID:          g.ID,
			Name:        g.Name,
			Description: g.Description,
			LeaderID:    g.LeaderID,
			InviteCode:  g.InviteCode,
			MyRole:      role,
			MemberCount: counts[g.ID],
			CreatedAt:   g.CreatedAt,
		})
	}
	return out, nil
}

// GetGroup returns the group with its member list. Members only.
func (s *ServiceImplementation) GetGroup(ctx context.Context, userID, groupID uuid.UUID) (*GroupResponse, error) {
	me, err := s.membership(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	g, err := s.repo.FindGroupByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	members, err := s.repo.ListMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(members))
	for i, m := range members {
		ids[i] = m.UserID
	}
	users, _ := s.users.GetSummaries(ctx, ids)

	resp := &GroupResponse{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		LeaderID:    g.LeaderID,
		InviteCode:  g.InviteCode,
		MyRole:      me.Role,
		MemberCount: len(members),
		Members:     make([]MemberResponse, len(members)),
		CreatedAt:   g.CreatedAt,
	}
	for i, m := range members {
		summary, ok := users[m.UserID]
		if !ok {
			summary = shared.UserSummary{ID: m.UserID}
		}
		resp.Members[i] = MemberResponse{User: summary, Role: m.Role, JoinedAt: m.JoinedAt}
	}
	return resp, nil
}

func (s *ServiceImplementation) Join(ctx context.Context, userID uuid.UUID, inviteCode string) (*GroupResponse, error) {
	g, err := s.repo.FindGroupByInviteCode(ctx, strings.TrimSpace(inviteCode))
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.FindMember(ctx, g.ID, userID); err == nil {
		return nil, common.ErrConflict.WithDetails("You are already a member of this group.")
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}
	if err := s.repo.AddMember(ctx, &GroupMember{GroupID: g.ID, UserID: userID, Role: RoleMember, JoinedAt: time.Now()}); err != nil {
		s.logger.Error("Failed to join group", zap.Error(err), zap.String("groupID", g.ID.String()))
		return nil, common.ErrInternalServer
	}
	s.recordJoin(ctx, userID, g)
	return s.GetGroup(ctx, userID, g.ID)
}

// Promote raises a member to officer. Leader only.
func (s *ServiceImplementation) Promote(ctx context.Context, actorID, groupID, userID uuid.UUID) (*MemberResponse, error) {
	actor, err := s.membership(ctx, groupID, actorID)
	if err != nil {
		return nil, err
	}
	if actor.Role != RoleLeader {
		return nil, common.ErrForbidden.WithDetails("Only the group leader can promote members.")
	}
	target, err := s.repo.FindMember(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	if target.Role != RoleMember {
		return nil, common.ErrConflict.WithDetails(fmt.Sprintf("This user is already %s.", target.Role))
	}
	target.Role = RoleOfficer
	if err := s.repo.UpdateMember(ctx, target); err != nil {
		return nil, err
	}

	g, _ := s.repo.FindGroupByID(ctx, groupID)
	if g != nil {
		if err := s.notifier.Notify(ctx, shared.NotificationInput{
			UserID:   userID,
			SenderID: &actorID,
			Type:     "system",
			Title:    "Promoted to officer",
			Message:  fmt.Sprintf("You are now an officer of %s.", g.Name),
			View:     "groups",
			Tab:      groupID.String(),
		}); err != nil {
			s.logger.Warn("Failed to notify promotion", zap.Error(err))
		}
	}

	users, _ := s.users.GetSummaries(ctx, []uuid.UUID{userID})
	summary, ok := users[userID]
	if !ok {
		summary = shared.UserSummary{ID: userID}
	}
	return &MemberResponse{User: summary, Role: target.Role, JoinedAt: target.JoinedAt}, nil
}

// --- Channels ---

func (s *ServiceImplementation) ListChannels(ctx context.Context, userID, groupID uuid.UUID) ([]ChannelResponse, error) {
	if _, err := s.membership(ctx, groupID, userID); err != nil {
		return nil, err
	}
	channels, err := s.repo.ListChannels(ctx, groupID)
	if err != nil {
		return nil, err
	}
	out := make([]ChannelResponse, len(channels))
	for i := range channels {
		out[i] = ToChannelResponse(&channels[i])
	}
	return out, nil
}

// CreateChannel is open to leaders and officers.
func (s *ServiceImplementation) CreateChannel(ctx context.Context, userID, groupID uuid.UUID, req CreateChannelRequest) (*ChannelResponse, error) {
	m, err := s.membership(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	if !m.Role.CanManageChannels() {
		return nil, common.ErrForbidden.WithDetails("Only leaders and officers can create channels.")
	}
	name := strings.TrimSpace(req.Name)
	c := &Channel{GroupID: groupID, Name: name, Slug: slug.Make(name)}
	if c.Slug == "" {
		return nil, common.ErrUnprocessableEntity.WithDetails("Channel name must contain letters or digits.")
	}
	if err := s.repo.CreateChannel(ctx, c); err != nil {
		return nil, err
	}
	resp := ToChannelResponse(c)
	return &resp, nil
}

// DeleteChannel is leader only and never removes the general channel.
func (s *ServiceImplementation) DeleteChannel(ctx context.Context, userID, groupID, channelID uuid.UUID) error {
	m, err := s.membership(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if m.Role != RoleLeader {
		return common.ErrForbidden.WithDetails("Only the group leader can delete channels.")
	}
	c, err := s.repo.FindChannel(ctx, groupID, channelID)
	if err != nil {
		return err
	}
	if c.Slug == GeneralChannelSlug {
		return common.ErrBadRequest.WithDetails("The general channel cannot be deleted.")
	}
	return s.repo.DeleteChannel(ctx, c)
}

// --- Messages ---

func (s *ServiceImplementation) render(ctx context.Context, msgs []Message) ([]MessageResponse, error) {
	ids := make([]uuid.UUID, len(msgs))
	authors := make([]uuid.UUID, len(msgs))
	for i := range msgs {
		ids[i] = msgs[i].ID
		authors[i] = msgs[i].AuthorID
	}
	reactions, err := s.repo.ListReactions(ctx, ids)
	if err != nil {
		return nil, err
	}
	users, _ := s.users.GetSummaries(ctx, authors)
	out := make([]MessageResponse, len(msgs))
	for i := range msgs {
		out[i] = ToMessageResponse(&msgs[i], reactions, users)
	}
	return out, nil
}

func (s *ServiceImplementation) renderOne(ctx context.Context, m *Message) (*MessageResponse, error) {
	out, err := s.render(ctx, []Message{*m})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

func (s *ServiceImplementation) ListMessages(ctx context.Context, userID, groupID, channelID uuid.UUID, limit int) ([]MessageResponse, error) {
	if _, err := s.membership(ctx, groupID, userID); err != nil {
		return nil, err
	}
	if _, err := s.repo.FindChannel(ctx, groupID, channelID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultMessageLimit
	}
	if limit > MaxMessageLimit {
		limit = MaxMessageLimit
	}
	msgs, err := s.repo.ListMessages(ctx, channelID, limit)
	if err != nil {
		return nil, err
	}
	return s.render(ctx, msgs)
}

// PostMessage stores the message and pushes new-message to the other members.
func (s *ServiceImplementation) PostMessage(ctx context.Context, userID, groupID, channelID uuid.UUID, req PostMessageRequest) (*MessageResponse, error) {
	if _, err := s.membership(ctx, groupID, userID); err != nil {
		return nil, err
	}
	if _, err := s.repo.FindChannel(ctx, groupID, channelID); err != nil {
		return nil, err
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, common.ErrUnprocessableEntity.WithDetails("Message must not be blank.")
	}
	m := &Message{GroupID: groupID, ChannelID: channelID, AuthorID: userID, Content: content}
	if err := s.repo.CreateMessage(ctx, m); err != nil {
		s.logger.Error("Failed to post message", zap.Error(err), zap.String("channelID", channelID.String()))
		return nil, common.ErrInternalServer
	}

	resp, err := s.renderOne(ctx, m)
	if err != nil {
		return nil, err
	}
	s.publishMessage(ctx, resp)
	return resp, nil
}

func (s *ServiceImplementation) publishMessage(ctx context.Context, m *MessageResponse) {
	members, err := s.repo.ListMembers(ctx, m.GroupID)
	if err != nil {
		s.logger.Warn("Failed to load members for fan-out", zap.Error(err))
		return
	}
	ev := events.MessagePayload{
		ID:        m.ID.String(),
		GroupID:   m.GroupID.String(),
		ChannelID: m.ChannelID.String(),
		AuthorID:  m.AuthorID.String(),
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
	if m.Author != nil {
		ev.AuthorUsername = m.Author.Username
	}
	for _, member := range members {
		if member.UserID != m.AuthorID {
			s.publisher.SendToUser(member.UserID, ev)
		}
	}
}

// DeleteMessage soft-deletes a message. Allowed for its author and the leader.
func (s *ServiceImplementation) DeleteMessage(ctx context.Context, userID, groupID, messageID uuid.UUID) (*MessageResponse, error) {
	me, err := s.membership(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	m, err := s.repo.FindMessage(ctx, groupID, messageID)
	if err != nil {
		return nil, err
	}
	if m.AuthorID != userID && me.Role != RoleLeader {
		return nil, common.ErrForbidden.WithDetails("Only the author or the group leader can delete this message.")
	}
	if !m.Deleted {
		m.Deleted = true
		m.Content = ""
		if err := s.repo.UpdateMessage(ctx, m); err != nil {
			return nil, err
		}
	}
	return s.renderOne(ctx, m)
}

func (s *ServiceImplementation) ToggleReaction(ctx context.Context, userID, groupID, messageID uuid.UUID, emoji string) (*MessageResponse, error) {
	if _, err := s.membership(ctx, groupID, userID); err != nil {
		return nil, err
	}
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		return nil, common.ErrUnprocessableEntity.WithDetails("Emoji must not be blank.")
	}
	m, err := s.repo.FindMessage(ctx, groupID, messageID)
	if err != nil {
		return nil, err
	}
	if m.Deleted {
		return nil, common.ErrConflict.WithDetails("Cannot react to a deleted message.")
	}
	if _, err := s.repo.ToggleReaction(ctx, &Reaction{MessageID: m.ID, UserID: userID, Emoji: emoji}); err != nil {
		return nil, err
	}
	return s.renderOne(ctx, m)
}

func (s *ServiceImplementation) UnreadCount(ctx context.Context, userID uuid.UUID, since time.Time) (*UnreadCount, error) {
	n, err := s.repo.CountMessagesSince(ctx, userID, since)
	if err != nil {
		return nil, err
	}
	return &UnreadCount{Count: n, Since: since}, nil
}
