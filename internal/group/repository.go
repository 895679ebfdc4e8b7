// File: internal/group/repository.go
package group

import (
	"context"
	"errors"
	"fmt"
	"time"

	"arc_community_backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the interface for group data operations.
type Repository interface {
	// CreateGroup stores the group, its leader membership and its general
	// channel in one transaction.
	CreateGroup(ctx context.Context, g *Group, leader *GroupMember, general *Channel) error
	FindGroupByID(ctx context.Context, id uuid.UUID) (*Group, error)
	FindGroupByInviteCode(ctx context.Context, code string) (*Group, error)
	ListGroupsForUser(ctx context.Context, userID uuid.UUID) ([]Group, error)

	FindMember(ctx context.Context, groupID, userID uuid.UUID) (*GroupMember, error)
	ListMembers(ctx context.Context, groupID uuid.UUID) ([]GroupMember, error)
	CountMembers(ctx context.Context, groupIDs []uuid.UUID) (map[uuid.UUID]int, error)
	AddMember(ctx context.Context, m *GroupMember) error
	UpdateMember(ctx context.Context, m *GroupMember) error

	ListChannels(ctx context.Context, groupID uuid.UUID) ([]Channel, error)
	FindChannel(ctx context.Context, groupID, channelID uuid.UUID) (*Channel, error)
	CreateChannel(ctx context.Context, c *Channel) error
	DeleteChannel(ctx context.Context, c *Channel) error

	CreateMessage(ctx context.Context, m *Message) error
	FindMessage(ctx context.Context, groupID, messageID uuid.UUID) (*Message, error)
	UpdateMessage(ctx context.Context, m *Message) error
	// ListMessages returns the newest limit messages of a channel, oldest first.
	ListMessages(ctx context.Context, channelID uuid.UUID, limit int) ([]Message, error)
	CountMessagesSince(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error)

	ListReactions(ctx context.Context, messageIDs []uuid.UUID) ([]Reaction, error)
	// ToggleReaction adds the reaction or removes it when present. added
	// reports which of the two happened.
	ToggleReaction(ctx context.Context, r *Reaction) (added bool, err error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM-backed group repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return common.ErrNotFound.WithDetails(what + " not found.")
	}
	return err
}

func (r *gormRepository) CreateGroup(ctx context.Context, g *Group, leader *GroupMember, general *Channel) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(g).Error; err != nil {
			return fmt.Errorf("failed to create group: %w", err)
		}
		leader.GroupID = g.ID
		if err := tx.Create(leader).Error; err != nil {
			return fmt.Errorf("failed to add group leader: %w", err)
		}
		general.GroupID = g.ID
		if err := tx.Create(general).Error; err != nil {
			return fmt.Errorf("failed to create general channel: %w", err)
		}
		return nil
	})
}

func (r *gormRepository) FindGroupByID(ctx context.Context, id uuid.UUID) (*Group, error) {
	var g Group
	if err := r.db.WithContext(ctx).First(&g, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "Group")
	}
	return &g, nil
}

func (r *gormRepository) FindGroupByInviteCode(ctx context.Context, code string) (*Group, error) {
	var g Group
	if err := r.db.WithContext(ctx).First(&g, "invite_code = ?", code).Error; err != nil {
		return nil, notFound(err, "Group for this invite code")
	}
	return &g, nil
}

func (r *gormRepository) ListGroupsForUser(ctx context.Context, userID uuid.UUID) ([]Group, error) {
	var groups []Group
	err := r.db.WithContext(ctx).
		Joins("JOIN group_members ON group_members.group_id = groups.id").
		Where("group_members.user_id = ?", userID).
		Order("groups.name ASC").
		Find(&groups).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	return groups, nil
}

func (r *gormRepository) FindMember(ctx context.Context, groupID, userID uuid.UUID) (*GroupMember, error) {
	var m GroupMember
	if err := r.db.WithContext(ctx).First(&m, "group_id = ? AND user_id = ?", groupID, userID).Error; err != nil {
		return nil, notFound(err, "Group member")
	}
	return &m, nil
}

func (r *gormRepository) ListMembers(ctx context.Context, groupID uuid.UUID) ([]GroupMember, error) {
	var members []GroupMember
	if err := r.db.WithContext(ctx).Where("group_id = ?", groupID).Order("joined_at ASC").Find(&members).Error; err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}

func (r *gormRepository) CountMembers(ctx context.Context, groupIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	out := make(map[uuid.UUID]int, len(groupIDs))
	if len(groupIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		GroupID uuid.UUID
		Count   int
	}
	err := r.db.WithContext(ctx).Model(&GroupMember{}).
		Select("group_id, COUNT(*) AS count").
		Where("group_id IN ?", groupIDs).
		Group("group_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count members: %w", err)
	}
	for _, row := range rows {
		out[row.GroupID] = row.Count
	}
	return out, nil
}

func (r *gormRepository) AddMember(ctx context.Context, m *GroupMember) error {
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}
	return nil
}

func (r *gormRepository) UpdateMember(ctx context.Context, m *GroupMember) error {
	err := r.db.WithContext(ctx).Model(&GroupMember{}).
		Where("group_id = ? AND user_id = ?", m.GroupID, m.UserID).
		Update("role", m.Role).Error
	if err != nil {
		return fmt.Errorf("failed to update member: %w", err)
	}
	return nil
}

func (r *gormRepository) ListChannels(ctx context.Context, groupID uuid.UUID) ([]Channel, error) {
	var channels []Channel
	if err := r.db.WithContext(ctx).Where("group_id = ?", groupID).Order("created_at ASC").Find(&channels).Error; err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	return channels, nil
}

func (r *gormRepository) FindChannel(ctx context.Context, groupID, channelID uuid.UUID) (*Channel, error) {
	var c Channel
	if err := r.db.WithContext(ctx).First(&c, "id = ? AND group_id = ?", channelID, groupID).Error; err != nil {
		return nil, notFound(err, "Channel")
	}
	return &c, nil
}

func (r *gormRepository) CreateChannel(ctx context.Context, c *Channel) error {
	var existing int64
	if err := r.db.WithContext(ctx).Model(&Channel{}).Where("group_id = ? AND slug = ?", c.GroupID, c.Slug).Count(&existing).Error; err != nil {
		return fmt.Errorf("failed to check channel slug: %w", err)
	}
	if existing > 0 {
		return common.ErrConflict.WithDetails("A channel with this name already exists.")
	}
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("failed to create channel: %w", err)
	}
	return nil
}

// DeleteChannel removes the channel with its messages and their reactions.
func (r *gormRepository) DeleteChannel(ctx context.Context, c *Channel) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		msgIDs := tx.Model(&Message{}).Select("id").Where("channel_id = ?", c.ID)
		if err := tx.Where("message_id IN (?)", msgIDs).Delete(&Reaction{}).Error; err != nil {
			return fmt.Errorf("failed to delete reactions: %w", err)
		}
		if err := tx.Where("channel_id = ?", c.ID).Delete(&Message{}).Error; err != nil {
			return fmt.Errorf("failed to delete messages: %w", err)
		}
		if err := tx.Delete(c).Error; err != nil {
			return fmt.Errorf("failed to delete channel: %w", err)
		}
		return nil
	})
}

func (r *gormRepository) CreateMessage(ctx context.Context, m *Message) error {
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func (r *gormRepository) FindMessage(ctx context.Context, groupID, messageID uuid.UUID) (*Message, error) {
	var m Message
	if err := r.db.WithContext(ctx).First(&m, "id = ? AND group_id = ?", messageID, groupID).Error; err != nil {
		return nil, notFound(err, "Message")
	}
	return &m, nil
}

func (r *gormRepository) UpdateMessage(ctx context.Context, m *Message) error {
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return fmt.Errorf("failed to update message: %w", err)
	}
	return nil
}

func (r *gormRepository) ListMessages(ctx context.Context, channelID uuid.UUID, limit int) ([]Message, error) {
	var msgs []Message
	err := r.db.WithContext(ctx).
		Where("channel_id = ?", channelID).
		Order("created_at DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// CountMessagesSince counts live messages by other users in the user's groups.
func (r *gormRepository) CountMessagesSince(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error) {
	groupIDs := r.db.Model(&GroupMember{}).Select("group_id").Where("user_id = ?", userID)
	var count int64
	err := r.db.WithContext(ctx).Model(&Message{}).
		Where("group_id IN (?)", groupIDs).
		Where("author_id <> ? AND deleted = ? AND created_at > ?", userID, false, since).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}

func (r *gormRepository) ListReactions(ctx context.Context, messageIDs []uuid.UUID) ([]Reaction, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}
	var reactions []Reaction
	err := r.db.WithContext(ctx).Where("message_id IN ?", messageIDs).Order("created_at ASC").Find(&reactions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list reactions: %w", err)
	}
	return reactions, nil
}

func (r *gormRepository) ToggleReaction(ctx context.Context, reaction *Reaction) (bool, error) {
	added := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("message_id = ? AND user_id = ? AND emoji = ?", reaction.MessageID, reaction.UserID, reaction.Emoji).
			Delete(&Reaction{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		added = true
		return tx.Create(reaction).Error
	})
	if err != nil {
		return false, fmt.Errorf("failed to toggle reaction: %w", err)
	}
	return added, nil
}
