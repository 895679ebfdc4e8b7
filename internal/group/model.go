// File: internal/group/model.go
package group

import (
	"time"

	"arc_community_backend/internal/common"
	"arc_community_backend/internal/shared"

	"github.com/google/uuid"
)

// DeletedMessagePlaceholder replaces the content of deleted messages.
const DeletedMessagePlaceholder = "[message deleted]"

// GeneralChannelSlug is created with every group and cannot be deleted.
const GeneralChannelSlug = "general"

type Role string

const (
	RoleLeader  Role = "leader"
	RoleOfficer Role = "officer"
	RoleMember  Role = "member"
)

// CanManageChannels reports whether the role may create channels.
func (r Role) CanManageChannels() bool {
	return r == RoleLeader || r == RoleOfficer
}

type Group struct {
	common.BaseModel
	Name        string    `gorm:"type:varchar(60);not null"`
	Description string    `gorm:"type:text"`
	LeaderID    uuid.UUID `gorm:"type:uuid;not null;index"`
	InviteCode  string    `gorm:"type:varchar(32);not null;uniqueIndex"`
}

func (Group) TableName() string {
	return "groups"
}

type GroupMember struct {
	GroupID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID   uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	Role     Role      `gorm:"type:varchar(20);not null;default:'member'"`
	JoinedAt time.Time `gorm:"not null"`
}

func (GroupMember) TableName() string {
	return "group_members"
}

type Channel struct {
	common.BaseModel
	GroupID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_channel_group_slug"`
	Name    string    `gorm:"type:varchar(40);not null"`
	Slug    string    `gorm:"type:varchar(60);not null;uniqueIndex:idx_channel_group_slug"`
}

func (Channel) TableName() string {
	return "group_channels"
}

type Message struct {
	common.BaseModel
	GroupID   uuid.UUID `gorm:"type:uuid;not null;index"`
	ChannelID uuid.UUID `gorm:"type:uuid;not null;index:idx_message_channel_created"`
	AuthorID  uuid.UUID `gorm:"type:uuid;not null"`
	Content   string    `gorm:"type:text;not null"`
	Deleted   bool      `gorm:"not null;default:false"`
}

func (Message) TableName() string {
	return "group_messages"
}

type Reaction struct {
	MessageID uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	Emoji     string    `gorm:"type:varchar(32);primaryKey"`
	CreatedAt time.Time
}

func (Reaction) TableName() string {
	return "message_reactions"
}

// --- Requests ---

type CreateGroupRequest struct {
	Name        string `json:"name" binding:"required,min=3,max=60"`
	Description string `json:"description" binding:"max=500"`
}

type JoinRequest struct {
	InviteCode string `json:"invite_code" binding:"required,max=32"`
}

type CreateChannelRequest struct {
	Name string `json:"name" binding:"required,min=2,max=40"`
}

type PostMessageRequest struct {
	Content string `json:"content" binding:"required,max=2000"`
}

type ReactionRequest struct {
	Emoji string `json:"emoji" binding:"required,max=32"`
}

// --- Responses ---

type MemberResponse struct {
	User     shared.UserSummary `json:"user"`
	Role     Role               `json:"role"`
	JoinedAt time.Time          `json:"joined_at"`
}

type GroupResponse struct {
	ID          uuid.UUID        `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	LeaderID    uuid.UUID        `json:"leader_id"`
	InviteCode  string           `json:"invite_code"`
	MyRole      Role             `json:"my_role"`
	MemberCount int              `json:"member_count"`
	Members     []MemberResponse `json:"members,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

type ChannelResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

func ToChannelResponse(c *Channel) ChannelResponse {
	return ChannelResponse{ID: c.ID, Name: c.Name, Slug: c.Slug, CreatedAt: c.CreatedAt}
}

type MessageResponse struct {
	ID        uuid.UUID              `json:"id"`
	GroupID   uuid.UUID              `json:"group_id"`
	ChannelID uuid.UUID              `json:"channel_id"`
	AuthorID  uuid.UUID              `json:"author_id"`
	Author    *shared.UserSummary    `json:"author,omitempty"`
	Content   string                 `json:"content"`
	Deleted   bool                   `json:"deleted"`
	Reactions map[string][]uuid.UUID `json:"reactions"`
	CreatedAt time.Time              `json:"created_at"`
}

// ToMessageResponse renders a message with its reactions grouped by emoji.
func ToMessageResponse(m *Message, reactions []Reaction, users map[uuid.UUID]shared.UserSummary) MessageResponse {
	resp := MessageResponse{
		ID:        m.ID,
		GroupID:   m.GroupID,
		ChannelID: m.ChannelID,
		AuthorID:  m.AuthorID,
		Content:   m.Content,
		Deleted:   m.Deleted,
		Reactions: map[string][]uuid.UUID{},
		CreatedAt: m.CreatedAt,
	}
	if s, ok := users[m.AuthorID]; ok {
		resp.Author = &s
	}
	if m.Deleted {
		resp.Content = DeletedMessagePlaceholder
	}
	for _, r := range reactions {
		if r.MessageID == m.ID {
			resp.Reactions[r.Emoji] = append(resp.Reactions[r.Emoji], r.UserID)
		}
	}
	return resp
}

type UnreadCount struct {
	Count int64     `json:"count"`
	Since time.Time `json:"since"`
}
