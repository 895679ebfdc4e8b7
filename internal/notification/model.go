package notification

import (
	"time"

	"arc_community_backend/internal/shared"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// NotificationType defines the type of notification.
type NotificationType string

const (
	TypeComment       NotificationType = "comment"
	TypeReply         NotificationType = "reply"
	TypeTrade         NotificationType = "trade"
	TypeFriendRequest NotificationType = "friend_request"
	TypeGroupInvite   NotificationType = "group_invite"
	TypeMessage       NotificationType = "message"
	TypeSystem        NotificationType = "system"
)

// Valid reports whether t is a known notification type.
func (t NotificationType) Valid() bool {
	switch t {
	case TypeComment, TypeReply, TypeTrade, TypeFriendRequest, TypeGroupInvite, TypeMessage, TypeSystem:
		return true
	}
	return false
}

// Notification represents a user notification.
type Notification struct {
	ID        uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID        `gorm:"type:uuid;not null;index:idx_notification_user_status" json:"user_id"` // recipient
	SenderID  *uuid.UUID       `gorm:"type:uuid" json:"sender_id,omitempty"`
	Type      NotificationType `gorm:"type:varchar(40);not null" json:"type"`
	Title     string           `gorm:"type:varchar(255);not null" json:"title"`
	Message   string           `gorm:"type:text;not null" json:"message"`
	Link      *string          `gorm:"type:text" json:"link,omitempty"`
	Data      datatypes.JSON   `json:"data,omitempty"`
	IsRead    bool             `gorm:"not null;default:false;index:idx_notification_user_status" json:"is_read"`
	CreatedAt time.Time        `gorm:"not null;index:idx_notification_user_status" json:"created_at"`
}

// TableName specifies the table name for GORM.
func (Notification) TableName() string {
	return "notifications"
}

// NavigationData is stored in Data so a client can open the right view.
type NavigationData struct {
	View string `json:"view,omitempty"`
	Tab  string `json:"tab,omitempty"`
}

// Response is a notification with its sender resolved.
type Response struct {
	Notification
	Sender *shared.UserSummary `json:"sender,omitempty"`
}

// DeviceToken is an FCM registration token of one user device.
type DeviceToken struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Token     string    `gorm:"type:varchar(512);not null;uniqueIndex" json:"token"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (DeviceToken) TableName() string {
	return "notification_device_tokens"
}

// RegisterDeviceRequest is the body of POST /notifications/devices.
type RegisterDeviceRequest struct {
	Token string `json:"token" binding:"required,max=512"`
}

// Filter values for listing.
const (
	FilterAll    = "all"
	FilterUnread = "unread"
)
