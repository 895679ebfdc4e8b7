package activity

import (
	"time"

	"arc_community_backend/internal/shared"

	"github.com/google/uuid"
)

// Kinds of activity entries.
const (
	KindListingCreated = "listing_created"
	KindOfferMade      = "offer_made"
	KindTradeCompleted = "trade_completed"
	KindFriendAdded    = "friend_added"
	KindGroupJoined    = "group_joined"
)

// Activity is one entry of the community feed.
type Activity struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	Kind      string     `gorm:"type:varchar(40);not null" json:"kind"`
	Summary   string     `gorm:"type:text;not null" json:"summary"`
	RefType   string     `gorm:"type:varchar(40)" json:"ref_type,omitempty"`
	RefID     *uuid.UUID `gorm:"type:uuid" json:"ref_id,omitempty"`
	CreatedAt time.Time  `gorm:"not null;index" json:"created_at"`
}

// TableName specifies the table name for GORM.
func (Activity) TableName() string {
	return "activities"
}

// Response adds the user summary to an entry.
type Response struct {
	Activity
	User *shared.UserSummary `json:"user,omitempty"`
}
