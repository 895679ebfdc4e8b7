package app

import (
	"fmt"

	"arc_community_backend/internal/activity"
	"arc_community_backend/internal/catalog"
	"arc_community_backend/internal/friend"
	"arc_community_backend/internal/group"
	"arc_community_backend/internal/marketplace"
	"arc_community_backend/internal/notification"
	"arc_community_backend/internal/user"

	"gorm.io/gorm"
)

// Models lists every persisted model in dependency order.
func Models() []interface{} {
	return []interface{}{
		&user.User{},
		&activity.Activity{},
		&friend.Friendship{},
		&notification.Notification{},
		&notification.DeviceToken{},
		&catalog.Entry{},
		&marketplace.Listing{},
		&marketplace.Offer{},
		&marketplace.CounterOffer{},
		&group.Group{},
		&group.GroupMember{},
		&group.Channel{},
		&group.Message{},
		&group.Reaction{},
	}
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto-migration failed: %w", err)
	}
	return nil
}
