package main

import (
	"log"

	"arc_community_backend/internal/activity"
	"arc_community_backend/internal/app"
	"arc_community_backend/internal/auth"
	"arc_community_backend/internal/catalog"
	"arc_community_backend/internal/config"
	"arc_community_backend/internal/friend"
	"arc_community_backend/internal/group"
	"arc_community_backend/internal/marketplace"
	"arc_community_backend/internal/notification"
	"arc_community_backend/internal/platform/database"
	"arc_community_backend/internal/realtime"
	"arc_community_backend/internal/user"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// provideDB opens the database and returns a cleanup that closes it and
// flushes the logger.
func provideDB(cfg *config.Config, logger *zap.Logger) (*gorm.DB, func(), error) {
	db, err := database.NewGORM(cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		logger.Info("Executing cleanup tasks...")
		database.CloseGORMDB(db)
		if err := logger.Sync(); err != nil {
			log.Printf("ERROR: Failed to sync logger during cleanup: %v", err)
		}
	}
	return db, cleanup, nil
}

func provideHandlers(
	authH *auth.Handler,
	userH *user.Handler,
	activityH *activity.Handler,
	friendH *friend.Handler,
	catalogH *catalog.Handler,
	marketplaceH *marketplace.Handler,
	notificationH *notification.Handler,
	groupH *group.Handler,
	realtimeH *realtime.Handler,
) app.Handlers {
	return app.Handlers{
		Auth:         authH,
		User:         userH,
		Activity:     activityH,
		Friend:       friendH,
		Catalog:      catalogH,
		Marketplace:  marketplaceH,
		Notification: notificationH,
		Group:        groupH,
		Realtime:     realtimeH,
	}
}
