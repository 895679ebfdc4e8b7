// File: cmd/server/wire.go
//go:build wireinject
// +build wireinject

package main

import (
	"arc_community_backend/internal/activity"
	"arc_community_backend/internal/app"
	"arc_community_backend/internal/auth"
	"arc_community_backend/internal/catalog"
	"arc_community_backend/internal/catalog/esutil"
	"arc_community_backend/internal/config"
	"arc_community_backend/internal/events"
	"arc_community_backend/internal/filestorage"
	"arc_community_backend/internal/firebase"
	"arc_community_backend/internal/friend"
	"arc_community_backend/internal/group"
	"arc_community_backend/internal/jobs"
	"arc_community_backend/internal/marketplace"
	"arc_community_backend/internal/notification"
	"arc_community_backend/internal/platform/crypto"
	platformElasticsearch "arc_community_backend/internal/platform/elasticsearch"
	"arc_community_backend/internal/platform/logger"
	"arc_community_backend/internal/realtime"
	"arc_community_backend/internal/shared"
	"arc_community_backend/internal/user"

	"github.com/google/wire"
)

// initializeServer is the main Wire injector.
func initializeServer(cfg *config.Config) (*app.Server, func(), error) {
	wire.Build(
		// Platform Layer
		logger.New,
		provideDB,
		filestorage.ProvideStore,
		platformElasticsearch.NewClient,
		firebase.NewPushService,
		crypto.ProvideInviteCodeGenerator,

		// Users and auth
		user.NewGORMRepository,
		user.NewService,
		wire.Bind(new(user.AvatarStore), new(*filestorage.Store)),
		wire.Bind(new(user.Service), new(*user.ServiceImplementation)),
		wire.Bind(new(shared.UserDirectory), new(*user.ServiceImplementation)),
		wire.Bind(new(auth.Accounts), new(*user.ServiceImplementation)),
		auth.ProvideBlocklist,
		auth.NewJWTService,
		auth.NewHandler,
		user.NewHandler,

		// Socket channel
		realtime.NewHub,
		wire.Bind(new(events.Publisher), new(*realtime.Hub)),
		realtime.NewHandler,

		// Feed and notifications
		activity.NewGORMRepository,
		activity.NewService,
		wire.Bind(new(activity.Service), new(*activity.ServiceImplementation)),
		wire.Bind(new(shared.ActivityRecorder), new(*activity.ServiceImplementation)),
		activity.NewHandler,
		notification.NewGORMRepository,
		notification.ProvidePushSender,
		notification.NewService,
		wire.Bind(new(notification.Service), new(*notification.ServiceImplementation)),
		wire.Bind(new(shared.Notifier), new(*notification.ServiceImplementation)),
		notification.NewHandler,

		// Domain modules
		friend.NewGORMRepository,
		friend.NewService,
		wire.Bind(new(friend.Service), new(*friend.ServiceImplementation)),
		friend.NewHandler,
		catalog.NewGORMRepository,
		esutil.NewIndexer,
		catalog.NewService,
		catalog.NewHandler,
		marketplace.NewGORMRepository,
		marketplace.NewService,
		wire.Bind(new(marketplace.Service), new(*marketplace.ServiceImplementation)),
		wire.Bind(new(jobs.OfferExpirer), new(*marketplace.ServiceImplementation)),
		marketplace.NewHandler,
		group.NewGORMRepository,
		group.NewService,
		wire.Bind(new(group.Service), new(*group.ServiceImplementation)),
		group.NewHandler,
		jobs.NewOfferExpiryJob,

		// Application Layer
		provideHandlers,
		app.NewServer,
	)
	return nil, nil, nil
}
