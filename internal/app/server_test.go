package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"arc_community_backend/internal/activity"
	"arc_community_backend/internal/auth"
	"arc_community_backend/internal/catalog"
	"arc_community_backend/internal/client/api"
	"arc_community_backend/internal/client/session"
	"arc_community_backend/internal/common"
	"arc_community_backend/internal/config"
	"arc_community_backend/internal/filestorage"
	"arc_community_backend/internal/friend"
	"arc_community_backend/internal/group"
	"arc_community_backend/internal/jobs"
	"arc_community_backend/internal/marketplace"
	"arc_community_backend/internal/notification"
	"arc_community_backend/internal/platform/crypto"
	"arc_community_backend/internal/platform/database"
	"arc_community_backend/internal/realtime"
	"arc_community_backend/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestServer assembles the server the way cmd/server does, on sqlite and
// without the optional Elasticsearch and Firebase integrations.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		GinMode:                     gin.TestMode,
		JWTSecretKey:                "integration-secret",
		JWTAccessTokenExpiryMinutes: time.Hour,
		AuthRateLimitPerMinute:      600,
		AuthRateLimitBurst:          100,
		OfferLifespan:               72 * time.Hour,
		UploadPublicURL:             "/uploads",
		WSAllowedOrigins:            []string{"*"},
	}
	logger := zap.NewNop()

	db, err := database.NewInMemory()
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	store, err := filestorage.NewStore(t.TempDir(), cfg.UploadPublicURL, logger)
	require.NoError(t, err)
	tokens := auth.NewJWTService(cfg, auth.NewInMemoryBlocklistService(time.Minute), logger)
	hub := realtime.NewHub(logger)

	users := user.NewService(user.NewGORMRepository(db), store, logger)
	feed := activity.NewService(activity.NewGORMRepository(db), users, logger)
	notifier := notification.NewService(notification.NewGORMRepository(db), users, hub, nil, logger)
	friends := friend.NewService(friend.NewGORMRepository(db), users, notifier, feed, logger)
	market := marketplace.NewService(marketplace.NewGORMRepository(db), users, hub, notifier, feed, cfg, logger)
	codes, err := crypto.ProvideInviteCodeGenerator()
	require.NoError(t, err)
	groups := group.NewService(group.NewGORMRepository(db), users, hub, notifier, feed, codes, logger)

	handlers := Handlers{
		Auth:         auth.NewHandler(users, tokens, logger),
		User:         user.NewHandler(users, logger),
		Activity:     activity.NewHandler(feed, logger),
		Friend:       friend.NewHandler(friends, logger),
		Catalog:      catalog.NewHandler(catalog.NewService(catalog.NewGORMRepository(db), nil, logger), logger),
		Marketplace:  marketplace.NewHandler(market, logger),
		Notification: notification.NewHandler(notifier, logger),
		Group:        group.NewHandler(groups, logger),
		Realtime:     realtime.NewHandler(hub, tokens, cfg, logger),
	}
	server, err := NewServer(cfg, logger, db, tokens, handlers, hub, jobs.NewOfferExpiryJob(market, logger, cfg), store, nil)
	require.NoError(t, err)

	srv := httptest.NewServer(server.Handler())
	t.Cleanup(func() {
		srv.Close()
		hub.Stop()
		database.CloseGORMDB(db)
	})
	return srv
}

func register(t *testing.T, srv *httptest.Server, name string) *api.Client {
	t.Helper()
	c := api.New(srv.URL, session.New(), srv.Client(), zap.NewNop())
	_, err := c.Register(context.Background(), api.RegisterInput{
		Username: name, Email: name + "@example.com", Password: "supersecret", PasswordConfirmation: "supersecret",
	})
	require.NoError(t, err)
	return c
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	resp, err := srv.Client().Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPI_RequiresToken(t *testing.T) {
	srv := newTestServer(t)
	c := api.New(srv.URL, session.New(), srv.Client(), zap.NewNop())
	_, _, err := c.ListListings(context.Background(), "", false, 1)
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestTradeLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	seller := register(t, srv, "seller")
	buyer := register(t, srv, "buyer")

	listing, err := seller.CreateListing(ctx, marketplace.CreateListingRequest{
		Title: "Trading Anvil blueprint", OfferingItem: "Anvil Blueprint", SeekingItems: []string{"Rattler", "Ferro"},
	})
	require.NoError(t, err)

	_, err = seller.CreateOffer(ctx, listing.ID, marketplace.OfferRequest{Items: []string{"Stitcher"}})
	assert.ErrorIs(t, err, common.ErrBadRequest, "cannot offer on your own listing")

	offer, err := buyer.CreateOffer(ctx, listing.ID, marketplace.OfferRequest{Items: []string{"Rifle AK-47", "50 Balas"}, Message: "deal?"})
	require.NoError(t, err)
	assert.Equal(t, marketplace.OfferPending, offer.Status)

	sellerView, err := seller.ListOffers(ctx, listing.ID)
	require.NoError(t, err)
	require.Len(t, sellerView, 1)
	assert.Equal(t, []string{"Rifle AK-47", "50 Balas"}, sellerView[0].Items)

	sellerInbox, err := seller.ListNotifications(ctx, "unread")
	require.NoError(t, err)
	require.NotEmpty(t, sellerInbox)
	assert.Equal(t, "trade", sellerInbox[0].Type)

	countered, err := seller.CounterOffer(ctx, offer.ID, marketplace.OfferRequest{Items: []string{"Rifle AK-47", "100 Balas"}})
	require.NoError(t, err)
	assert.Equal(t, marketplace.OfferCountered, countered.Status)
	assert.Equal(t, []string{"Rifle AK-47", "100 Balas"}, countered.LastCounterItems)

	_, err = buyer.AcceptOffer(ctx, offer.ID)
	assert.ErrorIs(t, err, common.ErrForbidden, "only the seller accepts")

	accepted, err := seller.AcceptOffer(ctx, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, marketplace.OfferAccepted, accepted.Status)

	got, err := buyer.GetListing(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, marketplace.ListingTraded, got.Status)

	_, err = seller.RejectOffer(ctx, offer.ID)
	assert.ErrorIs(t, err, common.ErrConflict, "accepted is terminal")

	require.NoError(t, buyer.MarkAllNotificationsRead(ctx))
	n, err := buyer.UnreadNotificationCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestGroupChatOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	leader := register(t, srv, "leader")
	member := register(t, srv, "member")

	g, err := leader.CreateGroup(ctx, group.CreateGroupRequest{Name: "Speranza Runners"})
	require.NoError(t, err)
	_, err = member.JoinGroup(ctx, g.InviteCode)
	require.NoError(t, err)

	channels, err := member.ListChannels(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, channels, 1)
	assert.Equal(t, group.GeneralChannelSlug, channels[0].Slug)

	_, err = member.CreateChannel(ctx, g.ID, "raids")
	assert.ErrorIs(t, err, common.ErrForbidden)

	posted, err := member.PostMessage(ctx, g.ID, channels[0].ID, "anyone up for a run?")
	require.NoError(t, err)

	unread, err := leader.UnreadMessageCount(ctx, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	reacted, err := leader.ToggleReaction(ctx, g.ID, posted.ID, "🔥")
	require.NoError(t, err)
	assert.Len(t, reacted.Reactions["🔥"], 1)

	msgs, err := leader.ListMessages(ctx, g.ID, channels[0].ID, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "anyone up for a run?", msgs[0].Content)
}
