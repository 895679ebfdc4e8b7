// File: internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"arc_community_backend/internal/activity"
	"arc_community_backend/internal/auth"
	"arc_community_backend/internal/catalog"
	"arc_community_backend/internal/catalog/esutil"
	"arc_community_backend/internal/config"
	"arc_community_backend/internal/filestorage"
	"arc_community_backend/internal/friend"
	"arc_community_backend/internal/group"
	"arc_community_backend/internal/jobs"
	"arc_community_backend/internal/marketplace"
	"arc_community_backend/internal/middleware"
	"arc_community_backend/internal/notification"
	platformElasticsearch "arc_community_backend/internal/platform/elasticsearch"
	"arc_community_backend/internal/realtime"
	"arc_community_backend/internal/shared"
	"arc_community_backend/internal/user"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Handlers groups every HTTP handler mounted by the server.
type Handlers struct {
	Auth         *auth.Handler
	User         *user.Handler
	Activity     *activity.Handler
	Friend       *friend.Handler
	Catalog      *catalog.Handler
	Marketplace  *marketplace.Handler
	Notification *notification.Handler
	Group        *group.Handler
	Realtime     *realtime.Handler
}

// Server struct holds the dependencies for the HTTP server.
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	cfg        *config.Config
	logger     *zap.Logger
	db         *gorm.DB
	hub        *realtime.Hub
	offerJob   *jobs.OfferExpiryJob
	limiter    *middleware.LimiterStore
	esClient   *platformElasticsearch.ESClientWrapper
}

// NewServer creates a new instance of our application server.
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	tokens shared.TokenService,
	handlers Handlers,
	hub *realtime.Hub,
	offerJob *jobs.OfferExpiryJob,
	store *filestorage.Store,
	esClient *platformElasticsearch.ESClientWrapper,
) (*Server, error) {
	gin.SetMode(cfg.GinMode)
	router := gin.New()

	// --- Global Middleware ---
	router.Use(middleware.ZapLogger(logger, cfg.GinMode))
	router.Use(middleware.ErrorHandler(logger))
	router.Use(gin.Recovery())
	router.Use(cors.New(corsConfig(cfg.WSAllowedOrigins)))

	authMW := middleware.AuthMiddleware(tokens, logger.Named("AuthMiddleware"))
	adminRoleMW := middleware.RoleAuthMiddleware(shared.RoleAdmin)
	limiter := middleware.NewLimiterStore(cfg.AuthRateLimitPerMinute, cfg.AuthRateLimitBurst, time.Minute)

	// --- Setup Routes ---
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "message": "ARC community hub is healthy!", "online": hub.Online()})
	})
	if store != nil {
		router.Static(cfg.UploadPublicURL, store.Root())
	}

	api := router.Group("/api")
	handlers.Auth.RegisterRoutes(api, authMW, middleware.RateLimit(limiter))
	handlers.User.RegisterRoutes(api, authMW)
	handlers.Activity.RegisterRoutes(api, authMW)
	handlers.Friend.RegisterRoutes(api, authMW)
	handlers.Catalog.RegisterRoutes(api, authMW, adminRoleMW)
	handlers.Marketplace.RegisterRoutes(api, authMW)
	handlers.Notification.RegisterRoutes(api, authMW)
	handlers.Group.RegisterRoutes(api, authMW)
	handlers.Realtime.RegisterRoutes(api)

	addr := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		cfg:        cfg,
		logger:     logger,
		db:         db,
		hub:        hub,
		offerJob:   offerJob,
		limiter:    limiter,
		esClient:   esClient,
	}, nil
}

func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	c.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	c.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader}
	c.ExposeHeaders = []string{"Content-Length", middleware.RequestIDHeader}
	for _, o := range origins {
		if o == "*" {
			c.AllowAllOrigins = true
			return c
		}
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = origins
	return c
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run migrates the schema, starts background jobs and serves until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	if err := Migrate(s.db); err != nil {
		return err
	}
	s.ensureSearchIndex(ctx)
	if err := s.offerJob.SetupAndStart(); err != nil {
		s.logger.Error("Failed to setup and start offer expiry job", zap.Error(err))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("HTTP Server starting",
			zap.String("address", s.httpServer.Addr),
			zap.String("gin_mode", s.cfg.GinMode),
		)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ServerTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) ensureSearchIndex(ctx context.Context) {
	if s.esClient == nil {
		s.logger.Info("Elasticsearch not configured, catalog search mirror disabled.")
		return
	}
	if err := platformElasticsearch.EnsureIndex(ctx, s.esClient, esutil.CatalogIndexName, esutil.CatalogMapping(), s.logger); err != nil {
		s.logger.Error("Failed to create Elasticsearch catalog index", zap.Error(err))
	}
}

// Shutdown stops jobs, closes sockets and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Attempting graceful server shutdown...")
	s.offerJob.Stop()
	s.hub.Stop()
	s.limiter.Stop()
	return s.httpServer.Shutdown(ctx)
}
