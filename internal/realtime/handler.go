package realtime

import (
	"net/http"
	"strings"

	"arc_community_backend/internal/common"
	"arc_community_backend/internal/config"
	"arc_community_backend/internal/shared"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handler upgrades authenticated requests to websocket clients of the hub.
type Handler struct {
	hub      *Hub
	tokens   shared.TokenService
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewHandler(hub *Hub, tokens shared.TokenService, cfg *config.Config, logger *zap.Logger) *Handler {
	return &Handler{
		hub:    hub,
		tokens: tokens,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(cfg.WSAllowedOrigins),
		},
		logger: logger.Named("RealtimeHandler"),
	}
}

// RegisterRoutes mounts GET /ws. Browsers cannot set headers on a socket
// upgrade, so the token comes from the query string or the usual header.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/ws", h.serveWS)
}

func (h *Handler) serveWS(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = common.GetTokenFromContext(c)
	}
	if token == "" {
		common.RespondWithError(c, common.ErrUnauthorized.WithDetails("A token is required to open a socket."))
		return
	}
	claims, err := h.tokens.ValidateToken(c.Request.Context(), token)
	if err != nil {
		common.RespondWithError(c, common.ErrUnauthorized.WithDetails(err.Error()))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Debug("Websocket upgrade failed", zap.Error(err))
		return
	}
	newClient(h.hub, conn, claims.UserID, claims.Username).run()
}

func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}
