// File: internal/group/handler.go
package group

import (
	"time"

	"arc_community_backend/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler struct holds dependencies for group handlers.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new group handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger.Named("GroupHandler")}
}

// RegisterRoutes sets up group, channel and message routes.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := router.Group("/groups", authMW)
	{
		g.POST("", h.createGroup)
		g.GET("", h.myGroups)
		g.POST("/join", h.join)
		g.GET("/:id", h.getGroup)
		g.POST("/:id/members/:userId/promote", h.promote)

		g.GET("/:id/channels", h.listChannels)
		g.POST("/:id/channels", h.createChannel)
		g.DELETE("/:id/channels/:channelId", h.deleteChannel)
		g.GET("/:id/channels/:channelId/messages", h.listMessages)
		g.POST("/:id/channels/:channelId/messages", h.postMessage)

		g.DELETE("/:id/messages/:messageId", h.deleteMessage)
		g.POST("/:id/messages/:messageId/reactions", h.toggleReaction)
	}
	router.GET("/messages/unread-count", authMW, h.unreadCount)
}

// params parses the named uuid path parameters in order.
func params(c *gin.Context, names ...string) ([]uuid.UUID, bool) {
	out := make([]uuid.UUID, len(names))
	for i, n := range names {
		id, err := common.ParseUUIDParam(c, n)
		if err != nil {
			common.RespondWithError(c, err)
			return nil, false
		}
		out[i] = id
	}
	return out, true
}

func (h *Handler) createGroup(c *gin.Context) {
	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindError(err))
		return
	}
	g, err := h.service.CreateGroup(c.Request.Context(), common.GetUserIDFromContext(c), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Group created.", g)
}

func (h *Handler) myGroups(c *gin.Context) {
	groups, err := h.service.MyGroups(c.Request.Context(), common.GetUserIDFromContext(c))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Groups retrieved.", groups)
}

func (h *Handler) join(c *gin.Context) {
	var req JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindError(err))
		return
	}
	g, err := h.service.Join(c.Request.Context(), common.GetUserIDFromContext(c), req.InviteCode)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Joined group.", g)
}

func (h *Handler) getGroup(c *gin.Context) {
	p, ok := params(c, "id")
	if !ok {
		return
	}
	g, err := h.service.GetGroup(c.Request.Context(), common.GetUserIDFromContext(c), p[0])
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Group retrieved.", g)
}

func (h *Handler) promote(c *gin.Context) {
	p, ok := params(c, "id", "userId")
	if !ok {
		return
	}
	m, err := h.service.Promote(c.Request.Context(), common.GetUserIDFromContext(c), p[0], p[1])
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Member promoted.", m)
}

func (h *Handler) listChannels(c *gin.Context) {
	p, ok := params(c, "id")
	if !ok {
		return
	}
	channels, err := h.service.ListChannels(c.Request.Context(), common.GetUserIDFromContext(c), p[0])
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Channels retrieved.", channels)
}

func (h *Handler) createChannel(c *gin.Context) {
	p, ok := params(c, "id")
	if !ok {
		return
	}
	var req CreateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindError(err))
		return
	}
	ch, err := h.service.CreateChannel(c.Request.Context(), common.GetUserIDFromContext(c), p[0], req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Channel created.", ch)
}

func (h *Handler) deleteChannel(c *gin.Context) {
	p, ok := params(c, "id", "channelId")
	if !ok {
		return
	}
	if err := h.service.DeleteChannel(c.Request.Context(), common.GetUserIDFromContext(c), p[0], p[1]); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondNoContent(c)
}

func (h *Handler) listMessages(c *gin.Context) {
	p, ok := params(c, "id", "channelId")
	if !ok {
		return
	}
	limit := common.GetLimitParam(c, DefaultMessageLimit, MaxMessageLimit)
	msgs, err := h.service.ListMessages(c.Request.Context(), common.GetUserIDFromContext(c), p[0], p[1], limit)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Messages retrieved.", msgs)
}

func (h *Handler) postMessage(c *gin.Context) {
	p, ok := params(c, "id", "channelId")
	if !ok {
		return
	}
	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindError(err))
		return
	}
	m, err := h.service.PostMessage(c.Request.Context(), common.GetUserIDFromContext(c), p[0], p[1], req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Message posted.", m)
}

func (h *Handler) deleteMessage(c *gin.Context) {
	p, ok := params(c, "id", "messageId")
	if !ok {
		return
	}
	m, err := h.service.DeleteMessage(c.Request.Context(), common.GetUserIDFromContext(c), p[0], p[1])
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Message deleted.", m)
}

func (h *Handler) toggleReaction(c *gin.Context) {
	p, ok := params(c, "id", "messageId")
	if !ok {
		return
	}
	var req ReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindError(err))
		return
	}
	m, err := h.service.ToggleReaction(c.Request.Context(), common.GetUserIDFromContext(c), p[0], p[1], req.Emoji)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Reaction updated.", m)
}

// unreadCount takes an RFC 3339 since; without one every message counts.
func (h *Handler) unreadCount(c *gin.Context) {
	var since time.Time
	if raw := c.Query("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			common.RespondWithError(c, common.ErrBadRequest.WithDetails("since must be an RFC 3339 timestamp."))
			return
		}
		since = t
	}
	out, err := h.service.UnreadCount(c.Request.Context(), common.GetUserIDFromContext(c), since)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Unread count retrieved.", out)
}
