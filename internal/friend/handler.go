package friend

import (
	"arc_community_backend/internal/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger.Named("FriendHandler")}
}

func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := router.Group("/friends", authMW)
	{
		g.GET("", h.overview)
		g.POST("/requests", h.sendRequest)
		g.POST("/requests/:id/accept", h.accept)
		g.POST("/requests/:id/decline", h.decline)
		g.DELETE("/:userId", h.remove)
	}
}

func (h *Handler) overview(c *gin.Context) {
	out, err := h.service.Overview(c.Request.Context(), common.GetUserIDFromContext(c))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Friends retrieved.", out)
}

func (h *Handler) sendRequest(c *gin.Context) {
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindError(err))
		return
	}
	f, err := h.service.SendRequest(c.Request.Context(), common.GetUserIDFromContext(c), req.Username)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Friend request sent.", f)
}

func (h *Handler) accept(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	f, err := h.service.Accept(c.Request.Context(), common.GetUserIDFromContext(c), id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Friend request accepted.", f)
}

func (h *Handler) decline(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	if err := h.service.Decline(c.Request.Context(), common.GetUserIDFromContext(c), id); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Friend request declined.", nil)
}

func (h *Handler) remove(c *gin.Context) {
	other, err := common.ParseUUIDParam(c, "userId")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	if err := h.service.Remove(c.Request.Context(), common.GetUserIDFromContext(c), other); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Friend removed.", nil)
}
