package activity

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
	return &Handler{service: service, logger: logger.Named("ActivityHandler")}
}

// RegisterRoutes mounts the global feed and the per-user feed.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc) {
	router.GET("/activity", authMW, h.listGlobal)
	router.GET("/users/:id/activity", authMW, h.listForUser)
}

func (h *Handler) listGlobal(c *gin.Context) {
	page, pageSize := common.GetPaginationParams(c)
	items, pagination, err := h.service.List(c.Request.Context(), nil, page, pageSize)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Activity retrieved.", items, pagination)
}

func (h *Handler) listForUser(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	page, pageSize := common.GetPaginationParams(c)
	items, pagination, err := h.service.List(c.Request.Context(), &id, page, pageSize)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Activity retrieved.", items, pagination)
}
