// File: internal/user/handler.go
package user

import (
	"arc_community_backend/internal/common"
	"arc_community_backend/internal/shared"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler struct holds dependencies for user handlers.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new user handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger.Named("UserHandler"),
	}
}

// RegisterRoutes sets up the routes for user operations.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc) {
	userGroup := router.Group("/users", authMW)
	{
		userGroup.PUT("/me", h.updateMe)
		userGroup.POST("/me/avatar", h.uploadAvatar)
		userGroup.GET("/:id", h.getUserByID)
		userGroup.GET("/:id/stats", h.getStats)
	}
}

func (h *Handler) getUserByID(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	usr, err := h.service.GetUserByID(c.Request.Context(), id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	self := id == common.GetUserIDFromContext(c)
	common.RespondOK(c, "User retrieved successfully.", shared.ToUserResponse(usr, self))
}

func (h *Handler) updateMe(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindError(err))
		return
	}
	usr, err := h.service.UpdateProfile(c.Request.Context(), common.GetUserIDFromContext(c), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Profile updated.", shared.ToUserResponse(usr, true))
}

func (h *Handler) uploadAvatar(c *gin.Context) {
	fh, err := c.FormFile("avatar")
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Multipart field 'avatar' is required."))
		return
	}
	usr, err := h.service.UploadAvatar(c.Request.Context(), common.GetUserIDFromContext(c), fh)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Avatar updated.", shared.ToUserResponse(usr, true))
}

func (h *Handler) getStats(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	stats, err := h.service.GetStats(c.Request.Context(), id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "User stats retrieved.", stats)
}
