package notification

import (
	"arc_community_backend/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger.Named("NotificationHandler"),
	}
}

// RegisterRoutes sets up the routes for notification operations.
// Static paths are registered before the :id routes of the same method.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := router.Group("/notifications", authMW)
	{
		g.GET("", h.getNotifications)
		g.GET("/unread-count", h.unreadCount)
		g.PATCH("/read-all", h.markAllNotificationsAsRead)
		g.PATCH("/:id/read", h.markNotificationAsRead)
		g.DELETE("/read", h.deleteRead)
		g.DELETE("/:id", h.deleteNotification)
		g.POST("/devices", h.registerDevice)
	}
}

func currentUser(c *gin.Context) (uuid.UUID, bool) {
	userID := common.GetUserIDFromContext(c)
	if userID == uuid.Nil {
		common.RespondWithError(c, common.ErrUnauthorized.WithDetails("User ID not found in token."))
		return uuid.Nil, false
	}
	return userID, true
}

func (h *Handler) getNotifications(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	page, pageSize := common.GetPaginationParams(c)

	notifications, pagination, err := h.service.GetNotificationsForUser(c.Request.Context(), userID, c.DefaultQuery("filter", FilterAll), page, pageSize)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Notifications retrieved successfully.", notifications, pagination)
}

func (h *Handler) unreadCount(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	n, err := h.service.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Unread count retrieved.", gin.H{"count": n})
}

func (h *Handler) markNotificationAsRead(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	notificationID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}

	if err := h.service.MarkNotificationAsRead(c.Request.Context(), notificationID, userID); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Notification marked as read successfully.", nil)
}

func (h *Handler) markAllNotificationsAsRead(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	n, err := h.service.MarkAllUserNotificationsAsRead(c.Request.Context(), userID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "All notifications marked as read successfully.", gin.H{"updated": n})
}

func (h *Handler) deleteNotification(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	notificationID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	if err := h.service.DeleteNotification(c.Request.Context(), notificationID, userID); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Notification deleted.", nil)
}

func (h *Handler) deleteRead(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	n, err := h.service.DeleteReadNotifications(c.Request.Context(), userID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Read notifications deleted.", gin.H{"deleted": n})
}

func (h *Handler) registerDevice(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindError(err))
		return
	}
	if err := h.service.RegisterDevice(c.Request.Context(), userID, req.Token); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Device registered.", nil)
}
