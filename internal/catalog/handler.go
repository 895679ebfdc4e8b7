// File: internal/catalog/handler.go
package catalog

import (
	"arc_community_backend/internal/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler struct holds dependencies for catalog handlers.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new catalog handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger.Named("CatalogHandler"),
	}
}

// RegisterRoutes mounts one public list/detail pair per kind plus the admin routes.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc, adminRoleMW gin.HandlerFunc) {
	for path, kind := range KindRoutes {
		group := router.Group("/" + path)
		group.GET("", h.list(kind))
		group.GET("/:slug", h.get(kind))
	}

	adminGroup := router.Group("/catalog", authMW, adminRoleMW)
	{
		adminGroup.POST("", h.adminCreate)
		adminGroup.DELETE("/:id", h.adminDelete)
	}
}

func (h *Handler) list(kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, pageSize := common.GetPaginationParams(c)
		q := ListQuery{
			Search:   c.Query("search"),
			Category: c.Query("category"),
			Rarity:   c.Query("rarity"),
			Sort:     c.Query("sort"),
		}
		entries, pagination, err := h.service.List(c.Request.Context(), kind, q, page, pageSize)
		if err != nil {
			common.RespondWithError(c, err)
			return
		}
		common.RespondPaginated(c, "Catalog entries retrieved.", entries, pagination)
	}
}

func (h *Handler) get(kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		entry, err := h.service.GetBySlug(c.Request.Context(), kind, c.Param("slug"))
		if err != nil {
			common.RespondWithError(c, err)
			return
		}
		common.RespondOK(c, "Catalog entry retrieved.", entry)
	}
}

func (h *Handler) adminCreate(c *gin.Context) {
	var req AdminCreateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindError(err))
		return
	}
	entry, err := h.service.AdminCreate(c.Request.Context(), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Catalog entry created.", entry)
}

func (h *Handler) adminDelete(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	if err := h.service.AdminDelete(c.Request.Context(), id); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Catalog entry deleted.", nil)
}
