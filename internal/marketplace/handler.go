// File: internal/marketplace/handler.go
package marketplace

import (
	"context"

	"arc_community_backend/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler struct holds dependencies for marketplace handlers.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new marketplace handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger.Named("MarketplaceHandler")}
}

// RegisterRoutes sets up the routes for listings and offers.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := router.Group("/marketplace", authMW)
	{
		g.GET("/listings", h.listListings)
		g.POST("/listings", h.createListing)
		g.GET("/listings/:id", h.getListing)
		g.POST("/listings/:id/close", h.closeListing)
		g.GET("/listings/:id/offers", h.listOffers)
		g.POST("/listings/:id/offers", h.createOffer)

		g.POST("/offers/:id/accept", h.acceptOffer)
		g.POST("/offers/:id/reject", h.rejectOffer)
		g.POST("/offers/:id/counter", h.counterOffer)
	}
}

// listingQuery holds the query parameters of GET /listings.
type listingQuery struct {
	Search string `form:"search" binding:"max=100"`
	Status string `form:"status" binding:"omitempty,oneof=active traded closed"`
	Mine   bool   `form:"mine"`
}

func (h *Handler) listListings(c *gin.Context) {
	var qp listingQuery
	if err := c.ShouldBindQuery(&qp); err != nil {
		common.RespondWithError(c, common.BindError(err))
		return
	}
	q := ListingQuery{Search: qp.Search, Status: ListingStatus(qp.Status)}
	if qp.Mine {
		uid := common.GetUserIDFromContext(c)
		q.UserID = &uid
	}
	page, pageSize := common.GetPaginationParams(c)
	listings, pagination, err := h.service.ListListings(c.Request.Context(), q, page, pageSize)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Listings retrieved successfully.", listings, pagination)
}

func (h *Handler) createListing(c *gin.Context) {
	var req CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindError(err))
		return
	}
	l, err := h.service.CreateListing(c.Request.Context(), common.GetUserIDFromContext(c), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Listing created successfully.", l)
}

func (h *Handler) getListing(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	l, err := h.service.GetListing(c.Request.Context(), id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Listing retrieved successfully.", l)
}

func (h *Handler) closeListing(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	l, err := h.service.CloseListing(c.Request.Context(), common.GetUserIDFromContext(c), id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Listing closed.", l)
}

func (h *Handler) listOffers(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	offers, err := h.service.ListOffers(c.Request.Context(), common.GetUserIDFromContext(c), id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Offers retrieved successfully.", offers)
}

func (h *Handler) createOffer(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	var req OfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindError(err))
		return
	}
	o, err := h.service.CreateOffer(c.Request.Context(), common.GetUserIDFromContext(c), id, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Offer sent.", o)
}

func (h *Handler) acceptOffer(c *gin.Context) {
	h.answer(c, "Offer accepted.", h.service.AcceptOffer)
}

func (h *Handler) rejectOffer(c *gin.Context) {
	h.answer(c, "Offer rejected.", h.service.RejectOffer)
}

func (h *Handler) answer(c *gin.Context, msg string, fn func(ctx context.Context, actorID, offerID uuid.UUID) (*OfferResponse, error)) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	o, err := fn(c.Request.Context(), common.GetUserIDFromContext(c), id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, msg, o)
}

func (h *Handler) counterOffer(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	var req OfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindError(err))
		return
	}
	o, err := h.service.CounterOffer(c.Request.Context(), common.GetUserIDFromContext(c), id, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Counter offer sent.", o)
}
