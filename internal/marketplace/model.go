// File: internal/marketplace/model.go
package marketplace

import (
	"database/sql/driver"
	"strings"
	"time"

	"arc_community_backend/internal/common"
	"arc_community_backend/internal/events"
	"arc_community_backend/internal/shared"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// ItemList is a list of item names. It is a text[] column on postgres and the
// array literal ("{a,b}") in a text column elsewhere.
type ItemList []string

func (l ItemList) Value() (driver.Value, error) {
	return pq.StringArray(l).Value()
}

func (l *ItemList) Scan(src interface{}) error {
	return (*pq.StringArray)(l).Scan(src)
}

func (ItemList) GormDataType() string {
	return "text"
}

func (ItemList) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}

// NormalizeItems trims every entry and drops empty ones, keeping order.
func NormalizeItems(items []string) ItemList {
	out := make(ItemList, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}

// --- Listing ---

type ListingStatus string

const (
	ListingActive ListingStatus = "active"
	ListingTraded ListingStatus = "traded"
	ListingClosed ListingStatus = "closed"
)

type Listing struct {
	common.BaseModel
	UserID       uuid.UUID     `gorm:"type:uuid;not null;index"`
	Title        string        `gorm:"type:varchar(120);not null"`
	OfferingItem string        `gorm:"type:varchar(120);not null"`
	SeekingItems ItemList
	Description  string        `gorm:"type:text"`
	Status       ListingStatus `gorm:"type:varchar(20);not null;default:'active';index"`
}

func (Listing) TableName() string {
	return "listings"
}

// --- Offer ---

type OfferStatus string

const (
	OfferPending   OfferStatus = events.OfferPending
	OfferAccepted  OfferStatus = events.OfferAccepted
	OfferRejected  OfferStatus = events.OfferRejected
	OfferCountered OfferStatus = events.OfferCountered
	OfferExpired   OfferStatus = events.OfferExpired
)

// openStatuses are the states an offer can still leave.
var openStatuses = []OfferStatus{OfferPending, OfferCountered}

// transitions lists the allowed next states. Terminal states have none.
var transitions = map[OfferStatus][]OfferStatus{
	OfferPending:   {OfferAccepted, OfferRejected, OfferCountered, OfferExpired},
	OfferCountered: {OfferAccepted, OfferRejected, OfferCountered, OfferExpired},
}

// CanTransition reports whether an offer may move from one status to another.
func CanTransition(from, to OfferStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Open reports whether the offer can still be answered.
func (s OfferStatus) Open() bool {
	return s == OfferPending || s == OfferCountered
}

type Offer struct {
	common.BaseModel
	ListingID        uuid.UUID      `gorm:"type:uuid;not null;index"`
	BuyerID          uuid.UUID      `gorm:"type:uuid;not null;index"`
	SellerID         uuid.UUID      `gorm:"type:uuid;not null;index"`
	Items            ItemList       `gorm:"not null"`
	Message          string         `gorm:"type:text"`
	Status           OfferStatus    `gorm:"type:varchar(20);not null;default:'pending';index"`
	CounterOffers    []CounterOffer `gorm:"foreignKey:OfferID;constraint:OnDelete:CASCADE;"`
	LastCounterItems ItemList
	ExpiresAt        time.Time `gorm:"not null;index"`
}

func (Offer) TableName() string {
	return "offers"
}

// CounterOffer is one renegotiation step of an offer.
type CounterOffer struct {
	common.BaseModel
	OfferID  uuid.UUID `gorm:"type:uuid;not null;index"`
	AuthorID uuid.UUID `gorm:"type:uuid;not null"`
	Items    ItemList  `gorm:"not null"`
	Message  string    `gorm:"type:text"`
}

func (CounterOffer) TableName() string {
	return "counter_offers"
}

// --- DTOs ---

type CreateListingRequest struct {
	Title        string   `json:"title" binding:"required,max=120"`
	OfferingItem string   `json:"offering_item" binding:"required,max=120"`
	SeekingItems []string `json:"seeking_items" binding:"max=20"`
	Description  string   `json:"description" binding:"max=2000"`
}

// OfferRequest is the body of both create and counter.
type OfferRequest struct {
	Items   []string `json:"items" binding:"max=20"`
	Message string   `json:"message" binding:"max=1000"`
}

type ListingQuery struct {
	Search string
	Status ListingStatus
	UserID *uuid.UUID
}

type ListingResponse struct {
	ID           uuid.UUID           `json:"id"`
	UserID       uuid.UUID           `json:"user_id"`
	User         *shared.UserSummary `json:"user,omitempty"`
	Title        string              `json:"title"`
	OfferingItem string              `json:"offering_item"`
	SeekingItems []string            `json:"seeking_items"`
	Description  string              `json:"description,omitempty"`
	Status       ListingStatus       `json:"status"`
	CreatedAt    time.Time           `json:"created_at"`
}

type CounterOfferResponse struct {
	ID        uuid.UUID `json:"id"`
	AuthorID  uuid.UUID `json:"author_id"`
	Items     []string  `json:"items"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type OfferResponse struct {
	ID               uuid.UUID              `json:"id"`
	ListingID        uuid.UUID              `json:"listing_id"`
	BuyerID          uuid.UUID              `json:"buyer_id"`
	SellerID         uuid.UUID              `json:"seller_id"`
	Buyer            *shared.UserSummary    `json:"buyer,omitempty"`
	Seller           *shared.UserSummary    `json:"seller,omitempty"`
	Items            []string               `json:"items"`
	Message          string                 `json:"message,omitempty"`
	Status           OfferStatus            `json:"status"`
	CounterOffers    []CounterOfferResponse `json:"counter_offers"`
	LastCounterItems []string               `json:"last_counter_items,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	ExpiresAt        time.Time              `json:"expires_at"`
}

func summaryPtr(m map[uuid.UUID]shared.UserSummary, id uuid.UUID) *shared.UserSummary {
	if s, ok := m[id]; ok {
		return &s
	}
	return nil
}

func nonNil(items ItemList) []string {
	if items == nil {
		return []string{}
	}
	return items
}

// ToListingResponse converts a Listing model to its DTO.
func ToListingResponse(l *Listing, users map[uuid.UUID]shared.UserSummary) ListingResponse {
	return ListingResponse{
		ID:           l.ID,
		UserID:       l.UserID,
		User:         summaryPtr(users, l.UserID),
		Title:        l.Title,
		OfferingItem: l.OfferingItem,
		SeekingItems: nonNil(l.SeekingItems),
		Description:  l.Description,
		Status:       l.Status,
		CreatedAt:    l.CreatedAt,
	}
}

// ToOfferResponse converts an Offer model to its DTO.
func ToOfferResponse(o *Offer, users map[uuid.UUID]shared.UserSummary) OfferResponse {
	counters := make([]CounterOfferResponse, len(o.CounterOffers))
	for i, c := range o.CounterOffers {
		counters[i] = CounterOfferResponse{ID: c.ID, AuthorID: c.AuthorID, Items: nonNil(c.Items), Message: c.Message, CreatedAt: c.CreatedAt}
	}
	resp := OfferResponse{
		ID:            o.ID,
		ListingID:     o.ListingID,
		BuyerID:       o.BuyerID,
		SellerID:      o.SellerID,
		Buyer:         summaryPtr(users, o.BuyerID),
		Seller:        summaryPtr(users, o.SellerID),
		Items:         nonNil(o.Items),
		Message:       o.Message,
		Status:        o.Status,
		CounterOffers: counters,
		CreatedAt:     o.CreatedAt,
		ExpiresAt:     o.ExpiresAt,
	}
	if len(o.LastCounterItems) > 0 {
		resp.LastCounterItems = o.LastCounterItems
	}
	return resp
}
