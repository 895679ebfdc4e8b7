// File: internal/marketplace/repository.go
package marketplace

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"arc_community_backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the interface for marketplace data operations.
type Repository interface {
	CreateListing(ctx context.Context, l *Listing) error
	FindListingByID(ctx context.Context, id uuid.UUID) (*Listing, error)
	ListListings(ctx context.Context, q ListingQuery, page, pageSize int) ([]Listing, int64, error)
	// SetListingStatus moves a listing from one status to another and fails
	// with ErrConflict when the stored status is no longer from.
	SetListingStatus(ctx context.Context, id uuid.UUID, from, to ListingStatus) error

	CreateOffer(ctx context.Context, o *Offer) error
	FindOfferByID(ctx context.Context, id uuid.UUID) (*Offer, error)
	// ListOffers returns the offers on a listing. A non-nil buyerID limits
	// the result to that buyer's offers.
	ListOffers(ctx context.Context, listingID uuid.UUID, buyerID *uuid.UUID) ([]Offer, error)
	// TransitionOffer stores o's status, counter items and expiry only while
	// the stored offer is still open and unexpired at now. ErrConflict otherwise.
	TransitionOffer(ctx context.Context, o *Offer, now time.Time) error
	// ExpireOffer marks an open offer expired if its expiry is before now.
	// It reports false when the offer was already moved on.
	ExpireOffer(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	AddCounterOffer(ctx context.Context, c *CounterOffer) error
	FindExpired(ctx context.Context, now time.Time) ([]Offer, error)

	// WithTx runs fn against a repository bound to one transaction.
	WithTx(ctx context.Context, fn func(Repository) error) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM-backed marketplace repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) WithTx(ctx context.Context, fn func(Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepository{db: tx})
	})
}

func (r *gormRepository) CreateListing(ctx context.Context, l *Listing) error {
	if err := r.db.WithContext(ctx).Create(l).Error; err != nil {
		return fmt.Errorf("failed to create listing: %w", err)
	}
	return nil
}

func (r *gormRepository) FindListingByID(ctx context.Context, id uuid.UUID) (*Listing, error) {
	var l Listing
	if err := r.db.WithContext(ctx).First(&l, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Listing not found.")
		}
		return nil, fmt.Errorf("failed to find listing: %w", err)
	}
	return &l, nil
}

func (r *gormRepository) ListListings(ctx context.Context, q ListingQuery, page, pageSize int) ([]Listing, int64, error) {
	scope := func() *gorm.DB {
		tx := r.db.WithContext(ctx).Model(&Listing{})
		if q.Status != "" {
			tx = tx.Where("status = ?", q.Status)
		}
		if q.UserID != nil {
			tx = tx.Where("user_id = ?", *q.UserID)
		}
		if s := strings.TrimSpace(q.Search); s != "" {
			like := "%" + strings.ToLower(s) + "%"
			tx = tx.Where("LOWER(title) LIKE ? OR LOWER(offering_item) LIKE ? OR LOWER(description) LIKE ?", like, like, like)
		}
		return tx
	}

	var total int64
	if err := scope().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count listings: %w", err)
	}

	var listings []Listing
	err := scope().
		Order("created_at DESC").
		Offset(common.Offset(page, pageSize)).
		Limit(pageSize).
		Find(&listings).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list listings: %w", err)
	}
	return listings, total, nil
}

func (r *gormRepository) SetListingStatus(ctx context.Context, id uuid.UUID, from, to ListingStatus) error {
	res := r.db.WithContext(ctx).Model(&Listing{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return fmt.Errorf("failed to update listing status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return common.ErrConflict.WithDetails("Listing is no longer active.")
	}
	return nil
}

func (r *gormRepository) CreateOffer(ctx context.Context, o *Offer) error {
	if err := r.db.WithContext(ctx).Omit("CounterOffers").Create(o).Error; err != nil {
		return fmt.Errorf("failed to create offer: %w", err)
	}
	return nil
}

func withCounters(db *gorm.DB) *gorm.DB {
	return db.Preload("CounterOffers", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("created_at ASC")
	})
}

func (r *gormRepository) FindOfferByID(ctx context.Context, id uuid.UUID) (*Offer, error) {
	var o Offer
	if err := withCounters(r.db.WithContext(ctx)).First(&o, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Offer not found.")
		}
		return nil, fmt.Errorf("failed to find offer: %w", err)
	}
	return &o, nil
}

func (r *gormRepository) ListOffers(ctx context.Context, listingID uuid.UUID, buyerID *uuid.UUID) ([]Offer, error) {
	tx := withCounters(r.db.WithContext(ctx)).Where("listing_id = ?", listingID)
	if buyerID != nil {
		tx = tx.Where("buyer_id = ?", *buyerID)
	}
	var offers []Offer
	if err := tx.Order("created_at DESC").Find(&offers).Error; err != nil {
		return nil, fmt.Errorf("failed to list offers: %w", err)
	}
	return offers, nil
}

func (r *gormRepository) TransitionOffer(ctx context.Context, o *Offer, now time.Time) error {
	res := r.db.WithContext(ctx).Model(&Offer{}).
		Where("id = ? AND status IN ? AND expires_at > ?", o.ID, openStatuses, now).
		Updates(map[string]interface{}{
			"status":             o.Status,
			"last_counter_items": o.LastCounterItems,
			"expires_at":         o.ExpiresAt,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update offer: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return common.ErrConflict.WithDetails("Offer is no longer open.")
	}
	return nil
}

func (r *gormRepository) ExpireOffer(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&Offer{}).
		Where("id = ? AND status IN ? AND expires_at < ?", id, openStatuses, now).
		Update("status", OfferExpired)
	if res.Error != nil {
		return false, fmt.Errorf("failed to expire offer: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *gormRepository) AddCounterOffer(ctx context.Context, c *CounterOffer) error {
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("failed to add counter offer: %w", err)
	}
	return nil
}

// FindExpired returns open offers whose expiry is before now.
func (r *gormRepository) FindExpired(ctx context.Context, now time.Time) ([]Offer, error) {
	var offers []Offer
	err := r.db.WithContext(ctx).
		Where("status IN ? AND expires_at < ?", openStatuses, now).
		Find(&offers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find expired offers: %w", err)
	}
	return offers, nil
}
