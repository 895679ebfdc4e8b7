package activity

import (
	"context"
	"fmt"

	"arc_community_backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, a *Activity) error
	List(ctx context.Context, userID *uuid.UUID, page, pageSize int) ([]Activity, *common.Pagination, error)
}

// GORMRepository implements the Repository interface using GORM.
type GORMRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM activity repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &GORMRepository{db: db}
}

func (r *GORMRepository) Create(ctx context.Context, a *Activity) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		return fmt.Errorf("failed to create activity: %w", err)
	}
	return nil
}

// List returns the feed newest first. A nil userID means the global feed.
func (r *GORMRepository) List(ctx context.Context, userID *uuid.UUID, page, pageSize int) ([]Activity, *common.Pagination, error) {
	var items []Activity
	var total int64

	base := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&Activity{})
		if userID != nil {
			q = q.Where("user_id = ?", *userID)
		}
		return q
	}
	if err := base().Count(&total).Error; err != nil {
		return nil, nil, fmt.Errorf("counting activities failed: %w", err)
	}

	err := base().Order("created_at DESC").
		Limit(pageSize).
		Offset(common.Offset(page, pageSize)).
		Find(&items).Error
	if err != nil {
		return nil, nil, fmt.Errorf("fetching activities failed: %w", err)
	}
	return items, common.NewPagination(total, page, pageSize), nil
}
