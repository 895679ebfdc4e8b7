package friend

import (
	"context"
	"errors"
	"fmt"

	"arc_community_backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, f *Friendship) error
	FindByID(ctx context.Context, id uuid.UUID) (*Friendship, error)
	FindPair(ctx context.Context, a, b uuid.UUID) (*Friendship, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]Friendship, error)
	Update(ctx context.Context, f *Friendship) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type gormRepository struct {
	db *gorm.DB
}

func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, f *Friendship) error {
	if err := r.db.WithContext(ctx).Create(f).Error; err != nil {
		return fmt.Errorf("failed to create friendship: %w", err)
	}
	return nil
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*Friendship, error) {
	var f Friendship
	if err := r.db.WithContext(ctx).First(&f, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Friend request not found.")
		}
		return nil, err
	}
	return &f, nil
}

// FindPair looks the relation up in both directions.
func (r *gormRepository) FindPair(ctx context.Context, a, b uuid.UUID) (*Friendship, error) {
	var f Friendship
	err := r.db.WithContext(ctx).
		Where("(requester_id = ? AND addressee_id = ?) OR (requester_id = ? AND addressee_id = ?)", a, b, b, a).
		First(&f).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("No friendship between these users.")
		}
		return nil, err
	}
	return &f, nil
}

func (r *gormRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]Friendship, error) {
	var out []Friendship
	err := r.db.WithContext(ctx).
		Where("requester_id = ? OR addressee_id = ?", userID, userID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

func (r *gormRepository) Update(ctx context.Context, f *Friendship) error {
	return r.db.WithContext(ctx).Save(f).Error
}

func (r *gormRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&Friendship{}, "id = ?", id).Error
}
