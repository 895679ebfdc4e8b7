// File: internal/catalog/repository.go
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"arc_community_backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the interface for catalog data operations.
type Repository interface {
	Create(ctx context.Context, e *Entry) error
	FindByID(ctx context.Context, id uuid.UUID) (*Entry, error)
	FindBySlug(ctx context.Context, kind, slug string) (*Entry, error)
	List(ctx context.Context, kind string, q ListQuery, page, pageSize int) ([]Entry, *common.Pagination, error)
	Delete(ctx context.Context, id uuid.UUID) error
	FindAllForSync(ctx context.Context, offset, limit int) ([]Entry, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM catalog repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, e *Entry) error {
	e.Slug = strings.ToLower(strings.TrimSpace(e.Slug))
	err := r.db.WithContext(ctx).Create(e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(strings.ToLower(err.Error()), "unique constraint") {
			return common.ErrConflict.WithDetails("An entry with this slug already exists for this kind.")
		}
		return err
	}
	return nil
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*Entry, error) {
	var e Entry
	if err := r.db.WithContext(ctx).First(&e, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Catalog entry not found.")
		}
		return nil, err
	}
	return &e, nil
}

func (r *gormRepository) FindBySlug(ctx context.Context, kind, slug string) (*Entry, error) {
	var e Entry
	err := r.db.WithContext(ctx).
		Where("kind = ? AND slug = ?", kind, strings.ToLower(strings.TrimSpace(slug))).
		First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Catalog entry not found.")
		}
		return nil, err
	}
	return &e, nil
}

// rarityOrder ranks rarities in SQL the same way RarityRank does in Go.
func rarityOrder() string {
	var b strings.Builder
	b.WriteString("CASE rarity")
	for i, r := range Rarities {
		fmt.Fprintf(&b, " WHEN '%s' THEN %d", r, i)
	}
	fmt.Fprintf(&b, " ELSE %d END", len(Rarities))
	return b.String()
}

func orderClause(sort string) string {
	switch sort {
	case SortNameDesc:
		return "LOWER(name) DESC, id"
	case SortRarity:
		return rarityOrder() + " ASC, LOWER(name) ASC"
	case SortRarityDsc:
		return rarityOrder() + " DESC, LOWER(name) ASC"
	case SortValue:
		return "value ASC, LOWER(name) ASC"
	case SortValueDesc:
		return "value DESC, LOWER(name) ASC"
	default:
		return "LOWER(name) ASC, id"
	}
}

func (r *gormRepository) List(ctx context.Context, kind string, q ListQuery, page, pageSize int) ([]Entry, *common.Pagination, error) {
	scope := func() *gorm.DB {
		query := r.db.WithContext(ctx).Model(&Entry{}).Where("kind = ?", kind)
		if s := strings.ToLower(strings.TrimSpace(q.Search)); s != "" {
			like := "%" + s + "%"
			query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like)
		}
		if q.Category != "" {
			query = query.Where("category = ?", q.Category)
		}
		if q.Rarity != "" {
			query = query.Where("rarity = ?", q.Rarity)
		}
		return query
	}

	var total int64
	if err := scope().Count(&total).Error; err != nil {
		return nil, nil, fmt.Errorf("counting catalog entries failed: %w", err)
	}

	var entries []Entry
	err := scope().Order(orderClause(q.Sort)).
		Limit(pageSize).
		Offset(common.Offset(page, pageSize)).
		Find(&entries).Error
	if err != nil {
		return nil, nil, fmt.Errorf("fetching catalog entries failed: %w", err)
	}
	return entries, common.NewPagination(total, page, pageSize), nil
}

func (r *gormRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&Entry{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return common.ErrNotFound.WithDetails("Catalog entry not found.")
	}
	return nil
}

// FindAllForSync pages through every entry in a stable order.
func (r *gormRepository) FindAllForSync(ctx context.Context, offset, limit int) ([]Entry, error) {
	var entries []Entry
	err := r.db.WithContext(ctx).Order("created_at ASC, id ASC").Offset(offset).Limit(limit).Find(&entries).Error
	return entries, err
}
