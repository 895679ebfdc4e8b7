// File: internal/user/repository.go
package user

import (
	"context"
	"errors"
	"strings"

	"arc_community_backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the interface for user data operations.
type Repository interface {
	Create(ctx context.Context, user *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]User, error)
	Update(ctx context.Context, user *User) error
	Stats(ctx context.Context, id uuid.UUID) (*Stats, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM user repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

func conflictDetails(err error) string {
	if strings.Contains(err.Error(), "email") {
		return "User with this email already exists."
	}
	if strings.Contains(err.Error(), "username") {
		return "This username is already taken."
	}
	return "User with this email or username already exists."
}

// Create inserts a new user record into the database.
func (r *gormRepository) Create(ctx context.Context, user *User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return common.ErrConflict.WithDetails(conflictDetails(err))
		}
		return err
	}
	return nil
}

func (r *gormRepository) findOne(ctx context.Context, notFound string, query string, args ...interface{}) (*User, error) {
	var userModel User
	err := r.db.WithContext(ctx).Where(query, args...).First(&userModel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails(notFound)
		}
		return nil, err
	}
	return &userModel, nil
}

// FindByEmail retrieves a user by their email address.
func (r *gormRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx, "User not found with this email.", "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

// FindByUsername matches case-insensitively.
func (r *gormRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	return r.findOne(ctx, "User not found with this username.", "LOWER(username) = ?", strings.ToLower(strings.TrimSpace(username)))
}

// FindByID retrieves a user by their ID.
func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.findOne(ctx, "User not found with this ID.", "id = ?", id)
}

func (r *gormRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]User, error) {
	var users []User
	if len(ids) == 0 {
		return users, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error
	return users, err
}

// Update modifies an existing user record in the database.
func (r *gormRepository) Update(ctx context.Context, user *User) error {
	if err := r.db.WithContext(ctx).Save(user).Error; err != nil {
		if isUniqueViolation(err) {
			return common.ErrConflict.WithDetails("Update failed: " + conflictDetails(err))
		}
		return err
	}
	return nil
}

// Stats counts rows owned by the user across the community tables.
func (r *gormRepository) Stats(ctx context.Context, id uuid.UUID) (*Stats, error) {
	db := r.db.WithContext(ctx)
	var s Stats
	counts := []struct {
		dst   *int64
		table string
		where string
		args  []interface{}
	}{
		{&s.Listings, "listings", "user_id = ?", []interface{}{id}},
		{&s.TradesAccepted, "offers", "status = ? AND (buyer_id = ? OR seller_id = ?)", []interface{}{"accepted", id, id}},
		{&s.Friends, "friendships", "status = ? AND (requester_id = ? OR addressee_id = ?)", []interface{}{"accepted", id, id}},
		{&s.Groups, "group_members", "user_id = ?", []interface{}{id}},
		{&s.Messages, "group_messages", "author_id = ? AND deleted = ?", []interface{}{id, false}},
	}
	for _, c := range counts {
		if err := db.Table(c.table).Where(c.where, c.args...).Count(c.dst).Error; err != nil {
			return nil, err
		}
	}
	return &s, nil
}
