package notification

import (
	"context"
	"errors"
	"fmt"

	"arc_community_backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	Create(ctx context.Context, notification *Notification) error
	GetByUserID(ctx context.Context, userID uuid.UUID, unreadOnly bool, page, pageSize int) ([]Notification, *common.Pagination, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
	FindByID(ctx context.Context, notificationID uuid.UUID, userID uuid.UUID) (*Notification, error) // userID for ownership check
	MarkAsRead(ctx context.Context, notificationID uuid.UUID, userID uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error)
	Delete(ctx context.Context, notificationID uuid.UUID, userID uuid.UUID) error
	DeleteRead(ctx context.Context, userID uuid.UUID) (int64, error)

	SaveDeviceToken(ctx context.Context, token *DeviceToken) error
	DeviceTokens(ctx context.Context, userID uuid.UUID) ([]string, error)
	DeleteDeviceTokens(ctx context.Context, tokens []string) error
}

// GORMRepository implements the Repository interface using GORM.
type GORMRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM notification repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &GORMRepository{db: db}
}

// Create inserts a new notification into the database.
func (r *GORMRepository) Create(ctx context.Context, notification *Notification) error {
	if notification.ID == uuid.Nil {
		notification.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(notification).Error; err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// GetByUserID retrieves a paginated list of notifications for a specific user, ordered by creation date.
func (r *GORMRepository) GetByUserID(ctx context.Context, userID uuid.UUID, unreadOnly bool, page, pageSize int) ([]Notification, *common.Pagination, error) {
	var notifications []Notification
	var total int64

	scope := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&Notification{}).Where("user_id = ?", userID)
		if unreadOnly {
			q = q.Where("is_read = ?", false)
		}
		return q
	}

	if err := scope().Count(&total).Error; err != nil {
		return nil, nil, fmt.Errorf("counting notifications for user %s failed: %w", userID, err)
	}

	err := scope().Order("created_at DESC").
		Limit(pageSize).
		Offset(common.Offset(page, pageSize)).
		Find(&notifications).Error
	if err != nil {
		return nil, nil, fmt.Errorf("fetching notifications for user %s failed: %w", userID, err)
	}
	return notifications, common.NewPagination(total, page, pageSize), nil
}

func (r *GORMRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("counting unread notifications for user %s failed: %w", userID, err)
	}
	return n, nil
}

// FindByID retrieves a specific notification by its ID, ensuring it belongs to the provided userID.
func (r *GORMRepository) FindByID(ctx context.Context, notificationID uuid.UUID, userID uuid.UUID) (*Notification, error) {
	var notification Notification
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", notificationID, userID).First(&notification).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Notification not found or not owned by user.")
		}
		return nil, fmt.Errorf("failed to find notification %s for user %s: %w", notificationID, userID, err)
	}
	return &notification, nil
}

// MarkAsRead marks a specific notification as read. Marking an already read
// notification is a no-op.
func (r *GORMRepository) MarkAsRead(ctx context.Context, notificationID uuid.UUID, userID uuid.UUID) error {
	if _, err := r.FindByID(ctx, notificationID, userID); err != nil {
		return err
	}

	result := r.db.WithContext(ctx).Model(&Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Update("is_read", true)
	if result.Error != nil {
		return fmt.Errorf("failed to mark notification %s as read for user %s: %w", notificationID, userID, result.Error)
	}
	return nil
}

// MarkAllAsRead marks all unread notifications for a user as read.
// It returns the count of notifications that were updated.
func (r *GORMRepository) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Model(&Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true})

	if result.Error != nil {
		return 0, fmt.Errorf("failed to mark all notifications as read for user %s: %w", userID, result.Error)
	}
	return result.RowsAffected, nil
}

func (r *GORMRepository) Delete(ctx context.Context, notificationID uuid.UUID, userID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Delete(&Notification{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete notification %s: %w", notificationID, result.Error)
	}
	if result.RowsAffected == 0 {
		return common.ErrNotFound.WithDetails("Notification not found or not owned by user.")
	}
	return nil
}

// DeleteRead removes every read notification of the user.
func (r *GORMRepository) DeleteRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND is_read = ?", userID, true).
		Delete(&Notification{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete read notifications for user %s: %w", userID, result.Error)
	}
	return result.RowsAffected, nil
}

// SaveDeviceToken upserts on the token; a token moves to the latest user that registered it.
func (r *GORMRepository) SaveDeviceToken(ctx context.Context, token *DeviceToken) error {
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id"}),
	}).Create(token).Error
	if err != nil {
		return fmt.Errorf("failed to save device token: %w", err)
	}
	return nil
}

func (r *GORMRepository) DeviceTokens(ctx context.Context, userID uuid.UUID) ([]string, error) {
	var tokens []string
	err := r.db.WithContext(ctx).Model(&DeviceToken{}).Where("user_id = ?", userID).Pluck("token", &tokens).Error
	return tokens, err
}

func (r *GORMRepository) DeleteDeviceTokens(ctx context.Context, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("token IN ?", tokens).Delete(&DeviceToken{}).Error
}
