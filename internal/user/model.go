// File: internal/user/model.go
package user

import (
	"time"

	"arc_community_backend/internal/common"
)

// User represents the user model in the database.
type User struct {
	common.BaseModel
	Username     string  `gorm:"type:varchar(32);uniqueIndex;not null"`
	Email        string  `gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash string  `gorm:"type:varchar(255);not null"`
	Role         string  `gorm:"type:varchar(20);not null;default:'user'"`
	Bio          string  `gorm:"type:text"`
	AvatarURL    *string `gorm:"type:text"`
	LastLoginAt  *time.Time
}

// TableName specifies the table name for the User model.
func (User) TableName() string {
	return "users"
}

// UpdateProfileRequest is the body of PUT /users/me. Nil fields are left unchanged.
type UpdateProfileRequest struct {
	Username  *string `json:"username" binding:"omitempty,min=3,max=32"`
	Bio       *string `json:"bio" binding:"omitempty,max=500"`
	AvatarURL *string `json:"avatar_url" binding:"omitempty,url,max=500"`
}

// Stats are the profile counters shown on a user page.
type Stats struct {
	Listings       int64 `json:"listings"`
	TradesAccepted int64 `json:"trades_accepted"`
	Friends        int64 `json:"friends"`
	Groups         int64 `json:"groups"`
	Messages       int64 `json:"messages"`
}
