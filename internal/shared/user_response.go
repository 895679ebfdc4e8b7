// File: internal/shared/user_response.go
package shared

import (
	"time"

	"github.com/google/uuid"
)

// UserResponse defines the structure for user data sent in API responses.
// Email is only filled for the account owner.
type UserResponse struct {
	ID          uuid.UUID  `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email,omitempty"`
	Role        string     `json:"role"`
	Bio         string     `json:"bio,omitempty"`
	AvatarURL   *string    `json:"avatar_url,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// ToUserResponse converts a User to its public representation.
func ToUserResponse(u *User, includePrivate bool) UserResponse {
	resp := UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Role:      u.Role,
		Bio:       u.Bio,
		AvatarURL: u.AvatarURL,
		CreatedAt: u.CreatedAt,
	}
	if includePrivate {
		resp.Email = u.Email
		resp.LastLoginAt = u.LastLoginAt
	}
	return resp
}

func (u *User) GetID() uuid.UUID    { return u.ID }
func (u *User) GetUsername() string { return u.Username }
func (u *User) GetRole() string     { return u.Role }
