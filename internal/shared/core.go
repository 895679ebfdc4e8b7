// File: internal/shared/core.go
package shared

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is the service-level view of an account shared between modules.
type User struct {
	ID          uuid.UUID
	Username    string
	Email       string
	Role        string
	Bio         string
	AvatarURL   *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastLoginAt *time.Time
}

// UserSummary is the compact author/sender shape embedded in other payloads.
type UserSummary struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	AvatarURL *string   `json:"avatar_url,omitempty"`
}

// Summary converts a User to its compact form.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, AvatarURL: u.AvatarURL}
}

// UserDirectory resolves users for modules that only hold ids.
type UserDirectory interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	GetSummaries(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]UserSummary, error)
}

// TokenResponse is returned on register and login.
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	TokenType   string    `json:"token_type"`
}

// UserDataForToken abstracts the user data needed for token generation.
type UserDataForToken interface {
	GetID() uuid.UUID
	GetUsername() string
	GetRole() string
}

// TokenService defines the interface for JWT operations.
type TokenService interface {
	GenerateAccessToken(userData UserDataForToken) (string, time.Time, error)
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
	RevokeToken(ctx context.Context, claims *Claims) error
}

// Claims represents the JWT claims structure
type Claims struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	Role     string    `json:"role"`
	jwt.RegisteredClaims
}

// ActivityRecorder appends entries to the activity feed. Implementations log
// failures instead of returning them.
type ActivityRecorder interface {
	Record(ctx context.Context, entry ActivityEntry)
}

// ActivityEntry describes one feed item.
type ActivityEntry struct {
	UserID  uuid.UUID
	Kind    string
	Summary string
	RefType string
	RefID   *uuid.UUID
}

// NotificationInput is what other modules hand to the notification service.
type NotificationInput struct {
	UserID   uuid.UUID
	SenderID *uuid.UUID
	Type     string
	Title    string
	Message  string
	Link     *string
	View     string
	Tab      string
}

// Notifier creates notifications on behalf of other modules.
type Notifier interface {
	Notify(ctx context.Context, in NotificationInput) error
}
