// File: internal/common/context_helpers.go
package common

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ExtractBearerToken pulls the token out of an "Authorization: Bearer <token>"
// header value. Returns an empty string when the format does not match.
func ExtractBearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], AuthorizationTypeBearer) {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// GetTokenFromContext retrieves the JWT token string from the Authorization header.
func GetTokenFromContext(c *gin.Context) string {
	return ExtractBearerToken(c.GetHeader(AuthorizationHeader))
}

// GetUserIDFromContext retrieves the user ID from the Gin context.
// Returns uuid.Nil if not found or not a UUID.
func GetUserIDFromContext(c *gin.Context) uuid.UUID {
	val, exists := c.Get(UserIDKey)
	if !exists {
		return uuid.Nil
	}
	userID, ok := val.(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return userID
}

// GetUsernameFromContext retrieves the authenticated username.
func GetUsernameFromContext(c *gin.Context) string {
	return c.GetString(UsernameKey)
}

// GetUserRoleFromContext retrieves the user role from the Gin context.
func GetUserRoleFromContext(c *gin.Context) string {
	return c.GetString(UserRoleKey)
}

// ParseUUIDParam reads a path parameter as a UUID.
func ParseUUIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, ErrBadRequest.WithDetails("Invalid " + name + " format.")
	}
	return id, nil
}
