// File: internal/middleware/auth.go
package middleware

import (
	"arc_community_backend/internal/common"
	"arc_community_backend/internal/shared"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserClaimsKey stores the whole claims object
const UserClaimsKey = "userClaims"

// AuthMiddleware creates a Gin middleware for JWT authentication.
func AuthMiddleware(tokenService shared.TokenService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader(common.AuthorizationHeader) == "" {
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Authorization header is required."))
			return
		}

		tokenString := common.GetTokenFromContext(c)
		if tokenString == "" {
			logger.Debug("Authorization header format invalid")
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Authorization header format must be 'Bearer <token>'."))
			return
		}

		claims, err := tokenService.ValidateToken(c.Request.Context(), tokenString)
		if err != nil {
			logger.Debug("Token validation failed", zap.Error(err))
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails(err.Error()))
			return
		}

		SetClaims(c, claims)
		c.Next()
	}
}

// SetClaims stores the authenticated identity in the gin context.
func SetClaims(c *gin.Context, claims *shared.Claims) {
	c.Set(common.UserIDKey, claims.UserID)
	c.Set(common.UsernameKey, claims.Username)
	c.Set(common.UserRoleKey, claims.Role)
	c.Set(common.TokenIDKey, claims.ID)
	c.Set(UserClaimsKey, claims)
}

// GetUserClaimsFromContext retrieves the full claims object from the Gin context.
func GetUserClaimsFromContext(c *gin.Context) *shared.Claims {
	val, exists := c.Get(UserClaimsKey)
	if !exists {
		return nil
	}
	claims, _ := val.(*shared.Claims)
	return claims
}

// RoleAuthMiddleware rejects users whose role is not in allowedRoles.
func RoleAuthMiddleware(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole := common.GetUserRoleFromContext(c)
		if userRole == "" {
			common.RespondWithError(c, common.ErrForbidden.WithDetails("User role not found in context."))
			return
		}
		for _, role := range allowedRoles {
			if userRole == role {
				c.Next()
				return
			}
		}
		common.RespondWithError(c, common.ErrForbidden.WithDetails("You do not have sufficient permissions for this resource."))
	}
}
