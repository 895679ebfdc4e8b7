// File: internal/auth/handler.go
package auth

import (
	"context"
	"errors"

	"arc_community_backend/internal/common"
	"arc_community_backend/internal/middleware"
	"arc_community_backend/internal/shared"
	"arc_community_backend/internal/validation"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler struct holds dependencies for auth handlers.
type Handler struct {
	accounts     Accounts
	tokenService shared.TokenService
	logger       *zap.Logger
}

// Accounts is the subset of the user service the auth endpoints need.
type Accounts interface {
	Register(ctx context.Context, username, email, password string) (*shared.User, error)
	Authenticate(ctx context.Context, email, password string) (*shared.User, error)
	shared.UserDirectory
}

// NewHandler creates a new auth handler.
func NewHandler(accounts Accounts, tokenService shared.TokenService, logger *zap.Logger) *Handler {
	return &Handler{
		accounts:     accounts,
		tokenService: tokenService,
		logger:       logger.Named("AuthHandler"),
	}
}

// RegisterRoutes mounts /auth. limitMW guards the credential endpoints.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW, limitMW gin.HandlerFunc) {
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", limitMW, h.register)
		authGroup.POST("/login", limitMW, h.login)
		authGroup.POST("/logout", authMW, h.logout)
		authGroup.GET("/me", authMW, h.me)
	}
}

func (h *Handler) register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("Register: invalid request body", zap.Error(err))
		common.RespondWithError(c, common.BindError(err))
		return
	}
	if err := validation.Registration(req.Username, req.Email, req.Password, req.PasswordConfirmation); err != nil {
		common.RespondWithError(c, common.NewValidationAPIError(err.Error()))
		return
	}

	usr, err := h.accounts.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	token, err := h.issueToken(usr)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "User registered successfully.", gin.H{
		"user":  shared.ToUserResponse(usr, true),
		"token": token,
	})
}

func (h *Handler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindError(err))
		return
	}

	usr, err := h.accounts.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	token, err := h.issueToken(usr)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Login successful.", gin.H{
		"user":  shared.ToUserResponse(usr, true),
		"token": token,
	})
}

func (h *Handler) logout(c *gin.Context) {
	claims := middleware.GetUserClaimsFromContext(c)
	if claims == nil {
		common.RespondWithError(c, common.ErrUnauthorized)
		return
	}
	if err := h.tokenService.RevokeToken(c.Request.Context(), claims); err != nil {
		h.logger.Error("Failed to revoke token", zap.Error(err), zap.String("userID", claims.UserID.String()))
		common.RespondWithError(c, common.ErrInternalServer.WithDetails("Could not log out."))
		return
	}
	common.RespondOK(c, "Logged out.", nil)
}

func (h *Handler) me(c *gin.Context) {
	usr, err := h.accounts.GetUserByID(c.Request.Context(), common.GetUserIDFromContext(c))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Account no longer exists."))
			return
		}
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "User profile retrieved successfully.", shared.ToUserResponse(usr, true))
}

func (h *Handler) issueToken(usr *shared.User) (*shared.TokenResponse, error) {
	accessToken, expiresAt, err := h.tokenService.GenerateAccessToken(usr)
	if err != nil {
		h.logger.Error("Failed to generate access token", zap.Error(err), zap.String("userID", usr.ID.String()))
		return nil, common.ErrInternalServer.WithDetails("Could not generate access token.")
	}
	return &shared.TokenResponse{AccessToken: accessToken, ExpiresAt: expiresAt, TokenType: common.AuthorizationTypeBearer}, nil
}
