// File: internal/auth/service.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"arc_community_backend/internal/config"
	"arc_community_backend/internal/shared"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const tokenIssuer = "arc_community_backend"

var ErrTokenRevoked = errors.New("token has been revoked")

// JWTService issues and validates HS256 access tokens. Revoked token ids are
// kept in the blocklist until the token would have expired anyway.
type JWTService struct {
	cfg       *config.Config
	blocklist TokenBlocklistService
	logger    *zap.Logger
}

// NewJWTService creates a new JWT service.
func NewJWTService(cfg *config.Config, blocklist TokenBlocklistService, logger *zap.Logger) shared.TokenService {
	return &JWTService{cfg: cfg, blocklist: blocklist, logger: logger.Named("JWTService")}
}

func (s *JWTService) GenerateAccessToken(userData shared.UserDataForToken) (string, time.Time, error) {
	now := time.Now()
	expirationTime := now.Add(s.cfg.JWTAccessTokenExpiryMinutes)

	claims := &shared.Claims{
		UserID:   userData.GetID(),
		Username: userData.GetUsername(),
		Role:     userData.GetRole(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   userData.GetID().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.JWTSecretKey))
	if err != nil {
		s.logger.Error("Failed to sign access token", zap.Error(err))
		return "", time.Time{}, fmt.Errorf("could not sign access token: %w", err)
	}
	return tokenString, expirationTime, nil
}

// ValidateToken validates a JWT token and returns its claims.
func (s *JWTService) ValidateToken(ctx context.Context, tokenString string) (*shared.Claims, error) {
	claims := &shared.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.JWTSecretKey), nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid || claims.UserID == uuid.Nil {
		return nil, errors.New("invalid token claims")
	}

	if claims.ID != "" {
		revoked, err := s.blocklist.IsBlocklisted(ctx, claims.ID)
		if err != nil {
			s.logger.Error("Blocklist lookup failed", zap.Error(err))
			return nil, fmt.Errorf("could not verify token: %w", err)
		}
		if revoked {
			return nil, ErrTokenRevoked
		}
	}
	return claims, nil
}

// RevokeToken blocklists the token id until its expiry.
func (s *JWTService) RevokeToken(ctx context.Context, claims *shared.Claims) error {
	if claims == nil || claims.ID == "" {
		return errors.New("token has no id to revoke")
	}
	expiresAt := time.Now().Add(s.cfg.JWTAccessTokenExpiryMinutes)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	return s.blocklist.AddToBlocklist(ctx, claims.ID, expiresAt)
}
