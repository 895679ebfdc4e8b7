package user

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	"arc_community_backend/internal/common"
	"arc_community_backend/internal/filestorage"
	"arc_community_backend/internal/shared"
	"arc_community_backend/internal/validation"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service is the user module API used by handlers.
type Service interface {
	shared.UserDirectory
	Register(ctx context.Context, username, email, password string) (*shared.User, error)
	Authenticate(ctx context.Context, email, password string) (*shared.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, req UpdateProfileRequest) (*shared.User, error)
	UploadAvatar(ctx context.Context, id uuid.UUID, fh *multipart.FileHeader) (*shared.User, error)
	GetStats(ctx context.Context, id uuid.UUID) (*Stats, error)
}

// AvatarStore is the part of filestorage.Store the service uses.
type AvatarStore interface {
	SaveImage(fh *multipart.FileHeader, subDir string) (string, error)
	PublicURL(relativePath string) string
	RelativePath(publicURL string) (string, bool)
	Delete(relativePath string) error
}

// ServiceImplementation implements Service.
type ServiceImplementation struct {
	repo    Repository
	avatars AvatarStore
	logger  *zap.Logger
}

var _ Service = (*ServiceImplementation)(nil)

// NewService creates a new user service.
func NewService(repo Repository, avatars AvatarStore, logger *zap.Logger) *ServiceImplementation {
	return &ServiceImplementation{
		repo:    repo,
		avatars: avatars,
		logger:  logger.Named("UserService"),
	}
}

// Register creates a new account with role user.
func (s *ServiceImplementation) Register(ctx context.Context, username, email, password string) (*shared.User, error) {
	username = strings.TrimSpace(username)
	email = validation.NormalizeEmail(email)

	if _, err := s.repo.FindByUsername(ctx, username); err == nil {
		return nil, common.ErrConflict.WithDetails("This username is already taken.")
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing username: %w", err)
	}
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, common.ErrConflict.WithDetails("User with this email already exists.")
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing user by email: %w", err)
	}

	hashed, err := HashPassword(password)
	if err != nil {
		s.logger.Error("Failed to hash password during registration", zap.Error(err))
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	dbUser := &User{
		Username:     username,
		Email:        email,
		PasswordHash: hashed,
		Role:         shared.RoleUser,
	}
	if err := s.repo.Create(ctx, dbUser); err != nil {
		if apiErr, ok := common.IsAPIError(err); ok {
			return nil, apiErr
		}
		s.logger.Error("Failed to create user in repository", zap.Error(err))
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("User registered", zap.String("userID", dbUser.ID.String()), zap.String("username", dbUser.Username))
	return DBToShared(dbUser), nil
}

// Authenticate checks credentials and stamps the last login time.
func (s *ServiceImplementation) Authenticate(ctx context.Context, email, password string) (*shared.User, error) {
	dbUser, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized.WithDetails("Invalid email or password.")
		}
		s.logger.Error("Error finding user by email during login", zap.Error(err))
		return nil, common.ErrInternalServer.WithDetails("Login failed due to an internal error.")
	}
	if !CheckPassword(dbUser.PasswordHash, password) {
		s.logger.Info("Invalid password attempt", zap.String("userID", dbUser.ID.String()))
		return nil, common.ErrUnauthorized.WithDetails("Invalid email or password.")
	}

	now := time.Now()
	dbUser.LastLoginAt = &now
	if err := s.repo.Update(ctx, dbUser); err != nil {
		s.logger.Warn("Failed to update last login time", zap.Error(err), zap.String("userID", dbUser.ID.String()))
	}
	return DBToShared(dbUser), nil
}

func (s *ServiceImplementation) GetUserByID(ctx context.Context, id uuid.UUID) (*shared.User, error) {
	dbUser, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return DBToShared(dbUser), nil
}

func (s *ServiceImplementation) GetUserByUsername(ctx context.Context, username string) (*shared.User, error) {
	dbUser, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return DBToShared(dbUser), nil
}

// GetSummaries resolves ids to summaries. Unknown ids are simply absent.
func (s *ServiceImplementation) GetSummaries(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]shared.UserSummary, error) {
	out := make(map[uuid.UUID]shared.UserSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	seen := make(map[uuid.UUID]struct{}, len(ids))
	unique := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == uuid.Nil {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	users, err := s.repo.FindByIDs(ctx, unique)
	if err != nil {
		return nil, err
	}
	for i := range users {
		out[users[i].ID] = DBToShared(&users[i]).Summary()
	}
	return out, nil
}

// UpdateProfile applies the non-nil fields of req.
func (s *ServiceImplementation) UpdateProfile(ctx context.Context, id uuid.UUID, req UpdateProfileRequest) (*shared.User, error) {
	dbUser, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Username != nil {
		name := strings.TrimSpace(*req.Username)
		if err := validation.Username(name); err != nil {
			return nil, common.NewValidationAPIError(map[string]string{"username": err.Error()})
		}
		if !strings.EqualFold(name, dbUser.Username) {
			if _, err := s.repo.FindByUsername(ctx, name); err == nil {
				return nil, common.ErrConflict.WithDetails("This username is already taken.")
			} else if !errors.Is(err, common.ErrNotFound) {
				return nil, err
			}
		}
		dbUser.Username = name
	}
	if req.Bio != nil {
		dbUser.Bio = strings.TrimSpace(*req.Bio)
	}
	if req.AvatarURL != nil {
		url := strings.TrimSpace(*req.AvatarURL)
		if url == "" {
			dbUser.AvatarURL = nil
		} else {
			dbUser.AvatarURL = &url
		}
	}

	if err := s.repo.Update(ctx, dbUser); err != nil {
		return nil, err
	}
	return DBToShared(dbUser), nil
}

// UploadAvatar stores the image and replaces the previous locally stored avatar.
func (s *ServiceImplementation) UploadAvatar(ctx context.Context, id uuid.UUID, fh *multipart.FileHeader) (*shared.User, error) {
	dbUser, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	rel, err := s.avatars.SaveImage(fh, "avatars")
	if err != nil {
		switch {
		case errors.Is(err, filestorage.ErrNoFile), errors.Is(err, filestorage.ErrUnsupportedImage), errors.Is(err, filestorage.ErrTooLarge):
			return nil, common.ErrUnprocessableEntity.WithDetails(err.Error())
		}
		s.logger.Error("Failed to store avatar", zap.Error(err), zap.String("userID", id.String()))
		return nil, err
	}

	previous := dbUser.AvatarURL
	url := s.avatars.PublicURL(rel)
	dbUser.AvatarURL = &url
	if err := s.repo.Update(ctx, dbUser); err != nil {
		_ = s.avatars.Delete(rel)
		return nil, err
	}

	if previous != nil {
		if oldRel, ok := s.avatars.RelativePath(*previous); ok {
			if err := s.avatars.Delete(oldRel); err != nil {
				s.logger.Warn("Failed to delete previous avatar", zap.Error(err), zap.String("path", oldRel))
			}
		}
	}
	return DBToShared(dbUser), nil
}

func (s *ServiceImplementation) GetStats(ctx context.Context, id uuid.UUID) (*Stats, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.Stats(ctx, id)
}
