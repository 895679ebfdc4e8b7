package user

import "arc_community_backend/internal/shared"

// DBToShared converts a GORM user.User model to a shared.User DTO.
func DBToShared(dbUser *User) *shared.User {
	if dbUser == nil {
		return nil
	}
	return &shared.User{
		ID:          dbUser.ID,
		Username:    dbUser.Username,
		Email:       dbUser.Email,
		Role:        dbUser.Role,
		Bio:         dbUser.Bio,
		AvatarURL:   dbUser.AvatarURL,
		CreatedAt:   dbUser.CreatedAt,
		UpdatedAt:   dbUser.UpdatedAt,
		LastLoginAt: dbUser.LastLoginAt,
	}
}
