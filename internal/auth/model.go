// File: internal/auth/model.go
package auth

// RegisterRequest defines the body of POST /auth/register.
type RegisterRequest struct {
	Username             string `json:"username" binding:"required,min=3,max=32"`
	Email                string `json:"email" binding:"required,email"`
	Password             string `json:"password" binding:"required,min=8,max=72"`
	PasswordConfirmation string `json:"password_confirmation" binding:"required,eqfield=Password"`
}

// LoginRequest defines the structure for login requests.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}
