package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the issued access token and the caller identity.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int64     `json:"expires_in"`
	IssuedAt    time.Time `json:"issued_at"`
	User        Identity  `json:"user"`
}

// ChangePasswordRequest payload for updating the caller's password.
type ChangePasswordRequest struct {
	OldPassword     string `json:"old_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID    string   `json:"user_id"`
	Username  string   `json:"username"`
	Role      UserRole `json:"role"`
	StudentID string   `json:"student_id,omitempty"`
	TeacherID string   `json:"teacher_id,omitempty"`
	jwt.RegisteredClaims
}

// Identity converts token claims into the identity consumed by services.
func (c *JWTClaims) Identity() *Identity {
	if c == nil {
		return nil
	}
	return &Identity{
		UserID:    c.UserID,
		Username:  c.Username,
		Role:      c.Role,
		StudentID: c.StudentID,
		TeacherID: c.TeacherID,
	}
}
