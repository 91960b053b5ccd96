package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/chemclass-api/internal/models"
)

// RegisterRequest is the self-service sign-up payload. The student joins exactly one class.
type RegisterRequest struct {
	FullName string    `json:"full_name" validate:"required,min=2,max=255"`
	Email    string    `json:"email" validate:"required,email,max=255"`
	Password string    `json:"password" validate:"required,min=6,max=72"`
	Phone    string    `json:"phone" validate:"omitempty,max=32"`
	ClassID  uuid.UUID `json:"class_id" validate:"required"`
}

// LoginRequest carries user credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ProfileUpdateRequest updates the caller's own account. Changing the password requires CurrentPassword.
type ProfileUpdateRequest struct {
	FullName        *string `json:"full_name" validate:"omitempty,min=2,max=255"`
	Email           *string `json:"email" validate:"omitempty,email,max=255"`
	Phone           *string `json:"phone" validate:"omitempty,max=32"`
	CurrentPassword string  `json:"current_password"`
	NewPassword     *string `json:"new_password" validate:"omitempty,min=6,max=72"`
}

// UserResponse serializes an account without credentials.
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Phone     string    `json:"phone"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUserResponse converts a user model into a DTO.
func NewUserResponse(user models.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		FullName:  user.FullName,
		Phone:     user.Phone,
		Role:      string(user.Role),
		CreatedAt: user.CreatedAt,
	}
}

// AuthResponse is returned by login and registration.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}
