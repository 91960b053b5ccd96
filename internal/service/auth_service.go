package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/chemclass-api/internal/dto"
	"github.com/noah-isme/chemclass-api/internal/models"
	"github.com/noah-isme/chemclass-api/internal/observability"
	"github.com/noah-isme/chemclass-api/internal/repository"
	"github.com/noah-isme/chemclass-api/pkg/token"
)

// AuthService covers self-service registration, login and the caller's own profile.
type AuthService interface {
	Register(ctx context.Context, payload dto.RegisterRequest) (dto.AuthResponse, error)
	Login(ctx context.Context, payload dto.LoginRequest) (dto.AuthResponse, error)
	Me(ctx context.Context, userID uuid.UUID) (dto.UserResponse, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, payload dto.ProfileUpdateRequest) (dto.UserResponse, error)
	Logout(ctx context.Context, tokenID string, expiresAt time.Time) error
}

type authService struct {
	users     repository.UserRepository
	students  repository.AdminStudentRepository
	tokens    *token.Manager
	revoked   token.Blacklist
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAuthService constructs the auth service. A nil blacklist makes logout a no-op.
func NewAuthService(users repository.UserRepository, students repository.AdminStudentRepository, tokens *token.Manager, revoked token.Blacklist, validator *validator.Validate, logger zerolog.Logger) AuthService {
	if revoked == nil {
		revoked = token.NopBlacklist{}
	}
	return &authService{
		users:     users,
		students:  students,
		tokens:    tokens,
		revoked:   revoked,
		validator: validator,
		logger:    logger.With().Str("component", "auth_service").Logger(),
	}
}

// Register creates a student account enrolled in one class, with its baseline payment, and signs them in.
func (s *authService) Register(ctx context.Context, payload dto.RegisterRequest) (dto.AuthResponse, error) {
	payload.FullName = sanitizeText(payload.FullName)
	payload.Email = normalizeEmail(payload.Email)
	payload.Phone = strings.TrimSpace(payload.Phone)
	if err := s.validator.Struct(payload); err != nil {
		return dto.AuthResponse{}, err
	}

	taken, err := s.users.EmailTaken(ctx, payload.Email, nil)
	if err != nil {
		return dto.AuthResponse{}, err
	}
	if taken {
		return dto.AuthResponse{}, ErrEmailTaken
	}

	hash, err := hashPassword(payload.Password)
	if err != nil {
		return dto.AuthResponse{}, err
	}

	user := models.User{
		Email:        payload.Email,
		PasswordHash: hash,
		FullName:     payload.FullName,
		Phone:        payload.Phone,
		Role:         models.RoleStudent,
	}
	if err := s.students.Create(ctx, &user, []uuid.UUID{payload.ClassID}); err != nil {
		switch {
		case errors.Is(err, repository.ErrUnknownReference):
			return dto.AuthResponse{}, ErrUnknownClass
		case isUniqueViolation(err):
			return dto.AuthResponse{}, ErrEmailTaken
		}
		s.logger.Error().Err(err).Msg("failed to register student")
		return dto.AuthResponse{}, err
	}

	s.logger.Info().Str("user_id", user.ID.String()).Msg("student registered")
	return s.issue(user)
}

func (s *authService) Login(ctx context.Context, payload dto.LoginRequest) (dto.AuthResponse, error) {
	payload.Email = normalizeEmail(payload.Email)
	if err := s.validator.Struct(payload); err != nil {
		return dto.AuthResponse{}, err
	}

	user, err := s.users.GetByEmail(ctx, payload.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.LoginAttempts().WithLabelValues("unknown_user").Inc()
			return dto.AuthResponse{}, ErrInvalidCredentials
		}
		return dto.AuthResponse{}, err
	}
	if !checkPassword(user.PasswordHash, payload.Password) {
		observability.LoginAttempts().WithLabelValues("wrong_password").Inc()
		return dto.AuthResponse{}, ErrInvalidCredentials
	}

	observability.LoginAttempts().WithLabelValues("success").Inc()
	return s.issue(user)
}

func (s *authService) Me(ctx context.Context, userID uuid.UUID) (dto.UserResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrUserNotFound
		}
		return dto.UserResponse{}, err
	}
	return dto.NewUserResponse(user), nil
}

// UpdateProfile edits the caller's account. A new password is accepted only with the correct current one.
func (s *authService) UpdateProfile(ctx context.Context, userID uuid.UUID, payload dto.ProfileUpdateRequest) (dto.UserResponse, error) {
	if payload.FullName != nil {
		name := sanitizeText(*payload.FullName)
		payload.FullName = &name
	}
	if payload.Email != nil {
		email := normalizeEmail(*payload.Email)
		payload.Email = &email
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.UserResponse{}, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrUserNotFound
		}
		return dto.UserResponse{}, err
	}

	updates := make(map[string]interface{})
	if payload.FullName != nil {
		updates["full_name"] = *payload.FullName
	}
	if payload.Phone != nil {
		updates["phone"] = strings.TrimSpace(*payload.Phone)
	}
	if payload.Email != nil && *payload.Email != user.Email {
		taken, err := s.users.EmailTaken(ctx, *payload.Email, &userID)
		if err != nil {
			return dto.UserResponse{}, err
		}
		if taken {
			return dto.UserResponse{}, ErrEmailTaken
		}
		updates["email"] = *payload.Email
	}
	if payload.NewPassword != nil {
		if payload.CurrentPassword == "" {
			return dto.UserResponse{}, ErrPasswordRequired
		}
		if !checkPassword(user.PasswordHash, payload.CurrentPassword) {
			return dto.UserResponse{}, ErrWrongPassword
		}
		hash, err := hashPassword(*payload.NewPassword)
		if err != nil {
			return dto.UserResponse{}, err
		}
		updates["password_hash"] = hash
	}

	updated, err := s.users.Update(ctx, userID, updates)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return dto.UserResponse{}, ErrUserNotFound
		case isUniqueViolation(err):
			return dto.UserResponse{}, ErrEmailTaken
		}
		return dto.UserResponse{}, err
	}
	return dto.NewUserResponse(updated), nil
}

func (s *authService) Logout(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if tokenID == "" {
		return nil
	}
	if err := s.revoked.Revoke(ctx, tokenID, expiresAt); err != nil {
		s.logger.Error().Err(err).Msg("failed to revoke token")
		return err
	}
	return nil
}

func (s *authService) issue(user models.User) (dto.AuthResponse, error) {
	signed, claims, err := s.tokens.Issue(user.ID, string(user.Role))
	if err != nil {
		return dto.AuthResponse{}, err
	}
	return dto.AuthResponse{
		Token:     signed,
		ExpiresAt: claims.ExpiresAt.Time,
		User:      dto.NewUserResponse(user),
	}, nil
}
