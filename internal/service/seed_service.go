package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/chemclass-api/internal/models"
	"github.com/noah-isme/chemclass-api/internal/repository"
)

// ErrSeedMisconfigured indicates the admin credentials are missing from configuration.
var ErrSeedMisconfigured = errors.New("admin email and password must be configured for seeding")

// DefaultSubjects are created by the seeder when missing.
var DefaultSubjects = []string{
	"High School Chemistry",
	"Organic Chemistry",
	"Inorganic Chemistry",
}

// SeedOptions describes the bootstrap admin account.
type SeedOptions struct {
	AdminEmail    string
	AdminPassword string
	AdminName     string
	Subjects      []string
}

// SeedResult reports what the seeder created.
type SeedResult struct {
	AdminCreated    bool
	SubjectsCreated int
}

// SeedService bootstraps an empty database. Running it twice changes nothing.
type SeedService interface {
	Run(ctx context.Context, opts SeedOptions) (SeedResult, error)
}

type seedService struct {
	users    repository.UserRepository
	subjects repository.SubjectRepository
	logger   zerolog.Logger
}

// NewSeedService constructs a seeding service.
func NewSeedService(users repository.UserRepository, subjects repository.SubjectRepository, logger zerolog.Logger) SeedService {
	return &seedService{
		users:    users,
		subjects: subjects,
		logger:   logger.With().Str("component", "seed_service").Logger(),
	}
}

func (s *seedService) Run(ctx context.Context, opts SeedOptions) (SeedResult, error) {
	var result SeedResult

	created, err := s.ensureAdmin(ctx, opts)
	if err != nil {
		return result, err
	}
	result.AdminCreated = created

	names := opts.Subjects
	if names == nil {
		names = DefaultSubjects
	}
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		_, isNew, err := s.subjects.Ensure(ctx, name)
		if err != nil {
			return result, err
		}
		if isNew {
			result.SubjectsCreated++
		}
	}

	s.logger.Info().
		Bool("admin_created", result.AdminCreated).
		Int("subjects_created", result.SubjectsCreated).
		Msg("seed completed")
	return result, nil
}

func (s *seedService) ensureAdmin(ctx context.Context, opts SeedOptions) (bool, error) {
	email := normalizeEmail(opts.AdminEmail)
	if email == "" || opts.AdminPassword == "" {
		return false, ErrSeedMisconfigured
	}

	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role != models.RoleAdmin {
			s.logger.Warn().Str("email", email).Msg("seed email belongs to a non-admin account, skipping")
		}
		return false, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return false, err
	}

	hash, err := hashPassword(opts.AdminPassword)
	if err != nil {
		return false, err
	}
	name := sanitizeText(opts.AdminName)
	if name == "" {
		name = "Administrator"
	}

	admin := models.User{
		Email:        email,
		PasswordHash: hash,
		FullName:     name,
		Role:         models.RoleAdmin,
	}
	if err := s.users.Create(ctx, &admin); err != nil {
		return false, err
	}
	return true, nil
}
