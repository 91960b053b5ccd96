package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/chemclass-api/internal/config"
	"github.com/noah-isme/chemclass-api/internal/database"
	"github.com/noah-isme/chemclass-api/internal/repository"
	"github.com/noah-isme/chemclass-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("app", cfg.AppName).Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL, database.PoolConfig{MaxOpenConns: 2})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	seeder := service.NewSeedService(repository.NewUserRepository(db), repository.NewSubjectRepository(db), logger)
	result, err := seeder.Run(ctx, service.SeedOptions{
		AdminEmail:    cfg.AdminEmail,
		AdminPassword: cfg.AdminPassword,
		AdminName:     cfg.AdminName,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("seeding failed")
	}

	logger.Info().
		Bool("admin_created", result.AdminCreated).
		Int("subjects_created", result.SubjectsCreated).
		Msg("database seeded")
}
