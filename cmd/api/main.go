package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/chemclass-api/internal/config"
	"github.com/noah-isme/chemclass-api/internal/database"
	"github.com/noah-isme/chemclass-api/internal/handler"
	"github.com/noah-isme/chemclass-api/internal/middleware"
	"github.com/noah-isme/chemclass-api/internal/repository"
	"github.com/noah-isme/chemclass-api/internal/router"
	"github.com/noah-isme/chemclass-api/internal/service"
	"github.com/noah-isme/chemclass-api/pkg/events"
	"github.com/noah-isme/chemclass-api/pkg/storage"
	"github.com/noah-isme/chemclass-api/pkg/token"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("app", cfg.AppName).Logger()
	if cfg.AppEnv == "development" {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	db, err := database.ConnectPostgres(cfg.DatabaseURL, database.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to access connection pool")
	}
	defer sqlDB.Close()
	probes := []handler.HealthProbe{{Name: "database", Check: sqlDB.PingContext}}

	var revoked token.Blacklist = token.NopBlacklist{}
	if cfg.RedisURL != "" {
		redisClient, err := database.ConnectRedis(context.Background(), database.RedisConfig{
			URL:        cfg.RedisURL,
			ClientName: cfg.AppName,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		revoked = token.NewRedisBlacklist(redisClient)
		probes = append(probes, handler.HealthProbe{Name: "redis", Check: database.PingRedis(redisClient)})
	} else {
		logger.Warn().Msg("redis not configured, logout will not revoke tokens")
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.NATSURL != "" {
		natsPublisher, err := events.Connect(cfg.NATSURL, cfg.NATSSubject, cfg.AppName)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to nats")
		}
		defer natsPublisher.Close()
		publisher = natsPublisher
	}

	store, err := storage.NewLocal(cfg.UploadDir, cfg.UploadPublicPath, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare upload directory")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	tokens := token.NewManager(cfg.JWTSecret, cfg.JWTTTL)

	userRepo := repository.NewUserRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	classRepo := repository.NewClassRepository(db)
	studentRepo := repository.NewAdminStudentRepository(db)
	tuitionRepo := repository.NewTuitionRepository(db)
	examRepo := repository.NewExamRepository(db)
	materialRepo := repository.NewMaterialRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)
	portalRepo := repository.NewStudentPortalRepository(db)

	activityService := service.NewActivityService(activityRepo, logger)
	authService := service.NewAuthService(userRepo, studentRepo, tokens, revoked, validate, logger)
	classService := service.NewClassService(classRepo, subjectRepo, validate, activityService, logger)
	studentService := service.NewAdminStudentService(studentRepo, userRepo, classRepo, validate, activityService, logger)
	tuitionService := service.NewTuitionService(tuitionRepo, classRepo, validate, publisher, activityService, logger)
	examService := service.NewExamService(examRepo, classRepo, validate, activityService, logger)
	materialService := service.NewMaterialService(materialRepo, classRepo, subjectRepo, store, cfg.UploadMaxMB, validate, activityService, logger)
	dashboardService := service.NewDashboardService(dashboardRepo, logger)
	subjectService := service.NewSubjectService(subjectRepo)
	portalService := service.NewStudentPortalService(portalRepo, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    int(cfg.UploadMaxBytes()) + 1024*1024,
	})

	middleware.Register(app, middleware.Config{
		Logger:       &logger,
		AllowOrigins: cfg.CORSOrigins,
		AccessLog:    true,
	})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:          handler.NewAuthHandler(authService, logger),
		ClassHandler:         handler.NewClassHandler(classService, logger),
		AdminStudentHandler:  handler.NewAdminStudentHandler(studentService, logger),
		TuitionHandler:       handler.NewTuitionHandler(tuitionService, logger),
		GradeHandler:         handler.NewGradeHandler(examService, logger),
		MaterialHandler:      handler.NewMaterialHandler(materialService, logger),
		DashboardHandler:     handler.NewDashboardHandler(dashboardService, subjectService, logger),
		ActivityHandler:      handler.NewAdminActivityHandler(activityService, logger),
		StudentPortalHandler: handler.NewStudentPortalHandler(portalService, logger),
		JWTMiddleware:        middleware.JWTProtected(tokens, revoked),
		LoginLimiter:         middleware.RateLimit(middleware.RateLimitConfig{Scope: "login", Max: cfg.LoginRateLimit, Window: time.Minute, FailuresOnly: true}),
		HealthProbes:         probes,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, logger)
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
