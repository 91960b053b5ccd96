package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/noah-isme/chemclass-api/internal/config"
	"github.com/noah-isme/chemclass-api/internal/handler"
	"github.com/noah-isme/chemclass-api/internal/middleware"
	"github.com/noah-isme/chemclass-api/internal/models"
	"github.com/noah-isme/chemclass-api/internal/repository"
	"github.com/noah-isme/chemclass-api/internal/router"
	"github.com/noah-isme/chemclass-api/internal/service"
	"github.com/noah-isme/chemclass-api/pkg/events"
	"github.com/noah-isme/chemclass-api/pkg/storage"
	"github.com/noah-isme/chemclass-api/pkg/token"
)

const (
	testAdminEmail    = "admin@chemclass.test"
	testAdminPassword = "admin-secret"
)

type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Meta    json.RawMessage   `json:"meta"`
	Details map[string]string `json:"details"`
}

type testServer struct {
	app   *fiber.App
	db    *gorm.DB
	store *storage.Local
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zerolog.Nop()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))

	uploadDir := t.TempDir()
	store, err := storage.NewLocal(uploadDir, "/uploads", logger)
	require.NoError(t, err)

	cfg := config.Config{
		AppName:          "chemclass-test",
		AppEnv:           "test",
		UploadDir:        uploadDir,
		UploadPublicPath: "/uploads",
		UploadMaxMB:      1,
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	tokens := token.NewManager("handler-test-secret", time.Hour)
	redisServer := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: redisServer.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })
	revoked := token.NewRedisBlacklist(redisClient)

	users := repository.NewUserRepository(db)
	subjects := repository.NewSubjectRepository(db)
	classes := repository.NewClassRepository(db)
	students := repository.NewAdminStudentRepository(db)

	activity := service.NewActivityService(repository.NewActivityLogRepository(db), logger)
	authService := service.NewAuthService(users, students, tokens, revoked, validate, logger)
	classService := service.NewClassService(classes, subjects, validate, activity, logger)
	studentService := service.NewAdminStudentService(students, users, classes, validate, activity, logger)
	tuitionService := service.NewTuitionService(repository.NewTuitionRepository(db), classes, validate, events.NopPublisher{}, activity, logger)
	examService := service.NewExamService(repository.NewExamRepository(db), classes, validate, activity, logger)
	materialService := service.NewMaterialService(repository.NewMaterialRepository(db), classes, subjects, store, cfg.UploadMaxMB, validate, activity, logger)

	_, err = service.NewSeedService(users, subjects, logger).Run(context.Background(), service.SeedOptions{
		AdminEmail:    testAdminEmail,
		AdminPassword: testAdminPassword,
		AdminName:     "Admin",
	})
	require.NoError(t, err)

	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:          handler.NewAuthHandler(authService, logger),
		ClassHandler:         handler.NewClassHandler(classService, logger),
		AdminStudentHandler:  handler.NewAdminStudentHandler(studentService, logger),
		TuitionHandler:       handler.NewTuitionHandler(tuitionService, logger),
		GradeHandler:         handler.NewGradeHandler(examService, logger),
		MaterialHandler:      handler.NewMaterialHandler(materialService, logger),
		DashboardHandler:     handler.NewDashboardHandler(service.NewDashboardService(repository.NewDashboardRepository(db), logger), service.NewSubjectService(subjects), logger),
		ActivityHandler:      handler.NewAdminActivityHandler(activity, logger),
		StudentPortalHandler: handler.NewStudentPortalHandler(service.NewStudentPortalService(repository.NewStudentPortalRepository(db), logger), logger),
		JWTMiddleware:        middleware.JWTProtected(tokens, revoked),
		HealthProbes:         []handler.HealthProbe{{Name: "database", Check: sqlDB.PingContext}},
	})

	return &testServer{app: app, db: db, store: store}
}

func (s *testServer) do(t *testing.T, method, path, bearer string, body interface{}) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	return s.send(t, req, bearer)
}

func (s *testServer) upload(t *testing.T, method, path, bearer string, fields map[string]string, filename string, content []byte) (int, envelope) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(method, path, body)
	req.Header.Set(fiber.HeaderContentType, writer.FormDataContentType())
	return s.send(t, req, bearer)
}

func (s *testServer) send(t *testing.T, req *http.Request, bearer string) (int, envelope) {
	t.Helper()
	if bearer != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+bearer)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var payload envelope
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &payload), string(raw))
	}
	return resp.StatusCode, payload
}

func decode(t *testing.T, raw json.RawMessage, target interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(raw, target), string(raw))
}

func (s *testServer) login(t *testing.T, email, password string) string {
	t.Helper()
	status, body := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	require.Equal(t, fiber.StatusOK, status, body.Message)
	var auth struct {
		Token string `json:"token"`
	}
	decode(t, body.Data, &auth)
	require.NotEmpty(t, auth.Token)
	return auth.Token
}

func (s *testServer) adminToken(t *testing.T) string {
	t.Helper()
	return s.login(t, testAdminEmail, testAdminPassword)
}

func (s *testServer) createClass(t *testing.T, admin, name string, fee int64) uuid.UUID {
	t.Helper()
	status, body := s.do(t, http.MethodPost, "/api/admin/classes", admin, map[string]interface{}{
		"name": name,
		"fee":  fee,
	})
	require.Equal(t, fiber.StatusCreated, status, body.Message)
	var class struct {
		ID uuid.UUID `json:"id"`
	}
	decode(t, body.Data, &class)
	return class.ID
}

// registerStudent signs a student up through the public endpoint and returns the id and token.
func (s *testServer) registerStudent(t *testing.T, name, email string, classID uuid.UUID) (uuid.UUID, string) {
	t.Helper()
	status, body := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]interface{}{
		"full_name": name,
		"email":     email,
		"password":  "student-pass",
		"class_id":  classID,
	})
	require.Equal(t, fiber.StatusCreated, status, body.Message)
	var auth struct {
		Token string `json:"token"`
		User  struct {
			ID uuid.UUID `json:"id"`
		} `json:"user"`
	}
	decode(t, body.Data, &auth)
	return auth.User.ID, auth.Token
}
