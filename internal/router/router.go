package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/chemclass-api/internal/config"
	"github.com/noah-isme/chemclass-api/internal/handler"
	"github.com/noah-isme/chemclass-api/internal/middleware"
	"github.com/noah-isme/chemclass-api/internal/models"
	"github.com/noah-isme/chemclass-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler          *handler.AuthHandler
	ClassHandler         *handler.ClassHandler
	AdminStudentHandler  *handler.AdminStudentHandler
	TuitionHandler       *handler.TuitionHandler
	GradeHandler         *handler.GradeHandler
	MaterialHandler      *handler.MaterialHandler
	DashboardHandler     *handler.DashboardHandler
	ActivityHandler      *handler.AdminActivityHandler
	StudentPortalHandler *handler.StudentPortalHandler
	JWTMiddleware        fiber.Handler
	LoginLimiter         fiber.Handler
	HealthProbes         []handler.HealthProbe
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes...))
	api.Get("/metrics", observability.MetricsHandler())

	if cfg.UploadDir != "" {
		app.Static(cfg.UploadPublicPath, cfg.UploadDir)
	}

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	auth := api.Group("/auth")
	deps.AuthHandler.RegisterPublic(auth, deps.LoginLimiter)
	auth.Get("/classes", deps.ClassHandler.PublicList)
	deps.AuthHandler.RegisterProtected(auth, jwtMiddleware)

	api.Get("/subjects", jwtMiddleware, deps.DashboardHandler.Subjects)

	admin := api.Group("/admin", jwtMiddleware, middleware.RequireRole(models.RoleAdmin))
	admin.Get("/dashboard", deps.DashboardHandler.Admin)
	deps.ClassHandler.Register(admin.Group("/classes"))
	deps.AdminStudentHandler.Register(admin.Group("/students"))
	deps.ActivityHandler.Register(admin.Group("/activities"))
	deps.TuitionHandler.RegisterBatches(admin.Group("/tuition-batches"))
	deps.TuitionHandler.RegisterRecords(admin.Group("/tuitions"))
	deps.GradeHandler.Register(admin.Group("/grades"))
	deps.MaterialHandler.Register(admin.Group("/documents"))

	student := api.Group("/student", jwtMiddleware, middleware.RequireRole(models.RoleStudent))
	student.Get("/me", deps.AuthHandler.Me)
	deps.StudentPortalHandler.Register(student)
	student.Get("/grades", deps.GradeHandler.StudentGrades)
	student.Get("/documents", deps.MaterialHandler.StudentDocuments)
	student.Get("/tuitions", deps.TuitionHandler.StudentHistory)
}
