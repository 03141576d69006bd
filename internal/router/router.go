// Package router assembles the HTTP surface. Superadmin registry routes are
// gated on capability only; academic routes additionally pass the tenant
// scope middleware, so every request below them carries a validated Scope.
package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/edustack/edustack-api/internal/authz"
	"github.com/edustack/edustack-api/internal/handler"
	"github.com/edustack/edustack-api/internal/middleware"
	"github.com/edustack/edustack-api/internal/service"
	"github.com/edustack/edustack-api/pkg/config"
	"github.com/edustack/edustack-api/pkg/logger"
	corsmiddleware "github.com/edustack/edustack-api/pkg/middleware/cors"
	reqidmiddleware "github.com/edustack/edustack-api/pkg/middleware/requestid"
)

// Handlers bundles every HTTP handler the router mounts.
type Handlers struct {
	Auth         *handler.AuthHandler
	School       *handler.SchoolHandler
	Subscription *handler.SubscriptionHandler
	User         *handler.UserHandler
	Subject      *handler.SubjectHandler
	Section      *handler.SectionHandler
	Enrollment   *handler.EnrollmentHandler
	Assignment   *handler.AssignmentHandler
	Submission   *handler.SubmissionHandler
	Report       *handler.ReportHandler
	Metrics      *handler.MetricsHandler
}

// Dependencies carries the cross-cutting collaborators the middleware needs.
type Dependencies struct {
	Config    *config.Config
	Logger    *zap.Logger
	Validator middleware.TokenValidator
	Gate      middleware.TenantGate
	Metrics   *service.MetricsService
}

// New builds the gin engine with all routes mounted.
func New(deps Dependencies, h Handlers) *gin.Engine {
	if deps.Config.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger))
	r.Use(corsmiddleware.New(deps.Config.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.Metrics))

	r.GET("/health", h.Metrics.Health)
	r.GET("/metrics", h.Metrics.Prometheus)
	if deps.Config.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(deps.Config.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.Refresh)

		authed := auth.Group("")
		authed.Use(middleware.JWT(deps.Validator))
		authed.POST("/logout", h.Auth.Logout)
		authed.POST("/change-password", h.Auth.ChangePassword)
		authed.GET("/me", h.Auth.Me)
	}

	// Registry surface: superadmin capabilities, no tenant scope.
	superadmin := api.Group("/superadmin")
	superadmin.Use(middleware.JWT(deps.Validator))
	{
		schools := superadmin.Group("/schools")
		schools.Use(middleware.RequireAction(authz.SchoolManage))
		schools.GET("", h.School.List)
		schools.POST("", h.School.Create)
		schools.GET("/:id", h.School.Get)
		schools.PUT("/:id", h.School.Update)
		schools.POST("/:id/activate", h.School.Activate)
		schools.POST("/:id/deactivate", h.School.Deactivate)
		schools.POST("/:id/admins", h.School.CreateAdmin)

		subs := superadmin.Group("")
		subs.Use(middleware.RequireAction(authz.SubscriptionManage))
		subs.GET("/subscriptions", h.Subscription.List)
		subs.GET("/subscriptions/expired", h.Subscription.ListExpired)
		subs.POST("/subscriptions/:id/renew", h.Subscription.Renew)
		subs.POST("/schools/:id/subscriptions", h.Subscription.Assign)
	}

	// Academic surface: every route passes the subscription gate and runs
	// under a tenant scope.
	tenantAPI := api.Group("")
	tenantAPI.Use(middleware.JWT(deps.Validator))
	tenantAPI.Use(middleware.TenantScope(deps.Gate))
	{
		users := tenantAPI.Group("/users")
		users.GET("", middleware.RequireAction(authz.UserList), h.User.List)
		users.POST("", middleware.RequireAction(authz.UserCreate), h.User.Create)
		users.GET("/:id", middleware.RequireAction(authz.UserList), h.User.Get)
		users.PUT("/:id", middleware.RequireAction(authz.UserUpdate), h.User.Update)
		users.DELETE("/:id", middleware.RequireAction(authz.UserDeactivate), h.User.Deactivate)

		subjects := tenantAPI.Group("/subjects")
		subjects.GET("", middleware.RequireAction(authz.SubjectRead), h.Subject.List)
		subjects.GET("/:id", middleware.RequireAction(authz.SubjectRead), h.Subject.Get)
		subjects.POST("", middleware.RequireAction(authz.SubjectWrite), h.Subject.Create)
		subjects.PUT("/:id", middleware.RequireAction(authz.SubjectWrite), h.Subject.Update)
		subjects.DELETE("/:id", middleware.RequireAction(authz.SubjectWrite), h.Subject.Delete)

		sections := tenantAPI.Group("/sections")
		sections.GET("", middleware.RequireAction(authz.SectionRead), h.Section.List)
		sections.GET("/:id", middleware.RequireAction(authz.SectionRead), h.Section.Get)
		sections.POST("", middleware.RequireAction(authz.SectionWrite), h.Section.Create)
		sections.PUT("/:id", middleware.RequireAction(authz.SectionWrite), h.Section.Update)
		sections.DELETE("/:id", middleware.RequireAction(authz.SectionWrite), h.Section.Delete)

		enrollments := tenantAPI.Group("/enrollments")
		enrollments.GET("", middleware.RequireAction(authz.EnrollmentRead), h.Enrollment.List)
		enrollments.GET("/my_enrollments", middleware.RequireAction(authz.EnrollmentRead), h.Enrollment.ListMine)
		enrollments.POST("", middleware.RequireAction(authz.EnrollmentCreate), h.Enrollment.Create)
		enrollments.POST("/:id/drop", middleware.RequireAction(authz.EnrollmentDrop), h.Enrollment.Drop)
		enrollments.POST("/:id/complete", middleware.RequireAction(authz.EnrollmentComplete), h.Enrollment.Complete)

		assignments := tenantAPI.Group("/assignments")
		assignments.GET("", middleware.RequireAction(authz.AssignmentRead), h.Assignment.List)
		assignments.GET("/:id", middleware.RequireAction(authz.AssignmentRead), h.Assignment.Get)
		assignments.POST("", middleware.RequireAction(authz.AssignmentWrite), h.Assignment.Create)
		assignments.PUT("/:id", middleware.RequireAction(authz.AssignmentWrite), h.Assignment.Update)
		assignments.DELETE("/:id", middleware.RequireAction(authz.AssignmentWrite), h.Assignment.Delete)

		submissions := tenantAPI.Group("/submissions")
		submissions.GET("", middleware.RequireAction(authz.SubmissionRead), h.Submission.List)
		submissions.GET("/:id", middleware.RequireAction(authz.SubmissionRead), h.Submission.Get)
		submissions.POST("", middleware.RequireAction(authz.SubmissionCreate), h.Submission.Submit)
		submissions.POST("/:id/grade", middleware.RequireAction(authz.SubmissionGrade), h.Submission.Grade)
		submissions.POST("/:id/return", middleware.RequireAction(authz.SubmissionGrade), h.Submission.Return)

		reports := tenantAPI.Group("/reports")
		reports.POST("", middleware.RequireAction(authz.ReportRequest), h.Report.Request)
		reports.GET("/download", middleware.RequireAction(authz.ReportRequest), h.Report.Download)
		reports.GET("/:id", middleware.RequireAction(authz.ReportRequest), h.Report.Get)
	}

	return r
}
