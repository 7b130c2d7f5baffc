package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/course-registrar/internal/handler"
	"github.com/noah-isme/course-registrar/internal/middleware"
	"github.com/noah-isme/course-registrar/internal/models"
	"github.com/noah-isme/course-registrar/internal/service"
	"github.com/noah-isme/course-registrar/pkg/config"
	"github.com/noah-isme/course-registrar/pkg/logger"
	corsmiddleware "github.com/noah-isme/course-registrar/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/course-registrar/pkg/middleware/requestid"
)

type routeHandlers struct {
	auth        *handler.AuthHandler
	courses     *handler.CourseHandler
	sections    *handler.SectionHandler
	students    *handler.StudentHandler
	teachers    *handler.TeacherHandler
	enrollments *handler.EnrollmentHandler
	grading     *handler.GradingHandler
	ops         *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, tokens middleware.TokenValidator, metricsSvc *service.MetricsService, h routeHandlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc, "/metrics", "/health", "/ready"))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", h.ops.Health)
	r.GET("/ready", h.ops.Ready)
	r.GET("/metrics", h.ops.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", h.auth.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(tokens))

	admin := middleware.RequireRoles(models.RoleAdmin)
	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher)
	student := middleware.RequireRoles(models.RoleStudent)

	authed.GET("/auth/me", h.auth.Me)
	authed.POST("/auth/password", h.auth.ChangePassword)

	authed.GET("/courses", admin, h.courses.List)
	authed.POST("/courses", admin, h.courses.Create)
	authed.PUT("/courses/:id", admin, h.courses.Update)
	authed.DELETE("/courses/:id", admin, h.courses.Delete)

	authed.GET("/sections", admin, h.sections.List)
	authed.POST("/sections", admin, h.sections.Create)
	authed.GET("/sections/:id", h.sections.Get)
	authed.DELETE("/sections/:id", admin, h.sections.Delete)
	authed.POST("/sections/:id/timeslots", admin, h.sections.AddTimeslot)
	authed.DELETE("/timeslots/:id", admin, h.sections.DeleteTimeslot)
	authed.GET("/catalog/sections", student, h.sections.Catalog)
	authed.GET("/teaching/sections", middleware.RequireRoles(models.RoleTeacher), h.sections.Teaching)

	authed.GET("/students", admin, h.students.List)
	authed.POST("/students", admin, h.students.Create)
	authed.PUT("/students/:id", admin, h.students.Update)
	authed.DELETE("/students/:id", admin, h.students.Delete)

	authed.GET("/teachers", admin, h.teachers.List)
	authed.POST("/teachers", admin, h.teachers.Create)
	authed.PUT("/teachers/:id", admin, h.teachers.Update)
	authed.DELETE("/teachers/:id", admin, h.teachers.Delete)

	authed.POST("/enrollments", middleware.RequireRoles(models.RoleAdmin, models.RoleStudent), h.enrollments.Enroll)
	authed.DELETE("/enrollments/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleStudent), h.enrollments.Drop)
	authed.GET("/enrollments/:id/total", h.grading.Total)

	authed.GET("/me/enrollments", student, h.enrollments.MyEnrollments)
	authed.GET("/me/timetable", student, h.enrollments.MyTimetable)
	authed.GET("/me/grades", student, h.grading.MyGrades)

	authed.GET("/sections/:id/assessments", h.grading.ListAssessments)
	authed.POST("/sections/:id/assessments", staff, h.grading.AddAssessment)
	authed.DELETE("/assessments/:id", staff, h.grading.DeleteAssessment)
	authed.GET("/sections/:id/gradebook", staff, h.grading.Gradebook)
	authed.PUT("/sections/:id/gradebook", staff, h.grading.RecordScores)
	authed.GET("/sections/:id/gradebook/export", staff, h.grading.ExportGradebook)

	return r
}
