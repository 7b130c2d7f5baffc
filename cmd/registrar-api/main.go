package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/course-registrar/api/swagger"
	"github.com/noah-isme/course-registrar/internal/handler"
	"github.com/noah-isme/course-registrar/internal/repository"
	"github.com/noah-isme/course-registrar/internal/service"
	"github.com/noah-isme/course-registrar/pkg/cache"
	"github.com/noah-isme/course-registrar/pkg/config"
	"github.com/noah-isme/course-registrar/pkg/database"
	"github.com/noah-isme/course-registrar/pkg/logger"
)

// @title Course Registrar API
// @version 1.0.0
// @description Course enrollment, timetable and grading administration
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			logr.Fatal("failed to migrate database", zap.Error(err))
		}
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, catalog cache disabled", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	courseRepo := repository.NewCourseRepository(db)
	sectionRepo := repository.NewSectionRepository(db)
	timeslotRepo := repository.NewTimeslotRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	assessmentRepo := repository.NewAssessmentRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	userRepo := repository.NewUserRepository(db)

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Catalog.CacheTTL, logr, cfg.Catalog.CacheEnabled && redisClient != nil)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	if err := authSvc.EnsureBootstrapAdmin(ctx, cfg.Accounts.BootstrapAdminUsername, cfg.Accounts.BootstrapAdminPassword); err != nil {
		logr.Fatal("failed to bootstrap admin account", zap.Error(err))
	}

	handlers := routeHandlers{
		auth:        handler.NewAuthHandler(authSvc),
		courses:     handler.NewCourseHandler(service.NewCourseService(courseRepo, validate, logr)),
		sections:    handler.NewSectionHandler(service.NewSectionService(sectionRepo, timeslotRepo, courseRepo, teacherRepo, enrollmentRepo, cacheSvc, validate, logr)),
		students:    handler.NewStudentHandler(service.NewStudentService(db, studentRepo, userRepo, cacheSvc, cfg.Accounts.DefaultPassword, validate, logr)),
		teachers:    handler.NewTeacherHandler(service.NewTeacherService(db, teacherRepo, userRepo, cfg.Accounts.DefaultPassword, validate, logr)),
		enrollments: handler.NewEnrollmentHandler(service.NewEnrollmentService(db, enrollmentRepo, sectionRepo, studentRepo, timeslotRepo, cacheSvc, metricsSvc, validate, logr)),
		grading:     handler.NewGradingHandler(service.NewGradingService(db, assessmentRepo, gradeRepo, sectionRepo, enrollmentRepo, metricsSvc, validate, logr)),
		ops:         handler.NewMetricsHandler(metricsSvc, db),
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	r := newRouter(cfg, logr, authSvc, metricsSvc, handlers)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
