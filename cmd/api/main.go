package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"

	_ "github.com/edustack/edustack-api/api/swagger"
	"github.com/edustack/edustack-api/internal/handler"
	"github.com/edustack/edustack-api/internal/repository"
	"github.com/edustack/edustack-api/internal/router"
	"github.com/edustack/edustack-api/internal/service"
	"github.com/edustack/edustack-api/pkg/cache"
	"github.com/edustack/edustack-api/pkg/config"
	"github.com/edustack/edustack-api/pkg/database"
	"github.com/edustack/edustack-api/pkg/jobs"
	"github.com/edustack/edustack-api/pkg/logger"
	"github.com/edustack/edustack-api/pkg/storage"
)

// @title EduStack API
// @version 1.0.0
// @description Multi-tenant academic management platform
// @BasePath /api
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, tenant gate falls back to the database", "error", err)
		redisClient = nil
	}

	reportStorage, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare report storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	schoolRepo := repository.NewSchoolRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	sectionRepo := repository.NewSectionRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	reportRepo := repository.NewReportRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	schoolSvc := service.NewSchoolService(schoolRepo, userRepo, cacheRepo, validate, logr)
	subscriptionSvc := service.NewSubscriptionService(subscriptionRepo, schoolRepo, cacheRepo, metricsSvc, validate, logr, cfg.Tenancy.StatusCacheTTL)
	userSvc := service.NewUserService(userRepo, validate, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, validate, logr)
	sectionSvc := service.NewSectionService(sectionRepo, subjectRepo, userRepo, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, sectionRepo, userRepo, validate, logr)
	assignmentSvc := service.NewAssignmentService(assignmentRepo, sectionRepo, validate, logr)
	submissionSvc := service.NewSubmissionService(submissionRepo, assignmentRepo, sectionRepo, enrollmentRepo, validate, logr)
	reportSvc := service.NewReportService(reportRepo, sectionRepo, submissionRepo, reportStorage, signer, validate, logr)

	reportQueue := jobs.NewQueue("reports", reportSvc.HandleJob, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		Logger:     logr,
	})
	reportSvc.AttachQueue(reportQueue)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	reportQueue.Start(ctx)
	defer reportQueue.Stop()

	engine := router.New(router.Dependencies{
		Config:    cfg,
		Logger:    logr,
		Validator: authSvc,
		Gate:      subscriptionSvc,
		Metrics:   metricsSvc,
	}, router.Handlers{
		Auth:         handler.NewAuthHandler(authSvc),
		School:       handler.NewSchoolHandler(schoolSvc),
		Subscription: handler.NewSubscriptionHandler(subscriptionSvc),
		User:         handler.NewUserHandler(userSvc),
		Subject:      handler.NewSubjectHandler(subjectSvc),
		Section:      handler.NewSectionHandler(sectionSvc),
		Enrollment:   handler.NewEnrollmentHandler(enrollmentSvc),
		Assignment:   handler.NewAssignmentHandler(assignmentSvc),
		Submission:   handler.NewSubmissionHandler(submissionSvc),
		Report:       handler.NewReportHandler(reportSvc),
		Metrics:      handler.NewMetricsHandler(metricsSvc),
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
