package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/certiva/examportal-backend/internal/config"
	"github.com/certiva/examportal-backend/internal/database"
	"github.com/certiva/examportal-backend/internal/handler"
	"github.com/certiva/examportal-backend/internal/logger"
	"github.com/certiva/examportal-backend/internal/repository"
	"github.com/certiva/examportal-backend/internal/router"
	"github.com/certiva/examportal-backend/internal/service"
	"github.com/certiva/examportal-backend/internal/validator"
	"github.com/certiva/examportal-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting Exam Portal Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	adminRepo := repository.NewAdminRepository(pool)
	studentRepo := repository.NewStudentRepository(pool)
	batchRepo := repository.NewBatchRepository(pool)
	examRepo := repository.NewExamRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)
	incidentRepo := repository.NewIncidentRepository(pool)
	subscriptionRepo := repository.NewSubscriptionRepository(pool)
	monitorRepo := repository.NewMonitorRepository(pool, rdb)
	taxonomyRepo := repository.NewTaxonomyRepository(pool)
	settingRepo := repository.NewSettingRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, rdb)
	studentService := service.NewStudentService(studentRepo, authService)
	adminService := service.NewAdminService(adminRepo, authService)
	batchService := service.NewBatchService(batchRepo)
	examService := service.NewExamService(examRepo, questionRepo, rdb, log)
	questionService := service.NewQuestionService(questionRepo, examRepo, examService, log)
	dispatcher := service.NewRedisCertificateDispatcher(rdb)
	attemptService := service.NewAttemptService(
		attemptRepo, examRepo, questionRepo, studentRepo, batchRepo,
		subscriptionRepo, dispatcher, log,
	)
	stateService := service.NewAttemptStateService(
		attemptRepo, studentRepo, batchRepo, examRepo, rdb, log,
	)
	incidentService := service.NewIncidentService(
		incidentRepo, attemptRepo, studentRepo, batchRepo, examRepo, log,
	)
	suspensionService := service.NewSuspensionService(attemptRepo, studentRepo, batchRepo, stateService, log)
	monitorService := service.NewMonitorService(monitorRepo, examRepo, incidentRepo, log)
	subscriptionService := service.NewSubscriptionService(subscriptionRepo, log)
	taxonomyService := service.NewTaxonomyService(taxonomyRepo)
	settingService := service.NewSettingService(settingRepo)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:          handler.NewAuthHandler(studentService, adminService),
		StudentPortal: handler.NewStudentPortalHandler(attemptService, stateService, examService),
		Suspension:    handler.NewSuspensionHandler(suspensionService, attemptService, incidentService),
		Incident:      handler.NewIncidentHandler(incidentService, attemptService),
		Monitor:       handler.NewMonitorHandler(rdb, monitorService, log),
		WS:            handler.NewWSHandler(rdb, attemptService, stateService, incidentService, log, cfg.AllowedOrigins),
		Exam:          handler.NewExamHandler(examService),
		Question:      handler.NewQuestionHandler(questionService),
		Batch:         handler.NewBatchHandler(batchService),
		StudentMgmt:   handler.NewStudentManagementHandler(studentService),
		Subscription:  handler.NewSubscriptionHandler(subscriptionService),
		Taxonomy:      handler.NewTaxonomyHandler(taxonomyService),
		Setting:       handler.NewSettingHandler(settingService),
		System:        handler.NewSystemHandler(rdb, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	autosaveWorker := worker.NewAutosaveWorker(pool, rdb, log)
	certificateWorker := worker.NewCertificateWorker(pool, rdb, log)

	go autosaveWorker.Start(workerCtx)
	go certificateWorker.Start(workerCtx)

	// ─── Prewarm Redis Caches ─────────────────────────────────────────
	// Load all active exams into Redis BEFORE accepting traffic.
	// This avoids race conditions from lazy loading under thundering herd.
	if err := examService.PrewarmAllCaches(ctx); err != nil {
		log.Warn().Err(err).Msg("Cache prewarm failed")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
