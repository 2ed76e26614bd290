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
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/lesson-scheduler-api/api/swagger"
	"github.com/noah-isme/lesson-scheduler-api/internal/handler"
	"github.com/noah-isme/lesson-scheduler-api/internal/middleware"
	"github.com/noah-isme/lesson-scheduler-api/internal/repository"
	"github.com/noah-isme/lesson-scheduler-api/internal/scheduling"
	"github.com/noah-isme/lesson-scheduler-api/internal/service"
	"github.com/noah-isme/lesson-scheduler-api/migrations"
	"github.com/noah-isme/lesson-scheduler-api/pkg/cache"
	"github.com/noah-isme/lesson-scheduler-api/pkg/config"
	"github.com/noah-isme/lesson-scheduler-api/pkg/database"
	"github.com/noah-isme/lesson-scheduler-api/pkg/jobs"
	"github.com/noah-isme/lesson-scheduler-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/lesson-scheduler-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/lesson-scheduler-api/pkg/middleware/requestid"
)

// @title Lesson Scheduler API
// @version 1.0.0
// @description Appointment scheduling for music lessons: categories, availability, booking and rebooking.
// @BasePath /
// @schemes http https
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database unavailable", "error", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.NewMigrator(db, migrations.FS, logr).Up(ctx); err != nil {
			logr.Sugar().Fatalw("migrations failed", "error", err)
		}
	}

	metricsSvc := service.NewMetricsService()
	checks := map[string]handler.Pinger{"postgres": db}

	var cacheRepo service.CacheRepository
	if cfg.Redis.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		} else {
			redisRepo := repository.NewCacheRepository(client, logr)
			defer redisRepo.Close() //nolint:errcheck
			cacheRepo = redisRepo
			checks["redis"] = handler.PingFunc(redisRepo.Ping)
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TodayTTL, logr, cacheRepo != nil)

	validate := validator.New()
	policy := scheduling.Policy{MinStartOffset: cfg.Scheduling.MinStartOffset}
	loc := cfg.Scheduling.Location

	appointmentRepo := repository.NewAppointmentRepository(db)
	categorySvc := service.NewCategoryService(repository.NewCategoryRepository(db), cacheSvc, cfg.Cache.CategoryTTL, validate, logr)
	appointmentSvc := service.NewAppointmentService(appointmentRepo, categorySvc, cacheSvc, metricsSvc, validate, logr, service.AppointmentServiceConfig{
		Policy:   policy,
		Location: loc,
		TodayTTL: cfg.Cache.TodayTTL,
	})
	availabilitySvc := service.NewAvailabilityService(repository.NewAvailabilityRepository(db), appointmentRepo, categorySvc, cacheSvc, metricsSvc, validate, logr, policy, loc)
	exportSvc := service.NewExportService(appointmentRepo, categorySvc, loc, logr, nil, nil, nil)
	authSvc := service.NewAuthService(repository.NewUserRepository(db), validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})

	if cfg.Reminders.Enabled {
		stopReminders := startReminders(ctx, cfg, appointmentRepo, metricsSvc, logr)
		defer stopReminders()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc, "/metrics", "/health", "/ready"))

	handler.RegisterRoutes(r, cfg.APIPrefix, authSvc, handler.Handlers{
		Auth:           handler.NewAuthHandler(authSvc),
		Categories:     handler.NewCategoryHandler(categorySvc),
		Appointments:   handler.NewAppointmentHandler(appointmentSvc, loc),
		Availabilities: handler.NewAvailabilityHandler(availabilitySvc),
		Exports:        handler.NewExportHandler(exportSvc),
		Metrics:        handler.NewMetricsHandler(metricsSvc, checks),
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "timezone", cfg.Scheduling.Timezone)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}

// startReminders wires the daily sweep to a worker queue and returns a stop function.
func startReminders(ctx context.Context, cfg *config.Config, appointments *repository.AppointmentRepository, metricsSvc *service.MetricsService, logr *zap.Logger) func() {
	queue := jobs.NewQueue("reminders", jobs.QueueConfig{
		Workers:    cfg.Reminders.Workers,
		MaxRetries: cfg.Reminders.Retries,
		RetryDelay: cfg.Reminders.RetryDelay,
		JobTimeout: cfg.Reminders.JobTimeout,
		Logger:     logr,
		OnResult:   metricsSvc.RecordJobAttempt,
	})
	reminders := service.NewReminderService(appointments, queue, service.NewLogNotifier(logr), metricsSvc, logr, service.ReminderConfig{
		Schedule: cfg.Reminders.Cron,
		Location: cfg.Scheduling.Location,
	})
	queue.Handle(service.ReminderJobKind, reminders.Handle)
	queue.Start(ctx)

	if err := reminders.Start(ctx); err != nil {
		logr.Sugar().Errorw("reminder schedule rejected", "schedule", cfg.Reminders.Cron, "error", err)
		queue.Stop()
		return func() {}
	}
	return func() {
		reminders.Stop()
		queue.Stop()
	}
}
