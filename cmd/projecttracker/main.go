package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"project-tracker/internal/api"
	"project-tracker/internal/cache"
	"project-tracker/internal/config"
	"project-tracker/internal/metrics"
	"project-tracker/internal/middleware"
	"project-tracker/internal/notify"
	"project-tracker/internal/repository"
	"project-tracker/internal/service"
	"project-tracker/internal/session"
	"project-tracker/internal/web"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := log.New()
	if cfg.LogFormat == "json" {
		logger.SetFormatter(&log.JSONFormatter{})
	} else {
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	if cfg.Debug {
		logger.SetLevel(log.DebugLevel)
	}

	db, err := repository.NewDB(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatalf("db: %v", err)
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatalf("redis: %v", err)
	}
	rc := redis.NewClient(redisOpts)
	defer rc.Close()
	if err := rc.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Warn("redis is not reachable yet")
	}

	userRepo := repository.NewUserRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	dashboardCache := cache.NewRedis(rc, cfg.DashboardCacheTTL)

	categorySvc := service.NewCategoryService(categoryRepo)
	projectSvc := service.NewProjectService(projectRepo, categoryRepo)
	taskSvc := service.NewTaskService(taskRepo, projectRepo)
	categorySvc.OnWrite(dashboardCache)
	projectSvc.OnWrite(dashboardCache)
	taskSvc.OnWrite(dashboardCache)
	dashboardSvc := service.NewDashboardService(projectRepo, taskRepo).WithCache(dashboardCache)
	settingsSvc := service.NewSettingsService(settingsRepo, notificationRepo, projectRepo, taskRepo)
	authSvc := service.NewAuthService(userRepo)
	reportSvc := service.NewReportService(projectRepo)

	tokens := session.NewTokens([]byte(cfg.SecretKey), cfg.TokenTTL)
	sessions := session.NewManager(session.NewStore(rc, cfg.SessionTTL), tokens, authSvc, logger, cfg.CookieSecure)

	var notifier notify.Notifier
	if cfg.TelegramToken != "" {
		tg, err := notify.NewTelegram(cfg.TelegramToken, logger)
		if err != nil {
			logger.Fatalf("telegram: %v", err)
		}
		notifier = tg
	}
	reminderSvc := service.NewReminderService(taskRepo, userRepo, notificationRepo, notifier, logger)

	scheduler := service.NewSchedulerService(time.Local, logger)
	if cfg.ReminderTime != "" {
		if _, err := scheduler.ScheduleDaily(cfg.ReminderTime, "overdue-reminders", func(jobCtx context.Context) error {
			res, err := reminderSvc.Sweep(jobCtx, time.Now())
			metrics.RecordReminderSweep(err, res.Notified, res.Pushed, res.PushFailures)
			if err != nil {
				return err
			}
			logger.WithFields(log.Fields{
				"overdue":       res.OverdueTasks,
				"notified":      res.Notified,
				"pushed":        res.Pushed,
				"push_failures": res.PushFailures,
			}).Info("overdue reminders sent")
			return nil
		}); err != nil {
			logger.Fatalf("schedule reminders: %v", err)
		}
	}

	limiter := middleware.NewRateLimiter(float64(cfg.LoginRatePerMinute)/60, cfg.LoginRatePerMinute, logger)
	if _, err := scheduler.ScheduleInterval(time.Minute, "rate-limit-cleanup", func(context.Context) error {
		if n := limiter.Cleanup(); n > 0 {
			logger.WithField("removed", n).Debug("rate limiter cleanup")
		}
		return nil
	}); err != nil {
		logger.Fatalf("schedule rate limit cleanup: %v", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.IPExtractor = echo.ExtractIPDirect()
	e.JSONSerializer = api.SonicSerializer{}
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: func() string { return uuid.NewString() },
	}))
	e.Use(echomw.Recover())
	e.Use(middleware.AccessLog(logger))
	e.Use(metrics.Middleware())
	e.Use(echomw.BodyLimit("2M"))
	e.Use(sessions.Middleware())
	e.Use(web.CSRF(cfg.CookieSecure))

	api.Register(e, api.Services{
		Projects:   projectSvc,
		Categories: categorySvc,
		Tasks:      taskSvc,
		Dashboard:  dashboardSvc,
		Settings:   settingsSvc,
		Auth:       authSvc,
		Reports:    reportSvc,
	}, api.Config{
		PageSize: cfg.PageSize,
		Tokens:   tokens,
		Limiter:  limiter,
		Logger:   logger,
	})
	if err := web.Register(e, web.Services{
		Projects:  projectSvc,
		Tasks:     taskSvc,
		Dashboard: dashboardSvc,
		Settings:  settingsSvc,
		Auth:      authSvc,
		Reports:   reportSvc,
	}, web.Config{
		Sessions:          sessions,
		LoginRedirectURL:  cfg.LoginRedirectURL,
		LogoutRedirectURL: cfg.LogoutRedirectURL,
		PageSize:          cfg.PageSize,
		Limiter:           limiter,
		Logger:            logger,
	}); err != nil {
		logger.Fatalf("templates: %v", err)
	}
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	scheduler.Start()
	defer scheduler.Stop()

	go func() {
		logger.WithField("addr", cfg.ListenAddr).Info("project tracker started")
		if err := e.Start(cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("shutdown")
	}
	logger.Info("Shutdown complete.")
}
