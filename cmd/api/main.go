package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mediminder/mediminder-api/config"
	"github.com/mediminder/mediminder-api/internal/chat"
	adminHandler "github.com/mediminder/mediminder-api/internal/handler/admin"
	chatHandler "github.com/mediminder/mediminder-api/internal/handler/chat"
	doseHandler "github.com/mediminder/mediminder-api/internal/handler/dose"
	"github.com/mediminder/mediminder-api/internal/handler/health"
	medicationHandler "github.com/mediminder/mediminder-api/internal/handler/medication"
	prescriptionHandler "github.com/mediminder/mediminder-api/internal/handler/prescription"
	"github.com/mediminder/mediminder-api/internal/middleware"
	"github.com/mediminder/mediminder-api/internal/notifier"
	"github.com/mediminder/mediminder-api/internal/ocr"
	"github.com/mediminder/mediminder-api/internal/repository"
	"github.com/mediminder/mediminder-api/internal/repository/postgres"
	redisrepo "github.com/mediminder/mediminder-api/internal/repository/redis"
	"github.com/mediminder/mediminder-api/internal/router"
	"github.com/mediminder/mediminder-api/internal/schedule"
	chatService "github.com/mediminder/mediminder-api/internal/service/chat"
	extractionService "github.com/mediminder/mediminder-api/internal/service/extraction"
	reminderService "github.com/mediminder/mediminder-api/internal/service/reminder"
	"github.com/mediminder/mediminder-api/internal/store"
	"github.com/mediminder/mediminder-api/pkg/logger"
	"github.com/mediminder/mediminder-api/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Logging.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
	})
	appMetrics := metrics.NewMetrics("mediminder", "api")

	// Database
	db, err := postgres.NewDB(postgres.DatabaseConfig{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Name:     cfg.Database.Name,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := postgres.EnsureSchema(db); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure database schema")
	}

	// Repositories
	kv := repository.KVStore(postgres.NewKVStore(db))
	if cfg.Storage.KVBackend == "redis" {
		client, err := redisrepo.NewClient(cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		kv = redisrepo.NewKVStore(client, cfg.Storage.KeyPrefix)
	}
	alertRepo := postgres.NewAlertRepository(db)

	// Core pipeline
	scheduleStore := store.NewScheduleStore(kv, appLogger)
	expander := schedule.NewExpander().WithHorizon(cfg.Schedule.HorizonDays)
	platform := notifier.NewLocalPlatform(alertRepo)
	alertScheduler := notifier.NewScheduler(platform, kv, appMetrics, appLogger)

	ocrClient := ocr.NewClient(ocr.Config{
		BaseURL: cfg.OCR.BaseURL,
		APIKey:  cfg.OCR.APIKey,
		Timeout: cfg.OCR.Timeout,
	}, appLogger)

	// Services
	extractionSvc := extractionService.NewService(ocrClient, appMetrics, appLogger)
	reminderSvc := reminderService.NewService(scheduleStore, expander, alertScheduler, appMetrics, appLogger)

	primary := chat.NewOpenAIProvider("primary",
		cfg.Chat.Primary.APIKey, cfg.Chat.Primary.BaseURL, cfg.Chat.Primary.Model)
	var fallback chat.Provider
	if cfg.Chat.Fallback.APIKey != "" {
		fallback = chat.NewOpenAIProvider("fallback",
			cfg.Chat.Fallback.APIKey, cfg.Chat.Fallback.BaseURL, cfg.Chat.Fallback.Model)
	}
	chatSvc := chatService.NewService(primary, fallback, chatService.Config{
		Cooldown:      cfg.Chat.Cooldown,
		CacheTTL:      cfg.Chat.CacheTTL,
		InitialTokens: cfg.Chat.InitialTokens,
		RetryTokens:   cfg.Chat.RetryTokens,
	}, appLogger)

	rps := 0.0
	if cfg.RateLimit.Enabled {
		rps = cfg.RateLimit.RequestsPerSecond
	}

	// Router
	r := router.NewRouter(
		health.NewHandler(db),
		router.Config{
			RateLimitRPS:   rps,
			RateLimitBurst: cfg.RateLimit.Burst,
			CORSConfig:     middleware.DefaultCORSConfig(),
			MetricsPrefix:  "mediminder_http",
		},
		prescriptionHandler.NewHandler(extractionSvc),
		medicationHandler.NewHandler(reminderSvc),
		doseHandler.NewHandler(reminderSvc),
		chatHandler.NewHandler(chatSvc),
		adminHandler.NewHandler(reminderSvc),
	)
	r.Setup()

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        r.Engine(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting api server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}
	log.Info().Msg("server exited")
}
