package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mediminder/mediminder-api/internal/email"
	"github.com/mediminder/mediminder-api/internal/repository/postgres"
	"github.com/mediminder/mediminder-api/pkg/logger"
	redisbroker "github.com/mediminder/mediminder-api/pkg/messaging/redis"
	"github.com/mediminder/mediminder-api/pkg/metrics"
	"github.com/mediminder/mediminder-api/pkg/worker"
)

// workerConfig is environment-driven: the dispatcher runs as a sidecar
// container with no config file mounted.
type workerConfig struct {
	DatabaseHost     string        `envconfig:"DB_HOST" default:"localhost"`
	DatabasePort     int           `envconfig:"DB_PORT" default:"5432"`
	DatabaseUser     string        `envconfig:"DB_USER" default:"mediminder"`
	DatabasePassword string        `envconfig:"DB_PASSWORD" default:""`
	DatabaseName     string        `envconfig:"DB_NAME" default:"mediminder"`
	DatabaseSSLMode  string        `envconfig:"DB_SSLMODE" default:"disable"`
	RedisURL         string        `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
	BatchSize        int           `envconfig:"DISPATCH_BATCH_SIZE" default:"50"`
	PollInterval     time.Duration `envconfig:"DISPATCH_POLL_INTERVAL" default:"15s"`
	RetryAttempts    int           `envconfig:"DISPATCH_RETRY_ATTEMPTS" default:"3"`
	RetryDelay       time.Duration `envconfig:"DISPATCH_RETRY_DELAY" default:"2s"`
	MetricsPort      int           `envconfig:"METRICS_PORT" default:"9091"`
	SMTPHost         string        `envconfig:"SMTP_HOST" default:""`
	SMTPPort         int           `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername     string        `envconfig:"SMTP_USERNAME" default:""`
	SMTPPassword     string        `envconfig:"SMTP_PASSWORD" default:""`
	EmailFrom        string        `envconfig:"EMAIL_FROM" default:""`
	EmailTo          []string      `envconfig:"EMAIL_TO" default:""`
	LogLevel         string        `envconfig:"LOG_LEVEL" default:"info"`
}

func main() {
	var cfg workerConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to load worker configuration")
	}

	appLogger := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.LogLevel),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
	})
	appMetrics := metrics.NewMetrics("mediminder", "worker")

	db, err := postgres.NewDB(postgres.DatabaseConfig{
		Host:     cfg.DatabaseHost,
		Port:     cfg.DatabasePort,
		User:     cfg.DatabaseUser,
		Password: cfg.DatabasePassword,
		Name:     cfg.DatabaseName,
		SSLMode:  cfg.DatabaseSSLMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	brokerLogger := zerolog.New(os.Stdout).With().Timestamp().Str("component", "broker").Logger()
	broker, err := redisbroker.NewRedisBroker(redisbroker.Config{
		URL:          cfg.RedisURL,
		MaxRetries:   3,
		RetryBackoff: 100 * time.Millisecond,
		PoolSize:     10,
		MinIdleConns: 2,
	}, &brokerLogger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer broker.Close()

	var mailer *email.Service
	if cfg.SMTPHost != "" {
		mailer = email.NewService(email.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.EmailFrom,
			To:       cfg.EmailTo,
		}, appLogger)
	}

	dispatcher := worker.NewDispatcher(
		postgres.NewAlertRepository(db),
		broker,
		mailer,
		worker.DispatcherConfig{
			BatchSize:     cfg.BatchSize,
			PollInterval:  cfg.PollInterval,
			RetryAttempts: cfg.RetryAttempts,
			RetryDelay:    cfg.RetryDelay,
		},
		appLogger,
		appMetrics,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go dispatcher.Start(ctx)

	metricsSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler: promhttp.Handler(),
	}
	go func() {
		log.Info().Int("port", cfg.MetricsPort).Msg("starting worker metrics server")
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start metrics server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down worker...")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("metrics server shutdown failed")
	}
	log.Info().Msg("worker exited")
}
