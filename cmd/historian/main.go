// cmd/historian/main.go drains the match action queue from Redis into PostgreSQL and marks
// matches abandoned after a period of inactivity.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/oldskool/internal/cache"
	"github.com/jason-s-yu/oldskool/internal/config"
	"github.com/jason-s-yu/oldskool/internal/database"
	"github.com/jason-s-yu/oldskool/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("failed to load configuration")
	}
	logger.SetLevel(cfg.LogLevel)
	if cfg.DisableDB || cfg.DisableRedis {
		logger.Fatal("historian needs both postgres and redis")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.ConnectDB(ctx, cfg.Postgres.DSN()); err != nil {
		logger.WithError(err).Fatal("failed to connect to postgres")
	}
	defer database.Close()
	if err := database.EnsureSchema(ctx); err != nil {
		logger.WithError(err).Fatal("failed to prepare schema")
	}

	rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to redis")
	}
	defer rdb.Close()

	svc := historian.NewService(cache.NewActionLog(rdb, cfg.QueueName), historian.PostgresSink{}, historian.Options{
		BatchSize:  cfg.BatchSize,
		FlushDelay: cfg.FlushInterval,
		Inactivity: cfg.InactivityTimeout,
	}, logger)

	logger.WithField("queue", cfg.QueueName).Info("historian started")
	if err := svc.Run(ctx); err != nil {
		logger.WithError(err).Error("historian stopped")
		os.Exit(1)
	}
	logger.Info("historian stopped")
}
