// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/oldskool/internal/auth"
	"github.com/jason-s-yu/oldskool/internal/cache"
	"github.com/jason-s-yu/oldskool/internal/config"
	"github.com/jason-s-yu/oldskool/internal/database"
	"github.com/jason-s-yu/oldskool/internal/handlers"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	logger := logrus.New()
	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("failed to load configuration")
	}
	logger.SetLevel(cfg.LogLevel)

	if cfg.JWTPrivateKeyPath != "" {
		err = auth.InitFromPath(cfg.JWTPrivateKeyPath, cfg.JWTPublicKeyPath, cfg.TokenTTL)
	} else {
		logger.Warn("no JWT key files configured, tokens will not survive a restart")
		err = auth.Init(cfg.TokenTTL)
	}
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize auth")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gs := handlers.NewGameServer(logger)
	gs.TurnTimerSec = cfg.TurnTimerSec

	if !cfg.DisableDB {
		if err := database.ConnectDB(ctx, cfg.Postgres.DSN()); err != nil {
			logger.WithError(err).Fatal("failed to connect to postgres")
		}
		defer database.Close()
		if err := database.EnsureSchema(ctx); err != nil {
			logger.WithError(err).Fatal("failed to prepare schema")
		}
		gs.Persist = true
	} else {
		logger.Warn("database disabled, accounts and results are not stored")
	}

	if !cfg.DisableRedis {
		rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			logger.WithError(err).Fatal("failed to connect to redis")
		}
		defer rdb.Close()
		gs.Actions = cache.NewActionLog(rdb, cfg.QueueName)
	} else {
		logger.Warn("redis disabled, match actions are not logged")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handlers.NewRouter(gs, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("Running on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		gs.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("server exited")
		os.Exit(1)
	}
}
