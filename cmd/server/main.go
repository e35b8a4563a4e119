// Workshop API server entry point: loads configuration, connects MongoDB and
// Redis, starts the purge sweeper and serves the HTTP API until SIGINT/SIGTERM.
//
// @title        Workshop API
// @version      1.0
// @description  Mechanical-shop management backend: authentication core.
// @BasePath     /
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/torqueworks/workshop-api/internal/api"
	"github.com/torqueworks/workshop-api/internal/infrastructure/config"
	mongodb "github.com/torqueworks/workshop-api/internal/infrastructure/db/mongo"
	redisdb "github.com/torqueworks/workshop-api/internal/infrastructure/db/redis"
	"github.com/torqueworks/workshop-api/internal/infrastructure/mail"
	"github.com/torqueworks/workshop-api/internal/infrastructure/purge"
	"github.com/torqueworks/workshop-api/pkg/logger"

	_ "github.com/torqueworks/workshop-api/docs"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongodb connection failed")
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer func() { _ = rdb.Close() }()

	mailer, err := mail.NewSMTPMailer(mail.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("smtp client failed")
	}

	e := api.NewRouter(db, rdb, mailer, api.RouterConfig{
		JWTSecret:       cfg.JWT.Secret,
		AccessTTL:       cfg.JWT.AccessTTL,
		RefreshTTL:      cfg.JWT.RefreshTTL,
		VerificationTTL: cfg.Codes.VerificationTTL,
		ResetTTL:        cfg.Codes.ResetTTL,
	}, log)

	purger := purge.NewPurger(
		mongodb.NewUserRepository(db),
		mongodb.NewTokenRepository(db),
		cfg.Purge.Retention,
		log,
	)
	if err := purger.Start(cfg.Purge.Schedule); err != nil {
		log.Fatal().Err(err).Msg("purge sweeper failed to start")
	}
	defer purger.Stop()

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
		os.Exit(1)
	}
}
