package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "furrchum-vet/docs"
	"furrchum-vet/internal/adapters/auth/localjwt"
	"furrchum-vet/internal/adapters/auth/odin"
	"furrchum-vet/internal/adapters/capabilities/plansfeatures"
	pg "furrchum-vet/internal/adapters/storage/postgres"
	rds "furrchum-vet/internal/adapters/storage/redis"
	"furrchum-vet/internal/platform/config"
	"furrchum-vet/internal/platform/logger"
	"furrchum-vet/internal/platform/metrics"
	"furrchum-vet/internal/ports/auth"
	"furrchum-vet/internal/ports/capabilities"
	"furrchum-vet/internal/router"

	goredis "github.com/go-redis/redis/v8"
)

// @title Furrchum Vet API
// @version 1.0
// @description Mascotas, historia clínica y reservas con veterinarios.
// @BasePath /
func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.NewFromEnv().Error("config load failed", map[string]any{"err": err})
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Format: logger.ParseFormat(cfg.LogFormat),
		App:    cfg.AppName,
	})
	defer func() { _ = log.Sync() }()

	db, err := openDB(cfg, log)
	if err != nil {
		log.Error("postgres unavailable", map[string]any{"err": err})
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	rc, err := openRedis(cfg, log)
	if err != nil {
		log.Error("redis unavailable", map[string]any{"err": err})
		os.Exit(1)
	}
	if rc != nil {
		defer rc.Close()
	}

	var tokens *localjwt.Tokens
	if cfg.JWTSecret != "" {
		tokens, err = localjwt.New(cfg.JWTSecret, cfg.TokenTTL)
		if err != nil {
			log.Error("invalid jwt config", map[string]any{"err": err})
			os.Exit(1)
		}
	}

	verifier, err := buildVerifier(cfg, tokens, log)
	if err != nil {
		log.Error("invalid auth config", map[string]any{"err": err})
		os.Exit(1)
	}

	caps, err := buildCapabilities(cfg, log)
	if err != nil {
		log.Error("invalid plans-features config", map[string]any{"err": err})
		os.Exit(1)
	}

	h, err := router.NewRouter(router.Options{
		AuthVerifier: verifier,
		DB:           db,
		Redis:        rc,
		Logger:       log,
		Config:       cfg,
		Capabilities: caps,
		Tokens:       tokens,
		Metrics:      metrics.New(),
	})
	if err != nil {
		log.Error("router setup failed", map[string]any{"err": err})
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      h,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
	}

	go func() {
		log.Info("starting server", map[string]any{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", map[string]any{"err": err})
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", map[string]any{"err": err})
	}
}

// Sin DB_DSN se usa storage in-memory (modo dev).
func openDB(cfg config.Config, log logger.Logger) (*sql.DB, error) {
	if cfg.DBDSN == "" {
		log.Warn("DB_DSN not set, using in-memory storage", nil)
		return nil, nil
	}
	db, err := pg.Open(cfg.DBDSN)
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := pg.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return db, nil
}

func openRedis(cfg config.Config, log logger.Logger) (*goredis.Client, error) {
	if cfg.RedisAddr == "" {
		log.Info("REDIS_ADDR not set, idempotency keys kept in memory", nil)
		return nil, nil
	}
	return rds.Open(rds.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

// Prioridad: JWT propio > Odin > modo dev (X-Debug-User-ID).
func buildVerifier(cfg config.Config, tokens *localjwt.Tokens, log logger.Logger) (auth.AuthVerifier, error) {
	if tokens != nil {
		return tokens, nil
	}
	if cfg.OdinBaseURL != "" {
		client, err := odin.NewClient(odin.Config{
			BaseURL: cfg.OdinBaseURL,
			APIKey:  cfg.OdinAPIKey,
		})
		if err != nil {
			return nil, err
		}
		return odin.NewVerifier(client), nil
	}
	log.Warn("no auth verifier configured, accepting X-Debug-User-ID", nil)
	return nil, nil
}

func buildCapabilities(cfg config.Config, log logger.Logger) (capabilities.CapabilitiesResolver, error) {
	if cfg.PlansBaseURL == "" && !cfg.AllowAllCapabilities {
		log.Info("plans-features not configured, video consultations ungated", nil)
		return nil, nil
	}
	client, err := plansfeatures.NewClient(plansfeatures.Config{
		BaseURL: cfg.PlansBaseURL,
		APIKey:  cfg.PlansAPIKey,
	})
	if err != nil {
		return nil, err
	}
	return plansfeatures.NewResolver(client, cfg.AllowAllCapabilities), nil
}
