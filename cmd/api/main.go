package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mattbell19/wordgen-v2-production-sub006/internal/app"
	"github.com/mattbell19/wordgen-v2-production-sub006/internal/app/migrate"
	httpx "github.com/mattbell19/wordgen-v2-production-sub006/internal/http"
	"github.com/mattbell19/wordgen-v2-production-sub006/internal/repository"
	"github.com/mattbell19/wordgen-v2-production-sub006/internal/repository/memory"
	"github.com/mattbell19/wordgen-v2-production-sub006/internal/repository/postgres"
	"github.com/mattbell19/wordgen-v2-production-sub006/internal/ws"
	"github.com/mattbell19/wordgen-v2-production-sub006/pkg/config"
	"github.com/mattbell19/wordgen-v2-production-sub006/pkg/logger"
)

func main() {
	config.LoadDotEnv()
	cfg := config.LoadAPIConfig()
	log := logger.New("api", cfg.Environment, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		store    repository.Store
		dbHealth func(context.Context) error
	)
	switch cfg.StoreDriver {
	case "memory":
		log.Warn("using in-memory store; data is lost on restart")
		store = memory.New()
	case "postgres", "":
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = pool.Ping(pingCtx)
		cancel()
		if err != nil {
			log.Error("database ping failed", "error", err)
			os.Exit(1)
		}
		if cfg.AutoMigrate {
			runner, err := migrate.New(cfg.DatabaseURL, cfg.MigrationsDir, log)
			if err != nil {
				log.Error("failed to configure migrations", "error", err)
				os.Exit(1)
			}
			if err := runner.Up(ctx); err != nil {
				log.Error("migrations failed", "error", err)
				os.Exit(1)
			}
		}
		store = postgres.New(pool)
		dbHealth = pool.Ping
	default:
		log.Error("unsupported store driver", "driver", cfg.StoreDriver)
		os.Exit(1)
	}

	hub := ws.NewHub()
	defer hub.Close()

	services := app.Services(store, cfg, hub, app.Notifier(cfg, hub, log), prometheus.DefaultRegisterer, log)

	limiter := httpx.NewMemoryRateLimiter()
	if addr := strings.TrimSpace(cfg.RateLimitRedisAddr); addr != "" {
		redisLimiter, err := httpx.NewRedisRateLimiter(addr, cfg.RateLimitRedisPass, cfg.RateLimitRedisDB, log)
		if err != nil {
			log.Warn("redis rate limiter unavailable", "error", err)
		} else {
			limiter.Close()
			limiter = redisLimiter
		}
	}

	router := httpx.NewRouter(log, services, limiter, dbHealth)
	defer router.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("api server starting", "addr", cfg.Addr, "store", cfg.StoreDriver, "inactive_policy", services.Subscriptions.Policy())
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		log.Info("api server stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}
