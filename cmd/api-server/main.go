package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/shs-health/booking-engine/internal/api"
	"github.com/shs-health/booking-engine/internal/booking"
	"github.com/shs-health/booking-engine/internal/config"
	"github.com/shs-health/booking-engine/internal/db"
	"github.com/shs-health/booking-engine/internal/logging"
	"github.com/shs-health/booking-engine/internal/metrics"
	redisclient "github.com/shs-health/booking-engine/internal/redis"
	"github.com/shs-health/booking-engine/internal/schedule"
	"github.com/shs-health/booking-engine/internal/serial"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logging.New("info", "api-server")
		fallback.Fatal().Err(err).Msg("config load error")
	}

	log := logging.New(cfg.LogLevel, "api-server")
	log.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.Connect(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	rdb, err := redisclient.Connect(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("error closing redis")
		}
	}()
	log.Info().Msg("connected to Redis")

	alloc := &serial.Allocator{
		MaxAttempts: cfg.AllocAttempts,
		BackoffMin:  cfg.AllocBackoffMin,
		BackoffMax:  cfg.AllocBackoffMax,
	}

	m := metrics.NewBookingMetrics(prometheus.DefaultRegisterer)
	registry := schedule.NewRegistry(schedule.NewPgRepository(pgPool), log)
	repo := booking.NewPgRepository(pgPool, alloc)
	locker := redisclient.NewRedisLocker(rdb, cfg.LockTTL)
	svc := booking.NewService(repo, registry, locker, m, cfg.MissedGrace, log)

	router := api.NewRouter(api.RouterConfig{
		Bookings:  svc,
		Schedules: registry,
		PgPool:    pgPool,
		Redis:     rdb,
		Metrics:   m,
		Logger:    log,
		Env:       cfg.Env,
		Version:   version,
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-rootCtx.Done()
	log.Info().Msg("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
