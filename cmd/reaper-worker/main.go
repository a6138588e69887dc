// The reaper worker periodically invokes the explicit cleanup-missed sweep.
// Booking and listing paths never reap implicitly; this worker is the
// scheduled stand-in for an operator calling POST /appointments/cleanup-missed.
package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/shs-health/booking-engine/internal/booking"
	"github.com/shs-health/booking-engine/internal/config"
	"github.com/shs-health/booking-engine/internal/db"
	"github.com/shs-health/booking-engine/internal/logging"
	redisclient "github.com/shs-health/booking-engine/internal/redis"
	"github.com/shs-health/booking-engine/internal/schedule"
	"github.com/shs-health/booking-engine/internal/serial"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logging.New("info", "reaper-worker")
		fallback.Fatal().Err(err).Msg("config load error")
	}

	log := logging.New(cfg.LogLevel, "reaper-worker")
	log.Info().Str("env", cfg.Env).Dur("interval", cfg.ReaperInterval).Msg("reaper-worker starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.Connect(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()

	rdb, err := redisclient.Connect(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("error closing redis")
		}
	}()

	alloc := &serial.Allocator{
		MaxAttempts: cfg.AllocAttempts,
		BackoffMin:  cfg.AllocBackoffMin,
		BackoffMax:  cfg.AllocBackoffMax,
	}
	registry := schedule.NewRegistry(schedule.NewPgRepository(pgPool), log)
	repo := booking.NewPgRepository(pgPool, alloc)
	locker := redisclient.NewRedisLocker(rdb, cfg.LockTTL)
	svc := booking.NewService(repo, registry, locker, nil, cfg.MissedGrace, log)

	// Run once at startup
	runOnce(rootCtx, svc, log)

	ticker := time.NewTicker(cfg.ReaperInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info().Msg("shutdown signal received, stopping reaper worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, log)
		}
	}
}

func runOnce(ctx context.Context, svc *booking.Service, log zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	result, err := svc.CleanupMissed(runCtx)
	if err != nil {
		log.Error().Err(err).Msg("sweep run error")
		return
	}
	log.Info().
		Int("deleted", result.Deleted).
		Int("examined", result.Examined).
		Dur("took", time.Since(start)).
		Msg("sweep run complete")
}
