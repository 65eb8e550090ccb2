package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"parlay.app/coordinator/common/id"
	"parlay.app/coordinator/common/logger"
	"parlay.app/coordinator/common/otel"
	"parlay.app/coordinator/core/config"
	"parlay.app/coordinator/core/db"
	"parlay.app/coordinator/internal/queue"
	"parlay.app/coordinator/internal/service"
	"parlay.app/coordinator/internal/store"
)

const sweepLimit = 500

func main() {
	once := flag.Bool("once", false, "run a single sweep and exit")
	schedule := flag.String("schedule", "*/5 * * * *", "cron schedule for recurring sweeps")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeSweeper)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	slog.InfoContext(ctx, "sweeper starting", "env", cfg.Env, "once", *once)
	if err := id.Init(2); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	redisOpts, err := redis.ParseURL(cfg.Events.RedisURL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}

	producer := queue.NewRedisProducer(redisClient, cfg.Events.Stream, slog.Default())
	defer producer.Close()

	stores := store.NewStores(database.Querier())
	services := service.New(cfg, database, stores, producer)

	sweep := func() {
		sweepCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
		defer cancel()

		stats, err := services.Reconcile.SweepAll(sweepCtx, sweepLimit)
		if err != nil {
			slog.ErrorContext(sweepCtx, "sweep failed", "error", err)
			return
		}
		slog.InfoContext(sweepCtx, "sweep finished", "scanned", stats.Scanned, "failed", stats.Failed)
	}

	if *once {
		sweep()
		shutdownTelemetry(ctx, telemetry)
		return
	}

	c := cron.New()
	if _, err := c.AddFunc(*schedule, sweep); err != nil {
		slog.ErrorContext(ctx, "invalid sweep schedule", "schedule", *schedule, "error", err)
		os.Exit(1)
	}
	c.Start()
	slog.InfoContext(ctx, "sweeper scheduled", "schedule", *schedule)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")
	stopCtx := c.Stop()
	<-stopCtx.Done()

	shutdownTelemetry(ctx, telemetry)
	slog.InfoContext(ctx, "shutdown complete")
}

func shutdownTelemetry(ctx context.Context, telemetry *otel.Telemetry) {
	if telemetry == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
	}
}
