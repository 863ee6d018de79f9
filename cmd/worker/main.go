package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"basegraph.app/pulse/common/id"
	"basegraph.app/pulse/common/logger"
	"basegraph.app/pulse/common/otel"
	"basegraph.app/pulse/core/config"
	"basegraph.app/pulse/core/db"
	"basegraph.app/pulse/internal/queue"
	"basegraph.app/pulse/internal/service"
	"basegraph.app/pulse/internal/store"
	"basegraph.app/pulse/internal/worker"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeWorker)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	fmt.Printf("%s\n", banner)

	telemetry, err := otel.Setup(ctx, cfg.OTel, cfg.Env)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}
	logger.Setup(cfg)

	if cfg.Pipeline.RedisConsumer == "" {
		cfg.Pipeline.RedisConsumer = "pulse-worker-" + uuid.NewString()
	}

	slog.InfoContext(ctx, "pulse worker starting",
		"env", cfg.Env,
		"consumer_group", cfg.Pipeline.RedisGroup,
		"consumer_name", cfg.Pipeline.RedisConsumer,
		"store_backend", cfg.Store.Backend)

	if err := id.Init(cfg.NodeID); err != nil {
		slog.ErrorContext(ctx, "failed to initialize id generator", "error", err)
		os.Exit(1)
	}

	redisOpts, err := redis.ParseURL(cfg.Pipeline.RedisURL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Pipeline.RedisStream)

	stores, err := openStores(ctx, cfg, redisClient)
	if err != nil {
		slog.ErrorContext(ctx, "failed to open state store", "error", err)
		os.Exit(1)
	}

	consumer, err := queue.NewRedisConsumer(redisClient, queue.ConsumerConfig{
		Stream:       cfg.Pipeline.RedisStream,
		Group:        cfg.Pipeline.RedisGroup,
		Consumer:     cfg.Pipeline.RedisConsumer,
		DLQStream:    cfg.Pipeline.RedisDLQStream,
		BatchSize:    16,
		Block:        5 * time.Second,
		MaxAttempts:  cfg.Pipeline.MaxAttempts,
		RequeueDelay: time.Second,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create consumer", "error", err)
		os.Exit(1)
	}

	conversations := service.NewConversationService(service.NewEngine(cfg.Engine), stores, time.Now, slog.Default())

	processor := worker.NewProcessor(conversations)
	w := worker.New(consumer, processor, worker.Config{
		MaxAttempts: cfg.Pipeline.MaxAttempts,
	})

	reclaimer := worker.NewReclaimer(consumer, w, worker.ReclaimerConfig{
		Consumer:  cfg.Pipeline.RedisConsumer + "-reclaimer",
		MinIdle:   5 * time.Minute,
		Interval:  time.Minute,
		BatchSize: 10,
	})

	sweeper := worker.NewSweeper(conversations, cfg.Pipeline.SweepInterval)

	errCh := make(chan error, 1)
	go func() {
		errCh <- w.Run(ctx)
	}()
	go reclaimer.Run(ctx)
	go sweeper.Run(ctx)

	slog.InfoContext(ctx, "worker initialized and running", "sweep_interval", cfg.Pipeline.SweepInterval)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down worker...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// Reclaimer and sweeper first; the worker may be mid-batch.
	reclaimer.Stop()
	sweeper.Stop()
	w.Stop()

	select {
	case <-shutdownCtx.Done():
		slog.WarnContext(ctx, "shutdown timeout exceeded")
	case err := <-errCh:
		if err != nil {
			slog.ErrorContext(ctx, "worker error during shutdown", "error", err)
		}
	}

	if err := stores.Close(); err != nil {
		slog.WarnContext(ctx, "state store close error", "error", err)
	}
	_ = redisClient.Close()

	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(ctx, "otel shutdown error", "error", err)
	}

	slog.InfoContext(ctx, "worker shutdown complete")
}

func openStores(ctx context.Context, cfg config.Config, redisClient *redis.Client) (store.Stores, error) {
	opts := store.Options{
		Backend:        store.Backend(cfg.Store.Backend),
		Redis:          redisClient,
		RedisKeyPrefix: cfg.Store.RedisKeyPrefix,
		SQLitePath:     cfg.Store.SQLitePath,
	}
	if opts.Backend == store.BackendPostgres {
		database, err := db.New(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		slog.InfoContext(ctx, "database connected")
		opts.DB = database
	}
	return store.Open(ctx, opts)
}

const banner = `
                 __
    ____  __  __/ /_______
   / __ \/ / / / / ___/ _ \
  / /_/ / /_/ / (__  )  __/
 / .___/\__,_/_/____/\___/   worker
/_/
`
