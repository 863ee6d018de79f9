package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"basegraph.app/pulse/common/id"
	"basegraph.app/pulse/common/logger"
	"basegraph.app/pulse/common/otel"
	"basegraph.app/pulse/core/config"
	"basegraph.app/pulse/core/db"
	"basegraph.app/pulse/internal/http/middleware"
	httprouter "basegraph.app/pulse/internal/http/router"
	"basegraph.app/pulse/internal/queue"
	"basegraph.app/pulse/internal/service"
	"basegraph.app/pulse/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeServer)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel, cfg.Env)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "pulse server starting", "env", cfg.Env, "store_backend", cfg.Store.Backend)
	if err := id.Init(cfg.NodeID); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
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

	producer := queue.NewRedisProducer(redisClient, cfg.Pipeline.RedisStream, slog.Default())
	deduper := queue.NewRedisDeduper(redisClient, cfg.Store.RedisKeyPrefix, cfg.Pipeline.DedupeTTL)

	services := service.NewServices(
		service.NewEngine(cfg.Engine),
		stores,
		producer,
		deduper,
		time.Now,
		slog.Default(),
	)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, services)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if err := stores.Close(); err != nil {
		slog.WarnContext(shutdownCtx, "state store close error", "error", err)
	}
	// With the redis backend the store already closed the shared client.
	_ = producer.Close()

	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
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

func setupRouter(cfg config.Config, services *service.Services) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	rate, burst := 0.0, 0
	if cfg.HTTP.RateLimitEnabled() {
		rate, burst = cfg.HTTP.IngestRatePerSecond, cfg.HTTP.IngestBurst
	}
	httprouter.SetupRoutes(router, services, httprouter.RouterConfig{
		TraceHeaderName:     cfg.Pipeline.TraceHeaderName,
		IngestRatePerSecond: rate,
		IngestBurst:         burst,
	})

	return router
}

const banner = `
                 __
    ____  __  __/ /_______
   / __ \/ / / / / ___/ _ \
  / /_/ / /_/ / (__  )  __/
 / .___/\__,_/_/____/\___/   server
/_/
`
