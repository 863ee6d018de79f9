package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"basegraph.app/pulse/core/db"
)

type Backend string

const (
	BackendPostgres Backend = "postgres"
	BackendRedis    Backend = "redis"
	BackendSQLite   Backend = "sqlite"
)

type Options struct {
	Backend Backend

	// Postgres
	DB *db.DB

	// Redis
	Redis          *redis.Client
	RedisKeyPrefix string

	// SQLite
	SQLitePath string
}

// Open returns the stores for the configured backend. The caller owns the
// returned Stores and must Close them.
func Open(ctx context.Context, opts Options) (Stores, error) {
	switch opts.Backend {
	case BackendPostgres:
		if opts.DB == nil {
			return nil, fmt.Errorf("postgres backend requires a database")
		}
		return NewPostgres(ctx, opts.DB)
	case BackendRedis:
		if opts.Redis == nil {
			return nil, fmt.Errorf("redis backend requires a client")
		}
		return NewRedis(opts.Redis, opts.RedisKeyPrefix)
	case BackendSQLite:
		if opts.SQLitePath == "" {
			return nil, fmt.Errorf("sqlite backend requires a path")
		}
		return NewSQLite(opts.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}
