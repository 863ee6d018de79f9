package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"basegraph.app/pulse/common/logger"
	"basegraph.app/pulse/core/config"
	"basegraph.app/pulse/internal/store"
)

var dbFlag = &cli.StringFlag{
	Name:    "db",
	Usage:   "SQLite state file `PATH`",
	EnvVars: []string{"SQLITE_PATH"},
	Value:   "pulse.db",
}

// env bundles what every subcommand needs: engine config, a stderr logger and
// the SQLite stores named by --db.
type env struct {
	cfg    config.Config
	stores store.Stores
	logger *slog.Logger
}

func openEnv(c *cli.Context) (*env, error) {
	cfg, err := config.Load(config.ServiceTypeCLI)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	level := slog.LevelWarn
	if c.Bool("verbose") {
		level = slog.LevelDebug
	}
	log := slog.New(logger.NewTraceHandler(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	stores, err := store.Open(c.Context, store.Options{
		Backend:    store.BackendSQLite,
		SQLitePath: c.String("db"),
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", c.String("db"), err)
	}

	return &env{cfg: cfg, stores: stores, logger: log}, nil
}

func (e *env) Close() error {
	return e.stores.Close()
}
