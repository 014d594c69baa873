package main

import (
	"context"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meikuraledutech/stormdag"
	"github.com/meikuraledutech/stormdag/internal/logging"
	"github.com/meikuraledutech/stormdag/memory"
	"github.com/meikuraledutech/stormdag/postgres"
)

func main() {
	ctx := context.Background()
	log := logging.NewFromEnv()

	cfg := stormdag.DefaultConfig()
	if path := os.Getenv("STORMDAG_CONFIG"); path != "" {
		var err error
		if cfg, err = stormdag.LoadConfig(path); err != nil {
			log.Error(ctx, "load config", logging.Err(err))
			os.Exit(1)
		}
	}

	// Wire up postgres behind the Store interface, or memory without a database.
	var store stormdag.Store = memory.New()
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pool, err := pgxpool.New(ctx, dbURL)
		if err != nil {
			log.Error(ctx, "connect", logging.Err(err))
			os.Exit(1)
		}
		defer pool.Close()
		store = postgres.New(pool)
	} else {
		log.Warn(ctx, "DATABASE_URL is not set, using in-memory store")
	}

	if err := store.CreateSchema(ctx); err != nil {
		log.Error(ctx, "schema", logging.Err(err))
		os.Exit(1)
	}

	metrics, err := newSolveMetrics(nil)
	if err != nil {
		log.Error(ctx, "metrics", logging.Err(err))
		os.Exit(1)
	}

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":3000"
	}
	app := newApp(store, cfg, log, metrics)
	log.Info(ctx, "listening", logging.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Error(ctx, "listen", logging.Err(err))
		os.Exit(1)
	}
}
