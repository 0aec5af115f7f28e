package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"budget-integrity-ledger/config"
	pgStorage "budget-integrity-ledger/internal/adapter/storage/postgres"
	redisStorage "budget-integrity-ledger/internal/adapter/storage/redis"
	"budget-integrity-ledger/internal/app"
	"budget-integrity-ledger/internal/core/ports"
	"budget-integrity-ledger/pkg/logger"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to config file (default: ./config.yaml or ./config/config.yaml)")
	actor := pflag.String("actor", "integrity-audit", "actor recorded in the audit trail")
	pflag.Parse()

	os.Exit(run(*configPath, *actor))
}

func run(configPath, actor string) int {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 2
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		return 2
	}

	log := logger.New("integrity-audit", cfg.Log.Level, cfg.Log.Pretty)
	log.Info().
		Str("algorithm", cfg.Ledger.IntegrityAlgorithm).
		Int("batch_size", cfg.Audit.SweepBatchSize).
		Msg("Starting integrity audit")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Error().Err(err).Msg("Failed to connect to PostgreSQL")
		return 2
	}
	defer pool.Close()

	if cfg.Database.EnsureSchema {
		if err := pgStorage.EnsureSchema(ctx, pool); err != nil {
			log.Error().Err(err).Msg("Failed to apply schema")
			return 2
		}
	}

	var rdb *goredis.Client
	if cfg.Redis.Enabled {
		rdb, err = redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			log.Error().Err(err).Msg("Failed to connect to Redis")
			return 2
		}
		defer rdb.Close()
	}

	ledger, err := app.New(cfg, pool, rdb, log)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize ledger services")
		return 2
	}
	if !healthy(ctx, ledger.HealthCheckers, log) {
		return 2
	}

	started := time.Now()
	report, err := ledger.Sweeper.Sweep(ctx, actor)
	if err != nil {
		log.Error().Err(err).Int("checked", report.Checked).Msg("Integrity sweep aborted")
		return 2
	}

	log.Info().
		Int("checked", report.Checked).
		Int("violations", len(report.Violations)).
		Int("errors", report.Errors).
		Dur("elapsed", time.Since(started)).
		Msg("Integrity audit complete")

	if len(report.Violations) > 0 {
		for _, id := range report.Violations {
			fmt.Fprintf(os.Stdout, "VIOLATION %s\n", id)
		}
		return 1
	}
	return 0
}

func healthy(ctx context.Context, checkers []ports.HealthChecker, log zerolog.Logger) bool {
	ok := true
	for _, c := range checkers {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := c.Ping(pingCtx)
		cancel()
		if err != nil {
			log.Error().Err(err).Str("dependency", c.Name()).Msg("Health check failed")
			ok = false
		}
	}
	return ok
}
