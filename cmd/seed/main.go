package main

import (
	"context"
	"os"

	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/logging"
	itemrepo "storefront/internal/repository/item"
	"storefront/internal/seed"
)

func main() {
	cfg := config.FromEnv()
	logger := logging.New("seed", cfg.LogLevel)

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect db")
	}
	defer pool.Close()

	n, err := seed.Apply(ctx, itemrepo.NewPostgres(pool, logger), logger)
	if err != nil {
		logger.Error().Err(err).Msg("seed apply")
		os.Exit(1)
	}

	logger.Info().Int("skus", n).Msg("seed applied")
}
