package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/scoreboard/go/internal/dbconfig"
	"github.com/mcdev12/scoreboard/go/internal/matchstore"
	"github.com/mcdev12/scoreboard/go/internal/matchstore/memory"
	"github.com/mcdev12/scoreboard/go/internal/matchstore/postgres"
	"github.com/mcdev12/scoreboard/go/internal/matchstore/sqlite"
)

func setupStore(ctx context.Context, cfg StoreConfig) (matchstore.Store, error) {
	switch cfg.Driver {
	case driverPostgres:
		dbCfg, err := dbconfig.NewConfigFromEnv()
		if err != nil {
			return nil, err
		}
		store, err := postgres.Open(ctx, dbCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres store at %s: %w", dbCfg.Redacted(), err)
		}
		return store, nil
	case driverSQLite:
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		log.Info().Str("path", cfg.SQLitePath).Msg("opened sqlite match store")
		return store, nil
	default:
		log.Warn().Msg("using in-memory match store, finished matches are lost on restart")
		return memory.New(), nil
	}
}
