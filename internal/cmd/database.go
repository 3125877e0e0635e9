package main

import (
	"database/sql"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"trivia-party/internal/dbconfig"
)

func setupDatabase() (*sql.DB, error) {
	cfg := dbconfig.NewConfigFromEnv()
	// The API server takes most of the write load; give it a bigger pool
	// than the sidecar binaries unless overridden.
	if getEnvAsInt("DB_MAX_OPEN_CONNS", 0) == 0 {
		cfg.MaxOpenConns = 25
	}

	database, err := cfg.Open()
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Msg("connected to database")
	return database, nil
}
