package commands

import (
	"fmt"
	"os"

	"refnet/internal/config"
	"refnet/internal/persistence"
)

// getDatabase loads config and connects to Postgres, falling back to
// DATABASE_URL when no connection string is configured.
func getDatabase() (persistence.Database, error) {
	if _, err := config.Load(cfgFile); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg := config.Get()
	dbConnStr := cfg.Database.ConnectionString
	if dbConnStr == "" {
		dbConnStr = os.Getenv("DATABASE_URL")
		if dbConnStr == "" {
			return nil, fmt.Errorf("database connection string not configured (set database.connection_string in config or DATABASE_URL env var)")
		}
	}

	db, err := persistence.NewPostgresDB(dbConnStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}
