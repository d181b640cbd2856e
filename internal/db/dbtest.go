package db

import (
	"context"
	"errors"
	"os"
)

// InitTestDB connects to TEST_DATABASE_URL and migrates it.
// Integration tests skip themselves when it returns an error.
func InitTestDB(ctx context.Context, migrationsPath string) (Store, error) {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		return nil, errors.New("TEST_DATABASE_URL environment variable is not set")
	}

	if err := Init(ctx, dbURL); err != nil {
		return nil, err
	}

	if err := RunMigrations(ctx, DB, migrationsPath); err != nil {
		return nil, err
	}

	return NewStore(DB), nil
}
