package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

var (
	DB *sqlx.DB
)

const (
	maxOpenConns    = 25
	maxIdleConns    = 5
	connMaxLifetime = 30 * time.Minute
)

// Init opens the PostgreSQL pool, retrying while the database comes up, and assigns it to DB.
func Init(ctx context.Context, databaseURL string) error {
	const maxRetries = 10
	const retryInterval = 2 * time.Second
	var err error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		var conn *sqlx.DB
		conn, err = sqlx.ConnectContext(ctx, "postgres", databaseURL)
		if err == nil {
			conn.SetMaxOpenConns(maxOpenConns)
			conn.SetMaxIdleConns(maxIdleConns)
			conn.SetConnMaxLifetime(connMaxLifetime)
			DB = conn
			log.Info().Int("attempt", attempt).Msg("[db] connected")
			return nil
		}

		log.Warn().Err(err).
			Int("attempt", attempt).
			Dur("retry_in", retryInterval).
			Msg("[db] connect failed")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}

	return fmt.Errorf("could not connect to database after %d attempts: %w", maxRetries, err)
}

// RunMigrations applies every *.up.sql in migrationsPath in lexical order, one transaction per file.
// Files must be idempotent; there is no applied-version table.
func RunMigrations(ctx context.Context, conn *sqlx.DB, migrationsPath string) error {
	files, err := filepath.Glob(filepath.Join(migrationsPath, "*.up.sql"))
	if err != nil {
		return fmt.Errorf("failed to glob migrations: %w", err)
	}
	if len(files) == 0 {
		log.Warn().Str("path", migrationsPath).Msg("[db] no migrations found")
		return nil
	}
	sort.Strings(files)

	for _, file := range files {
		if err := applyMigration(ctx, conn, file); err != nil {
			return err
		}
		log.Info().Str("file", filepath.Base(file)).Msg("[db] migration applied")
	}
	return nil
}

func applyMigration(ctx context.Context, conn *sqlx.DB, file string) error {
	raw, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("could not read migration %q: %w", file, err)
	}
	stmt := strings.TrimSpace(string(raw))
	if stmt == "" {
		return nil
	}

	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %q: %w", file, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("error executing migration %q: %w", file, err)
	}
	return tx.Commit()
}
