// Package migrate applies ordered SQL files from a directory and records them in
// schema_migrations.
package migrate

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

const (
	DefaultMigrationsDir = "db/migrations"
	DefaultSeedsDir      = "db/seeds"
)

const createTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		id BIGSERIAL PRIMARY KEY,
		filename TEXT NOT NULL UNIQUE,
		checksum TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`

// ErrChecksumMismatch is returned when an applied file has changed on disk
var ErrChecksumMismatch = errors.New("migration changed after it was applied")

// Up applies every .sql file in dir not yet recorded, in lexical order. Each file runs
// in its own transaction together with its bookkeeping row. It returns the files applied.
func Up(ctx context.Context, db *sql.DB, dir string, logger *zap.Logger) ([]string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := db.ExecContext(ctx, createTable); err != nil {
		return nil, fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	files, err := sqlFiles(dir)
	if err != nil {
		return nil, err
	}

	var applied []string
	for _, name := range files {
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return applied, fmt.Errorf("failed to read migration file %s: %w", name, err)
		}
		sum := Checksum(content)

		var recorded string
		err = db.QueryRowContext(ctx, "SELECT checksum FROM schema_migrations WHERE filename = $1", name).Scan(&recorded)
		switch {
		case err == nil:
			if recorded != sum {
				return applied, fmt.Errorf("%s: %w", name, ErrChecksumMismatch)
			}
			logger.Debug("migration already applied", zap.String("file", name))
			continue
		case !errors.Is(err, sql.ErrNoRows):
			return applied, fmt.Errorf("failed to check migration status: %w", err)
		}

		if err := apply(ctx, db, name, string(content), sum); err != nil {
			return applied, err
		}
		logger.Info("applied migration", zap.String("file", name))
		applied = append(applied, name)
	}
	return applied, nil
}

func apply(ctx context.Context, db *sql.DB, name, content, sum string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration %s: %w", name, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, content); err != nil {
		return fmt.Errorf("failed to apply migration %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (filename, checksum) VALUES ($1, $2)", name, sum); err != nil {
		return fmt.Errorf("failed to record migration %s: %w", name, err)
	}
	return tx.Commit()
}

// Seed executes every .sql file in dir in lexical order without recording them.
// A missing directory is not an error.
func Seed(ctx context.Context, db *sql.DB, dir string) error {
	files, err := sqlFiles(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, name := range files {
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("failed to read seed file %s: %w", name, err)
		}
		if _, err := db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("failed to apply seed %s: %w", name, err)
		}
	}
	return nil
}

// Checksum is the hex sha256 of a migration file
func Checksum(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func sqlFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}
