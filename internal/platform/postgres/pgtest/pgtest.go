// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package pgtest opens a migrated PostgreSQL pool for repository tests.
//
// Tests using it are skipped unless DATABASE_URL points at a disposable database.
package pgtest

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/bcbbs/internal/platform/migration"
	pgstore "github.com/taibuivan/bcbbs/internal/platform/postgres"
)

// EnvDatabaseURL names the variable holding the test database DSN.
const EnvDatabaseURL = "DATABASE_URL"

var (
	migrateOnce sync.Once
	migrateErr  error
)

// Open returns a pool on a database migrated to the latest version.
// The pool is closed when the test finishes.
func Open(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv(EnvDatabaseURL)
	if dsn == "" {
		t.Skipf("%s not set; skipping PostgreSQL integration test", EnvDatabaseURL)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	migrateOnce.Do(func() {
		var root string
		root, migrateErr = moduleRoot()
		if migrateErr == nil {
			migrateErr = migration.RunUp(dsn, filepath.Join(root, "data", "migrations"), logger)
		}
	})
	if migrateErr != nil {
		t.Fatalf("pgtest: migrate: %v", migrateErr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgstore.NewPool(ctx, dsn, logger)
	if err != nil {
		t.Fatalf("pgtest: connect: %v", err)
	}
	t.Cleanup(pool.Close)

	return pool
}

// moduleRoot walks up from the working directory to the directory holding go.mod.
func moduleRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}
