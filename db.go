// db.go
//
// Database helpers for the Unscramble bot.
// Responsibilities:
//   - Opening the SQL database (SQLite with WAL + busy timeout, or Postgres).
//   - Applying embedded migrations from assets/sql (idempotent, recorded in _migrations).

package main

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/unscramble-bot/internal/store"
)

// openDB opens the leaderboard database for driver.
//
// For SQLite the parent directory of dsn is created, and the connection gets
// a busy timeout and WAL journaling. Postgres DSNs are passed through.
func openDB(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	if driver == store.DriverSQLite {
		dir := filepath.Dir(dsn)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("mkdir %s: %w", dir, err)
			}
		}
		dsn += "?_busy_timeout=5000&_journal_mode=WAL"
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == store.DriverSQLite {
		// Single writer; avoids SQLITE_BUSY between the flush loop and resets.
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}

// migrate applies *.sql files from fsys in lexical order, skipping any
// already recorded in _migrations. Each file runs in its own transaction.
func migrate(ctx context.Context, db *sql.DB, driver string, fsys fs.FS) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS _migrations (name TEXT PRIMARY KEY)`); err != nil {
		return fmt.Errorf("create _migrations: %w", err)
	}

	files, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(files)

	for _, f := range files {
		var done int
		err := db.QueryRowContext(ctx, store.Rebind(driver, `SELECT 1 FROM _migrations WHERE name=?`), f).Scan(&done)
		if err == nil {
			log.Debug().Str("migration", f).Msg("already applied")
			continue
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("query _migrations: %w", err)
		}

		body, err := fs.ReadFile(fsys, f)
		if err != nil {
			return fmt.Errorf("read %s: %w", f, err)
		}
		if strings.TrimSpace(string(body)) == "" {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, string(body)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s: %w", f, err)
		}
		if _, err := tx.ExecContext(ctx, store.Rebind(driver, `INSERT INTO _migrations(name) VALUES (?)`), f); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", f, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", f, err)
		}
		log.Info().Str("migration", f).Msg("applied")
	}
	return nil
}
