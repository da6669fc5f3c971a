// internal/store/sql.go
//
// SQL-backed Persister. Works with SQLite (mattn/go-sqlite3) and
// Postgres (lib/pq); queries are written with ? placeholders and rebound
// per driver.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// SQLPersister stores the leaderboard in the `leaderboard` table.
type SQLPersister struct {
	db     *sql.DB
	driver string
}

// NewSQLPersister wraps db opened with driver.
func NewSQLPersister(db *sql.DB, driver string) *SQLPersister {
	return &SQLPersister{db: db, driver: driver}
}

// Rebind rewrites ? placeholders to $n for Postgres.
func Rebind(driver, q string) string {
	if driver != DriverPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (p *SQLPersister) Load(ctx context.Context) ([]Entry, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT user_id, score FROM leaderboard ORDER BY seq ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.UserID, &e.Score); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Save replaces the table contents with entries inside one transaction.
func (p *SQLPersister) Save(ctx context.Context, entries []Entry) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM leaderboard`); err != nil {
		return fmt.Errorf("clear leaderboard: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, Rebind(p.driver, `INSERT INTO leaderboard (user_id, score, seq) VALUES (?, ?, ?)`))
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.UserID, e.Score, i); err != nil {
			return fmt.Errorf("insert %s: %w", e.UserID, err)
		}
	}
	return tx.Commit()
}
