package main

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/robalobadob/unscramble-bot/assets"
	"github.com/robalobadob/unscramble-bot/internal/store"
)

func TestMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := openDB(ctx, store.DriverSQLite, filepath.Join(t.TempDir(), "nested", "lb.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	for i := 0; i < 2; i++ {
		if err := migrate(ctx, db, store.DriverSQLite, assets.Migrations()); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM _migrations`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("recorded migrations = %d, want 1", n)
	}

	p := store.NewSQLPersister(db, store.DriverSQLite)
	if err := p.Save(ctx, []store.Entry{{UserID: "u1", Score: 10}}); err != nil {
		t.Fatal(err)
	}
}

func TestMigrateRollsBackBrokenFile(t *testing.T) {
	ctx := context.Background()
	db, err := openDB(ctx, store.DriverSQLite, filepath.Join(t.TempDir(), "lb.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	fsys := fstest.MapFS{"001_bad.sql": {Data: []byte("CREATE TABLE nope (")}}
	if err := migrate(ctx, db, store.DriverSQLite, fsys); err == nil {
		t.Fatal("expected error for broken migration")
	}
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM _migrations`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("broken migration recorded")
	}
}
