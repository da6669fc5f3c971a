package store

import (
	"context"
	"database/sql"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/robalobadob/unscramble-bot/assets"
)

func TestFilePersisterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "leaderboard.json")
	p := NewFilePersister(path)
	ctx := context.Background()

	got, err := p.Load(ctx)
	if err != nil || len(got) != 0 {
		t.Fatalf("Load on missing file = %v, %v", got, err)
	}

	in := []Entry{{"300", 5}, {"100", 85}, {`we"ird`, 0}, {"200", 40}}
	if err := p.Save(ctx, in); err != nil {
		t.Fatal(err)
	}
	out, err := p.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != len(in) {
		t.Fatalf("len = %d, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("entry %d = %+v, want %+v", i, out[i], in[i])
		}
	}
}

func TestFilePersisterRejectsBadDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leaderboard.json")
	for name, body := range map[string]string{
		"array":    `[1,2]`,
		"negative": `{"a": -3}`,
		"string":   `{"a": "ten"}`,
	} {
		t.Run(name, func(t *testing.T) {
			if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := NewFilePersister(path).Load(context.Background()); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestStoreThroughFilePersister(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leaderboard.json")
	ctx := context.Background()

	s, err := Open(ctx, NewFilePersister(path))
	if err != nil {
		t.Fatal(err)
	}
	s.Add("b", 10)
	s.Add("a", 10)
	if err := s.Flush(ctx); err != nil {
		t.Fatal(err)
	}

	again, err := Open(ctx, NewFilePersister(path))
	if err != nil {
		t.Fatal(err)
	}
	lb := again.Leaderboard(0)
	if len(lb) != 2 || lb[0].UserID != "b" || lb[1].UserID != "a" {
		t.Fatalf("reloaded leaderboard = %+v", lb)
	}
}

func TestSQLPersisterSQLite(t *testing.T) {
	db, err := sql.Open(DriverSQLite, filepath.Join(t.TempDir(), "scores.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	ddl, err := fs.ReadFile(assets.Migrations(), "001_leaderboard.sql")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(string(ddl)); err != nil {
		t.Fatal(err)
	}

	p := NewSQLPersister(db, DriverSQLite)
	ctx := context.Background()
	in := []Entry{{"z", 70}, {"a", 100}, {"m", 0}}
	if err := p.Save(ctx, in); err != nil {
		t.Fatal(err)
	}
	if err := p.Save(ctx, in[:2]); err != nil {
		t.Fatal(err)
	}
	out, err := p.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || out[0] != in[0] || out[1] != in[1] {
		t.Fatalf("Load = %+v", out)
	}
}

func TestRebind(t *testing.T) {
	q := `INSERT INTO t (a, b) VALUES (?, ?)`
	if got := Rebind(DriverSQLite, q); got != q {
		t.Errorf("sqlite rebind changed query: %s", got)
	}
	if got := Rebind(DriverPostgres, q); got != `INSERT INTO t (a, b) VALUES ($1, $2)` {
		t.Errorf("postgres rebind = %s", got)
	}
}
