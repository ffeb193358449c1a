package db

import (
	"context"
	"path/filepath"
	"testing"
)

func TestParseDriver(t *testing.T) {
	cases := map[string]Driver{
		"":         DriverSQLite,
		"SQLite3":  DriverSQLite,
		" pgx ":    DriverPostgres,
		"postgres": DriverPostgres,
	}
	for in, want := range cases {
		got, err := ParseDriver(in)
		if err != nil || got != want {
			t.Fatalf("ParseDriver(%q)=%q,%v want %q", in, got, err, want)
		}
	}
	if _, err := ParseDriver("mysql"); err == nil {
		t.Fatalf("mysql accepted")
	}
}

func TestOpen_SQLiteSchemaIsIdempotent(t *testing.T) {
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "schema.db")

	for i := 0; i < 2; i++ {
		conn, err := Open(ctx, DriverSQLite, dsn)
		if err != nil {
			t.Fatalf("open #%d: %v", i+1, err)
		}
		var n int
		err = conn.GetContext(ctx, &n,
			`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name IN
			 ('users','courses','modules','lessons','questions','quizzes','quiz_attempts','user_progress','event_log')`)
		if err != nil || n != 9 {
			t.Fatalf("tables=%d err=%v", n, err)
		}
		_ = conn.Close()
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), Driver("oracle"), ""); err == nil {
		t.Fatalf("expected error")
	}
}
