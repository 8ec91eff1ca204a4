package repo

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tbourn/go-excuse-backend/internal/config"
	"github.com/tbourn/go-excuse-backend/internal/domain"
)

func TestOpenSQLite_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nowhere", "excuses.db")
	db, err := OpenSQLite(path)
	if db != nil || !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("OpenSQLite(%q) = %v, %v; want ErrNotExist", path, db, err)
	}
}

func TestOpen_SQLiteConnectionSettings(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, config.DBConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "excuses.db")})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB(): %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	if got := sqlDB.Stats().MaxOpenConnections; got != 10 {
		t.Fatalf("MaxOpenConnections = %d; want 10", got)
	}

	// Pin several connections so the pragmas are checked on more than one.
	for i := 0; i < 3; i++ {
		conn, err := sqlDB.Conn(ctx)
		if err != nil {
			t.Fatalf("conn %d: %v", i, err)
		}
		defer conn.Close()

		pragmas := map[string]string{
			"journal_mode": "wal",
			"synchronous":  "1",
			"foreign_keys": "1",
			"busy_timeout": "5000",
		}
		for name, want := range pragmas {
			var got string
			if err := conn.QueryRowContext(ctx, "PRAGMA "+name).Scan(&got); err != nil {
				t.Fatalf("conn %d PRAGMA %s: %v", i, name, err)
			}
			if strings.ToLower(got) != want {
				t.Fatalf("conn %d PRAGMA %s = %q; want %q", i, name, got, want)
			}
		}
	}

	for _, m := range domain.Models() {
		if !db.Migrator().HasTable(m) {
			t.Fatalf("table for %T missing after Open", m)
		}
	}
}

func TestOpen_ForeignKeysEnforced(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := UpsertUser(ctx, db, 1, "ann", "", now); err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}
	if _, err := CreateExcuse(ctx, db, 1, "late", "formal", "sorry", nil, now); err != nil {
		t.Fatalf("CreateExcuse: %v", err)
	}
	if _, err := CreateExcuse(ctx, db, 404, "x", "formal", "y", nil, now); !IsForeignKeyViolation(err) {
		t.Fatalf("excuse for unknown user: got %v, want FK violation", err)
	}
}

func TestSQLiteDSN(t *testing.T) {
	cases := []struct {
		in, prefix string
	}{
		{"excuses.db", "excuses.db?_pragma="},
		{"file:x?mode=memory", "file:x?mode=memory&_pragma="},
	}
	for _, tc := range cases {
		got := SQLiteDSN(tc.in)
		if !strings.HasPrefix(got, tc.prefix) {
			t.Fatalf("SQLiteDSN(%q) = %q; want prefix %q", tc.in, got, tc.prefix)
		}
		if strings.Count(got, "_pragma=") != len(sqlitePragmas) {
			t.Fatalf("SQLiteDSN(%q) = %q; want %d pragmas", tc.in, got, len(sqlitePragmas))
		}
	}
}
