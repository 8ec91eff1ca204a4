package repo

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-excuse-backend/internal/domain"
)

// newRepoDB opens a private in-memory database with foreign keys enforced
// on every pooled connection and the full schema migrated.
func newRepoDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := SQLiteDSN(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		t.Cleanup(func() { _ = sqlDB.Close() })
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, id int64, name string) *domain.User {
	t.Helper()
	u, err := UpsertUser(context.Background(), db, id, name, "", time.Now().UTC())
	if err != nil {
		t.Fatalf("seed user %d: %v", id, err)
	}
	return u
}

func seedExcuse(t *testing.T, db *gorm.DB, userID int64, style string, at time.Time) *domain.Excuse {
	t.Helper()
	e, err := CreateExcuse(context.Background(), db, userID, "situation", style, "text", nil, at)
	if err != nil {
		t.Fatalf("seed excuse: %v", err)
	}
	return e
}

// newBareDB opens an in-memory database without any schema.
func newBareDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:bare_%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}
