package domain

import (
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestIdempotency_UniquePerUserScopeKey(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:domain_idem?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Idempotency{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	if !db.Migrator().HasIndex(&Idempotency{}, "ux_idem_user_scope_key") {
		t.Fatalf("unique index ux_idem_user_scope_key missing")
	}

	exp := time.Now().UTC().Add(time.Hour)
	scope := "/api/v1/session/regenerate"
	longKey := strings.Repeat("k", 200)

	rows := []struct {
		rec     Idempotency
		wantErr bool
	}{
		{Idempotency{ID: "a", UserID: 1, Scope: scope, Key: longKey, ExcuseID: 1, Status: 200, ExpiresAt: exp}, false},
		{Idempotency{ID: "b", UserID: 1, Scope: scope, Key: longKey, ExcuseID: 2, Status: 200, ExpiresAt: exp}, true},
		{Idempotency{ID: "c", UserID: 2, Scope: scope, Key: longKey, ExcuseID: 3, Status: 200, ExpiresAt: exp}, false},
		{Idempotency{ID: "d", UserID: 1, Scope: "/api/v1/session/style", Key: longKey, ExcuseID: 4, Status: 200, ExpiresAt: exp}, false},
	}
	for _, row := range rows {
		rec := row.rec
		err := db.Create(&rec).Error
		if (err != nil) != row.wantErr {
			t.Fatalf("insert %s: err=%v wantErr=%v", rec.ID, err, row.wantErr)
		}
	}

	var got Idempotency
	if err := db.Take(&got, "id = ?", "a").Error; err != nil {
		t.Fatalf("readback: %v", err)
	}
	if got.CreatedAt.IsZero() || got.Key != longKey || got.Scope != scope {
		t.Fatalf("unexpected row %+v", got)
	}
	if (Idempotency{}).TableName() != "idempotency" {
		t.Fatalf("TableName = %q", (Idempotency{}).TableName())
	}
}
