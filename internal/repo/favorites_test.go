package repo

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-excuse-backend/internal/domain"
)

func TestAddFavorite_Idempotent(t *testing.T) {
	db := newRepoDB(t)
	seedUser(t, db, 1, "u")
	e := seedExcuse(t, db, 1, "formal", time.Now())
	ctx := context.Background()

	added, err := AddFavorite(ctx, db, 1, e.ID, time.Now())
	if err != nil || !added {
		t.Fatalf("first add: added=%v err=%v", added, err)
	}
	added, err = AddFavorite(ctx, db, 1, e.ID, time.Now())
	if err != nil || added {
		t.Fatalf("second add: added=%v err=%v; want false,nil", added, err)
	}
	if n, _ := CountFavorites(ctx, db, 1); n != 1 {
		t.Fatalf("favorites = %d; want 1", n)
	}
}

func TestAddRemoveIsFavorite(t *testing.T) {
	db := newRepoDB(t)
	seedUser(t, db, 1, "u")
	e := seedExcuse(t, db, 1, "formal", time.Now())
	ctx := context.Background()

	if removed, err := RemoveFavorite(ctx, db, 1, e.ID); err != nil || removed {
		t.Fatalf("remove missing: removed=%v err=%v", removed, err)
	}
	if _, err := AddFavorite(ctx, db, 1, e.ID, time.Now()); err != nil {
		t.Fatalf("add: %v", err)
	}
	if fav, _ := IsFavorite(ctx, db, 1, e.ID); !fav {
		t.Fatalf("expected favorite after add")
	}
	if removed, err := RemoveFavorite(ctx, db, 1, e.ID); err != nil || !removed {
		t.Fatalf("remove: removed=%v err=%v", removed, err)
	}
	if fav, _ := IsFavorite(ctx, db, 1, e.ID); fav {
		t.Fatalf("expected not favorite after remove")
	}
}

func TestAddFavorite_UnknownExcuseIsFKViolation(t *testing.T) {
	db := newRepoDB(t)
	seedUser(t, db, 1, "u")
	_, err := AddFavorite(context.Background(), db, 1, 777, time.Now())
	if !IsForeignKeyViolation(err) {
		t.Fatalf("expected FK violation, got %v", err)
	}
}

func TestToggleFavorite_Flips(t *testing.T) {
	db := newRepoDB(t)
	seedUser(t, db, 1, "u")
	e := seedExcuse(t, db, 1, "formal", time.Now())
	ctx := context.Background()

	toggle := func() bool {
		var state bool
		err := db.Transaction(func(tx *gorm.DB) error {
			var err error
			state, err = ToggleFavorite(ctx, tx, 1, e.ID, time.Now())
			return err
		})
		if err != nil {
			t.Fatalf("toggle: %v", err)
		}
		return state
	}

	if !toggle() {
		t.Fatalf("first toggle should favorite")
	}
	if toggle() {
		t.Fatalf("second toggle should unfavorite")
	}
	if !toggle() {
		t.Fatalf("third toggle should favorite again")
	}
}

func TestToggleFavorite_ConcurrentNeverDuplicates(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "fav.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		t.Cleanup(func() { _ = sqlDB.Close() })
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	seedUser(t, db, 1, "u")
	e := seedExcuse(t, db, 1, "formal", time.Now())
	ctx := context.Background()

	for round := 0; round < 10; round++ {
		var wg sync.WaitGroup
		errs := make(chan error, 2)
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
					_, err := ToggleFavorite(ctx, tx, 1, e.ID, time.Now())
					return err
				})
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			if err != nil {
				t.Fatalf("round %d: toggle error surfaced: %v", round, err)
			}
		}
		var n int64
		db.Model(&domain.Favorite{}).Where("user_id = ? AND excuse_id = ?", 1, e.ID).Count(&n)
		if n > 1 {
			t.Fatalf("round %d: %d favorite rows; want at most 1", round, n)
		}
	}
}

func TestListFavorites_OrderedByFavoriteTime(t *testing.T) {
	db := newRepoDB(t)
	seedUser(t, db, 1, "u")
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	old := seedExcuse(t, db, 1, "formal", base)
	newer := seedExcuse(t, db, 1, "monk", base.Add(time.Hour))

	// favorite the older excuse last so it must come first
	if _, err := AddFavorite(ctx, db, 1, newer.ID, base.Add(2*time.Hour)); err != nil {
		t.Fatalf("add newer: %v", err)
	}
	if _, err := AddFavorite(ctx, db, 1, old.ID, base.Add(3*time.Hour)); err != nil {
		t.Fatalf("add old: %v", err)
	}

	got, err := ListFavorites(ctx, db, 1, 50)
	if err != nil {
		t.Fatalf("ListFavorites: %v", err)
	}
	if len(got) != 2 || got[0].ID != old.ID || got[1].ID != newer.ID {
		t.Fatalf("unexpected order: %+v", got)
	}
	if got[0].Style != "formal" || got[0].GeneratedText != "text" {
		t.Fatalf("excuse columns not populated: %+v", got[0])
	}
	if !got[0].FavoritedAt.Equal(base.Add(3 * time.Hour)) {
		t.Fatalf("favorited_at = %v", got[0].FavoritedAt)
	}

	limited, _ := ListFavorites(ctx, db, 1, 1)
	if len(limited) != 1 {
		t.Fatalf("limit not applied: %d", len(limited))
	}

	ids, err := FavoriteIDs(ctx, db, 1, []int64{old.ID, newer.ID, 999})
	if err != nil || !ids[old.ID] || !ids[newer.ID] || ids[999] {
		t.Fatalf("FavoriteIDs = %v, %v", ids, err)
	}
}
