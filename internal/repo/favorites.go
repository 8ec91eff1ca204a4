package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-excuse-backend/internal/domain"
)

// favoriteConflict targets the (user_id, excuse_id) unique index.
var favoriteConflict = clause.OnConflict{
	Columns:   []clause.Column{{Name: "user_id"}, {Name: "excuse_id"}},
	DoNothing: true,
}

// AddFavorite inserts the marker unless it already exists. It reports
// whether a row was written.
func AddFavorite(ctx context.Context, db *gorm.DB, userID, excuseID int64, now time.Time) (bool, error) {
	f := &domain.Favorite{UserID: userID, ExcuseID: excuseID, CreatedAt: now}
	res := db.WithContext(ctx).Omit("User", "Excuse").Clauses(favoriteConflict).Create(f)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// RemoveFavorite deletes the marker. It reports whether one existed.
func RemoveFavorite(ctx context.Context, db *gorm.DB, userID, excuseID int64) (bool, error) {
	res := db.WithContext(ctx).
		Where("user_id = ? AND excuse_id = ?", userID, excuseID).
		Delete(&domain.Favorite{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// IsFavorite reports whether the marker exists.
func IsFavorite(ctx context.Context, db *gorm.DB, userID, excuseID int64) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Favorite{}).
		Where("user_id = ? AND excuse_id = ?", userID, excuseID).
		Count(&n).Error
	return n > 0, err
}

// ToggleFavorite flips the marker without reading it first: a delete that
// hits a row means the excuse was a favorite; otherwise an insert that
// ignores conflicts makes it one. Call it inside a transaction. Concurrent
// toggles can cancel each other out but never produce a duplicate row or a
// unique-violation error.
func ToggleFavorite(ctx context.Context, tx *gorm.DB, userID, excuseID int64, now time.Time) (bool, error) {
	removed, err := RemoveFavorite(ctx, tx, userID, excuseID)
	if err != nil {
		return false, err
	}
	if removed {
		return false, nil
	}
	if _, err := AddFavorite(ctx, tx, userID, excuseID, now); err != nil {
		return false, err
	}
	// zero rows inserted means a concurrent toggle added it; it is a favorite either way
	return true, nil
}

// ListFavorites returns up to limit favorited excuses of userID, most
// recently favorited first.
func ListFavorites(ctx context.Context, db *gorm.DB, userID int64, limit int) ([]domain.FavoriteExcuse, error) {
	out := []domain.FavoriteExcuse{}
	err := db.WithContext(ctx).
		Table("favorites").
		Select("excuses.*, favorites.created_at AS favorited_at").
		Joins("JOIN excuses ON excuses.id = favorites.excuse_id").
		Where("favorites.user_id = ?", userID).
		Order("favorites.created_at DESC").Order("favorites.id DESC").
		Limit(limit).
		Scan(&out).Error
	return out, err
}

// CountFavorites counts every favorite marker of userID.
func CountFavorites(ctx context.Context, db *gorm.DB, userID int64) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Favorite{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}

// FavoriteIDs returns which of excuseIDs userID has favorited.
func FavoriteIDs(ctx context.Context, db *gorm.DB, userID int64, excuseIDs []int64) (map[int64]bool, error) {
	out := make(map[int64]bool, len(excuseIDs))
	if len(excuseIDs) == 0 {
		return out, nil
	}
	var ids []int64
	err := db.WithContext(ctx).Model(&domain.Favorite{}).
		Where("user_id = ? AND excuse_id IN ?", userID, excuseIDs).
		Pluck("excuse_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}
