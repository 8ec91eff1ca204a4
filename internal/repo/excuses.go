// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Excuse
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions. They follow the "thin repository"
// approach: no business rules, only persistence and query composition.
//
// Error semantics:
//   - A missing excuse is reported as ErrNotFound by GetExcuse; SetRating
//     reports it through its boolean result instead.
//   - Constraint failures (unknown user, invalid rating) are returned as raw
//     DB errors; IsForeignKeyViolation helps the service layer classify them.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-excuse-backend/internal/domain"
)

// CreateExcuse inserts a generated excuse and returns it with its new id.
func CreateExcuse(ctx context.Context, db *gorm.DB, userID int64, situation, style, text string, responseTime *float64, now time.Time) (*domain.Excuse, error) {
	e := &domain.Excuse{
		UserID:          userID,
		OriginalMessage: situation,
		Style:           style,
		GeneratedText:   text,
		CreatedAt:       now,
		ResponseTime:    responseTime,
	}
	if err := db.WithContext(ctx).Omit("User").Create(e).Error; err != nil {
		return nil, err
	}
	return e, nil
}

// GetExcuse fetches an excuse by id, or ErrNotFound.
func GetExcuse(ctx context.Context, db *gorm.DB, id int64) (*domain.Excuse, error) {
	var e domain.Excuse
	if err := db.WithContext(ctx).First(&e, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

// ListHistory returns up to limit excuses for userID, newest first. Rows
// created in the same instant are ordered by id so the result is stable.
func ListHistory(ctx context.Context, db *gorm.DB, userID int64, limit int) ([]domain.Excuse, error) {
	out := []domain.Excuse{}
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountExcuses counts every excuse stored for userID.
func CountExcuses(ctx context.Context, db *gorm.DB, userID int64) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Excuse{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}

// SetRating overwrites the rating slot. It reports false when no excuse has
// that id.
func SetRating(ctx context.Context, db *gorm.DB, id int64, rating int) (bool, error) {
	res := db.WithContext(ctx).Model(&domain.Excuse{}).Where("id = ?", id).Update("rating", rating)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// IsForeignKeyViolation reports whether err came from a missing parent row.
// glebarez/sqlite often returns plain-text errors, so the message is checked
// as well as the translated gorm error.
func IsForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "foreign key constraint failed") ||
		strings.Contains(low, "violates foreign key constraint")
}

// IsUniqueViolation reports whether err came from a unique index.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "duplicate key value")
}
