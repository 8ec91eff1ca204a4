package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-excuse-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// UpsertUser inserts the user or, when it exists, touches last_active and
// refreshes the non-empty name fields. The stored row is returned.
func UpsertUser(ctx context.Context, db *gorm.DB, id int64, username, firstName string, now time.Time) (*domain.User, error) {
	u := &domain.User{
		ID:         id,
		Username:   username,
		FirstName:  firstName,
		CreatedAt:  now,
		LastActive: now,
	}
	set := map[string]any{"last_active": now}
	if username != "" {
		set["username"] = username
	}
	if firstName != "" {
		set["first_name"] = firstName
	}
	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(set),
	}).Create(u).Error
	if err != nil {
		return nil, err
	}
	return GetUser(ctx, db, id)
}

// GetUser fetches a user by id, or ErrNotFound.
func GetUser(ctx context.Context, db *gorm.DB, id int64) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).First(&u, "user_id = ?", id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateUserSettings changes the preferences that are non-nil. It returns
// ErrNotFound when the user does not exist.
func UpdateUserSettings(ctx context.Context, db *gorm.DB, id int64, defaultStyle *string, isPremium *bool) error {
	set := map[string]any{}
	if defaultStyle != nil {
		if *defaultStyle == "" {
			set["default_style"] = nil
		} else {
			set["default_style"] = *defaultStyle
		}
	}
	if isPremium != nil {
		set["is_premium"] = *isPremium
	}
	if len(set) == 0 {
		_, err := GetUser(ctx, db, id)
		return err
	}
	res := db.WithContext(ctx).Model(&domain.User{}).Where("user_id = ?", id).Updates(set)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// IsNotFound reports whether err means the row is missing.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
