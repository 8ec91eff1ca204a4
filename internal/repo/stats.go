// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides aggregate queries behind the user and
// admin statistics views. Ties are always broken deterministically so that
// repeated queries over unchanged data agree.
package repo

import (
	"context"
	"database/sql"

	"gorm.io/gorm"

	"github.com/tbourn/go-excuse-backend/internal/domain"
)

// TopUsersLimit bounds the admin leaderboard.
const TopUsersLimit = 5

// UserStats returns totals for userID plus the style it used most (ties go
// to the alphabetically first style id) and its registration time.
func UserStats(ctx context.Context, db *gorm.DB, userID int64) (domain.UserStats, error) {
	var st domain.UserStats
	var err error

	if st.TotalExcuses, err = CountExcuses(ctx, db, userID); err != nil {
		return st, err
	}
	if st.TotalFavorites, err = CountFavorites(ctx, db, userID); err != nil {
		return st, err
	}

	if st.TotalExcuses > 0 {
		var row struct {
			Style string
			N     int64
		}
		err = db.WithContext(ctx).Model(&domain.Excuse{}).
			Select("style, COUNT(*) AS n").
			Where("user_id = ?", userID).
			Group("style").
			Order("n DESC").Order("style ASC").
			Limit(1).
			Scan(&row).Error
		if err != nil {
			return st, err
		}
		if row.Style != "" {
			s := row.Style
			st.FavoriteStyle = &s
		}
	}

	u, err := GetUser(ctx, db, userID)
	switch {
	case err == nil:
		t := u.CreatedAt
		st.MemberSince = &t
	case !IsNotFound(err):
		return st, err
	}
	return st, nil
}

// AdminStats returns service-wide totals, the average response time, the
// most used style and the top users by excuse count (user id breaks ties).
// Percentiles are left to the caller; see ResponseTimes.
func AdminStats(ctx context.Context, db *gorm.DB) (domain.AdminStats, error) {
	var st domain.AdminStats
	q := db.WithContext(ctx)

	if err := q.Model(&domain.User{}).Count(&st.TotalUsers).Error; err != nil {
		return st, err
	}
	if err := q.Model(&domain.Excuse{}).Count(&st.TotalExcuses).Error; err != nil {
		return st, err
	}
	if err := q.Model(&domain.Favorite{}).Count(&st.TotalFavorites).Error; err != nil {
		return st, err
	}

	var avg sql.NullFloat64
	if err := q.Model(&domain.Excuse{}).
		Select("AVG(response_time)").
		Where("response_time IS NOT NULL").
		Row().Scan(&avg); err != nil {
		return st, err
	}
	if avg.Valid {
		v := avg.Float64
		st.AvgResponseTime = &v
	}

	var popular struct {
		Style string
		N     int64
	}
	if err := q.Model(&domain.Excuse{}).
		Select("style, COUNT(*) AS n").
		Group("style").
		Order("n DESC").Order("style ASC").
		Limit(1).
		Scan(&popular).Error; err != nil {
		return st, err
	}
	if popular.Style != "" {
		s := popular.Style
		st.PopularStyle = &s
	}

	var rows []struct {
		UserID      int64
		Username    string
		ExcuseCount int64
	}
	if err := q.Table("excuses").
		Select("excuses.user_id, COALESCE(users.username, '') AS username, COUNT(excuses.id) AS excuse_count").
		Joins("LEFT JOIN users ON users.user_id = excuses.user_id").
		Group("excuses.user_id, users.username").
		Order("excuse_count DESC").Order("excuses.user_id ASC").
		Limit(TopUsersLimit).
		Scan(&rows).Error; err != nil {
		return st, err
	}
	st.TopUsers = make([]domain.TopUser, 0, len(rows))
	for _, r := range rows {
		st.TopUsers = append(st.TopUsers, domain.TopUser{UserID: r.UserID, Username: r.Username, Excuses: r.ExcuseCount})
	}
	return st, nil
}

// ResponseTimes returns the most recent recorded response times, at most
// limit of them.
func ResponseTimes(ctx context.Context, db *gorm.DB, limit int) ([]float64, error) {
	out := []float64{}
	err := db.WithContext(ctx).Model(&domain.Excuse{}).
		Where("response_time IS NOT NULL").
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Pluck("response_time", &out).Error
	return out, err
}
