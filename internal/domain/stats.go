package domain

import "time"

// UserStats summarizes one user's activity.
type UserStats struct {
	TotalExcuses   int64      `json:"total_excuses"`
	TotalFavorites int64      `json:"total_favorites"`
	FavoriteStyle  *string    `json:"favorite_style,omitempty"`
	MemberSince    *time.Time `json:"member_since,omitempty"`
}

// TopUser is one row of the admin leaderboard.
type TopUser struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username,omitempty"`
	Excuses  int64  `json:"excuses"`
}

// AdminStats is the service-wide summary. Response-time fields are nil when
// no excuse recorded one.
type AdminStats struct {
	TotalUsers      int64     `json:"total_users"`
	TotalExcuses    int64     `json:"total_excuses"`
	TotalFavorites  int64     `json:"total_favorites"`
	AvgResponseTime *float64  `json:"avg_response_time,omitempty"`
	P50ResponseTime *float64  `json:"p50_response_time,omitempty"`
	P95ResponseTime *float64  `json:"p95_response_time,omitempty"`
	PopularStyle    *string   `json:"popular_style,omitempty"`
	TopUsers        []TopUser `json:"top_users"`
}
