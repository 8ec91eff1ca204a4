// Package domain defines the persistence models for users, generated
// excuses and favorites. These types are mapped with GORM and form the core
// data layer of the excuse backend.
package domain

import "time"

// Rating values accepted for an excuse.
const (
	RatingUp   = 1
	RatingDown = -1
)

// User is a chat participant identified by the numeric id the transport
// supplies. Rows are created on first interaction and never deleted by the
// service itself; removing one cascades to its excuses and favorites.
//
// Fields:
//   - ID: externally supplied identifier (no autoincrement).
//   - Username / FirstName: optional display data, refreshed when provided.
//   - LastActive: touched on every inbound interaction.
//   - DefaultStyle: optional preferred style id.
//   - IsPremium: account flag, informational only.
type User struct {
	ID           int64     `json:"user_id"                 gorm:"column:user_id;primaryKey;autoIncrement:false"`
	Username     string    `json:"username,omitempty"      gorm:"type:varchar(255)"`
	FirstName    string    `json:"first_name,omitempty"    gorm:"type:varchar(255)"`
	CreatedAt    time.Time `json:"created_at"`
	LastActive   time.Time `json:"last_active"             gorm:"not null"`
	DefaultStyle *string   `json:"default_style,omitempty" gorm:"type:varchar(50)"`
	IsPremium    bool      `json:"is_premium"              gorm:"not null;default:false"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Excuse is one generated response. A regeneration inserts a new row, so the
// text of an existing excuse never changes after creation.
//
// Fields:
//   - OriginalMessage: the situation the user submitted.
//   - Style: always a concrete style id, never "random".
//   - Rating: nil until rated, then +1 or -1 (last write wins).
//   - ResponseTime: seconds spent in the generation client.
type Excuse struct {
	ID              int64     `json:"id"                      gorm:"primaryKey;autoIncrement"`
	UserID          int64     `json:"user_id"                 gorm:"not null;index:ix_excuses_user_created,priority:1"`
	OriginalMessage string    `json:"original_message"        gorm:"type:text;not null"`
	Style           string    `json:"style"                   gorm:"type:varchar(50);not null;index:ix_excuses_style"`
	GeneratedText   string    `json:"generated_text"          gorm:"type:text;not null"`
	CreatedAt       time.Time `json:"created_at"              gorm:"index:ix_excuses_user_created,priority:2;index:ix_excuses_created_at"`
	Rating          *int      `json:"rating,omitempty"        gorm:"check:rating IS NULL OR rating IN (-1,1)"`
	ResponseTime    *float64  `json:"response_time,omitempty"`

	// User owns the excuse; deleting the user removes its excuses.
	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Excuse.
func (Excuse) TableName() string { return "excuses" }

// Favorite marks an excuse as saved by a user. The pair (user, excuse) is
// unique at the database level.
type Favorite struct {
	ID        int64     `json:"id"         gorm:"primaryKey;autoIncrement"`
	UserID    int64     `json:"user_id"    gorm:"not null;index:ix_favorites_user;uniqueIndex:ix_favorites_unique,priority:1"`
	ExcuseID  int64     `json:"excuse_id"  gorm:"not null;uniqueIndex:ix_favorites_unique,priority:2"`
	CreatedAt time.Time `json:"created_at"`

	User   User   `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Excuse Excuse `json:"-" gorm:"foreignKey:ExcuseID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Favorite.
func (Favorite) TableName() string { return "favorites" }

// FavoriteExcuse is a favorite joined with the excuse it points at, as
// returned by favorite listings.
type FavoriteExcuse struct {
	Excuse
	FavoritedAt time.Time `json:"favorited_at"`
}

// Models lists every persistent type in migration order.
func Models() []any {
	return []any{&User{}, &Excuse{}, &Favorite{}, &Idempotency{}}
}
