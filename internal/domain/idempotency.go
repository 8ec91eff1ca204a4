package domain

import "time"

// Idempotency records the excuse produced for a previously processed
// request, keyed by (user_id, scope, key). A retried POST carrying the same
// Idempotency-Key receives the recorded excuse instead of triggering another
// generation.
//
// Scope is the route pattern the key was sent to, so a key reused across
// endpoints does not collide.
type Idempotency struct {
	ID        string    `gorm:"type:varchar(36);not null;primaryKey"`
	UserID    int64     `gorm:"not null;uniqueIndex:ux_idem_user_scope_key,priority:1"`
	Scope     string    `gorm:"type:varchar(128);not null;uniqueIndex:ux_idem_user_scope_key,priority:2"`
	Key       string    `gorm:"type:varchar(200);not null;uniqueIndex:ux_idem_user_scope_key,priority:3"`
	ExcuseID  int64     `gorm:"not null"`
	Status    int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
