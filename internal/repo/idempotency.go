package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-excuse-backend/internal/domain"
)

// ErrDuplicate is returned by CreateIdempotency when the request was
// already recorded.
var ErrDuplicate = errors.New("duplicate")

// IdemKey identifies one client request: the caller, the route it hit and
// the Idempotency-Key it sent.
type IdemKey struct {
	UserID int64
	Scope  string
	Key    string
}

func (k IdemKey) blank() bool {
	return strings.TrimSpace(k.Scope) == "" || strings.TrimSpace(k.Key) == ""
}

// GetIdempotency loads the live record for k, or ErrNotFound when there is
// none or it expired before now.
func GetIdempotency(ctx context.Context, db *gorm.DB, k IdemKey, now time.Time) (*domain.Idempotency, error) {
	if k.blank() {
		return nil, ErrNotFound
	}
	var rec domain.Idempotency
	err := db.WithContext(ctx).
		Where(&domain.Idempotency{UserID: k.UserID, Scope: k.Scope, Key: k.Key}).
		Where("expires_at > ?", now).
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateIdempotency records that k was answered by excuseID, valid for ttl
// from now. A live record for k is left untouched and yields ErrDuplicate;
// an expired one that was not purged yet is overwritten in place.
func CreateIdempotency(ctx context.Context, db *gorm.DB, k IdemKey, excuseID int64, status int, now time.Time, ttl time.Duration) (*domain.Idempotency, error) {
	if k.blank() {
		return nil, errors.New("idempotency: scope and key are required")
	}
	rec := &domain.Idempotency{
		ID:        uuid.NewString(),
		UserID:    k.UserID,
		Scope:     k.Scope,
		Key:       k.Key,
		ExcuseID:  excuseID,
		Status:    status,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "scope"}, {Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"id", "excuse_id", "status", "created_at", "expires_at"}),
			Where: clause.Where{Exprs: []clause.Expression{
				clause.Expr{SQL: "idempotency.expires_at <= ?", Vars: []any{now}},
			}},
		}).
		Create(rec)
	if res.Error != nil {
		if IsUniqueViolation(res.Error) {
			return nil, ErrDuplicate
		}
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrDuplicate
	}
	return rec, nil
}

// PurgeExpiredIdempotency deletes records that expired at or before now and
// reports how many went.
func PurgeExpiredIdempotency(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&domain.Idempotency{})
	return res.RowsAffected, res.Error
}
