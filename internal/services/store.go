// Package services – Store
//
// Store is the persistence facade the orchestrator talks to. Every method is
// one transaction over the repo helpers, and every failure comes back as one
// of the package sentinels: ErrForeignKeyViolation for dangling references,
// ErrPersistenceUnavailable for anything else the database reports.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/montanaflynn/stats"
	"gorm.io/gorm"

	"github.com/tbourn/go-excuse-backend/internal/domain"
	"github.com/tbourn/go-excuse-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// defaultPercentileWindow is how many recent response times feed the admin
// percentiles when Store.PercentileWindow is unset.
const defaultPercentileWindow = 1000

// Store wraps a *gorm.DB with transactional, error-mapped operations.
type Store struct {
	DB *gorm.DB

	// PercentileWindow bounds the sample used for response-time percentiles.
	PercentileWindow int

	// Now is injectable for tests; nil means time.Now.
	Now func() time.Time
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// run executes fn inside a single transaction under a span and maps the
// resulting error.
func (s *Store) run(ctx context.Context, op string, attrs []attribute.KeyValue, fn func(tx *gorm.DB) error) error {
	ctx, span := otel.Tracer("services/Store").Start(ctx, op, trace.WithAttributes(attrs...))
	defer span.End()

	err := mapStoreErr(s.DB.WithContext(ctx).Transaction(fn))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func mapStoreErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrInvalidRating),
		errors.Is(err, ErrExcuseNotFound),
		errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrForeignKeyViolation),
		errors.Is(err, ErrPersistenceUnavailable):
		return err
	case repo.IsForeignKeyViolation(err):
		return fmt.Errorf("%w: %w", ErrForeignKeyViolation, err)
	default:
		return fmt.Errorf("%w: %w", ErrPersistenceUnavailable, err)
	}
}

// UpsertUser creates the user or touches last_active. Names overwrite only
// when non-empty.
func (s *Store) UpsertUser(ctx context.Context, id int64, username, firstName string) (*domain.User, error) {
	var u *domain.User
	err := s.run(ctx, "UpsertUser", []attribute.KeyValue{attribute.Int64("user.id", id)}, func(tx *gorm.DB) error {
		var err error
		u, err = repo.UpsertUser(ctx, tx, id, username, firstName, s.now())
		return err
	})
	return u, err
}

// GetUser returns the user or ErrUserNotFound.
func (s *Store) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	var u *domain.User
	err := s.run(ctx, "GetUser", []attribute.KeyValue{attribute.Int64("user.id", id)}, func(tx *gorm.DB) error {
		var err error
		u, err = repo.GetUser(ctx, tx, id)
		if repo.IsNotFound(err) {
			return ErrUserNotFound
		}
		return err
	})
	return u, err
}

// UpdateUserSettings changes the default style and/or premium flag. A nil
// argument leaves the field alone; an empty style clears it.
func (s *Store) UpdateUserSettings(ctx context.Context, id int64, defaultStyle *string, isPremium *bool) error {
	return s.run(ctx, "UpdateUserSettings", []attribute.KeyValue{attribute.Int64("user.id", id)}, func(tx *gorm.DB) error {
		err := repo.UpdateUserSettings(ctx, tx, id, defaultStyle, isPremium)
		if repo.IsNotFound(err) {
			return ErrUserNotFound
		}
		return err
	})
}

// CreateExcuse persists a new excuse row. The user must exist.
func (s *Store) CreateExcuse(ctx context.Context, userID int64, situation, style, text string, responseTime *float64) (*domain.Excuse, error) {
	var e *domain.Excuse
	attrs := []attribute.KeyValue{attribute.Int64("user.id", userID), attribute.String("style", style)}
	err := s.run(ctx, "CreateExcuse", attrs, func(tx *gorm.DB) error {
		var err error
		e, err = repo.CreateExcuse(ctx, tx, userID, situation, style, text, responseTime, s.now())
		return err
	})
	return e, err
}

// GetExcuse returns an excuse by id or ErrExcuseNotFound.
func (s *Store) GetExcuse(ctx context.Context, id int64) (*domain.Excuse, error) {
	var e *domain.Excuse
	err := s.run(ctx, "GetExcuse", []attribute.KeyValue{attribute.Int64("excuse.id", id)}, func(tx *gorm.DB) error {
		var err error
		e, err = repo.GetExcuse(ctx, tx, id)
		if repo.IsNotFound(err) {
			return ErrExcuseNotFound
		}
		return err
	})
	return e, err
}

// History returns the user's newest excuses, at most limit.
func (s *Store) History(ctx context.Context, userID int64, limit int) ([]domain.Excuse, error) {
	var out []domain.Excuse
	attrs := []attribute.KeyValue{attribute.Int64("user.id", userID), attribute.Int("limit", limit)}
	err := s.run(ctx, "History", attrs, func(tx *gorm.DB) error {
		var err error
		out, err = repo.ListHistory(ctx, tx, userID, limit)
		return err
	})
	return out, err
}

// SetRating stores +1 or -1 on an excuse. Unknown ids are ignored.
func (s *Store) SetRating(ctx context.Context, excuseID int64, rating int) error {
	if rating != domain.RatingUp && rating != domain.RatingDown {
		return ErrInvalidRating
	}
	return s.run(ctx, "SetRating", []attribute.KeyValue{attribute.Int64("excuse.id", excuseID)}, func(tx *gorm.DB) error {
		_, err := repo.SetRating(ctx, tx, excuseID, rating)
		return err
	})
}

// AddFavorite reports whether a new favorite row was created.
func (s *Store) AddFavorite(ctx context.Context, userID, excuseID int64) (bool, error) {
	var added bool
	err := s.run(ctx, "AddFavorite", favAttrs(userID, excuseID), func(tx *gorm.DB) error {
		var err error
		added, err = repo.AddFavorite(ctx, tx, userID, excuseID, s.now())
		return err
	})
	return added, err
}

// RemoveFavorite reports whether a favorite row was deleted.
func (s *Store) RemoveFavorite(ctx context.Context, userID, excuseID int64) (bool, error) {
	var removed bool
	err := s.run(ctx, "RemoveFavorite", favAttrs(userID, excuseID), func(tx *gorm.DB) error {
		var err error
		removed, err = repo.RemoveFavorite(ctx, tx, userID, excuseID)
		return err
	})
	return removed, err
}

// IsFavorite reports whether the user has favorited the excuse.
func (s *Store) IsFavorite(ctx context.Context, userID, excuseID int64) (bool, error) {
	var fav bool
	err := s.run(ctx, "IsFavorite", favAttrs(userID, excuseID), func(tx *gorm.DB) error {
		var err error
		fav, err = repo.IsFavorite(ctx, tx, userID, excuseID)
		return err
	})
	return fav, err
}

// ToggleFavorite flips the favorite state and returns the new one. An
// unknown excuse yields ErrExcuseNotFound.
func (s *Store) ToggleFavorite(ctx context.Context, userID, excuseID int64) (bool, error) {
	var state bool
	err := s.run(ctx, "ToggleFavorite", favAttrs(userID, excuseID), func(tx *gorm.DB) error {
		var err error
		state, err = repo.ToggleFavorite(ctx, tx, userID, excuseID, s.now())
		return err
	})
	if errors.Is(err, ErrForeignKeyViolation) {
		if _, gerr := s.GetExcuse(ctx, excuseID); errors.Is(gerr, ErrExcuseNotFound) {
			return false, ErrExcuseNotFound
		}
	}
	return state, err
}

// Favorites returns favorited excuses, most recently favorited first.
func (s *Store) Favorites(ctx context.Context, userID int64, limit int) ([]domain.FavoriteExcuse, error) {
	var out []domain.FavoriteExcuse
	attrs := []attribute.KeyValue{attribute.Int64("user.id", userID), attribute.Int("limit", limit)}
	err := s.run(ctx, "Favorites", attrs, func(tx *gorm.DB) error {
		var err error
		out, err = repo.ListFavorites(ctx, tx, userID, limit)
		return err
	})
	return out, err
}

// UserStats returns per-user totals and the most used style.
func (s *Store) UserStats(ctx context.Context, userID int64) (domain.UserStats, error) {
	var st domain.UserStats
	err := s.run(ctx, "UserStats", []attribute.KeyValue{attribute.Int64("user.id", userID)}, func(tx *gorm.DB) error {
		var err error
		st, err = repo.UserStats(ctx, tx, userID)
		return err
	})
	return st, err
}

// AdminStats returns service-wide totals plus p50/p95 response times
// computed over the most recent PercentileWindow samples.
func (s *Store) AdminStats(ctx context.Context) (domain.AdminStats, error) {
	var st domain.AdminStats
	window := s.PercentileWindow
	if window <= 0 {
		window = defaultPercentileWindow
	}
	err := s.run(ctx, "AdminStats", nil, func(tx *gorm.DB) error {
		var err error
		if st, err = repo.AdminStats(ctx, tx); err != nil {
			return err
		}
		times, err := repo.ResponseTimes(ctx, tx, window)
		if err != nil {
			return err
		}
		st.P50ResponseTime, st.P95ResponseTime = percentiles(times)
		return nil
	})
	return st, err
}

func percentiles(times []float64) (p50, p95 *float64) {
	if len(times) == 0 {
		return nil, nil
	}
	if v, err := stats.Median(times); err == nil {
		p50 = &v
	}
	if v, err := stats.Percentile(times, 95); err == nil {
		p95 = &v
	}
	return p50, p95
}

// LookupIdempotency returns the excuse recorded for (user, scope, key).
func (s *Store) LookupIdempotency(ctx context.Context, userID int64, scope, key string) (int64, bool, error) {
	var excuseID int64
	var found bool
	attrs := []attribute.KeyValue{attribute.Int64("user.id", userID), attribute.String("scope", scope)}
	err := s.run(ctx, "LookupIdempotency", attrs, func(tx *gorm.DB) error {
		rec, err := repo.GetIdempotency(ctx, tx, repo.IdemKey{UserID: userID, Scope: scope, Key: key}, s.now())
		if repo.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		excuseID, found = rec.ExcuseID, true
		return nil
	})
	return excuseID, found, err
}

// RecordIdempotency remembers which excuse answered (user, scope, key). A
// concurrent duplicate is not an error: the first record wins.
func (s *Store) RecordIdempotency(ctx context.Context, userID int64, scope, key string, excuseID int64, status int, ttl time.Duration) error {
	attrs := []attribute.KeyValue{attribute.Int64("user.id", userID), attribute.String("scope", scope)}
	err := s.run(ctx, "RecordIdempotency", attrs, func(tx *gorm.DB) error {
		_, err := repo.CreateIdempotency(ctx, tx, repo.IdemKey{UserID: userID, Scope: scope, Key: key}, excuseID, status, s.now(), ttl)
		return err
	})
	// Checked after rollback: the first record stands.
	if errors.Is(err, repo.ErrDuplicate) {
		return nil
	}
	return err
}

// PurgeIdempotency deletes expired idempotency records.
func (s *Store) PurgeIdempotency(ctx context.Context) (int64, error) {
	var n int64
	err := s.run(ctx, "PurgeIdempotency", nil, func(tx *gorm.DB) error {
		var err error
		n, err = repo.PurgeExpiredIdempotency(ctx, tx, s.now())
		return err
	})
	return n, err
}

func favAttrs(userID, excuseID int64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int64("user.id", userID),
		attribute.Int64("excuse.id", excuseID),
	}
}
