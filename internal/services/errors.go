// Package services defines the business logic for situations, generated
// excuses, ratings and favorites. This file centralizes common service-level
// error values so that they can be consistently returned by service methods
// and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import "errors"

var (
	// ErrEmptySituation is returned when a submitted situation is blank after
	// normalization.
	ErrEmptySituation = errors.New("situation is empty")

	// ErrSituationTooLong is returned when a situation exceeds the configured
	// rune limit.
	ErrSituationTooLong = errors.New("situation too long")

	// ErrInvalidRating is returned when a rating is neither +1 nor -1.
	ErrInvalidRating = errors.New("rating must be -1 or 1")

	// ErrExcuseNotFound indicates that the referenced excuse does not exist.
	ErrExcuseNotFound = errors.New("excuse not found")

	// ErrUserNotFound indicates that the referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrForeignKeyViolation means a write referenced a user or excuse row
	// that is not there.
	ErrForeignKeyViolation = errors.New("foreign key violation")

	// ErrPersistenceUnavailable wraps any other storage failure. The
	// underlying cause stays reachable through errors.Is / errors.As.
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
)
