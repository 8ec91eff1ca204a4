// Package session holds the per-user conversational state: the last
// submitted situation and, once generated, the style it was rendered in.
//
// Every Put issues a fresh token. A generation captures the token it started
// from and hands it back to SetStyle, which refuses to commit when a newer
// submission has replaced the session in the meantime.
package session

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNoActiveSession means nothing was submitted for the user (or the
	// entry expired).
	ErrNoActiveSession = errors.New("no active session")
	// ErrSuperseded means the session was replaced after the caller read it.
	ErrSuperseded = errors.New("session superseded by a newer submission")
)

// Phase is the user's position in the conversation.
type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhaseAwaitingStyle Phase = "awaiting_style"
	PhaseGenerated     Phase = "generated"
)

// Session is a snapshot; mutating it does not affect the store.
type Session struct {
	UserID    int64     `json:"-"`
	Situation string    `json:"situation"`
	Style     string    `json:"style,omitempty"`
	Phase     Phase     `json:"phase"`
	Token     string    `json:"token"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasStyle reports whether a generation already fixed the style.
func (s Session) HasStyle() bool { return s.Style != "" }

// Store is keyed by user id. Operations on different users never interfere;
// concurrent Puts for the same user resolve as last-write-wins.
type Store interface {
	// Put replaces any existing session with a new one awaiting a style.
	Put(ctx context.Context, userID int64, situation string) (Session, error)
	// Get returns the current session, ok=false when there is none.
	Get(ctx context.Context, userID int64) (Session, bool, error)
	// SetStyle records a completed generation. token must match the
	// session's current token.
	SetStyle(ctx context.Context, userID int64, token, style string) (Session, error)
	// Reopen moves the session back to awaiting a style, keeping the
	// situation and the last style.
	Reopen(ctx context.Context, userID int64) (Session, error)
	// Clear drops the session. Clearing a missing entry is not an error.
	Clear(ctx context.Context, userID int64) error
}
