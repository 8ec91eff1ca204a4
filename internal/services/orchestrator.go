// Package services – Orchestrator
//
// This file implements Orchestrator, the component that owns a user's
// conversation: situation → style → generated excuse, followed by rating,
// favoriting, regeneration and style change. It keeps the pending situation
// in a session.Store, drives the generation client, and persists results
// through Store.
//
// A generation captures the session token it started from. If a newer
// situation arrives while the backend is still working, the token no longer
// matches and the result is dropped with session.ErrSuperseded instead of
// being stored under the wrong situation.
//
// Observability: all public methods are OpenTelemetry-instrumented.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/unicode/norm"

	"github.com/tbourn/go-excuse-backend/internal/domain"
	"github.com/tbourn/go-excuse-backend/internal/llm"
	"github.com/tbourn/go-excuse-backend/internal/present"
	"github.com/tbourn/go-excuse-backend/internal/session"
	"github.com/tbourn/go-excuse-backend/internal/styles"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultMaxSituationRunes = 200
	defaultHistoryLimit      = 20
	defaultFavoritesLimit    = 50
)

// Generator produces display-ready text for a prompt and never fails.
// *llm.Client satisfies it.
type Generator interface {
	Generate(ctx context.Context, req llm.Request) llm.Result
}

// Orchestrator coordinates sessions, generation and persistence.
type Orchestrator struct {
	Store    *Store
	Sessions session.Store
	Gen      Generator

	MaxSituationRunes int
	HistoryLimit      int
	FavoritesLimit    int

	// Pick chooses the concrete style behind "random". nil uses styles.Pick.
	Pick func() styles.Style
}

// Result is what every conversational event returns to the transport.
type Result struct {
	DisplayText string      `json:"display_text"`
	Style       string      `json:"style,omitempty"`
	ExcuseID    int64       `json:"excuse_id,omitempty"`
	IsFavorite  bool        `json:"is_favorite"`
	Rating      *int        `json:"rating,omitempty"`
	Outcome     llm.Outcome `json:"outcome,omitempty"`
}

// Pending describes a session waiting for a style choice.
type Pending struct {
	Phase          session.Phase  `json:"phase"`
	Situation      string         `json:"situation"`
	Styles         []styles.Style `json:"styles"`
	SuggestedStyle string         `json:"suggested_style,omitempty"`
}

func tracer() trace.Tracer { return otel.Tracer("services/Orchestrator") }

// NormalizeSituation applies NFC, converts CRLF/CR to LF and trims
// surrounding whitespace.
func NormalizeSituation(s string) string {
	s = norm.NFC.String(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.TrimSpace(s)
}

func (o *Orchestrator) maxRunes() int {
	if o.MaxSituationRunes > 0 {
		return o.MaxSituationRunes
	}
	return defaultMaxSituationRunes
}

// SubmitSituation starts (or restarts) a conversation. Any pending
// situation for the user is replaced and in-flight generations for it
// become stale.
func (o *Orchestrator) SubmitSituation(ctx context.Context, userID int64, username, text string) (Pending, error) {
	ctx, span := tracer().Start(ctx, "SubmitSituation",
		trace.WithAttributes(attribute.Int64("user.id", userID)),
	)
	defer span.End()

	text = NormalizeSituation(text)
	if text == "" {
		return Pending{}, ErrEmptySituation
	}
	if n := utf8.RuneCountInString(text); n > o.maxRunes() {
		return Pending{}, fmt.Errorf("%w: %d characters, at most %d allowed", ErrSituationTooLong, n, o.maxRunes())
	}

	u, err := o.Store.UpsertUser(ctx, userID, username, "")
	if err != nil {
		return Pending{}, err
	}
	sess, err := o.Sessions.Put(ctx, userID, text)
	if err != nil {
		return Pending{}, sessionErr(err)
	}

	p := pending(sess)
	if u.DefaultStyle != nil {
		p.SuggestedStyle = *u.DefaultStyle
	}
	return p, nil
}

// SelectStyle generates an excuse for the pending situation in styleID
// ("random" picks one). The session moves to Generated only after the
// excuse is stored.
func (o *Orchestrator) SelectStyle(ctx context.Context, userID int64, styleID string) (Result, error) {
	ctx, span := tracer().Start(ctx, "SelectStyle",
		trace.WithAttributes(
			attribute.Int64("user.id", userID),
			attribute.String("style.requested", styleID),
		),
	)
	defer span.End()

	st, err := o.resolve(styleID)
	if err != nil {
		return Result{}, err
	}
	sess, err := o.current(ctx, userID)
	if err != nil {
		return Result{}, err
	}
	span.SetAttributes(attribute.String("style", st.ID))
	return o.generate(ctx, userID, sess, st)
}

// Regenerate produces a fresh excuse for the same situation and style. The
// previous excuse is left untouched.
func (o *Orchestrator) Regenerate(ctx context.Context, userID int64) (Result, error) {
	ctx, span := tracer().Start(ctx, "Regenerate",
		trace.WithAttributes(attribute.Int64("user.id", userID)),
	)
	defer span.End()

	sess, err := o.current(ctx, userID)
	if err != nil {
		return Result{}, err
	}
	if !sess.HasStyle() {
		return Result{}, session.ErrNoActiveSession
	}
	st, err := styles.Resolve(sess.Style)
	if err != nil {
		return Result{}, err
	}
	return o.generate(ctx, userID, sess, st)
}

// ChangeStyle reopens the style choice for the pending situation.
func (o *Orchestrator) ChangeStyle(ctx context.Context, userID int64) (Pending, error) {
	ctx, span := tracer().Start(ctx, "ChangeStyle",
		trace.WithAttributes(attribute.Int64("user.id", userID)),
	)
	defer span.End()

	sess, err := o.Sessions.Reopen(ctx, userID)
	if err != nil {
		return Pending{}, sessionErr(err)
	}
	if _, err := o.Store.UpsertUser(ctx, userID, "", ""); err != nil {
		return Pending{}, err
	}
	return pending(sess), nil
}

// Rate records +1/-1 on an excuse. Rating an unknown excuse is a no-op.
func (o *Orchestrator) Rate(ctx context.Context, userID, excuseID int64, value int) (Result, error) {
	ctx, span := tracer().Start(ctx, "Rate",
		trace.WithAttributes(
			attribute.Int64("user.id", userID),
			attribute.Int64("excuse.id", excuseID),
			attribute.Int("rating", value),
		),
	)
	defer span.End()

	if value != domain.RatingUp && value != domain.RatingDown {
		return Result{}, ErrInvalidRating
	}
	if _, err := o.Store.UpsertUser(ctx, userID, "", ""); err != nil {
		return Result{}, err
	}
	if err := o.Store.SetRating(ctx, excuseID, value); err != nil {
		return Result{}, err
	}
	fav, err := o.Store.IsFavorite(ctx, userID, excuseID)
	if err != nil {
		return Result{}, err
	}

	msg := "👍 Thanks for the rating!"
	if value == domain.RatingDown {
		msg = "👎 Thanks, I will try harder next time."
	}
	return Result{DisplayText: msg, ExcuseID: excuseID, IsFavorite: fav, Rating: &value}, nil
}

// ToggleFavorite adds the excuse to favorites, or removes it if present.
func (o *Orchestrator) ToggleFavorite(ctx context.Context, userID, excuseID int64) (Result, error) {
	ctx, span := tracer().Start(ctx, "ToggleFavorite",
		trace.WithAttributes(
			attribute.Int64("user.id", userID),
			attribute.Int64("excuse.id", excuseID),
		),
	)
	defer span.End()

	if _, err := o.Store.UpsertUser(ctx, userID, "", ""); err != nil {
		return Result{}, err
	}
	fav, err := o.Store.ToggleFavorite(ctx, userID, excuseID)
	if err != nil {
		return Result{}, err
	}
	msg := "⭐ Added to favorites"
	if !fav {
		msg = "Removed from favorites"
	}
	return Result{DisplayText: msg, ExcuseID: excuseID, IsFavorite: fav}, nil
}

// Replay rebuilds the Result for an excuse the user already received, for
// example when a client retries a request with the same idempotency key.
func (o *Orchestrator) Replay(ctx context.Context, userID, excuseID int64) (Result, error) {
	ctx, span := tracer().Start(ctx, "Replay",
		trace.WithAttributes(
			attribute.Int64("user.id", userID),
			attribute.Int64("excuse.id", excuseID),
		),
	)
	defer span.End()

	e, err := o.Store.GetExcuse(ctx, excuseID)
	if err != nil {
		return Result{}, err
	}
	if e.UserID != userID {
		return Result{}, ErrExcuseNotFound
	}
	fav, err := o.Store.IsFavorite(ctx, userID, excuseID)
	if err != nil {
		return Result{}, err
	}
	return Result{
		DisplayText: present.Excuse(e.Style, e.GeneratedText),
		Style:       e.Style,
		ExcuseID:    e.ID,
		IsFavorite:  fav,
		Rating:      e.Rating,
	}, nil
}

// History returns the user's most recent excuses. limit <= 0 or above the
// configured cap uses the cap.
func (o *Orchestrator) History(ctx context.Context, userID int64, limit int) ([]domain.Excuse, error) {
	ctx, span := tracer().Start(ctx, "History",
		trace.WithAttributes(attribute.Int64("user.id", userID)),
	)
	defer span.End()
	return o.Store.History(ctx, userID, clampLimit(limit, o.HistoryLimit, defaultHistoryLimit))
}

// Favorites returns the user's favorited excuses, newest favorite first.
func (o *Orchestrator) Favorites(ctx context.Context, userID int64, limit int) ([]domain.FavoriteExcuse, error) {
	ctx, span := tracer().Start(ctx, "Favorites",
		trace.WithAttributes(attribute.Int64("user.id", userID)),
	)
	defer span.End()
	return o.Store.Favorites(ctx, userID, clampLimit(limit, o.FavoritesLimit, defaultFavoritesLimit))
}

// Stats returns per-user statistics.
func (o *Orchestrator) Stats(ctx context.Context, userID int64) (domain.UserStats, error) {
	ctx, span := tracer().Start(ctx, "Stats",
		trace.WithAttributes(attribute.Int64("user.id", userID)),
	)
	defer span.End()
	return o.Store.UserStats(ctx, userID)
}

// AdminStats returns service-wide statistics.
func (o *Orchestrator) AdminStats(ctx context.Context) (domain.AdminStats, error) {
	ctx, span := tracer().Start(ctx, "AdminStats")
	defer span.End()
	return o.Store.AdminStats(ctx)
}

// Styles lists what a user may pick, random included.
func (o *Orchestrator) Styles() []styles.Style { return styles.Selectable() }

// UpdateSettings changes the user's default style and premium flag. The
// default style must be a catalog id (random allowed); "" clears it.
func (o *Orchestrator) UpdateSettings(ctx context.Context, userID int64, defaultStyle *string, isPremium *bool) (*domain.User, error) {
	ctx, span := tracer().Start(ctx, "UpdateSettings",
		trace.WithAttributes(attribute.Int64("user.id", userID)),
	)
	defer span.End()

	if defaultStyle != nil && strings.TrimSpace(*defaultStyle) != "" {
		st, err := styles.Resolve(*defaultStyle)
		if err != nil {
			return nil, err
		}
		id := st.ID
		defaultStyle = &id
	}
	if _, err := o.Store.UpsertUser(ctx, userID, "", ""); err != nil {
		return nil, err
	}
	if err := o.Store.UpdateUserSettings(ctx, userID, defaultStyle, isPremium); err != nil {
		return nil, err
	}
	return o.Store.GetUser(ctx, userID)
}

// generate runs one generation for sess in style st and commits it.
func (o *Orchestrator) generate(ctx context.Context, userID int64, sess session.Session, st styles.Style) (Result, error) {
	prompt, err := st.Prompt(sess.Situation)
	if err != nil {
		return Result{}, err
	}

	res := o.Gen.Generate(ctx, llm.Request{UserID: userID, Style: st.ID, Prompt: prompt})

	// A newer submission may have landed while the backend was busy.
	cur, ok, err := o.Sessions.Get(ctx, userID)
	if err != nil {
		return Result{}, sessionErr(err)
	}
	if !ok {
		return Result{}, session.ErrNoActiveSession
	}
	if cur.Token != sess.Token {
		return Result{}, session.ErrSuperseded
	}

	if _, err := o.Store.UpsertUser(ctx, userID, "", ""); err != nil {
		return Result{}, err
	}
	rt := res.Elapsed.Seconds()
	e, err := o.Store.CreateExcuse(ctx, userID, sess.Situation, st.ID, res.Text, &rt)
	if err != nil {
		return Result{}, err
	}

	if _, err := o.Sessions.SetStyle(ctx, userID, sess.Token, st.ID); err != nil {
		// The excuse is already stored and shown; only the session bookkeeping
		// lost a race with a newer submission.
		log.Debug().Err(err).Int64("user_id", userID).Int64("excuse_id", e.ID).Msg("session moved on after generation")
	}

	return Result{
		DisplayText: present.Excuse(st.ID, res.Text),
		Style:       st.ID,
		ExcuseID:    e.ID,
		Outcome:     res.Outcome,
	}, nil
}

func (o *Orchestrator) resolve(id string) (styles.Style, error) {
	st, err := styles.Resolve(id)
	if err != nil {
		return styles.Style{}, err
	}
	if st.ID != styles.Random {
		return st, nil
	}
	if o.Pick != nil {
		return o.Pick(), nil
	}
	return styles.Pick(nil), nil
}

func (o *Orchestrator) current(ctx context.Context, userID int64) (session.Session, error) {
	sess, ok, err := o.Sessions.Get(ctx, userID)
	if err != nil {
		return session.Session{}, sessionErr(err)
	}
	if !ok {
		return session.Session{}, session.ErrNoActiveSession
	}
	return sess, nil
}

func pending(sess session.Session) Pending {
	return Pending{Phase: sess.Phase, Situation: sess.Situation, Styles: styles.Selectable()}
}

// sessionErr passes the session sentinels through and reports anything else
// (a Redis outage, say) as unavailable storage.
func sessionErr(err error) error {
	if errors.Is(err, session.ErrNoActiveSession) || errors.Is(err, session.ErrSuperseded) {
		return err
	}
	return fmt.Errorf("%w: session store: %w", ErrPersistenceUnavailable, err)
}

func clampLimit(limit, max, def int) int {
	if max <= 0 {
		max = def
	}
	if limit <= 0 || limit > max {
		return max
	}
	return limit
}
