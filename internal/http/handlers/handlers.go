// Excuse HTTP handlers: service contracts, wiring and shared helpers.
//
// Handlers are transport-thin: they validate input, call the orchestrator,
// and translate its sentinel errors into the standard error envelope.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-excuse-backend/internal/domain"
	"github.com/tbourn/go-excuse-backend/internal/present"
	"github.com/tbourn/go-excuse-backend/internal/services"
	"github.com/tbourn/go-excuse-backend/internal/session"
	"github.com/tbourn/go-excuse-backend/internal/styles"
)

//
// Service contracts (context-aware)
//

// ExcuseService is the conversational surface consumed by the handlers.
// *services.Orchestrator satisfies it.
type ExcuseService interface {
	SubmitSituation(ctx context.Context, userID int64, username, text string) (services.Pending, error)
	SelectStyle(ctx context.Context, userID int64, styleID string) (services.Result, error)
	Regenerate(ctx context.Context, userID int64) (services.Result, error)
	ChangeStyle(ctx context.Context, userID int64) (services.Pending, error)
	Rate(ctx context.Context, userID, excuseID int64, value int) (services.Result, error)
	ToggleFavorite(ctx context.Context, userID, excuseID int64) (services.Result, error)
	// Replay rebuilds the Result of a previously generated excuse.
	Replay(ctx context.Context, userID, excuseID int64) (services.Result, error)

	History(ctx context.Context, userID int64, limit int) ([]domain.Excuse, error)
	Favorites(ctx context.Context, userID int64, limit int) ([]domain.FavoriteExcuse, error)
	Stats(ctx context.Context, userID int64) (domain.UserStats, error)
	AdminStats(ctx context.Context) (domain.AdminStats, error)
	UpdateSettings(ctx context.Context, userID int64, defaultStyle *string, isPremium *bool) (*domain.User, error)
	Styles() []styles.Style
}

// IdempotencyStore records which excuse answered a keyed request.
// *services.Store satisfies it.
type IdempotencyStore interface {
	LookupIdempotency(ctx context.Context, userID int64, scope, key string) (int64, bool, error)
	RecordIdempotency(ctx context.Context, userID int64, scope, key string, excuseID int64, status int, ttl time.Duration) error
}

//
// Handler wiring
//

// Options tunes handler behavior. Zero values fall back to defaults.
type Options struct {
	PageBudget     int           // bytes per rendered text page
	AdminToken     string        // empty disables /admin/stats
	IdempotencyTTL time.Duration // lifetime of a recorded Idempotency-Key
}

// Handlers groups the excuse endpoints.
type Handlers struct {
	svc  ExcuseService
	idem IdempotencyStore
	opts Options
}

// New constructs Handlers. idem may be nil, which disables replays.
func New(svc ExcuseService, idem IdempotencyStore, opts Options) *Handlers {
	if opts.PageBudget <= 0 {
		opts.PageBudget = present.DefaultBudget
	}
	if opts.IdempotencyTTL <= 0 {
		opts.IdempotencyTTL = 24 * time.Hour
	}
	return &Handlers{svc: svc, idem: idem, opts: opts}
}

// HeaderUserID carries the opaque numeric user identifier.
const HeaderUserID = "X-User-ID"

// userID extracts the user id from the Gin context (set by upstream
// middleware) or the X-User-ID header. The id must be a positive integer.
func userID(c *gin.Context) (int64, bool) {
	if v, ok := c.Get("userID"); ok {
		switch id := v.(type) {
		case int64:
			return id, id > 0
		case string:
			return parseUserID(id)
		}
	}
	if c != nil && c.Request != nil {
		return parseUserID(c.GetHeader(HeaderUserID))
	}
	return 0, false
}

func parseUserID(s string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// requireUser resolves the caller or aborts with 400.
func requireUser(c *gin.Context) (int64, bool) {
	id, ok := userID(c)
	if !ok {
		fail(c, http.StatusBadRequest, ErrCodeMissingUser, "X-User-ID header must be a positive integer")
	}
	return id, ok
}

// excuseIDParam parses the :id path segment or aborts with 400.
func excuseIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "excuse id must be a positive integer")
		return 0, false
	}
	return id, true
}

// failErr maps service and session errors onto the error envelope.
func failErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, styles.ErrUnknownStyle):
		fail(c, http.StatusBadRequest, ErrCodeUnknownStyle, err.Error())
	case errors.Is(err, services.ErrEmptySituation),
		errors.Is(err, services.ErrSituationTooLong),
		errors.Is(err, services.ErrInvalidRating):
		fail(c, http.StatusBadRequest, ErrCodeInvalidInput, err.Error())
	case errors.Is(err, session.ErrNoActiveSession):
		fail(c, http.StatusConflict, ErrCodeNoActiveSession, "submit a situation first")
	case errors.Is(err, session.ErrSuperseded):
		fail(c, http.StatusConflict, ErrCodeSuperseded, "a newer situation replaced this one")
	case errors.Is(err, services.ErrExcuseNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "excuse not found")
	case errors.Is(err, services.ErrUserNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
	case errors.Is(err, services.ErrPersistenceUnavailable):
		fail(c, http.StatusServiceUnavailable, ErrCodeUnavailable, "storage is temporarily unavailable")
	default:
		// Foreign key failures and anything unexpected carry driver text.
		failCause(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error", err)
	}
}
