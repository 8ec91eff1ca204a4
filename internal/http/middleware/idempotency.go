package middleware

import (
	"context"
	"net/http"
	"regexp"
	"strconv"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey lets a client retry a generating request without
// producing (and storing) a second excuse.
const HeaderIdempotencyKey = "Idempotency-Key"

// HeaderReplayed is set to "true" on responses served from a recorded key.
const HeaderReplayed = "Idempotency-Replayed"

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay" // int64 excuse id of the recorded answer
	ctxKeyRateBypass = "rate.bypass"
)

const defaultIdemMaxLen = 200

var defaultIdemPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// IdempotencyOptions bounds accepted keys. Zero values use a 200 byte limit
// and a token pattern of letters, digits and ._~-: only.
type IdempotencyOptions struct {
	MaxLen  int
	Pattern *regexp.Regexp
}

// IdempotencyLookup finds the excuse recorded for (userID, scope, key).
// Expired records must report found=false. The signature matches
// (*services.Store).LookupIdempotency.
type IdempotencyLookup func(ctx context.Context, userID int64, scope, key string) (excuseID int64, found bool, err error)

// IdempotencyScope names the operation a key belongs to: the registered route
// pattern, or the raw path when no route matched. Handlers recording a key
// must use the same scope.
func IdempotencyScope(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return c.Request.URL.Path
}

// GetIdempotencyKey returns the validated key, if the request carried one.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	s := c.GetString(ctxKeyIdemKey)
	return s, s != ""
}

// ReplayOf returns the excuse id recorded for this request's key, when the
// validator found one.
func ReplayOf(c *gin.Context) (int64, bool) {
	id := c.GetInt64(ctxKeyIdemReplay)
	return id, id > 0
}

// IsReplay reports whether ReplayOf would succeed.
func IsReplay(c *gin.Context) bool {
	_, ok := ReplayOf(c)
	return ok
}

// IdempotencyValidator rejects malformed Idempotency-Key headers with 400
// and stashes valid ones. When lookup is set and the caller is known, a
// recorded key marks the request as a replay, which also exempts it from
// rate limiting. Lookup failures are logged and the request proceeds as new.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = defaultIdemMaxLen
	}
	pat := opts.Pattern
	if pat == nil {
		pat = defaultIdemPattern
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "bad_idempotency_key",
				"message":    "invalid Idempotency-Key",
			})
			return
		}
		c.Set(ctxKeyIdemKey, key)

		uid, known := userIDFromCtx(c)
		if lookup == nil || !known {
			c.Next()
			return
		}
		excuseID, found, err := lookup(c.Request.Context(), uid, IdempotencyScope(c), key)
		switch {
		case err != nil:
			LoggerFrom(c).Debug().Err(err).Str("key", key).Msg("idempotency lookup failed")
		case found && excuseID > 0:
			c.Set(ctxKeyIdemReplay, excuseID)
			c.Set(ctxKeyRateBypass, true)
		}
		c.Next()
	}
}

// userIDFromCtx returns the id stashed by UserIdentity. Anonymous requests
// have no replay history.
func userIDFromCtx(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.GetString(ctxKeyUserID), 10, 64)
	return id, err == nil && id > 0
}
