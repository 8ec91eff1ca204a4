package middleware

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// HeaderUserID carries the opaque numeric user identifier issued by the
// chat front end.
const HeaderUserID = "X-User-ID"

// ctxKeyUserID is shared with the rate limiter and request logger.
const ctxKeyUserID = "userID"

// UserIdentity copies a well-formed X-User-ID header into the Gin context
// under "userID" (as a decimal string) so that the rate limiter, request
// logger and idempotency lookup key on the caller. Malformed values are
// ignored; handlers reject them with a proper error envelope.
func UserIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
			c.Set(ctxKeyUserID, strconv.FormatInt(id, 10))
		}
		c.Next()
	}
}
