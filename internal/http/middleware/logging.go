// Package middleware holds the Gin middleware of the excuse API: request
// correlation, access logging, recovery, caller identity, idempotency, rate
// limiting, metrics and security headers.
package middleware

import (
	"net/http"
	"regexp"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	requestIDKey    = "requestID"
	requestIDHeader = "X-Request-ID"
	loggerKey       = "logger"
)

// requestIDPattern bounds what a client may send as a correlation ID, so
// that log lines cannot be forged through the header.
var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9._\-:]{1,128}$`)

// RequestID reuses a well-formed X-Request-ID or generates a UUID, echoes it
// on the response and attaches a logger carrying it (see LoggerFrom).
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if !requestIDPattern.MatchString(rid) {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)

		lg := log.With().Str("request_id", rid).Logger()
		c.Set(loggerKey, &lg)
		c.Next()
	}
}

// LoggerFrom returns the request-scoped logger, or the global one when
// RequestID did not run.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if lg, ok := v.(*zerolog.Logger); ok && lg != nil {
			return lg
		}
	}
	return &log.Logger
}

// Recovery turns a panic into a 500. The error envelope is only written
// when the handler had not started its response yet.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			LoggerFrom(c).Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Str("path", IdempotencyScope(c)).
				Msg("panic recovered")

			if c.Writer.Written() {
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"request_id": c.GetString(requestIDKey),
				"code":       "internal_error",
				"message":    "internal server error",
			})
		}()
		c.Next()
	}
}
