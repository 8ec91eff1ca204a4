package middleware

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Scrub patterns. IDs go first so the loose phone pattern cannot eat the
// digit runs inside a UUID.
var (
	uuidRE  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}-[0-9a-f]{4}-[1-5][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}\b`)
	emailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	phoneRE = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)
)

// alwaysMasked headers never reach the log, whatever the options say.
// X-User-Name carries a display name chosen by the user.
var alwaysMasked = []string{"Authorization", "Cookie", "Set-Cookie", "X-Admin-Token", "X-User-Name"}

// RedactOptions adds headers to mask on top of alwaysMasked.
type RedactOptions struct {
	MaskHeaders []string
}

type redactor struct {
	masked map[string]struct{}
}

func newRedactor(extra []string) *redactor {
	r := &redactor{masked: make(map[string]struct{}, len(alwaysMasked)+len(extra))}
	for _, h := range append(append([]string{}, alwaysMasked...), extra...) {
		if h = strings.TrimSpace(h); h != "" {
			r.masked[http.CanonicalHeaderKey(h)] = struct{}{}
		}
	}
	return r
}

func (r *redactor) scrub(s string) string {
	if s == "" {
		return s
	}
	s = uuidRE.ReplaceAllString(s, "[REDACTED:id]")
	s = emailRE.ReplaceAllString(s, "[REDACTED:email]")
	return phoneRE.ReplaceAllString(s, "[REDACTED:phone]")
}

func (r *redactor) headers(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vv := range h {
		if _, ok := r.masked[http.CanonicalHeaderKey(k)]; ok {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = r.scrub(strings.Join(vv, ", "))
	}
	return out
}

// RedactingLogger writes one access line per request through the
// request-scoped logger, so it inherits request_id when RequestID runs
// first. Bodies are never logged: situations are free text and may hold
// anything. 4xx lines are warnings, 5xx errors.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	rd := newRedactor(opts.MaskHeaders)

	return func(c *gin.Context) {
		start := time.Now()
		query := rd.scrub(c.Request.URL.RawQuery)
		hdrs := rd.headers(c.Request.Header)

		c.Next()

		status := c.Writer.Status()
		level := zerolog.InfoLevel
		switch {
		case status >= http.StatusInternalServerError:
			level = zerolog.ErrorLevel
		case status >= http.StatusBadRequest:
			level = zerolog.WarnLevel
		}

		ev := LoggerFrom(c).WithLevel(level).
			Str("method", c.Request.Method).
			Str("path", IdempotencyScope(c)).
			Str("query", query).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", hdrs)
		if uid := c.GetString(ctxKeyUserID); uid != "" {
			ev = ev.Str("user_id", uid)
		}
		if IsReplay(c) {
			ev = ev.Bool("idempotent_replay", true)
		}
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", c.Errors.String())
		}
		ev.Msg("http_request")
	}
}
