package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-excuse-backend/internal/http/middleware"
)

// ErrorResponse is the error envelope returned by every endpoint.
//
//	HTTP/1.1 409 Conflict
//	{"request_id":"6f1c...","code":"no_active_session","message":"submit a situation first"}
type ErrorResponse struct {
	// Echo of X-Request-ID, for matching a client report to server logs.
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable machine-readable code.
	Code string `json:"code" example:"no_active_session"`
	// Text safe to show to the user.
	Message string `json:"message" example:"submit a situation first"`
}

// fail aborts with an ErrorResponse. A storage outage is expected to heal
// and is logged as a warning; other 5xx are errors.
func fail(c *gin.Context, status int, code, msg string) {
	failCause(c, status, code, msg, nil)
}

// failCause is fail with the underlying error kept in the server log only;
// msg is all the client sees.
func failCause(c *gin.Context, status int, code, msg string, cause error) {
	if status >= http.StatusInternalServerError {
		level := zerolog.ErrorLevel
		if code == ErrCodeUnavailable {
			level = zerolog.WarnLevel
		}
		middleware.LoggerFrom(c).WithLevel(level).Err(cause).Int("status", status).Str("code", code).Str("path", c.FullPath()).Msg(msg)
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	})
}

// Fail lets the router answer NoRoute and NoMethod with the same envelope.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
