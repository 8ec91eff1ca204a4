package handlers

// Error codes carried in ErrorResponse.Code. Clients branch on these, never
// on Message.
const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeInternal         = "internal_error"

	// ErrCodeUnavailable means the durable store could not be reached; the
	// request may be retried.
	ErrCodeUnavailable = "persistence_unavailable"

	ErrCodeMissingUser     = "missing_user"
	ErrCodeUnknownStyle    = "unknown_style"
	ErrCodeInvalidInput    = "invalid_input"
	ErrCodeNoActiveSession = "no_active_session"
	ErrCodeSuperseded      = "superseded"
)
