// Package llm wraps the remote text-generation backend. Backend is the raw
// one-shot completion call; Client adds the per-attempt timeout, exponential
// backoff, failure classification and canned fallback texts so that callers
// always receive something to show the user.
package llm

import (
	"context"
	"fmt"
	"time"
)

// CompletionRequest is one outbound text-completion call.
type CompletionRequest struct {
	Model           string
	Prompt          string
	MaxOutputTokens int
	Temperature     float64
}

// Backend performs a single completion. Implementations must honour ctx
// cancellation; the Client bounds every call with its own deadline anyway.
type Backend interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, req CompletionRequest) (string, error)

// Complete calls f.
func (f BackendFunc) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	return f(ctx, req)
}

// StatusError is a non-2xx answer from an HTTP backend.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("llm backend: http %d: %s", e.StatusCode, e.Body)
}

// HTTPStatusCode exposes the status for classification.
func (e *StatusError) HTTPStatusCode() int { return e.StatusCode }

// Outcome classifies how a generation ended.
type Outcome string

const (
	OutcomeOK          Outcome = "ok"
	OutcomeTimeout     Outcome = "timeout"
	OutcomeRateLimited Outcome = "rate_limited"
	OutcomeOtherError  Outcome = "other_api_error"
)

// Request is what the orchestrator hands to Client.Generate. UserID and
// Style only label the observability record.
type Request struct {
	UserID int64
	Style  string
	Prompt string
}

// Result is always display-ready: Text is never empty.
type Result struct {
	Text     string
	Outcome  Outcome
	Attempts int
	Elapsed  time.Duration
}

// Fallback reports whether Text is a canned response rather than generated.
func (r Result) Fallback() bool { return r.Outcome != OutcomeOK }

var (
	timeoutFallbacks = []string{
		"The server is answering slowly, please try again.",
		"The request is taking too long.",
		"Timeout error, please repeat the request.",
	}
	genericFallbacks = []string{
		"An API error occurred, please try later.",
		"The service is temporarily unavailable.",
		"Technical error, please try again.",
	}
	rateLimitFallbacks = []string{
		"Too many requests, please wait a minute.",
		"Request limit exceeded, please try later.",
	}
)

// FallbackSet returns a copy of the canned texts used for outcome.
func FallbackSet(o Outcome) []string {
	var src []string
	switch o {
	case OutcomeTimeout:
		src = timeoutFallbacks
	case OutcomeRateLimited:
		src = rateLimitFallbacks
	case OutcomeOtherError:
		src = genericFallbacks
	default:
		return nil
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}
