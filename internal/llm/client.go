package llm

import (
	"context"
	"errors"
	"math/rand/v2"
	"net"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
)

var errEmptyCompletion = errors.New("llm backend: empty completion")

// Options configures a Client. Zero values fall back to the defaults noted.
type Options struct {
	Model          string
	MaxTokens      int
	Temperature    float64
	RetryCount     int           // extra attempts after the first
	AttemptTimeout time.Duration // default 15s
	BackoffUnit    time.Duration // wait before attempt k>1 is BackoffUnit * 2^(k-2)
	MaxInFlight    int64         // default 1
}

// Client is safe for concurrent use.
type Client struct {
	backend Backend
	opts    Options
	sem     *semaphore.Weighted

	// test seams
	sleep func(ctx context.Context, d time.Duration) error
	pick  func(n int) int
}

// NewClient wraps b with the retry and fallback policy described by o.
func NewClient(b Backend, o Options) *Client {
	if o.RetryCount < 0 {
		o.RetryCount = 0
	}
	if o.AttemptTimeout <= 0 {
		o.AttemptTimeout = 15 * time.Second
	}
	if o.BackoffUnit < 0 {
		o.BackoffUnit = 0
	}
	if o.MaxInFlight < 1 {
		o.MaxInFlight = 1
	}
	return &Client{
		backend: b,
		opts:    o,
		sem:     semaphore.NewWeighted(o.MaxInFlight),
		sleep:   sleepCtx,
		pick:    rand.IntN,
	}
}

// Attempts is the total number of backend calls a failing generation makes.
func (c *Client) Attempts() int { return c.opts.RetryCount + 1 }

// Generate produces text for req.Prompt. It never fails: backend errors are
// classified and turned into a canned fallback text. A rate-limited answer
// stops retrying immediately.
func (c *Client) Generate(ctx context.Context, req Request) Result {
	tr := otel.Tracer("llm/Client")
	ctx, span := tr.Start(ctx, "Generate",
		trace.WithAttributes(
			attribute.Int64("user.id", req.UserID),
			attribute.String("style", req.Style),
		),
	)
	defer span.End()

	start := time.Now()
	res := c.run(ctx, req)
	res.Elapsed = time.Since(start)

	span.SetAttributes(
		attribute.String("outcome", string(res.Outcome)),
		attribute.Int("attempts", res.Attempts),
	)
	if res.Fallback() {
		span.SetStatus(codes.Error, string(res.Outcome))
	}
	observe(req.Style, res)

	ev := log.Info()
	if res.Fallback() {
		ev = log.Warn()
	}
	ev.Int64("user_id", req.UserID).
		Str("style", req.Style).
		Dur("elapsed", res.Elapsed).
		Str("outcome", string(res.Outcome)).
		Int("attempts", res.Attempts).
		Int("length", len(res.Text)).
		Msg("generation")

	return res
}

func (c *Client) run(ctx context.Context, req Request) Result {
	total := c.Attempts()
	last := OutcomeOtherError
	for k := 1; k <= total; k++ {
		if k > 1 {
			if err := c.sleep(ctx, c.opts.BackoffUnit<<(k-2)); err != nil {
				return c.fallback(last, k-1)
			}
		}

		text, err := c.attempt(ctx, req.Prompt)
		if err == nil {
			return Result{Text: text, Outcome: OutcomeOK, Attempts: k}
		}

		last = classify(err)
		log.Debug().Err(err).
			Int64("user_id", req.UserID).
			Int("attempt", k).
			Int("of", total).
			Str("outcome", string(last)).
			Msg("generation attempt failed")

		if last == OutcomeRateLimited || ctx.Err() != nil {
			return c.fallback(last, k)
		}
	}
	return c.fallback(last, total)
}

// attempt runs one backend call under its own deadline. The concurrency slot
// is held until the backend actually returns, even if the deadline fires first.
func (c *Client) attempt(ctx context.Context, prompt string) (string, error) {
	actx, cancel := context.WithTimeout(ctx, c.opts.AttemptTimeout)
	defer cancel()

	if err := c.sem.Acquire(actx, 1); err != nil {
		return "", err
	}

	type reply struct {
		text string
		err  error
	}
	ch := make(chan reply, 1)
	genInflight.Inc()
	go func() {
		defer c.sem.Release(1)
		defer genInflight.Dec()
		t, err := c.backend.Complete(actx, CompletionRequest{
			Model:           c.opts.Model,
			Prompt:          prompt,
			MaxOutputTokens: c.opts.MaxTokens,
			Temperature:     c.opts.Temperature,
		})
		ch <- reply{t, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return "", r.err
		}
		t := strings.TrimSpace(r.text)
		if t == "" {
			return "", errEmptyCompletion
		}
		return t, nil
	case <-actx.Done():
		return "", actx.Err()
	}
}

func (c *Client) fallback(o Outcome, attempts int) Result {
	set := genericFallbacks
	switch o {
	case OutcomeTimeout:
		set = timeoutFallbacks
	case OutcomeRateLimited:
		set = rateLimitFallbacks
	}
	return Result{Text: set[c.pick(len(set))], Outcome: o, Attempts: attempts}
}

type statusCoder interface{ HTTPStatusCode() int }

func classify(err error) Outcome {
	var sc statusCoder
	if errors.As(err, &sc) && sc.HTTPStatusCode() == 429 {
		return OutcomeRateLimited
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return OutcomeTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return OutcomeTimeout
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "rate limit") || strings.Contains(msg, "429") {
		return OutcomeRateLimited
	}
	return OutcomeOtherError
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
