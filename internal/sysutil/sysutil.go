// Package sysutil holds process-level helpers: logger setup and best-effort
// side actions.
package sysutil

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetupLogger points the global zerolog logger at w (stderr when nil), with
// timestamps and a service field. pretty switches to the console writer for
// local development.
func SetupLogger(w io.Writer, service string, pretty bool) {
	if w == nil {
		w = os.Stderr
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	ctx := zerolog.New(w).With().Timestamp()
	if service != "" {
		ctx = ctx.Str("service", service)
	}
	log.Logger = ctx.Logger()
}

// SetLogLevel sets the global level from its name and returns the level in
// effect. "warning" is accepted for warn; blank or unknown names mean info.
func SetLogLevel(name string) zerolog.Level {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "warning" {
		name = "warn"
	}
	lvl, err := zerolog.ParseLevel(name)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	return lvl
}

// BestEffort runs fn and logs a failure instead of returning it. Use it for
// side actions whose failure must not fail the request, such as recording an
// idempotency key or purging expired ones.
func BestEffort(ctx context.Context, op string, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		log.Warn().Err(err).Str("op", op).Msg("best-effort operation failed")
	}
}
