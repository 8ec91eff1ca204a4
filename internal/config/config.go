// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes the server, storage,
// generation backend, session cache, rate limiting and observability settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-excuse-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// DBConfig selects and addresses the durable store.
type DBConfig struct {
	Driver string // sqlite|postgres
	Path   string // SQLite file path
	URL    string // Postgres DSN
}

// LLMConfig configures the remote text-generation backend and the
// resilience policy wrapped around it.
type LLMConfig struct {
	BaseURL        string        // OpenAI-compatible endpoint root
	APIKey         string        // bearer token, may be empty for local backends
	Model          string        // model identifier sent with every request
	MaxTokens      int           // max output tokens
	Temperature    float64       // sampling temperature
	RetryCount     int           // extra attempts after the first one
	AttemptTimeout time.Duration // per-attempt deadline
	BackoffUnit    time.Duration // base for 1,2,4,... backoff
	MaxInFlight    int64         // concurrent backend calls
}

// SessionConfig selects the per-user session cache.
type SessionConfig struct {
	Backend     string        // memory|redis
	TTL         time.Duration // idle eviction, 0 disables
	RedisAddr   string
	RedisPrefix string
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 90s, must cover a full retry budget
	IdleTimeout       time.Duration // e.g. 60s
	ShutdownTimeout   time.Duration
	MaxHeaderBytes    int    // bytes
	GinMode           string // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Storage and collaborators
	DB      DBConfig
	LLM     LLMConfig
	Session SessionConfig

	// Orchestration limits
	MaxSituationRunes int // longest accepted situation text
	HistoryLimit      int // entries shown by /history
	FavoritesLimit    int // entries shown by /favorites
	PageBudget        int // bytes per rendered text page

	// AdminToken guards /admin/stats. Empty disables the route.
	AdminToken string

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Observability
	OTEL OTELConfig
}

// MustLoad is Load for main packages that cannot run misconfigured.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads the process environment. See LoadFrom.
func Load() (Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom builds a Config from lookup, falling back to defaults for unset or
// empty variables. Every malformed or out-of-range value is reported, joined
// into a single error.
func LoadFrom(lookup func(string) (string, bool)) (Config, error) {
	e := &env{lookup: lookup}
	cfg := Config{
		Port:              e.str("PORT", "8080"),
		ReadTimeout:       e.duration("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: e.duration("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      e.duration("WRITE_TIMEOUT", 90*time.Second),
		IdleTimeout:       e.duration("IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout:   e.duration("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxHeaderBytes:    e.integer("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(e.str("GIN_MODE", "release")),

		LogLevel:       strings.ToLower(e.str("LOG_LEVEL", "info")),
		LogPretty:      e.flag("LOG_PRETTY", false),
		SwaggerEnabled: e.flag("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(e.str("API_BASE_PATH", "/api/v1")),

		DB: DBConfig{
			Driver: strings.ToLower(e.str("DB_DRIVER", "sqlite")),
			Path:   e.str("DB_PATH", "excuses.db"),
			URL:    e.str("DATABASE_URL", ""),
		},
		LLM: LLMConfig{
			BaseURL:        e.str("LLM_BASE_URL", "https://api.openai.com/v1"),
			APIKey:         e.str("LLM_API_KEY", ""),
			Model:          e.str("LLM_MODEL", "gpt-4o"),
			MaxTokens:      e.integer("LLM_MAX_TOKENS", 500),
			Temperature:    e.number("LLM_TEMPERATURE", 0.7),
			RetryCount:     e.integer("LLM_RETRY_COUNT", 1),
			AttemptTimeout: e.duration("LLM_TIMEOUT", 15*time.Second),
			BackoffUnit:    e.duration("LLM_BACKOFF_UNIT", time.Second),
			MaxInFlight:    int64(e.integer("LLM_MAX_INFLIGHT", 16)),
		},
		Session: SessionConfig{
			Backend:     strings.ToLower(e.str("SESSION_BACKEND", "memory")),
			TTL:         e.duration("SESSION_TTL", 24*time.Hour),
			RedisAddr:   e.str("REDIS_ADDR", ""),
			RedisPrefix: e.str("REDIS_PREFIX", "excuse:session:"),
		},

		MaxSituationRunes: e.integer("MAX_SITUATION_RUNES", 200),
		HistoryLimit:      e.integer("HISTORY_LIMIT", 20),
		FavoritesLimit:    e.integer("FAVORITES_LIMIT", 50),
		PageBudget:        e.integer("PAGE_BUDGET", 3700),
		AdminToken:        e.str("ADMIN_TOKEN", ""),

		RateRPS:   e.number("RATE_RPS", 5.0),
		RateBurst: e.integer("RATE_BURST", 10),

		CORS: CORSConfig{
			AllowedOrigins: splitCSV(e.str("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: e.flag("ENABLE_HSTS", false),
			HSTSMaxAge: e.duration("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		IdempotencyTTL: e.duration("IDEMPOTENCY_TTL", 24*time.Hour),

		OTEL: OTELConfig{
			Enabled:     e.flag("OTEL_ENABLED", false),
			Endpoint:    e.str("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    e.flag("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: e.str("OTEL_SERVICE_NAME", "go-excuse-backend"),
			SampleRatio: e.number("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}
	cfg.normalize()
	return cfg, errors.Join(append(e.errs, cfg.Validate())...)
}

// normalize folds accepted aliases into their canonical spelling.
func (c *Config) normalize() {
	if c.LogLevel == "warning" {
		c.LogLevel = "warn"
	}
	if !oneOf(c.GinMode, "debug", "release", "test") {
		c.GinMode = "release"
	}
	if c.DB.Driver == "postgresql" || c.DB.Driver == "pg" {
		c.DB.Driver = "postgres"
	}
	c.LLM.BaseURL = strings.TrimRight(strings.TrimSpace(c.LLM.BaseURL), "/")
}

// Validate reports every setting the server cannot start with.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}
	blank := func(s string) bool { return strings.TrimSpace(s) == "" }

	check(oneOf(c.LogLevel, "debug", "info", "warn", "error", "fatal", "panic"),
		"LOG_LEVEL %q: want debug, info, warn, error, fatal or panic", c.LogLevel)
	check(!blank(c.Port), "PORT must not be empty")
	check(c.ReadTimeout > 0 && c.ReadHeaderTimeout > 0 && c.WriteTimeout > 0 && c.IdleTimeout > 0,
		"server timeouts must be positive durations")
	check(c.ShutdownTimeout > 0, "SHUTDOWN_TIMEOUT must be > 0")
	check(c.MaxHeaderBytes > 0, "MAX_HEADER_BYTES must be > 0")

	switch c.DB.Driver {
	case "sqlite":
		check(!blank(c.DB.Path), "DB_PATH must not be empty")
	case "postgres":
		check(!blank(c.DB.URL), "DATABASE_URL is required when DB_DRIVER=postgres")
	default:
		check(false, "DB_DRIVER %q: want sqlite or postgres", c.DB.Driver)
	}

	check(c.LLM.BaseURL != "", "LLM_BASE_URL must not be empty")
	check(!blank(c.LLM.Model), "LLM_MODEL must not be empty")
	check(c.LLM.MaxTokens > 0, "LLM_MAX_TOKENS must be > 0")
	check(c.LLM.Temperature >= 0 && c.LLM.Temperature <= 2, "LLM_TEMPERATURE must be in [0,2]")
	check(c.LLM.RetryCount >= 0, "LLM_RETRY_COUNT must be >= 0")
	check(c.LLM.AttemptTimeout > 0, "LLM_TIMEOUT must be > 0")
	check(c.LLM.BackoffUnit >= 0, "LLM_BACKOFF_UNIT must be >= 0")
	check(c.LLM.MaxInFlight >= 1, "LLM_MAX_INFLIGHT must be >= 1")

	switch c.Session.Backend {
	case "memory":
	case "redis":
		check(!blank(c.Session.RedisAddr), "REDIS_ADDR is required when SESSION_BACKEND=redis")
	default:
		check(false, "SESSION_BACKEND %q: want memory or redis", c.Session.Backend)
	}
	check(c.Session.TTL >= 0, "SESSION_TTL must be >= 0")

	check(c.MaxSituationRunes >= 1, "MAX_SITUATION_RUNES must be >= 1")
	check(c.HistoryLimit >= 1, "HISTORY_LIMIT must be >= 1")
	check(c.FavoritesLimit >= 1, "FAVORITES_LIMIT must be >= 1")
	check(c.PageBudget >= 256, "PAGE_BUDGET must be >= 256")
	check(c.RateRPS >= 0, "RATE_RPS must be >= 0")
	check(c.RateBurst >= 1, "RATE_BURST must be >= 1")
	check(c.Security.HSTSMaxAge >= 0, "HSTS_MAX_AGE must be >= 0")
	check(c.IdempotencyTTL > 0, "IDEMPOTENCY_TTL must be > 0")
	check(c.OTEL.SampleRatio >= 0 && c.OTEL.SampleRatio <= 1, "OTEL_TRACES_SAMPLER_ARG must be in [0,1]")

	return errors.Join(errs...)
}

// env reads typed variables and collects parse failures instead of silently
// using the default.
type env struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *env) raw(k string) (string, bool) {
	v, ok := e.lookup(k)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

func (e *env) str(k, def string) string {
	if v, ok := e.raw(k); ok {
		return v
	}
	return def
}

func parsed[T any](e *env, k string, def T, parse func(string) (T, error)) T {
	v, ok := e.raw(k)
	if !ok {
		return def
	}
	out, err := parse(strings.TrimSpace(v))
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: cannot parse %q", k, v))
		return def
	}
	return out
}

func (e *env) integer(k string, def int) int { return parsed(e, k, def, strconv.Atoi) }

func (e *env) duration(k string, def time.Duration) time.Duration {
	return parsed(e, k, def, time.ParseDuration)
}

func (e *env) number(k string, def float64) float64 {
	return parsed(e, k, def, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

func (e *env) flag(k string, def bool) bool { return parsed(e, k, def, parseBool) }

// parseBool accepts the usual shell spellings on top of strconv's.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	}
	return false, fmt.Errorf("not a boolean: %q", s)
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// normalizeBasePath returns p with one leading slash and no trailing one;
// blank means root.
func normalizeBasePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	return "/" + p
}
