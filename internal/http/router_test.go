package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-excuse-backend/internal/config"
	"github.com/tbourn/go-excuse-backend/internal/http/middleware"
	"github.com/tbourn/go-excuse-backend/internal/llm"
	"github.com/tbourn/go-excuse-backend/internal/repo"
	"github.com/tbourn/go-excuse-backend/internal/services"
	"github.com/tbourn/go-excuse-backend/internal/session"
)

// --- generator that numbers its excuses ---
type countingGen struct {
	mu sync.Mutex
	n  int
}

func (g *countingGen) Generate(_ context.Context, _ llm.Request) llm.Result {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return llm.Result{Text: fmt.Sprintf("excuse #%d", g.n), Outcome: llm.OutcomeOK, Attempts: 1, Elapsed: 10 * time.Millisecond}
}

func (g *countingGen) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.n
}

// --- test DB helper (pure-Go sqlite, no CGO) ---
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := repo.SQLiteDSN(fmt.Sprintf("file:router_%s?mode=memory&cache=shared", uuid.NewString()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		t.Cleanup(func() { _ = sqlDB.Close() })
	}
	return db
}

func baseConfig() config.Config {
	return config.Config{
		APIBasePath:    "/api/v1",
		RateRPS:        100,
		RateBurst:      10,
		OTEL:           config.OTELConfig{ServiceName: "test-svc"},
		AdminToken:     "s3cret",
		IdempotencyTTL: time.Hour,
	}
}

func newEngine(t *testing.T, cfg config.Config) (*gin.Engine, *countingGen) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	gen := &countingGen{}
	store := &services.Store{DB: newTestDB(t)}
	orch := &services.Orchestrator{Store: store, Sessions: session.NewMemoryStore(0), Gen: gen}

	r := gin.New()
	RegisterRoutes(r, orch, store, cfg)
	return r, gen
}

func do(r *gin.Engine, method, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterRoutes_CORSAllowAll_Health_Metrics_Fallbacks(t *testing.T) {
	r, _ := newEngine(t, baseConfig())

	// /health works
	w := do(r, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	// CORS (AllowAllOrigins) → header "*"
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("AllowAllOrigins expected '*', got %q", got)
	}
	if w.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("expected no-store on API responses")
	}

	// /metrics is wired
	w = do(r, http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK || len(w.Body.Bytes()) == 0 {
		t.Fatalf("GET /metrics bad: code=%d len=%d", w.Code, w.Body.Len())
	}

	// NoRoute → 404
	if w = do(r, http.MethodGet, "/nope", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("GET /nope expected 404, got %d", w.Code)
	}

	// NoMethod → 405 (POST /health)
	if w = do(r, http.MethodPost, "/health", "", nil); w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /health expected 405, got %d", w.Code)
	}

	// Swagger is off by default
	if w = do(r, http.MethodGet, "/swagger/doc.json", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("swagger should be disabled, got %d", w.Code)
	}
}

func TestRegisterRoutes_CORSWithOrigins_HeaderEcho(t *testing.T) {
	cfg := baseConfig()
	cfg.APIBasePath = "/api/v2"
	cfg.CORS = config.CORSConfig{AllowedOrigins: []string{"http://example.com"}}
	r, _ := newEngine(t, cfg)

	w := do(r, http.MethodGet, "/health", "", map[string]string{"Origin": "http://example.com"})
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Fatalf("expected ACAO echo, got %q", got)
	}

	// routes live under the configured base path
	if w = do(r, http.MethodGet, "/api/v2/styles", "", nil); w.Code != http.StatusOK {
		t.Fatalf("GET /api/v2/styles = %d", w.Code)
	}
}

func TestRegisterRoutes_Swagger(t *testing.T) {
	cfg := baseConfig()
	cfg.SwaggerEnabled = true
	r, _ := newEngine(t, cfg)

	w := do(r, http.MethodGet, "/swagger/doc.json", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /swagger/doc.json = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"/session/style"`) || !strings.Contains(w.Body.String(), "/api/v1") {
		t.Fatalf("unexpected swagger doc: %.200s", w.Body.String())
	}
}

func Test_limitBody_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	// tiny cap to trigger MaxBytesReader
	r.Use(limitBody(10))
	r.POST("/echo", func(c *gin.Context) {
		_, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too big")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString("0123456789AB")) // 12 bytes
	r.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 from limitBody, got %d", w.Code)
	}
}

func Test_groupWithPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	// "/" and "" should mount at root
	groupWithPrefix(r, "/").GET("/one", func(c *gin.Context) { c.String(http.StatusOK, "one") })
	groupWithPrefix(r, "").GET("/two", func(c *gin.Context) { c.String(http.StatusOK, "two") })
	groupWithPrefix(r, "/api").GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for path, want := range map[string]string{"/one": "one", "/two": "two", "/api/ping": "pong"} {
		w := do(r, http.MethodGet, path, "", nil)
		if w.Code != http.StatusOK || w.Body.String() != want {
			t.Fatalf("GET %s got %d %q", path, w.Code, w.Body.String())
		}
	}
}

// A whole conversation through the real middleware stack.
func TestPipeline_Conversation(t *testing.T) {
	r, gen := newEngine(t, baseConfig())
	user := map[string]string{middleware.HeaderUserID: "42"}

	w := do(r, http.MethodPost, "/api/v1/session/situation", `{"text":"missed the train"}`, user)
	if w.Code != http.StatusAccepted {
		t.Fatalf("situation = %d %s", w.Code, w.Body.String())
	}
	if rid := w.Header().Get("X-Request-ID"); rid == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}

	keyed := map[string]string{middleware.HeaderUserID: "42", middleware.HeaderIdempotencyKey: "style-1"}
	w = do(r, http.MethodPost, "/api/v1/session/style", `{"style":"formal"}`, keyed)
	if w.Code != http.StatusOK {
		t.Fatalf("style = %d %s", w.Code, w.Body.String())
	}
	var first services.Result
	if err := json.Unmarshal(w.Body.Bytes(), &first); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if first.ExcuseID == 0 || !strings.HasSuffix(first.DisplayText, "excuse #1") {
		t.Fatalf("unexpected result: %+v", first)
	}

	// Same key: replayed, no second generation.
	w = do(r, http.MethodPost, "/api/v1/session/style", `{"style":"formal"}`, keyed)
	if w.Code != http.StatusOK || w.Header().Get("Idempotency-Replayed") != "true" {
		t.Fatalf("replay = %d replayed=%q", w.Code, w.Header().Get("Idempotency-Replayed"))
	}
	var again services.Result
	_ = json.Unmarshal(w.Body.Bytes(), &again)
	if again.ExcuseID != first.ExcuseID || gen.calls() != 1 {
		t.Fatalf("replay should return excuse %d without generating; got %d, calls=%d", first.ExcuseID, again.ExcuseID, gen.calls())
	}

	// Regenerate produces a fresh excuse.
	w = do(r, http.MethodPost, "/api/v1/session/regenerate", "", user)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "excuse #2") {
		t.Fatalf("regenerate = %d %s", w.Code, w.Body.String())
	}

	// History as Markdown.
	w = do(r, http.MethodGet, "/api/v1/history?format=text", "", user)
	if w.Code != http.StatusOK || w.Header().Get("X-Items-Total") != "2" {
		t.Fatalf("history = %d total=%q", w.Code, w.Header().Get("X-Items-Total"))
	}
	if !strings.Contains(w.Body.String(), "Your history") {
		t.Fatalf("unexpected history page: %s", w.Body.String())
	}
}

func TestPipeline_GenerationCostsMoreTokens(t *testing.T) {
	cfg := baseConfig()
	cfg.RateRPS = 0.001
	cfg.RateBurst = generationCost
	r, gen := newEngine(t, cfg)
	user := map[string]string{middleware.HeaderUserID: "5"}

	if w := do(r, http.MethodPost, "/api/v1/session/situation", `{"text":"late"}`, user); w.Code != http.StatusAccepted {
		t.Fatalf("situation = %d", w.Code)
	}
	// One token is gone; a generation needs the full bucket.
	w := do(r, http.MethodPost, "/api/v1/session/style", `{"style":"guru"}`, user)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 for generation, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" || gen.calls() != 0 {
		t.Fatalf("expected Retry-After and no generation, calls=%d", gen.calls())
	}

	// Another user has their own bucket.
	if w := do(r, http.MethodGet, "/api/v1/styles", "", map[string]string{middleware.HeaderUserID: "6"}); w.Code != http.StatusOK {
		t.Fatalf("other user = %d", w.Code)
	}
}

func TestPipeline_IdempotencyLookupErrorIsIgnored(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	store := &services.Store{DB: db}
	orch := &services.Orchestrator{Store: store, Sessions: session.NewMemoryStore(0), Gen: &countingGen{}}
	r := gin.New()
	RegisterRoutes(r, orch, store, baseConfig())

	// Force queries to fail by closing the underlying connection.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB(): %v", err)
	}
	_ = sqlDB.Close()

	w := do(r, http.MethodPost, "/api/v1/session/regenerate", "", map[string]string{
		middleware.HeaderUserID:         "1",
		middleware.HeaderIdempotencyKey: "force-error",
	})
	// Lookup failed silently; the handler still ran and found no session.
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d %s", w.Code, w.Body.String())
	}
}
