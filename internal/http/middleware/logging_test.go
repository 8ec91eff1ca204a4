package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	var inCtx string
	r.GET("/rid", func(c *gin.Context) {
		inCtx = c.GetString(requestIDKey)
		c.Status(http.StatusNoContent)
	})

	cases := []struct {
		sent string
		keep bool
	}{
		{"", false},
		{"abc-123", true},
		{"Z-REQ-123", true},
		{"svc:7.a_b", true},
		{"has space", false},
		{"line\nbreak", false},
		{strings.Repeat("a", 129), false},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/rid", nil)
		switch {
		case strings.ContainsAny(tc.sent, "\r\n"):
			// Header.Set would accept it verbatim; go through the raw map like a hostile client.
			req.Header[http.CanonicalHeaderKey(requestIDHeader)] = []string{tc.sent}
		case tc.sent != "":
			req.Header.Set(requestIDHeader, tc.sent)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		got := w.Header().Get(requestIDHeader)
		if got == "" || got != inCtx {
			t.Fatalf("%q: header %q, context %q", tc.sent, got, inCtx)
		}
		if tc.keep != (got == tc.sent) {
			t.Fatalf("%q: keep=%v but got %q", tc.sent, tc.keep, got)
		}
	}
}

func TestLoggerFrom(t *testing.T) {
	gin.SetMode(gin.TestMode)

	run := func(withRequestID bool) (string, string) {
		buf := withCapturedLogger(t)
		r := gin.New()
		if withRequestID {
			r.Use(RequestID())
		}
		r.GET("/use", func(c *gin.Context) {
			LoggerFrom(c).Info().Msg("generated")
			c.Status(http.StatusOK)
		})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/use", nil))
		return buf.String(), w.Header().Get(requestIDHeader)
	}

	out, _ := run(false)
	if !strings.Contains(out, `"message":"generated"`) || strings.Contains(out, `"request_id"`) {
		t.Fatalf("fallback logger: %s", out)
	}
	out, rid := run(true)
	if !strings.Contains(out, `"request_id":"`+rid+`"`) {
		t.Fatalf("scoped logger should carry %s: %s", rid, out)
	}
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := withCapturedLogger(t)

	r := gin.New()
	r.Use(RequestID(), Recovery())
	r.GET("/excuses/:id", func(c *gin.Context) { panic("kaboom") })
	r.GET("/late", func(c *gin.Context) {
		c.String(http.StatusOK, "partial")
		panic("late kaboom")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/excuses/1", nil)
	req.Header.Set(requestIDHeader, "rid-p")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json body: %v", err)
	}
	if body["code"] != "internal_error" || body["request_id"] != "rid-p" {
		t.Fatalf("unexpected body: %v", body)
	}
	if out := buf.String(); !strings.Contains(out, `"panic recovered"`) || !strings.Contains(out, `"path":"/excuses/:id"`) {
		t.Fatalf("expected panic log with route, got:\n%s", out)
	}

	// After a partial write the envelope must not be appended.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/late", nil))
	if w.Body.String() != "partial" {
		t.Fatalf("body after late panic = %q", w.Body.String())
	}
	if strings.Count(buf.String(), "panic recovered") != 2 {
		t.Fatalf("expected two panic logs:\n%s", buf.String())
	}
}
