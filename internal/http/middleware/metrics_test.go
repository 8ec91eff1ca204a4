package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Labels(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := newHTTPMetrics(prometheus.NewRegistry())

	r := gin.New()
	r.Use(m.handler())
	r.GET("/history", func(c *gin.Context) { c.String(http.StatusOK, "page") })
	r.POST("/session/style", func(c *gin.Context) {
		c.Header(HeaderReplayed, "true")
		c.Status(http.StatusOK)
	})
	r.POST("/session/regenerate", func(c *gin.Context) { c.Status(http.StatusTooManyRequests) })
	r.POST("/excuses/:id/favorite", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for _, rq := range []struct{ method, path string }{
		{http.MethodGet, "/history"},
		{http.MethodPost, "/session/style"},
		{http.MethodPost, "/session/regenerate"},
		{http.MethodPost, "/excuses/1/favorite"},
		{http.MethodPost, "/excuses/2/favorite"},
		{http.MethodGet, "/does-not-exist"},
	} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(rq.method, rq.path, nil))
	}

	checks := []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{"history 200", m.requests.WithLabelValues("GET", "/history", "200"), 1},
		{"favorite by route", m.requests.WithLabelValues("POST", "/excuses/:id/favorite", "204"), 2},
		{"unmatched", m.requests.WithLabelValues("GET", unmatchedPath, "404"), 1},
		{"replay", m.replays.WithLabelValues("/session/style"), 1},
		{"limited", m.limited.WithLabelValues("/session/regenerate"), 1},
		{"no replay elsewhere", m.replays.WithLabelValues("/history"), 0},
		{"inflight drained", m.inflight, 0},
	}
	for _, ck := range checks {
		if got := testutil.ToFloat64(ck.c); got != ck.want {
			t.Fatalf("%s = %v; want %v", ck.name, got, ck.want)
		}
	}

	// Route patterns, not raw ids, label the latency series.
	if n := testutil.CollectAndCount(m.latency); n != 5 {
		t.Fatalf("latency series = %d; want 5", n)
	}
}
