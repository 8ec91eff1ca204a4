// Package httpapi mounts the excuse API on a Gin engine: the middleware
// chain, the operational endpoints and the versioned routes.
package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/tbourn/go-excuse-backend/docs"
	"github.com/tbourn/go-excuse-backend/internal/config"
	"github.com/tbourn/go-excuse-backend/internal/http/handlers"
	"github.com/tbourn/go-excuse-backend/internal/http/middleware"
)

const (
	// generationCost is how many rate-limit tokens a request that calls the
	// generation backend consumes.
	generationCost = 3

	maxBodyBytes = 1 << 20
)

// RegisterRoutes installs the middleware chain and every route on r, with
// the API under cfg.APIBasePath. idem may be nil, which disables
// Idempotency-Key replays.
//
// The chain runs in this order: tracing, request id, access log, panic
// recovery, body cap and gzip, metrics, caller identity, idempotency (so a
// replay can skip the limiter), rate limiting, CORS and security headers.
func RegisterRoutes(r *gin.Engine, svc handlers.ExcuseService, idem handlers.IdempotencyStore, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(
		otelgin.Middleware(cfg.OTEL.ServiceName),
		middleware.RequestID(),
		middleware.RedactingLogger(middleware.RedactOptions{MaskHeaders: []string{"X-API-Key"}}),
		middleware.Recovery(),
		limitBody(maxBodyBytes),
		gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})),
		middleware.Metrics(),
	)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(middleware.UserIdentity(), middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, lookupFor(idem)))
	r.Use(rateLimiter(cfg).Handler())
	r.Use(corsChain(cfg.CORS.AllowedOrigins)...)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      true,
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(svc, idem, handlers.Options{
		PageBudget:     cfg.PageBudget,
		AdminToken:     cfg.AdminToken,
		IdempotencyTTL: cfg.IdempotencyTTL,
	})
	api := groupWithPrefix(r, cfg.APIBasePath)

	api.GET("/styles", h.ListStyles)

	conv := api.Group("/session")
	conv.POST("/situation", h.SubmitSituation)
	conv.POST("/style", h.SelectStyle)
	conv.POST("/regenerate", h.Regenerate)
	conv.POST("/change-style", h.ChangeStyle)

	api.POST("/excuses/:id/rating", h.RateExcuse)
	api.POST("/excuses/:id/favorite", h.ToggleFavorite)

	api.GET("/history", h.History)
	api.GET("/favorites", h.Favorites)
	api.GET("/stats", h.Stats)
	api.PUT("/settings", h.UpdateSettings)
	api.GET("/admin/stats", h.AdminStats)
}

func lookupFor(idem handlers.IdempotencyStore) middleware.IdempotencyLookup {
	if idem == nil {
		return nil
	}
	return idem.LookupIdempotency
}

// rateLimiter charges generationCost on the two routes that call the model.
func rateLimiter(cfg config.Config) *middleware.RateLimiter {
	base := strings.TrimSuffix(cfg.APIBasePath, "/")
	return middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP()).
		WithCost(middleware.RouteCost(generationCost, base+"/session/style", base+"/session/regenerate"))
}

// corsChain allows any origin when origins is empty and echoes allowlisted
// origins otherwise. The leading handler sets Allow-Origin even on requests
// without an Origin header, which gin-contrib/cors leaves untouched.
func corsChain(origins []string) []gin.HandlerFunc {
	cc := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept", "Authorization",
			middleware.HeaderUserID, "X-User-Name", handlers.HeaderAdminToken, middleware.HeaderIdempotencyKey,
		},
		ExposeHeaders: []string{"X-Request-ID", "Content-Length", middleware.HeaderReplayed, "X-Items-Shown", "X-Items-Total"},
		MaxAge:        12 * time.Hour,
	}

	if len(origins) == 0 {
		cc.AllowAllOrigins = true
		return []gin.HandlerFunc{
			func(c *gin.Context) {
				c.Header("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(cc),
		}
	}

	cc.AllowOrigins = origins
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if o := c.GetHeader("Origin"); allowed[o] {
				c.Header("Access-Control-Allow-Origin", o)
				c.Writer.Header().Add("Vary", "Origin")
			}
			c.Next()
		},
		cors.New(cc),
	}
}

// limitBody caps request bodies at maxBytes; reads past the cap fail.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
