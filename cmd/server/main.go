// Command server runs the excuse generator HTTP API.
//
// @title           Excuse Generator API
// @version         1.0
// @description     Turns a described situation into an excuse in a chosen style, keeps per-user history, favorites and ratings.
// @BasePath        /api/v1
// @schemes         http https
//
// @tag.name        Session
// @tag.description Situation, style choice and regeneration
// @tag.name        Excuses
// @tag.description Ratings and favorites
// @tag.name        Library
// @tag.description History, favorites, stats and settings
// @tag.name        Admin
// @tag.description Service-wide statistics
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/tbourn/go-excuse-backend/internal/config"
	httpapi "github.com/tbourn/go-excuse-backend/internal/http"
	"github.com/tbourn/go-excuse-backend/internal/llm"
	"github.com/tbourn/go-excuse-backend/internal/observability"
	"github.com/tbourn/go-excuse-backend/internal/repo"
	"github.com/tbourn/go-excuse-backend/internal/services"
	"github.com/tbourn/go-excuse-backend/internal/session"
	"github.com/tbourn/go-excuse-backend/internal/styles"
	"github.com/tbourn/go-excuse-backend/internal/sysutil"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

const (
	sweepInterval = time.Minute
	purgeInterval = time.Hour
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	sysutil.SetupLogger(os.Stderr, cfg.OTEL.ServiceName, cfg.LogPretty)
	sysutil.SetLogLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg config.Config) error {
	styles.MustValidate()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.Open(ctx, cfg.DB)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	log.Info().Str("driver", cfg.DB.Driver).Msg("database ready")

	backend, err := llm.NewOpenAIBackend(cfg.LLM.BaseURL, cfg.LLM.APIKey, nil)
	if err != nil {
		return fmt.Errorf("llm backend: %w", err)
	}
	gen := llm.NewClient(backend, llm.Options{
		Model:          cfg.LLM.Model,
		MaxTokens:      cfg.LLM.MaxTokens,
		Temperature:    cfg.LLM.Temperature,
		RetryCount:     cfg.LLM.RetryCount,
		AttemptTimeout: cfg.LLM.AttemptTimeout,
		BackoffUnit:    cfg.LLM.BackoffUnit,
		MaxInFlight:    cfg.LLM.MaxInFlight,
	})

	g, gctx := errgroup.WithContext(ctx)

	var sessions session.Store
	switch cfg.Session.Backend {
	case "redis":
		rdb, err := session.DialRedis(ctx, cfg.Session.RedisAddr)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rdb.Close()
		sessions = session.NewRedisStore(rdb, cfg.Session.RedisPrefix, cfg.Session.TTL)
	default:
		mem := session.NewMemoryStore(cfg.Session.TTL)
		g.Go(func() error {
			mem.RunSweeper(gctx, sweepInterval)
			return nil
		})
		sessions = mem
	}
	log.Info().Str("backend", cfg.Session.Backend).Dur("ttl", cfg.Session.TTL).Msg("session store ready")

	store := &services.Store{DB: db}
	orch := &services.Orchestrator{
		Store:             store,
		Sessions:          sessions,
		Gen:               gen,
		MaxSituationRunes: cfg.MaxSituationRunes,
		HistoryLimit:      cfg.HistoryLimit,
		FavoritesLimit:    cfg.FavoritesLimit,
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, orch, store, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		log.Info().Msg("shutting down")
		return srv.Shutdown(sctx)
	})

	g.Go(func() error {
		t := time.NewTicker(purgeInterval)
		defer t.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-t.C:
				sysutil.BestEffort(gctx, "idempotency.purge", func(ctx context.Context) error {
					n, err := store.PurgeIdempotency(ctx)
					if err == nil && n > 0 {
						log.Debug().Int64("purged", n).Msg("expired idempotency keys removed")
					}
					return err
				})
			}
		}
	})

	return g.Wait()
}
