package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-excuse-backend/internal/llm"
	"github.com/tbourn/go-excuse-backend/internal/repo"
	"github.com/tbourn/go-excuse-backend/internal/session"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := repo.SQLiteDSN(fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString()))

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

// fakeGen returns "excuse #n" for the n-th call, or a canned outcome.
type fakeGen struct {
	mu      sync.Mutex
	calls   []llm.Request
	outcome llm.Outcome
	elapsed time.Duration
	// during runs inside Generate, before the result is returned.
	during func()
}

func (f *fakeGen) Generate(_ context.Context, req llm.Request) llm.Result {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	n := len(f.calls)
	during := f.during
	f.mu.Unlock()

	if during != nil {
		during()
	}

	out := f.outcome
	if out == "" {
		out = llm.OutcomeOK
	}
	text := fmt.Sprintf("excuse #%d", n)
	if out != llm.OutcomeOK {
		text = llm.FallbackSet(out)[0]
	}
	return llm.Result{Text: text, Outcome: out, Attempts: 1, Elapsed: f.elapsed}
}

func (f *fakeGen) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeGen) last() llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func newOrchestrator(t *testing.T) (*Orchestrator, *fakeGen) {
	t.Helper()
	gen := &fakeGen{elapsed: 250 * time.Millisecond}
	return &Orchestrator{
		Store:    &Store{DB: newTestDB(t)},
		Sessions: session.NewMemoryStore(0),
		Gen:      gen,
	}, gen
}
