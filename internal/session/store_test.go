package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeFactories lets every behavioural test run against both backends.
func storeFactories(t *testing.T) map[string]func() Store {
	t.Helper()
	return map[string]func() Store{
		"memory": func() Store { return NewMemoryStore(0) },
		"redis": func() Store {
			mr := miniredis.RunT(t)
			rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = rdb.Close() })
			return NewRedisStore(rdb, "test:", time.Hour)
		},
	}
}

func TestStore_PutGet(t *testing.T) {
	for name, mk := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := mk()

			_, ok, err := s.Get(ctx, 1)
			require.NoError(t, err)
			assert.False(t, ok)

			put, err := s.Put(ctx, 1, "missed a meeting")
			require.NoError(t, err)
			assert.NotEmpty(t, put.Token)
			assert.Equal(t, PhaseAwaitingStyle, put.Phase)

			got, ok, err := s.Get(ctx, 1)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, int64(1), got.UserID)
			assert.Equal(t, "missed a meeting", got.Situation)
			assert.Equal(t, put.Token, got.Token)
			assert.False(t, got.HasStyle())
		})
	}
}

func TestStore_SetStyleRequiresSession(t *testing.T) {
	for name, mk := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			_, err := mk().SetStyle(context.Background(), 7, "tok", "formal")
			assert.ErrorIs(t, err, ErrNoActiveSession)
		})
	}
}

func TestStore_SetStyleCommitsWithMatchingToken(t *testing.T) {
	for name, mk := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := mk()
			put, err := s.Put(ctx, 2, "late")
			require.NoError(t, err)

			sess, err := s.SetStyle(ctx, 2, put.Token, "monk")
			require.NoError(t, err)
			assert.Equal(t, "monk", sess.Style)
			assert.Equal(t, PhaseGenerated, sess.Phase)
			assert.Equal(t, "late", sess.Situation)

			got, ok, err := s.Get(ctx, 2)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "monk", got.Style)
			assert.Equal(t, PhaseGenerated, got.Phase)
		})
	}
}

func TestStore_StaleTokenIsRejected(t *testing.T) {
	for name, mk := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := mk()
			first, err := s.Put(ctx, 3, "old")
			require.NoError(t, err)
			second, err := s.Put(ctx, 3, "new")
			require.NoError(t, err)
			require.NotEqual(t, first.Token, second.Token)

			_, err = s.SetStyle(ctx, 3, first.Token, "formal")
			assert.ErrorIs(t, err, ErrSuperseded)

			got, _, err := s.Get(ctx, 3)
			require.NoError(t, err)
			assert.Equal(t, "new", got.Situation)
			assert.False(t, got.HasStyle())
		})
	}
}

func TestStore_PutResetsStyle(t *testing.T) {
	for name, mk := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := mk()
			put, _ := s.Put(ctx, 4, "a")
			_, err := s.SetStyle(ctx, 4, put.Token, "guru")
			require.NoError(t, err)

			_, err = s.Put(ctx, 4, "b")
			require.NoError(t, err)
			got, _, _ := s.Get(ctx, 4)
			assert.Equal(t, "b", got.Situation)
			assert.Equal(t, PhaseAwaitingStyle, got.Phase)
			assert.Empty(t, got.Style)
		})
	}
}

func TestStore_ReopenKeepsSituationAndStyle(t *testing.T) {
	for name, mk := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := mk()

			_, err := s.Reopen(ctx, 5)
			assert.ErrorIs(t, err, ErrNoActiveSession)

			put, _ := s.Put(ctx, 5, "forgot keys")
			_, err = s.SetStyle(ctx, 5, put.Token, "blunt")
			require.NoError(t, err)

			sess, err := s.Reopen(ctx, 5)
			require.NoError(t, err)
			assert.Equal(t, PhaseAwaitingStyle, sess.Phase)
			assert.Equal(t, "forgot keys", sess.Situation)
			assert.Equal(t, "blunt", sess.Style)
			assert.Equal(t, put.Token, sess.Token)
		})
	}
}

func TestStore_Clear(t *testing.T) {
	for name, mk := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := mk()
			require.NoError(t, s.Clear(ctx, 6))
			_, _ = s.Put(ctx, 6, "x")
			require.NoError(t, s.Clear(ctx, 6))
			_, ok, err := s.Get(ctx, 6)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestStore_UsersAreIndependent(t *testing.T) {
	for name, mk := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := mk()
			a, _ := s.Put(ctx, 10, "a")
			_, _ = s.Put(ctx, 11, "b")
			_, err := s.SetStyle(ctx, 10, a.Token, "formal")
			require.NoError(t, err)

			other, ok, _ := s.Get(ctx, 11)
			require.True(t, ok)
			assert.Equal(t, "b", other.Situation)
			assert.Empty(t, other.Style)
		})
	}
}

func TestMemoryStore_ConcurrentUsers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	var wg sync.WaitGroup
	for u := int64(0); u < 200; u++ {
		wg.Add(1)
		go func(u int64) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				p, err := s.Put(ctx, u, "x")
				if err != nil {
					t.Error(err)
					return
				}
				if _, err := s.SetStyle(ctx, u, p.Token, "formal"); err != nil {
					t.Error(err)
					return
				}
			}
		}(u)
	}
	wg.Wait()
	assert.Equal(t, 200, s.Len())
}

func TestMemoryStore_TTL(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Minute)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	_, _ = s.Put(ctx, 1, "a")
	_, _ = s.Put(ctx, 2, "b")

	now = now.Add(30 * time.Second)
	_, ok, _ := s.Get(ctx, 1)
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok, _ = s.Get(ctx, 1)
	assert.False(t, ok, "expired entry must not be returned")

	assert.Equal(t, 1, s.Sweep())
	assert.Equal(t, 0, s.Len())
}

func TestRedisStore_TTLApplied(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	s := NewRedisStore(rdb, "ttl:", time.Minute)
	ctx := context.Background()

	_, err := s.Put(ctx, 9, "x")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, mr.TTL("ttl:9"))

	mr.FastForward(2 * time.Minute)
	_, ok, err := s.Get(ctx, 9)
	require.NoError(t, err)
	assert.False(t, ok)
}
