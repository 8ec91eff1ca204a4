package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

const shardCount = 64

type shard struct {
	mu sync.Mutex
	m  map[int64]Session
}

// MemoryStore keeps sessions in process memory, sharded by user id so that
// unrelated users rarely contend on the same lock.
type MemoryStore struct {
	shards [shardCount]shard
	ttl    time.Duration
	now    func() time.Time
}

// NewMemoryStore creates a store whose entries expire after ttl of
// inactivity. ttl <= 0 keeps entries until replaced or cleared.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	s := &MemoryStore{ttl: ttl, now: time.Now}
	for i := range s.shards {
		s.shards[i].m = make(map[int64]Session)
	}
	return s
}

func (s *MemoryStore) shardFor(userID int64) *shard {
	h := uint64(userID)
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	return &s.shards[h%shardCount]
}

// lookup must be called with sh.mu held.
func (s *MemoryStore) lookup(sh *shard, userID int64) (Session, bool) {
	cur, ok := sh.m[userID]
	if !ok {
		return Session{}, false
	}
	if s.ttl > 0 && s.now().Sub(cur.UpdatedAt) > s.ttl {
		delete(sh.m, userID)
		return Session{}, false
	}
	return cur, true
}

func (s *MemoryStore) Put(_ context.Context, userID int64, situation string) (Session, error) {
	sess := Session{
		UserID:    userID,
		Situation: situation,
		Phase:     PhaseAwaitingStyle,
		Token:     uuid.NewString(),
		UpdatedAt: s.now(),
	}
	sh := s.shardFor(userID)
	sh.mu.Lock()
	sh.m[userID] = sess
	sh.mu.Unlock()
	return sess, nil
}

func (s *MemoryStore) Get(_ context.Context, userID int64) (Session, bool, error) {
	sh := s.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sess, ok := s.lookup(sh, userID)
	return sess, ok, nil
}

func (s *MemoryStore) SetStyle(_ context.Context, userID int64, token, style string) (Session, error) {
	sh := s.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	cur, ok := s.lookup(sh, userID)
	if !ok {
		return Session{}, ErrNoActiveSession
	}
	if cur.Token != token {
		return Session{}, ErrSuperseded
	}
	cur.Style = style
	cur.Phase = PhaseGenerated
	cur.UpdatedAt = s.now()
	sh.m[userID] = cur
	return cur, nil
}

func (s *MemoryStore) Reopen(_ context.Context, userID int64) (Session, error) {
	sh := s.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	cur, ok := s.lookup(sh, userID)
	if !ok {
		return Session{}, ErrNoActiveSession
	}
	cur.Phase = PhaseAwaitingStyle
	cur.UpdatedAt = s.now()
	sh.m[userID] = cur
	return cur, nil
}

func (s *MemoryStore) Clear(_ context.Context, userID int64) error {
	sh := s.shardFor(userID)
	sh.mu.Lock()
	delete(sh.m, userID)
	sh.mu.Unlock()
	return nil
}

// Len counts live entries. Expired entries that were not yet touched are
// included.
func (s *MemoryStore) Len() int {
	n := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		n += len(sh.m)
		sh.mu.Unlock()
	}
	return n
}

// Sweep removes expired entries and returns how many were dropped.
func (s *MemoryStore) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	now := s.now()
	dropped := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for id, sess := range sh.m {
			if now.Sub(sess.UpdatedAt) > s.ttl {
				delete(sh.m, id)
				dropped++
			}
		}
		sh.mu.Unlock()
	}
	return dropped
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *MemoryStore) RunSweeper(ctx context.Context, interval time.Duration) {
	if s.ttl <= 0 || interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Sweep()
		}
	}
}
