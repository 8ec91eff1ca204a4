package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// updateScript applies a conditional update to the JSON-encoded session at
// KEYS[1]. ARGV: token ("" skips the check), style ("" keeps it), phase,
// updated_at, ttl in milliseconds (0 means no expiry).
// Returns 0 when missing, -1 on token mismatch, else the new value.
var updateScript = goredis.NewScript(`
local v = redis.call('GET', KEYS[1])
if not v then return 0 end
local s = cjson.decode(v)
if ARGV[1] ~= '' and s.token ~= ARGV[1] then return -1 end
if ARGV[2] ~= '' then s.style = ARGV[2] end
s.phase = ARGV[3]
s.updated_at = ARGV[4]
local enc = cjson.encode(s)
local ttl = tonumber(ARGV[5])
if ttl > 0 then
  redis.call('SET', KEYS[1], enc, 'PX', ttl)
else
  redis.call('SET', KEYS[1], enc)
end
return enc
`)

// RedisStore keeps sessions in Redis so several API instances share them.
// Token-checked updates run as a Lua script and are atomic per key.
type RedisStore struct {
	rdb    goredis.UniversalClient
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisStore wraps an existing client.
func NewRedisStore(rdb goredis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "session:"
	}
	return &RedisStore{rdb: rdb, prefix: prefix, ttl: ttl, now: time.Now}
}

// DialRedis connects and pings addr.
func DialRedis(ctx context.Context, addr string) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func (s *RedisStore) key(userID int64) string {
	return s.prefix + strconv.FormatInt(userID, 10)
}

func (s *RedisStore) stamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

func (s *RedisStore) decode(userID int64, raw string) (Session, error) {
	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	sess.UserID = userID
	return sess, nil
}

func (s *RedisStore) Put(ctx context.Context, userID int64, situation string) (Session, error) {
	sess := Session{
		UserID:    userID,
		Situation: situation,
		Phase:     PhaseAwaitingStyle,
		Token:     uuid.NewString(),
		UpdatedAt: s.now().UTC(),
	}
	raw, err := json.Marshal(sess)
	if err != nil {
		return Session{}, err
	}
	if err := s.rdb.Set(ctx, s.key(userID), raw, s.ttl).Err(); err != nil {
		return Session{}, fmt.Errorf("redis set: %w", err)
	}
	return sess, nil
}

func (s *RedisStore) Get(ctx context.Context, userID int64) (Session, bool, error) {
	raw, err := s.rdb.Get(ctx, s.key(userID)).Result()
	if errors.Is(err, goredis.Nil) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, fmt.Errorf("redis get: %w", err)
	}
	sess, err := s.decode(userID, raw)
	if err != nil {
		return Session{}, false, err
	}
	return sess, true, nil
}

func (s *RedisStore) update(ctx context.Context, userID int64, token, style string, phase Phase) (Session, error) {
	res, err := updateScript.Run(ctx, s.rdb, []string{s.key(userID)},
		token, style, string(phase), s.stamp(), s.ttl.Milliseconds()).Result()
	if err != nil {
		return Session{}, fmt.Errorf("redis update: %w", err)
	}
	switch v := res.(type) {
	case int64:
		if v == -1 {
			return Session{}, ErrSuperseded
		}
		return Session{}, ErrNoActiveSession
	case string:
		return s.decode(userID, v)
	default:
		return Session{}, fmt.Errorf("redis update: unexpected reply %T", res)
	}
}

func (s *RedisStore) SetStyle(ctx context.Context, userID int64, token, style string) (Session, error) {
	if token == "" {
		return Session{}, ErrSuperseded
	}
	return s.update(ctx, userID, token, style, PhaseGenerated)
}

func (s *RedisStore) Reopen(ctx context.Context, userID int64) (Session, error) {
	return s.update(ctx, userID, "", "", PhaseAwaitingStyle)
}

func (s *RedisStore) Clear(ctx context.Context, userID int64) error {
	if err := s.rdb.Del(ctx, s.key(userID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
