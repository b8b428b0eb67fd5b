package auth

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store keeps one bearer token per user. Get returns "" when nothing is cached.
type Store interface {
	Get(ctx context.Context, userID int64) (string, error)
	Set(ctx context.Context, userID int64, token string, ttl time.Duration) error
	Delete(ctx context.Context, userID int64) error
}

// KeyPrefix namespaces token keys in redis.
const KeyPrefix = "user_token:"

// RedisStore keeps tokens under user_token:<id> with an expiry.
type RedisStore struct {
	rdb redis.UniversalClient
}

// NewRedisStore wraps a connected redis client.
func NewRedisStore(rdb redis.UniversalClient) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func redisKey(userID int64) string { return KeyPrefix + strconv.FormatInt(userID, 10) }

// Get returns the cached token.
func (s *RedisStore) Get(ctx context.Context, userID int64) (string, error) {
	tok, err := s.rdb.Get(ctx, redisKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return tok, err
}

// Set stores token for ttl.
func (s *RedisStore) Set(ctx context.Context, userID int64, token string, ttl time.Duration) error {
	return s.rdb.Set(ctx, redisKey(userID), token, ttl).Err()
}

// Delete drops the cached token.
func (s *RedisStore) Delete(ctx context.Context, userID int64) error {
	return s.rdb.Del(ctx, redisKey(userID)).Err()
}

type memEntry struct {
	token   string
	expires time.Time
}

// MemoryStore is an in-process Store for single-instance deployments and tests.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[int64]memEntry
	now     func() time.Time
}

// NewMemoryStore builds an empty MemoryStore. A nil clock means time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{entries: make(map[int64]memEntry), now: now}
}

// Get returns the cached token unless it expired.
func (s *MemoryStore) Get(_ context.Context, userID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[userID]
	if !ok {
		return "", nil
	}
	if !e.expires.IsZero() && !s.now().Before(e.expires) {
		delete(s.entries, userID)
		return "", nil
	}
	return e.token, nil
}

// Set stores token for ttl. A non-positive ttl never expires.
func (s *MemoryStore) Set(_ context.Context, userID int64, token string, ttl time.Duration) error {
	e := memEntry{token: token}
	if ttl > 0 {
		e.expires = s.now().Add(ttl)
	}
	s.mu.Lock()
	s.entries[userID] = e
	s.mu.Unlock()
	return nil
}

// Delete drops the cached token.
func (s *MemoryStore) Delete(_ context.Context, userID int64) error {
	s.mu.Lock()
	delete(s.entries, userID)
	s.mu.Unlock()
	return nil
}
