package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/m3rciful/meowbot/core/logger"
)

// RedisKeyPrefix namespaces session keys.
const RedisKeyPrefix = "session:"

const maxTxRetries = 100

// ErrConflict is returned when an optimistic update kept losing races.
var ErrConflict = errors.New("session: concurrent update conflict")

// Redis stores sessions as JSON values with an expiry.
type Redis struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

// NewRedis builds a Redis backend. A non-positive ttl selects DefaultTTL.
func NewRedis(rdb redis.UniversalClient, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{rdb: rdb, ttl: ttl}
}

func sessionKey(userID int64) string { return RedisKeyPrefix + strconv.FormatInt(userID, 10) }

// Load reads the session. A corrupt value is treated as Idle.
func (r *Redis) Load(ctx context.Context, userID int64) (Session, error) {
	return r.load(ctx, r.rdb, userID)
}

func (r *Redis) load(ctx context.Context, c redis.Cmdable, userID int64) (Session, error) {
	data, err := c.Get(ctx, sessionKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return idle(userID), nil
	}
	if err != nil {
		return Session{}, err
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		logger.Warn(ctx, component, "session.decode",
			slog.String("status", "fail"),
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return idle(userID), nil
	}
	sess.UserID = userID
	return sess, nil
}

// Update runs fn inside WATCH/MULTI and retries when the key changed underneath.
func (r *Redis) Update(ctx context.Context, userID int64, fn func(*Session)) error {
	key := sessionKey(userID)
	txf := func(tx *redis.Tx) error {
		sess, err := r.load(ctx, tx, userID)
		if err != nil {
			return err
		}
		fn(&sess)
		if sess.empty() {
			_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
				p.Del(ctx, key)
				return nil
			})
			return err
		}
		data, err := json.Marshal(sess)
		if err != nil {
			return fmt.Errorf("session: encode: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, data, r.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := r.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrConflict
}

// Delete drops the session key.
func (r *Redis) Delete(ctx context.Context, userID int64) error {
	return r.rdb.Del(ctx, sessionKey(userID)).Err()
}
