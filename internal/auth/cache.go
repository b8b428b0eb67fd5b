// Package auth caches backend bearer tokens per chat user. A cached token is
// probed before use and replaced through an idempotent register call when
// the probe fails.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/m3rciful/meowbot/core/logger"
	"github.com/m3rciful/meowbot/internal/backend"
)

const component = "auth.tokens"

// DefaultTTL is how long a token stays cached.
const DefaultTTL = 24 * time.Hour

// ErrUnavailable means no usable token could be obtained.
var ErrUnavailable = errors.New("auth: authentication unavailable")

// Backend is the slice of the API the cache needs.
type Backend interface {
	Register(ctx context.Context, in backend.RegisterRequest) (string, error)
	Me(ctx context.Context, token string) (backend.Identity, error)
}

// Cache maps a chat user to a live token.
type Cache struct {
	store Store
	api   Backend
	ttl   time.Duration
	group singleflight.Group
}

// New builds a Cache. A non-positive ttl selects DefaultTTL.
func New(store Store, api Backend, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{store: store, api: api, ttl: ttl}
}

// Token returns a token that passed a probe, registering a new one when the
// cached entry is missing or rejected. ok is false when auth is unavailable.
func (c *Cache) Token(ctx context.Context, userID int64, username string) (string, bool) {
	r := c.probed(ctx, userID, username)
	return r.token, r.ok
}

type result struct {
	token string
	ok    bool
	// probe is the auth/me answer for a cached token; nil after a register.
	probe *backend.Identity
}

func (c *Cache) probed(ctx context.Context, userID int64, username string) result {
	v, _, _ := c.group.Do("token:"+strconv.FormatInt(userID, 10), func() (any, error) {
		return c.token(ctx, userID, username), nil
	})
	return v.(result)
}

func (c *Cache) token(ctx context.Context, userID int64, username string) result {
	cached, err := c.store.Get(ctx, userID)
	if err != nil {
		logger.Warn(ctx, component, "token.store",
			slog.String("status", "fail"),
			slog.String("op", "get"),
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
	}
	if cached != "" {
		ident, err := c.api.Me(ctx, cached)
		if err == nil {
			logger.Debug(ctx, component, "token.probe",
				slog.String("status", "ok"),
				slog.String("cache", "hit"),
				slog.Int64("user_id", userID),
			)
			return result{token: cached, ok: true, probe: &ident}
		}
		logger.Info(ctx, component, "token.probe",
			slog.String("status", "fail"),
			slog.String("cache", "evict"),
			slog.Int64("user_id", userID),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		c.evict(ctx, userID)
	}
	tok, ok := c.register(ctx, backend.RegisterRequest{TelegramID: userID, Username: username})
	return result{token: tok, ok: ok}
}

// ForceRefresh evicts the cached token and obtains a new one.
func (c *Cache) ForceRefresh(ctx context.Context, userID int64, username string) (string, bool) {
	v, _, _ := c.group.Do("refresh:"+strconv.FormatInt(userID, 10), func() (any, error) {
		c.evict(ctx, userID)
		tok, ok := c.register(ctx, backend.RegisterRequest{TelegramID: userID, Username: username})
		return result{token: tok, ok: ok}, nil
	})
	r := v.(result)
	return r.token, r.ok
}

// Register performs one register call, passing parentID as referral when it
// is positive, and caches the returned token.
func (c *Cache) Register(ctx context.Context, userID int64, username string, parentID int64) (string, bool) {
	in := backend.RegisterRequest{TelegramID: userID, Username: username}
	if parentID > 0 && parentID != userID {
		in.ParentID = parentID
	}
	return c.register(ctx, in)
}

func (c *Cache) register(ctx context.Context, in backend.RegisterRequest) (string, bool) {
	tok, err := c.api.Register(ctx, in)
	if err != nil {
		logger.Warn(ctx, component, "token.register",
			slog.String("status", "fail"),
			slog.Int64("user_id", in.TelegramID),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		return "", false
	}
	if err := c.store.Set(ctx, in.TelegramID, tok, c.ttl); err != nil {
		logger.Warn(ctx, component, "token.store",
			slog.String("status", "fail"),
			slog.String("op", "set"),
			slog.Int64("user_id", in.TelegramID),
			slog.String("err", err.Error()),
		)
	}
	logger.Debug(ctx, component, "token.register",
		slog.String("status", "ok"),
		slog.String("cache", "refresh"),
		slog.Int64("user_id", in.TelegramID),
	)
	return tok, true
}

func (c *Cache) evict(ctx context.Context, userID int64) {
	if err := c.store.Delete(ctx, userID); err != nil {
		logger.Warn(ctx, component, "token.store",
			slog.String("status", "fail"),
			slog.String("op", "delete"),
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
	}
}

// Call runs fn with a probed token. When fn reports ErrUnauthorized the
// token is refreshed once and fn retried once.
func (c *Cache) Call(ctx context.Context, userID int64, username string, fn func(ctx context.Context, token string) error) error {
	tok, ok := c.Token(ctx, userID, username)
	if !ok {
		return ErrUnavailable
	}
	return c.retry(ctx, userID, username, tok, fn)
}

func (c *Cache) retry(ctx context.Context, userID int64, username, tok string, fn func(ctx context.Context, token string) error) error {
	err := fn(ctx, tok)
	if !errors.Is(err, backend.ErrUnauthorized) {
		return err
	}
	tok, ok := c.ForceRefresh(ctx, userID, username)
	if !ok {
		return ErrUnavailable
	}
	if err := fn(ctx, tok); err != nil {
		if errors.Is(err, backend.ErrUnauthorized) {
			return ErrUnavailable
		}
		return err
	}
	return nil
}

// Identity looks the caller up freshly. Roles are never cached: a cached
// token's probe already is a fresh auth/me, so its answer is returned as is.
func (c *Cache) Identity(ctx context.Context, userID int64, username string) (backend.Identity, error) {
	r := c.probed(ctx, userID, username)
	if !r.ok {
		return backend.Identity{}, ErrUnavailable
	}
	if r.probe != nil {
		return *r.probe, nil
	}
	var id backend.Identity
	err := c.retry(ctx, userID, username, r.token, func(ctx context.Context, token string) error {
		var err error
		id, err = c.api.Me(ctx, token)
		return err
	})
	return id, err
}
