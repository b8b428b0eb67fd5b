// Package config loads the meowbot application configuration: the reusable
// core settings plus backend, storage, payment and broadcast sections.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/meowbot/core/config"
	"github.com/m3rciful/meowbot/core/storage"
)

// Session and token store backends.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

const (
	defaultBackendURL     = "http://laravel:8000"
	defaultBackendTimeout = 30
	defaultTTLHours       = 24
	defaultBroadcastDelay = 50
	defaultBroadcastBatch = 50
	defaultMinDeposit     = 10000
	defaultSupport        = "@support"
	defaultCardNumber     = "6037-XXXX-XXXX-XXXX"
	defaultCardHolder     = "نام صاحب کارت"
)

// BackendConfig points at the business backend REST API.
type BackendConfig struct {
	BaseURL        string `yaml:"base_url" envconfig:"API_BASE_URL"`
	TimeoutSeconds int    `yaml:"timeout_seconds" envconfig:"BACKEND_TIMEOUT_SECONDS"`
	MaxRetries     int    `yaml:"max_retries" envconfig:"BACKEND_MAX_RETRIES"`
}

// Timeout returns the per-call deadline.
func (b BackendConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSeconds) * time.Second
}

// SubscriptionConfig holds the public base used in subscription links.
type SubscriptionConfig struct {
	PublicURL string `yaml:"public_url" envconfig:"SUBSCRIPTION_PUBLIC_URL"`
}

// SessionConfig selects where conversation sessions live.
type SessionConfig struct {
	Backend  string `yaml:"backend" envconfig:"SESSION_BACKEND"`
	TTLHours int    `yaml:"ttl_hours" envconfig:"SESSION_TTL_HOURS"`
}

// TTL returns the session lifetime.
func (s SessionConfig) TTL() time.Duration { return time.Duration(s.TTLHours) * time.Hour }

// TokenConfig selects where bearer tokens are cached.
type TokenConfig struct {
	Store    string `yaml:"store" envconfig:"TOKEN_STORE"`
	TTLHours int    `yaml:"ttl_hours" envconfig:"TOKEN_TTL_HOURS"`
}

// TTL returns how long a cached token is kept.
func (t TokenConfig) TTL() time.Duration { return time.Duration(t.TTLHours) * time.Hour }

// PaymentConfig holds manual transfer details and the deposit floor in toman.
type PaymentConfig struct {
	CardNumber string `yaml:"card_number" envconfig:"CARD_NUMBER"`
	CardHolder string `yaml:"card_holder" envconfig:"CARD_HOLDER"`
	MinDeposit int64  `yaml:"min_deposit" envconfig:"MIN_DEPOSIT"`
}

// SupportConfig holds the support contact handle.
type SupportConfig struct {
	Username string `yaml:"username" envconfig:"SUPPORT_USERNAME"`
}

// BroadcastConfig tunes the fan-out pace.
type BroadcastConfig struct {
	DelayMS int `yaml:"delay_ms" envconfig:"BROADCAST_DELAY_MS"`
	Batch   int `yaml:"batch" envconfig:"BROADCAST_BATCH"`
}

// Delay returns the pause between two sends.
func (b BroadcastConfig) Delay() time.Duration { return time.Duration(b.DelayMS) * time.Millisecond }

// Config is the full application configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Backend      BackendConfig          `yaml:"backend"`
	Subscription SubscriptionConfig     `yaml:"subscription"`
	Redis        storage.RedisConfig    `yaml:"redis"`
	Postgres     storage.PostgresConfig `yaml:"postgres"`
	Session      SessionConfig          `yaml:"session"`
	Tokens       TokenConfig            `yaml:"tokens"`
	Payment      PaymentConfig          `yaml:"payment"`
	Support      SupportConfig          `yaml:"support"`
	Broadcast    BroadcastConfig        `yaml:"broadcast"`
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// NeedsRedis reports whether any store is backed by redis.
func (c *Config) NeedsRedis() bool {
	return c.Session.Backend == StoreRedis || c.Tokens.Store == StoreRedis
}

// NeedsPostgres reports whether sessions are kept in postgres.
func (c *Config) NeedsPostgres() bool {
	return c.Session.Backend == StorePostgres
}

// Load reads YAML at path, overlays the environment and applies defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates cfg and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return err
	}

	base := strings.TrimRight(strings.TrimSpace(cfg.Backend.BaseURL), "/")
	if base == "" {
		base = defaultBackendURL
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("backend.base_url %q is not an absolute URL", cfg.Backend.BaseURL)
	}
	cfg.Backend.BaseURL = base
	if cfg.Backend.TimeoutSeconds <= 0 {
		cfg.Backend.TimeoutSeconds = defaultBackendTimeout
	}
	if cfg.Backend.MaxRetries < 0 {
		return fmt.Errorf("backend.max_retries must be >= 0")
	}

	cfg.Subscription.PublicURL = strings.TrimRight(strings.TrimSpace(cfg.Subscription.PublicURL), "/")
	if cfg.Subscription.PublicURL == "" {
		cfg.Subscription.PublicURL = base
	}

	var ok bool
	if cfg.Session.Backend, ok = normalizeStore(cfg.Session.Backend, StoreRedis, StorePostgres); !ok {
		return fmt.Errorf("invalid session.backend %q; allowed: memory, redis, postgres", cfg.Session.Backend)
	}
	if cfg.Session.TTLHours <= 0 {
		cfg.Session.TTLHours = defaultTTLHours
	}
	if cfg.Tokens.Store, ok = normalizeStore(cfg.Tokens.Store, StoreRedis); !ok {
		return fmt.Errorf("invalid tokens.store %q; allowed: memory, redis", cfg.Tokens.Store)
	}
	if cfg.Tokens.TTLHours <= 0 {
		cfg.Tokens.TTLHours = defaultTTLHours
	}
	if cfg.NeedsPostgres() && strings.TrimSpace(cfg.Postgres.Host) == "" {
		return fmt.Errorf("postgres.host is required when session.backend is postgres")
	}

	if strings.TrimSpace(cfg.Payment.CardNumber) == "" {
		cfg.Payment.CardNumber = defaultCardNumber
	}
	if strings.TrimSpace(cfg.Payment.CardHolder) == "" {
		cfg.Payment.CardHolder = defaultCardHolder
	}
	if cfg.Payment.MinDeposit <= 0 {
		cfg.Payment.MinDeposit = defaultMinDeposit
	}
	if strings.TrimSpace(cfg.Support.Username) == "" {
		cfg.Support.Username = defaultSupport
	}
	if cfg.Broadcast.DelayMS < 0 {
		return fmt.Errorf("broadcast.delay_ms must be >= 0")
	}
	if cfg.Broadcast.DelayMS == 0 {
		cfg.Broadcast.DelayMS = defaultBroadcastDelay
	}
	if cfg.Broadcast.Batch <= 0 {
		cfg.Broadcast.Batch = defaultBroadcastBatch
	}
	return nil
}

// normalizeStore lowercases v, maps empty to memory and checks it against allowed.
func normalizeStore(v string, allowed ...string) (string, bool) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" || v == StoreMemory {
		return StoreMemory, true
	}
	for _, a := range allowed {
		if v == a {
			return v, true
		}
	}
	return v, false
}
