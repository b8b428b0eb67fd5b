package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Backend.BaseURL != "http://laravel:8000" || cfg.Backend.Timeout() != 30*time.Second {
		t.Fatalf("backend = %+v", cfg.Backend)
	}
	if cfg.Subscription.PublicURL != cfg.Backend.BaseURL {
		t.Fatalf("public url = %q", cfg.Subscription.PublicURL)
	}
	if cfg.Session.Backend != StoreMemory || cfg.Session.TTL() != 24*time.Hour {
		t.Fatalf("session = %+v", cfg.Session)
	}
	if cfg.Tokens.TTL() != 24*time.Hour {
		t.Fatalf("tokens = %+v", cfg.Tokens)
	}
	if cfg.Payment.MinDeposit != 10000 || cfg.Support.Username != "@support" {
		t.Fatalf("payment = %+v support = %+v", cfg.Payment, cfg.Support)
	}
	if cfg.Broadcast.Delay() != 50*time.Millisecond || cfg.Broadcast.Batch != 50 {
		t.Fatalf("broadcast = %+v", cfg.Broadcast)
	}
	if cfg.NeedsRedis() || cfg.NeedsPostgres() {
		t.Fatal("memory defaults must not need external stores")
	}
	if cfg.CoreConfig().Telegram.Token != "123:abc" {
		t.Fatal("core config not embedded")
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
telegram:
  token: from-file
backend:
  base_url: https://api.example.com/
session:
  backend: Redis
redis:
  host: cache
  port: 6380
payment:
  min_deposit: 20000
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SUBSCRIPTION_PUBLIC_URL", "https://sub.example.com/")
	t.Setenv("SUPPORT_USERNAME", "@meow_help")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Telegram.Token != "from-file" {
		t.Fatalf("token = %q", cfg.Telegram.Token)
	}
	if cfg.Backend.BaseURL != "https://api.example.com" {
		t.Fatalf("base url = %q", cfg.Backend.BaseURL)
	}
	if cfg.Subscription.PublicURL != "https://sub.example.com" {
		t.Fatalf("public url = %q", cfg.Subscription.PublicURL)
	}
	if cfg.Session.Backend != StoreRedis || !cfg.NeedsRedis() {
		t.Fatalf("session backend = %q", cfg.Session.Backend)
	}
	if cfg.Redis.Addr() != "cache:6380" {
		t.Fatalf("redis addr = %q", cfg.Redis.Addr())
	}
	if cfg.Payment.MinDeposit != 20000 || cfg.Support.Username != "@meow_help" {
		t.Fatalf("payment = %+v support = %+v", cfg.Payment, cfg.Support)
	}
}

func TestNormalizeRejects(t *testing.T) {
	base := func() Config {
		var c Config
		c.Telegram.Token = "t"
		return c
	}
	cases := map[string]func(*Config){
		"relative url":          func(c *Config) { c.Backend.BaseURL = "laravel:8000/api" },
		"unknown session":       func(c *Config) { c.Session.Backend = "etcd" },
		"postgres tokens":       func(c *Config) { c.Tokens.Store = "postgres" },
		"postgres without host": func(c *Config) { c.Session.Backend = "postgres" },
		"negative delay":        func(c *Config) { c.Broadcast.DelayMS = -1 },
	}
	for name, mutate := range cases {
		c := base()
		mutate(&c)
		if err := Normalize(&c); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
