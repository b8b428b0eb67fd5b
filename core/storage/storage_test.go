package storage

import (
	"reflect"
	"strings"
	"testing"
)

func TestRedisConfigAddr(t *testing.T) {
	cases := []struct {
		cfg  RedisConfig
		want string
	}{
		{RedisConfig{}, "redis:6379"},
		{RedisConfig{Host: "localhost", Port: 6380}, "localhost:6380"},
		{RedisConfig{Host: " cache "}, "cache:6379"},
	}
	for _, tc := range cases {
		if got := tc.cfg.Addr(); got != tc.want {
			t.Errorf("Addr(%+v) = %q, want %q", tc.cfg, got, tc.want)
		}
	}
}

func TestPostgresConfigDefaults(t *testing.T) {
	cfg := PostgresConfig{Host: "db", User: "bot", Password: "secret", Name: "meow"}
	if got := cfg.URL(); got != "postgres://bot:secret@db:5432/meow?sslmode=disable" {
		t.Fatalf("URL = %q", got)
	}
	if dsn := cfg.DSN(); !strings.Contains(dsn, "port=5432") || !strings.Contains(dsn, "sslmode=disable") {
		t.Fatalf("DSN = %q", dsn)
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	files := listMigrationFiles(migrationsFS)
	if len(files) == 0 || files[0] != "0001_sessions.up.sql" {
		t.Fatalf("unexpected migrations: %v", files)
	}
}

func TestSelectApplied(t *testing.T) {
	files := []string{"0001_a.up.sql", "0002_b.up.sql", "0003_c.up.sql"}
	if got := selectApplied(files, 1, 3); !reflect.DeepEqual(got, []string{"0002_b.up.sql", "0003_c.up.sql"}) {
		t.Fatalf("selectApplied = %v", got)
	}
	if got := selectApplied(files, 3, 3); got != nil {
		t.Fatalf("expected nothing applied, got %v", got)
	}
}
