package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// validEnv sets the minimum required env vars for a valid config.
func validEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_DSN", "postgres://u:p@localhost:5432/testdb")
}

func writeYAML(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	return path
}

const validYAML = `
server:
  host: "127.0.0.1"
  port: 9090
  read_timeout: "5s"
  write_timeout: "15s"
  idle_timeout: "30s"
  shutdown_timeout: "5s"
  store: "postgres"

database:
  dsn: "postgres://u:p@localhost:5432/testdb"
  max_conns: 10
  min_conns: 2
  auto_migrate: false

redis:
  url: "redis://localhost:6379/0"
  channel_prefix: "tavern"

log:
  level: "debug"
  format: "text"

rate_limit:
  lease_per_minute: 120

notes:
  lease_ttl: "2m"
  max_versions: 20
`

func TestLoad_ValidYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, validYAML)
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Server
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("server.host = %q, want %q", cfg.Server.Host, "127.0.0.1")
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("server.port = %d, want %d", cfg.Server.Port, 9090)
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("server.read_timeout = %v, want %v", cfg.Server.ReadTimeout, 5*time.Second)
	}
	if cfg.Server.Store != StorePostgres {
		t.Errorf("server.store = %q, want %q", cfg.Server.Store, StorePostgres)
	}

	// Database
	if cfg.Database.DSN != "postgres://u:p@localhost:5432/testdb" {
		t.Errorf("database.dsn = %q", cfg.Database.DSN)
	}
	if cfg.Database.MaxConns != 10 {
		t.Errorf("database.max_conns = %d, want 10", cfg.Database.MaxConns)
	}
	if cfg.Database.AutoMigrate {
		t.Error("database.auto_migrate should be false")
	}

	// Redis
	if !cfg.Redis.Enabled() {
		t.Error("redis should be enabled")
	}
	if cfg.Redis.ChannelPrefix != "tavern" {
		t.Errorf("redis.channel_prefix = %q, want %q", cfg.Redis.ChannelPrefix, "tavern")
	}
	if cfg.Redis.Backlog != 100 {
		t.Errorf("redis.backlog = %d, want 100 (default)", cfg.Redis.Backlog)
	}

	// Log
	if cfg.Log.Level != "debug" {
		t.Errorf("log.level = %q, want %q", cfg.Log.Level, "debug")
	}
	if cfg.Log.Format != "text" {
		t.Errorf("log.format = %q, want %q", cfg.Log.Format, "text")
	}

	// Rate limit
	if cfg.RateLimit.LeasePerMinute != 120 {
		t.Errorf("rate_limit.lease_per_minute = %d, want 120", cfg.RateLimit.LeasePerMinute)
	}

	// Notes
	if cfg.Notes.LeaseTTL != 2*time.Minute {
		t.Errorf("notes.lease_ttl = %v, want 2m", cfg.Notes.LeaseTTL)
	}
	if cfg.Notes.MaxVersions != 20 {
		t.Errorf("notes.max_versions = %d, want 20", cfg.Notes.MaxVersions)
	}
}

func TestLoad_ENVOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, validYAML)
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("SERVER_PORT", "3000")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("NOTES_LEASE_TTL", "90s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 3000 {
		t.Errorf("server.port = %d, want 3000 (ENV override)", cfg.Server.Port)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log.level = %q, want %q (ENV override)", cfg.Log.Level, "warn")
	}
	if cfg.Notes.LeaseTTL != 90*time.Second {
		t.Errorf("notes.lease_ttl = %v, want 90s (ENV override)", cfg.Notes.LeaseTTL)
	}
}

func TestLoad_NoFile_ENVOnly(t *testing.T) {
	validEnv(t)
	t.Setenv("CONFIG_PATH", "")
	origDir, _ := os.Getwd()
	t.Cleanup(func() { _ = os.Chdir(origDir) })
	_ = os.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("server.port = %d, want 8080 (default)", cfg.Server.Port)
	}
	if cfg.Notes.LeaseTTL != 5*time.Minute {
		t.Errorf("notes.lease_ttl = %v, want 5m (default)", cfg.Notes.LeaseTTL)
	}
	if cfg.Notes.MaxVersions != 50 {
		t.Errorf("notes.max_versions = %d, want 50 (default)", cfg.Notes.MaxVersions)
	}
	if cfg.Redis.Enabled() {
		t.Error("redis should be disabled without a URL")
	}
}

func TestLoad_MemoryStoreNeedsNoDSN(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("NOTES_STORE", "memory")
	origDir, _ := os.Getwd()
	t.Cleanup(func() { _ = os.Chdir(origDir) })
	_ = os.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Store != StoreMemory {
		t.Errorf("server.store = %q, want %q", cfg.Server.Store, StoreMemory)
	}
}

func TestLoad_ExplicitPathNotFound(t *testing.T) {
	t.Setenv("CONFIG_PATH", "/nonexistent/config.yaml")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing explicit config path")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, `{{{invalid yaml`)
	t.Setenv("CONFIG_PATH", path)

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "memory store without dsn", mutate: func(c *Config) { c.Server.Store = StoreMemory; c.Database.DSN = "" }},
		{name: "postgres without dsn", mutate: func(c *Config) { c.Database.DSN = "" }, wantErr: true},
		{name: "unknown store", mutate: func(c *Config) { c.Server.Store = "sqlite" }, wantErr: true},
		{name: "zero port", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: true},
		{name: "unknown log level", mutate: func(c *Config) { c.Log.Level = "trace" }, wantErr: true},
		{name: "unknown log format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantErr: true},
		{name: "upper-case log level", mutate: func(c *Config) { c.Log.Level = "WARN" }},
		{name: "zero lease ttl", mutate: func(c *Config) { c.Notes.LeaseTTL = 0 }, wantErr: true},
		{name: "negative lease ttl", mutate: func(c *Config) { c.Notes.LeaseTTL = -time.Second }, wantErr: true},
		{name: "zero max versions", mutate: func(c *Config) { c.Notes.MaxVersions = 0 }, wantErr: true},
		{name: "zero rate limit", mutate: func(c *Config) { c.RateLimit.LeasePerMinute = 0 }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := validConfig()
	cfg.Notes.LeaseTTL = 0
	cfg.Log.Format = "xml"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	for _, want := range []string{"lease_ttl", "unknown format"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q does not mention %q", msg, want)
		}
	}
}

// validConfig returns a Config that passes all validation checks.
func validConfig() Config {
	return Config{
		Server:    ServerConfig{Port: 8080, Store: StorePostgres},
		Database:  DatabaseConfig{DSN: "postgres://u:p@localhost:5432/testdb"},
		Log:       LogConfig{Level: "info", Format: "json"},
		RateLimit: RateLimitConfig{LeasePerMinute: 60, Burst: 10},
		Notes:     NotesConfig{LeaseTTL: 5 * time.Minute, MaxVersions: 50},
	}
}
