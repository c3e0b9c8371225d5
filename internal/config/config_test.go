package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := defaults()

	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("expected default redis addr localhost:6379, got %s", cfg.Redis.Addr)
	}
	if cfg.Redis.Channel != "k0mmand3r" {
		t.Errorf("expected default channel k0mmand3r, got %s", cfg.Redis.Channel)
	}
	if cfg.Datum.Dir != "datums" {
		t.Errorf("expected datum dir datums, got %s", cfg.Datum.Dir)
	}
	if cfg.Datum.PresetsFile != "langchain.ai.toml" {
		t.Errorf("expected presets file langchain.ai.toml, got %s", cfg.Datum.PresetsFile)
	}
	if cfg.Store.Path != "data/agentbus.db" {
		t.Errorf("expected store path data/agentbus.db, got %s", cfg.Store.Path)
	}
	if cfg.Scheduler.PollInterval != 30*time.Second {
		t.Errorf("expected poll_interval 30s, got %v", cfg.Scheduler.PollInterval)
	}
	if !cfg.Queue.Enabled {
		t.Error("expected queue enabled by default")
	}
	if cfg.Queue.Concurrency != 4 {
		t.Errorf("expected queue concurrency 4, got %d", cfg.Queue.Concurrency)
	}
	if cfg.Web.Port != 8080 {
		t.Errorf("expected web port 8080, got %d", cfg.Web.Port)
	}
	if !cfg.Web.Enabled {
		t.Error("expected web enabled by default")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	// Point config to a non-existent file so we use defaults
	t.Setenv("AGENTBUS_CONFIG", "/nonexistent/config.toml")
	t.Setenv("AGENTBUS_REDIS_ADDR", "redis.internal:6380")
	t.Setenv("AGENTBUS_CHANNEL", "commands")
	t.Setenv("AGENTBUS_WEB_AUTH", "secret")
	t.Setenv("AGENTBUS_WEB_PORT", "9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Redis.Addr != "redis.internal:6380" {
		t.Errorf("expected redis addr redis.internal:6380, got %s", cfg.Redis.Addr)
	}
	if cfg.Redis.Channel != "commands" {
		t.Errorf("expected channel commands, got %s", cfg.Redis.Channel)
	}
	if cfg.Web.Auth != "secret" {
		t.Errorf("expected web auth secret, got %s", cfg.Web.Auth)
	}
	if cfg.Web.Port != 9090 {
		t.Errorf("expected web port 9090, got %d", cfg.Web.Port)
	}
}

func TestLoadFromTOML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "agentbus.toml")

	doc := `
[redis]
addr = "127.0.0.1:7000"
channel = "swarm"
db = 2

[datum]
dir = "/etc/agentbus/datums"

[web]
port = 3000
enabled = false

[queue]
enabled = false
concurrency = 8
`
	if err := os.WriteFile(cfgPath, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("AGENTBUS_CONFIG", cfgPath)
	// Clear any env overrides
	t.Setenv("AGENTBUS_REDIS_ADDR", "")
	t.Setenv("AGENTBUS_CHANNEL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Redis.Addr != "127.0.0.1:7000" {
		t.Errorf("expected 127.0.0.1:7000, got %s", cfg.Redis.Addr)
	}
	if cfg.Redis.Channel != "swarm" {
		t.Errorf("expected channel swarm, got %s", cfg.Redis.Channel)
	}
	if cfg.Redis.DB != 2 {
		t.Errorf("expected redis db 2, got %d", cfg.Redis.DB)
	}
	if cfg.Datum.Dir != "/etc/agentbus/datums" {
		t.Errorf("expected datum dir /etc/agentbus/datums, got %s", cfg.Datum.Dir)
	}
	if cfg.Web.Port != 3000 {
		t.Errorf("expected web port 3000, got %d", cfg.Web.Port)
	}
	if cfg.Web.Enabled {
		t.Error("expected web disabled")
	}
	if cfg.Queue.Enabled {
		t.Error("expected queue disabled")
	}
	if cfg.Queue.Concurrency != 8 {
		t.Errorf("expected queue concurrency 8, got %d", cfg.Queue.Concurrency)
	}
}
