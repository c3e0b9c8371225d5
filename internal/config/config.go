package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Redis     RedisConfig     `toml:"redis"`
	Datum     DatumConfig     `toml:"datum"`
	Store     StoreConfig     `toml:"store"`
	Queue     QueueConfig     `toml:"queue"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Web       WebConfig       `toml:"web"`
	Vault     VaultConfig     `toml:"vault"`
}

type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	// Channel is the pub/sub channel commands arrive on. Results go to
	// "<channel>:status".
	Channel string `toml:"channel"`
}

type DatumConfig struct {
	// Dir holds the TOML datums: the agent/chain presets file, *.mcp.toml
	// tool server descriptors and *.ai_model.toml provider records.
	Dir string `toml:"dir"`
	// PresetsFile is the agents/chains/schedules datum inside Dir.
	PresetsFile string `toml:"presets_file"`
}

type StoreConfig struct {
	Path string `toml:"path"`
}

type QueueConfig struct {
	Enabled     bool `toml:"enabled"`
	Concurrency int  `toml:"concurrency"`
}

type SchedulerConfig struct {
	PollInterval time.Duration `toml:"poll_interval"`
}

type WebConfig struct {
	Enabled bool   `toml:"enabled"`
	Port    int    `toml:"port"`
	Auth    string `toml:"auth"`
}

type VaultConfig struct {
	Passphrase string `toml:"passphrase"`
}

func defaults() Config {
	return Config{
		Redis: RedisConfig{
			Addr:    "localhost:6379",
			Channel: "k0mmand3r",
		},
		Datum: DatumConfig{
			Dir:         "datums",
			PresetsFile: "langchain.ai.toml",
		},
		Store: StoreConfig{
			Path: "data/agentbus.db",
		},
		Queue: QueueConfig{
			Enabled:     true,
			Concurrency: 4,
		},
		Scheduler: SchedulerConfig{
			PollInterval: 30 * time.Second,
		},
		Web: WebConfig{
			Enabled: true,
			Port:    8080,
		},
	}
}

func Load() (*Config, error) {
	cfg := defaults()

	path := os.Getenv("AGENTBUS_CONFIG")
	if path == "" {
		path = "config/agentbus.toml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file not found, use defaults + env
	} else {
		// Expand environment variables in the TOML before decoding
		expanded := os.ExpandEnv(string(data))
		if err := toml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(&cfg)

	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("AGENTBUS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("AGENTBUS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("AGENTBUS_REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = db
		}
	}
	if v := os.Getenv("AGENTBUS_CHANNEL"); v != "" {
		cfg.Redis.Channel = v
	}
	if v := os.Getenv("AGENTBUS_DATUM_DIR"); v != "" {
		cfg.Datum.Dir = v
	}
	if v := os.Getenv("AGENTBUS_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("AGENTBUS_WEB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Web.Port = port
		}
	}
	if v := os.Getenv("AGENTBUS_WEB_AUTH"); v != "" {
		cfg.Web.Auth = v
	}
	if v := os.Getenv("AGENTBUS_VAULT_PASSPHRASE"); v != "" {
		cfg.Vault.Passphrase = v
	}
}
