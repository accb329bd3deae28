package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
)

type Server struct {
	Port         int    `toml:"port" envconfig:"SERVER_PORT"`
	MetricsPort  int    `toml:"metrics_port" envconfig:"SERVER_METRICS_PORT"`
	AccessExpire int64  `toml:"access_expire" envconfig:"SERVER_ACCESS_EXPIRE"`
	AccessSecret string `toml:"access_secret" envconfig:"SERVER_ACCESS_SECRET"`
}

type Postgres struct {
	DSN string `toml:"dsn" envconfig:"POSTGRES_DSN"`
}

type Redis struct {
	URL       string `toml:"url" envconfig:"REDIS_URL"`
	QueueName string `toml:"queue_name" envconfig:"REDIS_QUEUE_NAME"`
}

type Telegram struct {
	// URL is the bot API base, with a trailing slash.
	URL   string `toml:"url" envconfig:"TELEGRAM_URL"`
	Token string `toml:"token" envconfig:"TELEGRAM_TOKEN"`
}

type Worker struct {
	Count       int `toml:"count" envconfig:"WORKER_COUNT"`
	MaxAttempts int `toml:"max_attempts" envconfig:"WORKER_MAX_ATTEMPTS"`
	Buffer      int `toml:"buffer" envconfig:"WORKER_BUFFER"`
}

type NATS struct {
	URL string `toml:"url" envconfig:"NATS_URL"`
}

type Rate struct {
	RPS   int `toml:"rps" envconfig:"RATE_RPS"`
	Burst int `toml:"burst" envconfig:"RATE_BURST"`
}

type Config struct {
	LogLevel string   `toml:"log_level" envconfig:"LOG_LEVEL"`
	Server   Server   `toml:"server"`
	Postgres Postgres `toml:"postgres"`
	Redis    Redis    `toml:"redis"`
	Telegram Telegram `toml:"telegram"`
	Worker   Worker   `toml:"worker"`
	NATS     NATS     `toml:"nats"`
	Rate     Rate     `toml:"rate"`
}

// Load reads the TOML file at path, then overlays PUSH_-prefixed environment
// variables on top so deployments can override secrets and DSNs without
// editing the file.
func Load(path string) (*Config, error) {
	cfg := Config{
		LogLevel: "info",
		Server: Server{
			Port:         8080,
			MetricsPort:  9090,
			AccessExpire: 86400,
		},
		Redis: Redis{
			QueueName: "push:tasks",
		},
		Telegram: Telegram{
			URL: "https://api.telegram.org/",
		},
		Worker: Worker{
			Count:       12,
			MaxAttempts: 25,
			Buffer:      256,
		},
	}

	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := toml.Unmarshal(buf, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := envconfig.Process("PUSH", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Server.AccessSecret == "" {
		return fmt.Errorf("server.access_secret is required")
	}
	if c.Postgres.DSN == "" {
		return fmt.Errorf("postgres.dsn is required")
	}
	if c.Redis.URL == "" {
		return fmt.Errorf("redis.url is required")
	}
	if c.Redis.QueueName == "" {
		return fmt.Errorf("redis.queue_name is required")
	}
	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram.token is required")
	}
	return nil
}
