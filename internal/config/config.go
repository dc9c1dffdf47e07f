package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	RedisURL           string `envconfig:"REDIS_URL" required:"true"`
	RedisMaxRetries    int    `envconfig:"CRIER_REDIS_MAX_RETRIES" default:"5"`
	RedisOpTimeoutMS   int    `envconfig:"CRIER_REDIS_OP_TIMEOUT_MS" default:"2000"`
	RedisDialTimeoutMS int    `envconfig:"CRIER_REDIS_DIAL_TIMEOUT_MS" default:"5000"`

	ContentTTLHours int `envconfig:"CRIER_CONTENT_TTL_HOURS" default:"24"`
	RecentTopicsMax int `envconfig:"CRIER_RECENT_TOPICS_MAX" default:"10"`
	IntentTTLSecs   int `envconfig:"CRIER_INTENT_TTL_SECS" default:"120"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.RedisURL) == "" {
		return fmt.Errorf("REDIS_URL is required")
	}
	if c.RedisMaxRetries < 0 {
		return fmt.Errorf("CRIER_REDIS_MAX_RETRIES must be >= 0")
	}
	if c.RedisOpTimeoutMS < 1 {
		return fmt.Errorf("CRIER_REDIS_OP_TIMEOUT_MS must be >= 1")
	}
	if c.RedisDialTimeoutMS < 1 {
		return fmt.Errorf("CRIER_REDIS_DIAL_TIMEOUT_MS must be >= 1")
	}
	if c.ContentTTLHours < 1 {
		return fmt.Errorf("CRIER_CONTENT_TTL_HOURS must be >= 1")
	}
	if c.RecentTopicsMax < 1 {
		return fmt.Errorf("CRIER_RECENT_TOPICS_MAX must be >= 1")
	}
	if c.IntentTTLSecs < 1 {
		return fmt.Errorf("CRIER_INTENT_TTL_SECS must be >= 1")
	}
	return nil
}

func (c *Config) ContentTTL() time.Duration {
	return time.Duration(c.ContentTTLHours) * time.Hour
}

func (c *Config) RedisOpTimeout() time.Duration {
	return time.Duration(c.RedisOpTimeoutMS) * time.Millisecond
}

func (c *Config) RedisDialTimeout() time.Duration {
	return time.Duration(c.RedisDialTimeoutMS) * time.Millisecond
}

func (c *Config) IntentTTL() time.Duration {
	return time.Duration(c.IntentTTLSecs) * time.Second
}
