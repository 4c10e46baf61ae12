// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Addr            string        `yaml:"addr"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`

	RabbitMQ struct {
		URL        string `yaml:"url"`
		Exchange   string `yaml:"exchange"`
		RelayQueue string `yaml:"relay_queue"`
	} `yaml:"rabbitmq"`

	Redis struct {
		URL       string        `yaml:"url"`
		LatestTTL time.Duration `yaml:"latest_ttl"`
	} `yaml:"redis"`

	Workers int `yaml:"workers"`

	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"auth"`

	Messaging Messaging `yaml:"messaging"`
}

// Messaging holds the knobs of the direct-messaging core.
type Messaging struct {
	MaxBodyLength       int           `yaml:"max_body_length"`
	NotifyTimeout       time.Duration `yaml:"notify_timeout"`
	NotifyQueue         int           `yaml:"notify_queue"`
	SameInstitutionOnly bool          `yaml:"same_institution_only"`
	DefaultPerPage      int           `yaml:"default_per_page"`
	MinPerPage          int           `yaml:"min_per_page"`
	MaxPerPage          int           `yaml:"max_per_page"`
}

func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

// applyEnv lets deployment secrets and endpoints override the file.
func (c *Config) applyEnv() {
	overrides := map[string]*string{
		"DATABASE_URL": &c.Database.URL,
		"RABBITMQ_URL": &c.RabbitMQ.URL,
		"REDIS_URL":    &c.Redis.URL,
		"JWT_SECRET":   &c.Auth.JWTSecret,
		"HTTP_ADDR":    &c.Server.Addr,
	}
	for key, dst := range overrides {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout <= 0 {
		c.Server.ReadTimeout = 5 * time.Second
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 5 * time.Second
	}
	if c.RabbitMQ.Exchange == "" {
		c.RabbitMQ.Exchange = "chat.replies"
	}
	if c.RabbitMQ.RelayQueue == "" {
		c.RabbitMQ.RelayQueue = "chat_relay_queue"
	}
	if c.Redis.LatestTTL <= 0 {
		c.Redis.LatestTTL = 30 * time.Second
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.Messaging.MaxBodyLength <= 0 {
		c.Messaging.MaxBodyLength = 2000
	}
	if c.Messaging.NotifyTimeout <= 0 {
		c.Messaging.NotifyTimeout = 3 * time.Second
	}
	if c.Messaging.NotifyQueue <= 0 {
		c.Messaging.NotifyQueue = 256
	}
}
