package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN        string `env:"DATABASE_DSN,required=true"`
	RedisURL           string `env:"REDIS_URL,required=true"`
	SlackAPIToken      string `env:"SLACK_API_TOKEN,required=true"`
	SlackChannel       string `env:"SLACK_CHANNEL,required=true"`
	PlatformAPIURL     string `env:"PLATFORM_API_URL,required=true"`
	PlatformAPIToken   string `env:"PLATFORM_API_TOKEN"`
	BackendURL         string `env:"BACKEND_URL,default=http://localhost:9000/app"`
	AMQPURL            string `env:"AMQP_URL"`
	RateLimitPerSec    int    `env:"RATE_LIMIT_PER_SEC,default=1"`
	SendTimeoutSeconds int    `env:"SEND_TIMEOUT_SECONDS,default=10"`
	APIPort            int    `env:"API_PORT,default=8080"`
	LogLevel           string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) SendTimeout() time.Duration {
	return time.Duration(c.SendTimeoutSeconds) * time.Second
}

// BrokerEnabled reports whether events flow through RabbitMQ. Without a
// broker URL the relay runs on the in-process bus.
func (c *Config) BrokerEnabled() bool {
	return strings.TrimSpace(c.AMQPURL) != ""
}
