package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `env:", prefix=SERVER_"`
	Upstream UpstreamConfig `env:", prefix=UPSTREAM_"`
	Redis    RedisConfig    `env:", prefix=REDIS_"`
	NATS     NATSConfig     `env:", prefix=NATS_"`
	Charts   ChartsConfig   `env:", prefix=CHARTS_"`
	Security SecurityConfig `env:", prefix=SECURITY_"`
	Logging  LoggingConfig  `env:", prefix=LOG_"`
}

// ServerConfig holds the boundary HTTP server configuration
type ServerConfig struct {
	Host         string        `env:"HOST, default=0.0.0.0"`
	Port         int           `env:"PORT, default=8080"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT, default=30s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT, default=30s"`
	IdleTimeout  time.Duration `env:"IDLE_TIMEOUT, default=120s"`
}

// UpstreamConfig holds the price/history service endpoints
type UpstreamConfig struct {
	BaseURL          string        `env:"BASE_URL, default=http://localhost:8000"`
	WSURL            string        `env:"WS_URL, default=ws://127.0.0.1:8000"`
	RequestTimeout   time.Duration `env:"REQUEST_TIMEOUT, default=15s"`
	HandshakeTimeout time.Duration `env:"HANDSHAKE_TIMEOUT, default=10s"`
}

// RedisConfig holds Redis configuration for the warm-start cache
type RedisConfig struct {
	Enabled      bool          `env:"ENABLED, default=false"`
	Host         string        `env:"HOST, default=localhost"`
	Port         int           `env:"PORT, default=6379"`
	Password     string        `env:"PASSWORD"`
	DB           int           `env:"DB, default=0"`
	PoolSize     int           `env:"POOL_SIZE, default=10"`
	DialTimeout  time.Duration `env:"DIAL_TIMEOUT, default=5s"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT, default=3s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT, default=3s"`
	CacheTTL     time.Duration `env:"CACHE_TTL, default=5m"`
}

// NATSConfig holds NATS configuration for the update fan-out
type NATSConfig struct {
	Enabled       bool          `env:"ENABLED, default=false"`
	URL           string        `env:"URL, default=nats://localhost:4222"`
	MaxReconnect  int           `env:"MAX_RECONNECT, default=10"`
	ReconnectWait time.Duration `env:"RECONNECT_WAIT, default=2s"`
}

// ChartsConfig holds chart bootstrap configuration
type ChartsConfig struct {
	DefaultSymbol string `env:"DEFAULT_SYMBOL, default=BTC/USDT"`
	DefaultRange  string `env:"DEFAULT_RANGE, default=1D"`
	BootWidget    bool   `env:"BOOT_WIDGET, default=true"`
}

// SecurityConfig holds security configuration
type SecurityConfig struct {
	CORSEnabled bool     `env:"CORS_ENABLED, default=true"`
	CORSOrigins []string `env:"CORS_ORIGINS, default=*"`
	CORSMethods []string `env:"CORS_METHODS, default=GET,POST,PUT,DELETE,OPTIONS"`
	CORSHeaders []string `env:"CORS_HEADERS, default=*"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `env:"LEVEL, default=info"`
	Format string `env:"FORMAT, default=json"`
	Output string `env:"OUTPUT, default=stdout"`
}

// Load loads configuration from environment variables using go-envconfig
func Load() (*Config, error) {
	ctx := context.Background()
	var cfg Config

	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("upstream base URL is required")
	}

	if c.Upstream.WSURL == "" {
		return fmt.Errorf("upstream WebSocket URL is required")
	}

	if c.Redis.Enabled && c.Redis.Host == "" {
		return fmt.Errorf("Redis host is required when Redis is enabled")
	}

	if c.NATS.Enabled && c.NATS.URL == "" {
		return fmt.Errorf("NATS URL is required when NATS is enabled")
	}

	return nil
}

// GetRedisAddr returns Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// GetServerAddr returns server address
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
