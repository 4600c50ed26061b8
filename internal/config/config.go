// Package config provides configuration management for the investigation
// console. It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Proxy   ProxyConfig
	RPC     RPCConfig
	Server  ServerConfig
	Redis   RedisConfig
	Cache   CacheConfig
	Wallet  WalletConfig
	Logging LoggingConfig

	// PublicURL is the externally visible base URL of the console.
	PublicURL string
}

// ProxyConfig holds the upstream proxy configuration.
type ProxyConfig struct {
	BaseURL string
	// RequestsPerSecond paces outbound calls to the proxy.
	RequestsPerSecond float64
	Timeout           time.Duration
}

// RPCConfig holds the chain RPC endpoint configuration.
type RPCConfig struct {
	URL     string
	Timeout time.Duration
}

// ServerConfig holds the console HTTP server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	// RequestsPerSecond limits inbound API calls per client.
	RequestsPerSecond int
}

// RedisConfig holds the cache backend configuration.
type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
	// Enabled allows running without redis; cache misses fall through
	// to the proxy.
	Enabled bool
}

// CacheConfig holds cache behaviour configuration.
type CacheConfig struct {
	TTL time.Duration
}

// WalletConfig holds the signing wallet configuration. When no secret is
// configured the console runs unauthenticated and submissions are refused.
type WalletConfig struct {
	// Chain selects the signer implementation: "solana" or "ethereum".
	Chain string
	// SecretKey is base58 (solana, 64-byte secret) or hex (ethereum).
	SecretKey string
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from a .env file and environment variables.
func LoadConfig() (*Config, error) {
	// .env is optional in production.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		// A malformed .env should not be silently ignored.
		if _, statErr := os.Stat(".env"); statErr == nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	cfg := &Config{
		Proxy: ProxyConfig{
			BaseURL:           getEnv("PROXY_URL", "http://localhost:8080"),
			RequestsPerSecond: getEnvFloat("PROXY_RPS", 5),
			Timeout:           getEnvDuration("PROXY_TIMEOUT", 30*time.Second),
		},
		RPC: RPCConfig{
			URL:     getEnv("RPC_URL", "http://localhost:8899"),
			Timeout: getEnvDuration("RPC_TIMEOUT", 10*time.Second),
		},
		Server: ServerConfig{
			Host:              getEnv("SERVER_HOST", "0.0.0.0"),
			Port:              getEnv("SERVER_PORT", "8090"),
			ReadTimeout:       getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:      getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:       getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout:   getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			RequestsPerSecond: getEnvInt("SERVER_RPS", 10),
		},
		Redis: RedisConfig{
			Host:           getEnv("REDIS_HOST", "localhost"),
			Port:           getEnv("REDIS_PORT", "6379"),
			Password:       getEnv("REDIS_PASSWORD", ""),
			DB:             getEnvInt("REDIS_DB", 0),
			MaxConnections: getEnvInt("REDIS_MAX_CONNECTIONS", 10),
			Enabled:        getEnvBool("REDIS_ENABLED", true),
		},
		Cache: CacheConfig{
			TTL: getEnvDuration("CACHE_TTL", 5*time.Minute),
		},
		Wallet: WalletConfig{
			Chain:     getEnv("WALLET_CHAIN", "solana"),
			SecretKey: getEnv("WALLET_SECRET_KEY", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		PublicURL: getEnv("PUBLIC_URL", "http://localhost:3000"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants that would otherwise surface as
// confusing runtime failures.
func (c *Config) validate() error {
	if c.Proxy.BaseURL == "" {
		return fmt.Errorf("PROXY_URL must not be empty")
	}
	if c.Proxy.RequestsPerSecond <= 0 {
		return fmt.Errorf("PROXY_RPS must be positive, got %v", c.Proxy.RequestsPerSecond)
	}
	switch c.Wallet.Chain {
	case "solana", "ethereum":
	default:
		return fmt.Errorf("WALLET_CHAIN must be 'solana' or 'ethereum', got %q", c.Wallet.Chain)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive, got %v", c.Cache.TTL)
	}
	return nil
}

// getEnv retrieves an environment variable with a fallback default.
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default.
func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

// getEnvFloat retrieves a float environment variable with a fallback default.
func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

// getEnvBool retrieves a boolean environment variable with a fallback default.
func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

// getEnvDuration retrieves a duration environment variable with a fallback
// default. Plain integers are interpreted as seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	if parsed, err := time.ParseDuration(value); err == nil {
		return parsed
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
