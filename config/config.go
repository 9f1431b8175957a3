package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Backend  BackendConfig  `mapstructure:"backend"`
	Retry    RetryConfig    `mapstructure:"retry"`
	Client   ClientConfig   `mapstructure:"client"`
	Store    StoreConfig    `mapstructure:"store"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Sandbox  SandboxConfig  `mapstructure:"sandbox"`
	Log      LogConfig      `mapstructure:"log"`
}

// BackendConfig describes the purchase backend the client talks to.
type BackendConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	ProjectName   string        `mapstructure:"project_name"`
	UserID        string        `mapstructure:"user_id"` // device or account identifier
	Timeout       time.Duration `mapstructure:"timeout"` // per attempt
	ReceiptSecret string        `mapstructure:"receipt_secret"`
	LogBodies     bool          `mapstructure:"log_bodies"`
}

type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
	MaxElapsed  time.Duration `mapstructure:"max_elapsed"`
	Jitter      float64       `mapstructure:"jitter"`
}

type ClientConfig struct {
	MaxInFlight int `mapstructure:"max_in_flight"` // concurrent network sends
}

// StoreConfig selects persistence. KeyDriver empty means "same as Driver".
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`     // memory, bolt, postgres
	KeyDriver string `mapstructure:"key_driver"` // memory, bolt, redis, postgres
	BoltPath  string `mapstructure:"bolt_path"`
}

// KeyStoreDriver returns the effective driver for idempotency keys.
func (s StoreConfig) KeyStoreDriver() string {
	if s.KeyDriver != "" {
		return s.KeyDriver
	}
	return s.Driver
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// SandboxConfig configures the local sandbox backend.
type SandboxConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	Mode           string        `mapstructure:"mode"` // debug, release, test
	ReceiptSecret  string        `mapstructure:"receipt_secret"`
	IdempotencyTTL time.Duration `mapstructure:"idempotency_ttl"`
	Cache          string        `mapstructure:"cache"`      // memory, redis
	RateLimit      int64         `mapstructure:"rate_limit"` // purchases per user per minute, 0 = off (needs redis)
}

// Addr returns the listen address.
func (s SandboxConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: IAP_.
// Nested keys use underscore: IAP_BACKEND_BASE_URL, IAP_RETRY_MAX_ATTEMPTS, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("backend.base_url", "http://localhost:8090")
	v.SetDefault("backend.project_name", "")
	v.SetDefault("backend.user_id", "")
	v.SetDefault("backend.timeout", "30s")
	v.SetDefault("backend.receipt_secret", "")
	v.SetDefault("backend.log_bodies", false)
	v.SetDefault("retry.max_attempts", 5)
	v.SetDefault("retry.base_delay", "500ms")
	v.SetDefault("retry.max_delay", "8s")
	v.SetDefault("retry.max_elapsed", "30s")
	v.SetDefault("retry.jitter", 0.2)
	v.SetDefault("client.max_in_flight", 8)
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.key_driver", "")
	v.SetDefault("store.bolt_path", "inapppay.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "inapppay")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("sandbox.host", "0.0.0.0")
	v.SetDefault("sandbox.port", 8090)
	v.SetDefault("sandbox.mode", "debug")
	v.SetDefault("sandbox.receipt_secret", "")
	v.SetDefault("sandbox.idempotency_ttl", "24h")
	v.SetDefault("sandbox.cache", "memory")
	v.SetDefault("sandbox.rate_limit", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: IAP_BACKEND_BASE_URL -> backend.base_url
	v.SetEnvPrefix("IAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required, env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
