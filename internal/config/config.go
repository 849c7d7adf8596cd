// Package config loads the engine's operational configuration: listen
// port, backing-store connection string, token signing secret, webhook
// default secret, and log level, plus the supporting infra each ambient
// concern needs (Redis, NATS).
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string    `mapstructure:"environment"`
	Port        int       `mapstructure:"port"`
	LogLevel    string    `mapstructure:"log_level"`
	Database    Database  `mapstructure:"database"`
	Redis       Redis     `mapstructure:"redis"`
	NATS        NATSConfig `mapstructure:"nats"`
	JWT         JWT       `mapstructure:"jwt"`
	Webhook     Webhook   `mapstructure:"webhook"`
	RateLimit   RateLimit `mapstructure:"rate_limit"`
}

type Database struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// DSN returns the postgres connection string gorm expects.
func (d Database) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

type Redis struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the host:port address go-redis expects.
func (r Redis) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// NATSConfig holds the internal event bus connection settings.
type NATSConfig struct {
	URL string `mapstructure:"url"`
}

// JWT holds the shared secret used to verify already-issued bearer tokens.
// Issuance lives outside this engine's scope; only the secret needed to
// validate signatures is carried here.
type JWT struct {
	Secret string `mapstructure:"secret"`
}

// Webhook holds the Event Dispatcher's delivery policy defaults.
type Webhook struct {
	DefaultSecret string        `mapstructure:"default_secret"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxRetryDelay  time.Duration `mapstructure:"max_retry_delay"`
	RetrySweepSpec string        `mapstructure:"retry_sweep_spec"`
}

type RateLimit struct {
	RequestsPerWindow int           `mapstructure:"requests_per_window"`
	Window            time.Duration `mapstructure:"window"`
}

// Load reads configuration from (optionally) a YAML file, environment
// variables, and hard defaults. Environment variables override the YAML
// file, which overrides the defaults.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	viper.SetEnvPrefix("")
	viper.AutomaticEnv()

	viper.BindEnv("port", "PORT")
	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("nats.url", "NATS_URL")
	viper.BindEnv("jwt.secret", "JWT_SECRET")
	viper.BindEnv("webhook.default_secret", "WEBHOOK_DEFAULT_SECRET")
	viper.BindEnv("environment", "ENVIRONMENT")
	viper.BindEnv("log_level", "LOG_LEVEL")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("environment", "development")
	viper.SetDefault("port", 8002)
	viper.SetDefault("log_level", "info")

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "slotwise")
	viper.SetDefault("database.password", "slotwise_password")
	viper.SetDefault("database.name", "slotwise_reservations")
	viper.SetDefault("database.ssl_mode", "disable")

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("nats.url", "nats://localhost:4222")

	viper.SetDefault("jwt.secret", "your-super-secret-jwt-key-change-in-production")

	viper.SetDefault("webhook.default_secret", "change-me-default-webhook-secret")
	viper.SetDefault("webhook.request_timeout", "30s")
	viper.SetDefault("webhook.max_retry_delay", "60s")
	viper.SetDefault("webhook.retry_sweep_spec", "@every 1m")

	viper.SetDefault("rate_limit.requests_per_window", 100)
	viper.SetDefault("rate_limit.window", "15m")
}
