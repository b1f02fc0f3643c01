package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Cart storage strategies.
const (
	CartPersisted = "persisted"
	CartSession   = "session"
)

// Config holds the runtime settings of the shop.
type Config struct {
	AppPort string
	AppEnv  string

	LogLevel  string
	LogFormat string

	DatabaseDriver string
	DatabaseDSN    string

	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	CatalogCacheTTL time.Duration

	CartStrategy string
	JWTSecret    string
	SessionTTL   time.Duration
	TaxRate      float64

	RabbitMQURL string

	LoginRatePerSecond int
	LoginBurst         int

	AdminUsername string
	AdminEmail    string
	AdminPassword string
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("DATABASE_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "shop.db")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CATALOG_CACHE_TTL", "5m")
	v.SetDefault("CART_STRATEGY", CartPersisted)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("TAX_RATE", 0.05)
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("LOGIN_RATE_PER_SECOND", 1)
	v.SetDefault("LOGIN_BURST", 5)
	v.SetDefault("ADMIN_USERNAME", "")
	v.SetDefault("ADMIN_EMAIL", "")
	v.SetDefault("ADMIN_PASSWORD", "")
}

// LoadEnvFile copies the variables of an optional .env file into the process
// environment. A missing file is reported as an error.
func LoadEnvFile() error {
	return godotenv.Load()
}

// Load reads environment variables on top of the defaults.
func Load() (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()
	return FromViper(v)
}

// FromViper builds and validates a Config from an already prepared viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		AppPort:            v.GetString("APP_PORT"),
		AppEnv:             strings.ToLower(v.GetString("APP_ENV")),
		LogLevel:           v.GetString("LOG_LEVEL"),
		LogFormat:          strings.ToLower(v.GetString("LOG_FORMAT")),
		DatabaseDriver:     strings.ToLower(v.GetString("DATABASE_DRIVER")),
		DatabaseDSN:        v.GetString("DATABASE_DSN"),
		RedisAddr:          v.GetString("REDIS_ADDR"),
		RedisPassword:      v.GetString("REDIS_PASSWORD"),
		RedisDB:            v.GetInt("REDIS_DB"),
		CatalogCacheTTL:    v.GetDuration("CATALOG_CACHE_TTL"),
		CartStrategy:       strings.ToLower(v.GetString("CART_STRATEGY")),
		JWTSecret:          v.GetString("JWT_SECRET"),
		SessionTTL:         v.GetDuration("SESSION_TTL"),
		TaxRate:            v.GetFloat64("TAX_RATE"),
		RabbitMQURL:        v.GetString("RABBITMQ_URL"),
		LoginRatePerSecond: v.GetInt("LOGIN_RATE_PER_SECOND"),
		LoginBurst:         v.GetInt("LOGIN_BURST"),
		AdminUsername:      v.GetString("ADMIN_USERNAME"),
		AdminEmail:         v.GetString("ADMIN_EMAIL"),
		AdminPassword:      v.GetString("ADMIN_PASSWORD"),
	}

	if cfg.JWTSecret == "" && cfg.IsDevelopment() {
		cfg.JWTSecret = "development-only-secret"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsDevelopment reports whether the shop runs in a development environment.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development" || c.AppEnv == "local" || c.AppEnv == "test"
}

// RedisEnabled reports whether a Redis address was configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

// Validate checks the settings for combinations the shop cannot run with.
func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}

	switch c.CartStrategy {
	case CartPersisted:
	case CartSession:
		if !c.RedisEnabled() {
			return fmt.Errorf("CART_STRATEGY %q requires REDIS_ADDR", CartSession)
		}
	default:
		return fmt.Errorf("unsupported CART_STRATEGY %q", c.CartStrategy)
	}

	if c.TaxRate < 0 {
		return fmt.Errorf("TAX_RATE must not be negative, got %v", c.TaxRate)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in the %s environment", c.AppEnv)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	if c.LoginRatePerSecond <= 0 || c.LoginBurst <= 0 {
		return fmt.Errorf("LOGIN_RATE_PER_SECOND and LOGIN_BURST must be positive")
	}
	return nil
}
