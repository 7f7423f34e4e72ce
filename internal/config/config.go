// Package config loads server configuration from the environment and an
// optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// DefaultSessionSecret is accepted outside production only.
const DefaultSessionSecret = "farmer-corner-secret"

type Config struct {
	// Server
	Port           string        `mapstructure:"PORT"`
	Environment    string        `mapstructure:"APP_ENV"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	CORSAllowed    string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	// TrustProxyHeaders takes the client IP from X-Forwarded-For/X-Real-IP.
	// Enable only behind a proxy that overwrites those headers.
	TrustProxyHeaders bool `mapstructure:"TRUST_PROXY_HEADERS"`

	// Storage
	StorageDriver string `mapstructure:"STORAGE_DRIVER"`
	DatabaseURL   string `mapstructure:"DATABASE_URL"`
	MongoURI      string `mapstructure:"MONGODB_URI"`
	MongoDatabase string `mapstructure:"MONGODB_DATABASE"`

	// Sessions
	SessionSecret          string        `mapstructure:"SESSION_SECRET"`
	SessionCookieName      string        `mapstructure:"SESSION_COOKIE_NAME"`
	SessionTTL             time.Duration `mapstructure:"SESSION_TTL"`
	SessionCleanupInterval time.Duration `mapstructure:"SESSION_CLEANUP_INTERVAL"`
	BcryptCost             int           `mapstructure:"BCRYPT_COST"`

	// Activity log
	ActivityDefaultLimit int `mapstructure:"ACTIVITY_DEFAULT_LIMIT"`
	ActivityMaxLimit     int `mapstructure:"ACTIVITY_MAX_LIMIT"`

	// Logging
	LogFormat string `mapstructure:"LOG_FORMAT"`
	LogLevel  string `mapstructure:"LOG_LEVEL"`
}

var defaults = map[string]any{
	"PORT":                     "8080",
	"APP_ENV":                  "development",
	"REQUEST_TIMEOUT":          "15s",
	"CORS_ALLOWED_ORIGINS":     "*",
	"TRUST_PROXY_HEADERS":      false,
	"STORAGE_DRIVER":           DriverMemory,
	"DATABASE_URL":             "",
	"MONGODB_URI":              "",
	"MONGODB_DATABASE":         "farmer_corner",
	"SESSION_SECRET":           DefaultSessionSecret,
	"SESSION_COOKIE_NAME":      "farmer_sid",
	"SESSION_TTL":              "24h",
	"SESSION_CLEANUP_INTERVAL": "1h",
	"BCRYPT_COST":              10,
	"ACTIVITY_DEFAULT_LIMIT":   5,
	"ACTIVITY_MAX_LIMIT":       100,
	"LOG_FORMAT":               "text",
	"LOG_LEVEL":                "info",
}

// Load reads .env (if present), then the environment. Environment variables
// win over .env values.
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit dotenv path. A missing file is ignored.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetConfigType("env")
	_ = v.ReadInConfig() // missing .env is fine

	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.StorageDriver {
	case DriverMemory:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL is required when STORAGE_DRIVER=postgres")
		}
	case DriverMongo:
		if c.MongoURI == "" {
			return errors.New("config: MONGODB_URI is required when STORAGE_DRIVER=mongo")
		}
	default:
		return fmt.Errorf("config: unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	if c.SessionSecret == "" {
		return errors.New("config: SESSION_SECRET must not be empty")
	}
	if c.IsProduction() && c.SessionSecret == DefaultSessionSecret {
		return errors.New("config: SESSION_SECRET must be set when APP_ENV=production")
	}
	if c.SessionTTL <= 0 {
		return errors.New("config: SESSION_TTL must be positive")
	}
	if c.SessionCleanupInterval < 0 {
		return errors.New("config: SESSION_CLEANUP_INTERVAL must not be negative")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	if c.ActivityDefaultLimit <= 0 || c.ActivityMaxLimit < c.ActivityDefaultLimit {
		return errors.New("config: ACTIVITY_DEFAULT_LIMIT must be positive and not exceed ACTIVITY_MAX_LIMIT")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// CORSOrigins splits CORS_ALLOWED_ORIGINS on commas.
func (c *Config) CORSOrigins() []string {
	if c == nil || c.CORSAllowed == "" {
		return nil
	}
	parts := strings.Split(c.CORSAllowed, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
