package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (POS_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (POS_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	// MaxBodyBytes limits JSON request bodies.
	MaxBodyBytes int64 `default:"1048576" usage:"Maximum request body size in bytes" flag:"max-body-bytes"`
	Orders       OrdersConfig
	DB           DBConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
	Health       HealthConfig
}

// OrdersConfig controls order listing.
type OrdersConfig struct {
	DefaultListLimit int `default:"50"  usage:"Page size when a listing request has no valid limit" flag:"default-list-limit"`
	MaxListLimit     int `default:"200" usage:"Largest page size a listing request may ask for" flag:"max-list-limit"`
}

// DBConfig sizes the PostgreSQL connection pool. Zero values keep the pgx
// defaults.
type DBConfig struct {
	MaxConns        int32         `default:"10" usage:"Maximum open connections" flag:"db-max-conns"`
	MinConns        int32         `default:"0"  usage:"Connections kept open when idle" flag:"db-min-conns"`
	MaxConnLifetime time.Duration `default:"1h"  usage:"Maximum connection lifetime" flag:"db-max-conn-lifetime"`
	MaxConnIdleTime time.Duration `default:"30m" usage:"Idle time before a connection is closed" flag:"db-max-conn-idle-time"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// HealthConfig controls background health probing.
type HealthConfig struct {
	Interval        time.Duration `default:"10s"   usage:"Interval between health probes" flag:"health-interval"`
	MaxGoroutines   int           `default:"10000" usage:"Goroutine count above which the process is reported unhealthy" flag:"health-max-goroutines"`
	DatabaseTimeout time.Duration `default:"5s"    usage:"Timeout of the database readiness probe" flag:"health-db-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "POS",
		Files:     []string{"config.yaml", "/etc/pos/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL is required: set POS_DATABASE_URL or DATABASE_URL")
	}
	if c.Orders.MaxListLimit < 0 || c.Orders.DefaultListLimit < 0 {
		return errors.New("list limits must not be negative")
	}
	if c.Health.Interval <= 0 {
		return errors.Errorf("health interval must be positive, got %s", c.Health.Interval)
	}
	if c.DB.MinConns > c.DB.MaxConns && c.DB.MaxConns > 0 {
		return errors.Errorf("db min conns (%d) exceeds max conns (%d)", c.DB.MinConns, c.DB.MaxConns)
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's POS_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
