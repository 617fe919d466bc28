// Package config loads the service configuration.
//
// Sources, lowest priority first: defaults, optional config.yaml, environment
// variables (DATABASE_URL, AUTH_JWT_SECRET, LOG_LEVEL, ...).
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration structure.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Log        LogConfig        `mapstructure:"log"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Production ProductionConfig `mapstructure:"production"`
	Workset    WorksetConfig    `mapstructure:"workset"`
	Stale      StaleConfig      `mapstructure:"stale"`
	Audit      AuditConfig      `mapstructure:"audit"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig contains PostgreSQL connection settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`

	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`

	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`

	AutoMigrate bool `mapstructure:"auto_migrate"`
}

// DSN returns the PostgreSQL connection string.
// DATABASE_URL wins over the individual fields.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, sslmode,
	)
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// AuthConfig describes how operator identity tokens are verified.
// Tokens are issued by the external login collaborator.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

// ProductionConfig holds material constants used by finalization.
type ProductionConfig struct {
	Density float64 `mapstructure:"density"`
}

// WorksetConfig configures the line-item working set store.
// An empty Path keeps working sets in memory only.
type WorksetConfig struct {
	Path string `mapstructure:"path"`
}

// StaleConfig configures the stale active-session report.
type StaleConfig struct {
	CronSchedule string        `mapstructure:"cron_schedule"`
	Threshold    time.Duration `mapstructure:"threshold"`
}

// AuditConfig configures the finalization archive.
// An empty MongoURI archives to the structured log only.
type AuditConfig struct {
	MongoURI      string `mapstructure:"mongodb_uri"`
	MongoDatabase string `mapstructure:"mongodb_database"`
	Collection    string `mapstructure:"collection"`
}

// Load reads configuration from file and environment variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/control-produccion")

	// database.max_conns -> DATABASE_MAX_CONNS
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Validate checks for critical configuration errors.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	switch {
	case strings.TrimSpace(c.Auth.JWTSecret) == "":
		return errors.New("auth.jwt_secret must not be empty")
	case len(c.Auth.JWTSecret) < 32:
		return errors.New("auth.jwt_secret must be at least 32 characters")
	case c.Production.Density <= 0:
		return fmt.Errorf("production.density must be positive, got %v", c.Production.Density)
	case c.Stale.Threshold <= 0:
		return fmt.Errorf("stale.threshold must be positive, got %v", c.Stale.Threshold)
	case c.Server.Port <= 0:
		return fmt.Errorf("server.port must be positive, got %d", c.Server.Port)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// Database
	v.SetDefault("database.url", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "produccion")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "produccion")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "10m")
	v.SetDefault("database.auto_migrate", true)

	// Log
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Auth
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "control-produccion")

	// Steel, g/cm3
	v.SetDefault("production.density", 7.85)

	v.SetDefault("workset.path", "")

	v.SetDefault("stale.cron_schedule", "*/30 * * * *")
	v.SetDefault("stale.threshold", "12h")

	v.SetDefault("audit.mongodb_uri", "")
	v.SetDefault("audit.mongodb_database", "produccion")
	v.SetDefault("audit.collection", "finalizations")
}
