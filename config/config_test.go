package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", testSecret)
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SERVER_PORT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, int32(20), cfg.Database.MaxConns)
	assert.True(t, cfg.Database.AutoMigrate)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	assert.Equal(t, "control-produccion", cfg.Auth.Issuer)
	assert.InDelta(t, 7.85, cfg.Production.Density, 1e-9)
	assert.Equal(t, 12*time.Hour, cfg.Stale.Threshold)
	assert.Equal(t, "*/30 * * * *", cfg.Stale.CronSchedule)
	assert.Empty(t, cfg.Workset.Path)
	assert.Empty(t, cfg.Audit.MongoURI)
	assert.Equal(t, "finalizations", cfg.Audit.Collection)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", testSecret)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("PRODUCTION_DENSITY", "2.7")
	t.Setenv("STALE_THRESHOLD", "2h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.InDelta(t, 2.7, cfg.Production.Density, 1e-9)
	assert.Equal(t, 2*time.Hour, cfg.Stale.Threshold)
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.jwt_secret")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:     ServerConfig{Port: 8080},
			Auth:       AuthConfig{JWTSecret: testSecret},
			Production: ProductionConfig{Density: 7.85},
			Stale:      StaleConfig{Threshold: time.Hour},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"short secret", func(c *Config) { c.Auth.JWTSecret = "short" }, "at least 32"},
		{"zero density", func(c *Config) { c.Production.Density = 0 }, "density"},
		{"negative threshold", func(c *Config) { c.Stale.Threshold = -time.Minute }, "threshold"},
		{"zero port", func(c *Config) { c.Server.Port = 0 }, "port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.wantErr), err.Error())
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			name: "URL takes precedence",
			cfg:  DatabaseConfig{URL: "postgres://u:p@db:5432/x", Host: "other"},
			want: "postgres://u:p@db:5432/x",
		},
		{
			name: "built from fields",
			cfg:  DatabaseConfig{User: "u", Password: "p", Host: "h", Port: 5433, Database: "d"},
			want: "postgres://u:p@h:5433/d?sslmode=disable",
		},
		{
			name: "explicit sslmode",
			cfg:  DatabaseConfig{User: "u", Password: "p", Host: "h", Port: 5432, Database: "d", SSLMode: "require"},
			want: "postgres://u:p@h:5432/d?sslmode=require",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.DSN())
		})
	}
}
