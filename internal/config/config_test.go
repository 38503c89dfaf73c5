package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "http://localhost:8080", cfg.App.BaseURL)
	assert.Equal(t, 24*time.Hour, cfg.Auth.JWTExpiresIn)
	assert.Equal(t, "dev-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, GeoProviderIPAPI, cfg.Geo.Provider)
	assert.Equal(t, 2*time.Second, cfg.Geo.Timeout)
	assert.Equal(t, 3, cfg.Worker.Count)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, time.UTC, cfg.Location())
	assert.Empty(t, cfg.App.TrustedProxies, "no proxy is trusted unless configured")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("APP_PORT", "9090")
	t.Setenv("APP_BASE_URL", "https://sho.rt/")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("JWT_EXPIRES_IN", "1h")
	t.Setenv("GEO_TIMEOUT", "500ms")
	t.Setenv("BLOCKED_DOMAINS", "evil.io, bad.net ,")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 127.0.0.1")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, "https://sho.rt", cfg.App.BaseURL)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, time.Hour, cfg.Auth.JWTExpiresIn)
	assert.Equal(t, 500*time.Millisecond, cfg.Geo.Timeout)
	assert.Equal(t, []string{"evil.io", "bad.net"}, cfg.App.BlockedDomains)
	assert.Equal(t, []string{"10.0.0.0/8", "127.0.0.1"}, cfg.App.TrustedProxies)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			App:    AppConfig{Env: "local", Timezone: "UTC"},
			Auth:   AuthConfig{JWTSecret: "x", JWTExpiresIn: time.Hour},
			Geo:    GeoConfig{Provider: GeoProviderIPAPI},
			Worker: WorkerConfig{Count: 2, MaxRetries: 2},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "production without secret", mutate: func(c *Config) {
			c.App.Env = "production"
			c.Auth.JWTSecret = ""
		}, wantErr: true},
		{name: "unknown geo provider", mutate: func(c *Config) { c.Geo.Provider = "carrier-pigeon" }, wantErr: true},
		{name: "maxmind without db", mutate: func(c *Config) { c.Geo.Provider = GeoProviderMaxMind }, wantErr: true},
		{name: "bad timezone", mutate: func(c *Config) { c.App.Timezone = "Mars/Olympus" }, wantErr: true},
		{name: "trusted proxies", mutate: func(c *Config) { c.App.TrustedProxies = []string{"10.0.0.0/8", "::1"} }},
		{name: "bad trusted proxy", mutate: func(c *Config) { c.App.TrustedProxies = []string{"lb.internal"} }, wantErr: true},
		{name: "zero expiry", mutate: func(c *Config) { c.Auth.JWTExpiresIn = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDBConfig_DSN(t *testing.T) {
	c := DBConfig{Host: "db", Port: "5432", User: "u", Password: "p", Name: "links", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/links?sslmode=disable", c.DSN())
}
