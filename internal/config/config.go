package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Geo       GeoConfig
	Worker    WorkerConfig
	Log       LogConfig
	CORS      CORSConfig
}

type AppConfig struct {
	Port           string
	BaseURL        string
	Env            string
	Timezone       string
	BlockedDomains []string
	// TrustedProxies lists the IPs or CIDRs whose X-Forwarded-For header is believed.
	// Empty means the client address is always the TCP peer.
	TrustedProxies []string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN returns a postgres:// connection string usable by both pgx and golang-migrate.
func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Name,
		c.SSLMode,
	)
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret    string
	JWTExpiresIn time.Duration
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

type GeoConfig struct {
	Provider  string // ipapi | maxmind | none
	APIURL    string
	Timeout   time.Duration
	MaxMindDB string
	CacheTTL  time.Duration
	DevIP     string // substituted for loopback/private client addresses
}

type WorkerConfig struct {
	Count          int
	Buffer         int
	MaxRetries     int
	ReplaySchedule string
	ReplayBatch    int
}

type LogConfig struct {
	Level      string
	Path       string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

type CORSConfig struct {
	AllowedOrigins []string
}

const (
	GeoProviderIPAPI   = "ipapi"
	GeoProviderMaxMind = "maxmind"
	GeoProviderNone    = "none"
)

// Load builds the configuration from an optional .env file and the process environment.
// The returned Config is treated as immutable and is passed explicitly to components.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read .env: %w", err)
		}
	}

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("APP_BASE_URL", "http://localhost:8080")
	v.SetDefault("APP_ENV", "local")
	v.SetDefault("TIMEZONE", "UTC")
	v.SetDefault("BLOCKED_DOMAINS", "malware.com,phishing.com,spam.com")
	v.SetDefault("TRUSTED_PROXIES", "")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SSLMODE", "disable")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_EXPIRES_IN", "24h")

	v.SetDefault("RATE_LIMIT_RPS", 10)
	v.SetDefault("RATE_LIMIT_BURST", 20)

	v.SetDefault("GEO_PROVIDER", GeoProviderIPAPI)
	v.SetDefault("GEO_API_URL", "http://ip-api.com")
	v.SetDefault("GEO_TIMEOUT", "2s")
	v.SetDefault("GEO_CACHE_TTL", "24h")

	v.SetDefault("WORKER_COUNT", 3)
	v.SetDefault("WORKER_BUFFER", 1000)
	v.SetDefault("CLICK_MAX_RETRIES", 3)
	v.SetDefault("DEADLETTER_REPLAY_SCHEDULE", "*/5 * * * *")
	v.SetDefault("DEADLETTER_REPLAY_BATCH", 100)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_MAX_SIZE", 10)
	v.SetDefault("LOG_MAX_BACKUPS", 5)
	v.SetDefault("LOG_MAX_AGE", 7)

	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
}

func fromViper(v *viper.Viper) *Config {
	var cfg Config

	cfg.App.Port = v.GetString("APP_PORT")
	cfg.App.BaseURL = strings.TrimRight(v.GetString("APP_BASE_URL"), "/")
	cfg.App.Env = v.GetString("APP_ENV")
	cfg.App.Timezone = v.GetString("TIMEZONE")
	cfg.App.BlockedDomains = splitList(v.GetString("BLOCKED_DOMAINS"))
	cfg.App.TrustedProxies = splitList(v.GetString("TRUSTED_PROXIES"))

	cfg.DB.Host = v.GetString("DB_HOST")
	cfg.DB.Port = v.GetString("DB_PORT")
	cfg.DB.User = v.GetString("DB_USER")
	cfg.DB.Password = v.GetString("DB_PASSWORD")
	cfg.DB.Name = v.GetString("DB_NAME")
	cfg.DB.SSLMode = v.GetString("DB_SSLMODE")

	cfg.Redis.Host = v.GetString("REDIS_HOST")
	cfg.Redis.Port = v.GetString("REDIS_PORT")
	cfg.Redis.Password = v.GetString("REDIS_PASSWORD")
	cfg.Redis.DB = v.GetInt("REDIS_DB")

	cfg.Auth.JWTSecret = v.GetString("JWT_SECRET")
	cfg.Auth.JWTExpiresIn = v.GetDuration("JWT_EXPIRES_IN")

	cfg.RateLimit.RequestsPerSecond = v.GetFloat64("RATE_LIMIT_RPS")
	cfg.RateLimit.BurstSize = v.GetInt("RATE_LIMIT_BURST")

	cfg.Geo.Provider = strings.ToLower(v.GetString("GEO_PROVIDER"))
	cfg.Geo.APIURL = strings.TrimRight(v.GetString("GEO_API_URL"), "/")
	cfg.Geo.Timeout = v.GetDuration("GEO_TIMEOUT")
	cfg.Geo.MaxMindDB = v.GetString("GEO_MAXMIND_DB")
	cfg.Geo.CacheTTL = v.GetDuration("GEO_CACHE_TTL")
	cfg.Geo.DevIP = v.GetString("GEO_DEV_IP")

	cfg.Worker.Count = v.GetInt("WORKER_COUNT")
	cfg.Worker.Buffer = v.GetInt("WORKER_BUFFER")
	cfg.Worker.MaxRetries = v.GetInt("CLICK_MAX_RETRIES")
	cfg.Worker.ReplaySchedule = v.GetString("DEADLETTER_REPLAY_SCHEDULE")
	cfg.Worker.ReplayBatch = v.GetInt("DEADLETTER_REPLAY_BATCH")

	cfg.Log.Level = v.GetString("LOG_LEVEL")
	cfg.Log.Path = v.GetString("LOG_PATH")
	cfg.Log.MaxSize = v.GetInt("LOG_MAX_SIZE")
	cfg.Log.MaxBackups = v.GetInt("LOG_MAX_BACKUPS")
	cfg.Log.MaxAge = v.GetInt("LOG_MAX_AGE")
	cfg.Log.Compress = v.GetBool("LOG_COMPRESS")

	cfg.CORS.AllowedOrigins = splitList(v.GetString("CORS_ALLOWED_ORIGINS"))

	return &cfg
}

// Validate checks settings that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		if c.App.Env == "production" {
			return errors.New("JWT_SECRET is required in production")
		}
		c.Auth.JWTSecret = "dev-secret"
	}
	if c.Auth.JWTExpiresIn <= 0 {
		return fmt.Errorf("JWT_EXPIRES_IN must be positive, got %s", c.Auth.JWTExpiresIn)
	}

	switch c.Geo.Provider {
	case GeoProviderIPAPI, GeoProviderNone:
	case GeoProviderMaxMind:
		if c.Geo.MaxMindDB == "" {
			return errors.New("GEO_MAXMIND_DB is required for the maxmind provider")
		}
	default:
		return fmt.Errorf("unknown GEO_PROVIDER %q", c.Geo.Provider)
	}

	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.App.Timezone, err)
	}

	for _, proxy := range c.App.TrustedProxies {
		if !validProxy(proxy) {
			return fmt.Errorf("invalid TRUSTED_PROXIES entry %q", proxy)
		}
	}

	if c.Worker.Count < 1 {
		c.Worker.Count = 1
	}
	if c.Worker.MaxRetries < 1 {
		c.Worker.MaxRetries = 1
	}

	return nil
}

// Location returns the dashboard time zone. Validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func validProxy(s string) bool {
	if _, _, err := net.ParseCIDR(s); err == nil {
		return true
	}
	return net.ParseIP(s) != nil
}

// splitList parses comma-separated values, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
