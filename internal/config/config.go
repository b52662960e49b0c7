// Package config loads runtime configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// DefaultSecretKey is the development signing key. Production refuses it.
const DefaultSecretKey = "change-me-in-production"

// Config is the full runtime configuration.
type Config struct {
	AppName string `env:"APP_NAME,default=SIRA Platform"`
	Version string `env:"APP_VERSION,default=1.0.0"`
	Env     string `env:"APP_ENV,default=development"`

	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	CORS      CORSConfig
	SMTP      SMTPConfig
	Uploads   UploadConfig
	Redis     RedisConfig
	AMQP      AMQPConfig
	Logging   LoggingConfig
	RateLimit RateLimitConfig
	Jobs      JobsConfig
	Audit     AuditConfig
}

type ServerConfig struct {
	Addr            string        `env:"HTTP_ADDR,default=:8000"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT,default=15s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT,default=30s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT,default=10s"`
}

// DatabaseConfig selects postgres when DSN is set, the in-memory store otherwise.
type DatabaseConfig struct {
	DSN             string        `env:"DATABASE_URL"`
	MaxOpenConns    int           `env:"DATABASE_MAX_OPEN_CONNS,default=20"`
	MaxIdleConns    int           `env:"DATABASE_MAX_IDLE_CONNS,default=5"`
	ConnMaxLifetime time.Duration `env:"DATABASE_CONN_MAX_LIFETIME,default=30m"`
	AutoMigrate     bool          `env:"DATABASE_AUTO_MIGRATE,default=false"`
}

type AuthConfig struct {
	SecretKey          string `env:"SECRET_KEY,default=change-me-in-production"`
	AccessTokenMinutes int    `env:"ACCESS_TOKEN_EXPIRE_MINUTES,default=30"`
	RefreshTokenDays   int    `env:"REFRESH_TOKEN_EXPIRE_DAYS,default=7"`
	Issuer             string `env:"TOKEN_ISSUER,default=sira"`
}

type CORSConfig struct {
	Origins string `env:"CORS_ORIGINS,default=http://localhost:3000"`
}

type SMTPConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT,default=587"`
	Username string `env:"SMTP_USER"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM,default=noreply@sira-platform.com"`
	FromName string `env:"SMTP_FROM_NAME,default=SIRA Platform"`
	UseTLS   bool   `env:"SMTP_TLS,default=true"`
	AppURL   string `env:"APP_URL,default=http://localhost:3000"`
}

type UploadConfig struct {
	Dir      string `env:"UPLOAD_DIR,default=./uploads"`
	MaxBytes int64  `env:"MAX_UPLOAD_BYTES,default=10485760"`
}

type RedisConfig struct {
	URL     string `env:"REDIS_URL"`
	Channel string `env:"REDIS_CHANNEL,default=sira:realtime"`
}

type AMQPConfig struct {
	URL      string `env:"AMQP_URL"`
	Exchange string `env:"AMQP_EXCHANGE,default=sira.events"`
}

type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL,default=info"`
	Format string `env:"LOG_FORMAT,default=text"`
	Output string `env:"LOG_OUTPUT,default=stdout"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `env:"RATE_LIMIT_RPS,default=20"`
	Burst             int `env:"RATE_LIMIT_BURST,default=40"`
}

type JobsConfig struct {
	SLACheckSchedule string `env:"SLA_CHECK_SCHEDULE,default=@every 1m"`
	DigestSchedule   string `env:"DIGEST_SCHEDULE,default=0 7 * * *"`
	AlertRulesFile   string `env:"ALERT_RULES_FILE"`
}

type AuditConfig struct {
	File string `env:"AUDIT_LOG_FILE"`
}

// Load reads .env (when present) and decodes the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv decodes the current environment without touching .env files.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations that cannot run safely.
func (c *Config) Validate() error {
	if c.IsProduction() && c.Auth.SecretKey == DefaultSecretKey {
		return fmt.Errorf("SECRET_KEY must be set in production")
	}
	if c.Auth.AccessTokenMinutes <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_EXPIRE_MINUTES must be positive")
	}
	if c.Uploads.MaxBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// AccessTokenTTL returns the access token lifetime.
func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.Auth.AccessTokenMinutes) * time.Minute
}

// RefreshTokenTTL returns the refresh token lifetime.
func (c *Config) RefreshTokenTTL() time.Duration {
	return time.Duration(c.Auth.RefreshTokenDays) * 24 * time.Hour
}

// AllowedOrigins splits CORS_ORIGINS on commas.
func (c *Config) AllowedOrigins() []string {
	return ParseCSV(c.CORS.Origins)
}

// ParseCSV splits a comma separated list, dropping blanks.
func ParseCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
