package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// DevSigningSecret is the default voucher signing secret. It must be overridden outside development.
const DevSigningSecret = "dev-only-voucher-signing-secret"

// Config holds all configuration for the application.
type Config struct {
	Server  ServerConfig
	DB      DBConfig
	Log     LogConfig
	App     AppConfig
	Voucher VoucherConfig
	Redis   RedisConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port            string `envconfig:"SERVER_PORT" default:"3000"`
	ShutdownTimeout int    `envconfig:"SHUTDOWN_TIMEOUT" default:"30"` // seconds
}

// DBConfig holds database-related configuration.
// WARNING: Default password is for local development only.
// In production, always set DB_PASSWORD via environment variable.
type DBConfig struct {
	Host        string `envconfig:"DB_HOST" default:"localhost"`
	Port        int    `envconfig:"DB_PORT" default:"5432"`
	User        string `envconfig:"DB_USER" default:"postgres"`
	Password    string `envconfig:"DB_PASSWORD" default:"postgres"` // CHANGE IN PRODUCTION
	Name        string `envconfig:"DB_NAME" default:"bogo_db"`
	SSLMode     string `envconfig:"DB_SSLMODE" default:"disable"` // Use "require" in production
	MaxConns    int    `envconfig:"DB_MAX_CONNS" default:"25"`
	MinConns    int    `envconfig:"DB_MIN_CONNS" default:"5"`
	AutoMigrate bool   `envconfig:"DB_AUTO_MIGRATE" default:"false"`
}

// DSN returns the PostgreSQL connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&pool_max_conns=%d&pool_min_conns=%d",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode, c.MaxConns, c.MinConns)
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Pretty bool   `envconfig:"LOG_PRETTY" default:"false"`
}

// AppConfig holds settings for offer evaluation.
type AppConfig struct {
	Timezone string `envconfig:"APP_TIMEZONE" default:"UTC"`
}

// Location resolves the configured timezone.
func (c AppConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// VoucherConfig holds code generation and payload signing settings.
type VoucherConfig struct {
	SigningSecret         string `envconfig:"VOUCHER_SIGNING_SECRET" default:"dev-only-voucher-signing-secret"` // CHANGE IN PRODUCTION
	ReservationCodeLength int    `envconfig:"RESERVATION_CODE_LENGTH" default:"8"`
	VoucherCodeLength     int    `envconfig:"VOUCHER_CODE_LENGTH" default:"10"`
	MaxCodeAttempts       int    `envconfig:"CODE_MAX_ATTEMPTS" default:"5"`
}

// RedisConfig holds the offer cache settings. The cache is off unless REDIS_ENABLED is set.
type RedisConfig struct {
	Enabled  bool   `envconfig:"REDIS_ENABLED" default:"false"`
	Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
	OfferTTL int    `envconfig:"OFFER_CACHE_TTL" default:"60"` // seconds
}

// Load parses environment variables into the Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
