// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Event transport backends accepted by EVENTS_BACKEND.
const (
	EventsBackendMemory   = "memory"
	EventsBackendPostgres = "postgres"
)

// Config holds all configuration for the application.
type Config struct {
	// Server Configuration
	GinMode            string        `mapstructure:"GIN_MODE"`
	ServerHost         string        `mapstructure:"SERVER_HOST"`
	ServerPort         string        `mapstructure:"SERVER_PORT"`
	ServerTimeout      time.Duration `mapstructure:"-"` // SERVER_TIMEOUT_SECONDS
	CORSAllowedOrigins []string      `mapstructure:"-"` // CORS_ALLOWED_ORIGINS

	// Database Configuration
	DBHost            string        `mapstructure:"DB_HOST"`
	DBPort            string        `mapstructure:"DB_PORT"`
	DBUser            string        `mapstructure:"DB_USER"`
	DBPassword        string        `mapstructure:"DB_PASSWORD"`
	DBName            string        `mapstructure:"DB_NAME"`
	DBSSLMode         string        `mapstructure:"DB_SSL_MODE"`
	DBTimezone        string        `mapstructure:"DB_TIMEZONE"`
	DBMaxIdleConns    int           `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBMaxOpenConns    int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBConnMaxLifetime time.Duration `mapstructure:"-"` // DB_CONN_MAX_LIFETIME_MINUTES
	DBAutoMigrate     bool          `mapstructure:"DB_AUTO_MIGRATE"`

	// Logging Configuration
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// Auth Configuration
	JWTSecret           string        `mapstructure:"AUTH_JWT_SECRET"`
	SessionTTL          time.Duration `mapstructure:"-"` // AUTH_SESSION_TTL_MINUTES
	ProfileFetchTimeout time.Duration `mapstructure:"-"` // AUTH_PROFILE_FETCH_TIMEOUT_MS
	GuardWait           time.Duration `mapstructure:"-"` // AUTH_GUARD_WAIT_MS
	AuthStateIdleTTL    time.Duration `mapstructure:"-"` // AUTH_STATE_IDLE_MINUTES
	ClientCookieName    string        `mapstructure:"AUTH_CLIENT_COOKIE_NAME"`
	CookieSecure        bool          `mapstructure:"AUTH_COOKIE_SECURE"`
	MinPasswordLength   int           `mapstructure:"AUTH_MIN_PASSWORD_LENGTH"`
	SignInRatePerMinute int           `mapstructure:"SIGNIN_RATE_PER_MINUTE"`
	SignInBurst         int           `mapstructure:"SIGNIN_BURST"`
	EventsBackend       string        `mapstructure:"EVENTS_BACKEND"`

	// Cron Jobs
	SessionExpiryJobSchedule string `mapstructure:"SESSION_EXPIRY_JOB_SCHEDULE"`

	// Firebase Configuration (push notifications, optional)
	FirebaseCredentialsFile string `mapstructure:"FIREBASE_CREDENTIALS_FILE"`
	FirebaseProjectID       string `mapstructure:"FIREBASE_PROJECT_ID"`

	// Elasticsearch Configuration (workout search, optional)
	ElasticsearchURL string `mapstructure:"ELASTICSEARCH_URL"`

	// Avatar storage
	AvatarStoragePath   string `mapstructure:"AVATAR_STORAGE_PATH"`
	AvatarPublicBaseURL string `mapstructure:"AVATAR_PUBLIC_BASE_URL"`
}

// Load attempts to load configuration from a .env file (if present) and environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling configuration: %w", err)
	}

	// These keys hold plain integers or a comma list, so they are read by hand.
	cfg.ServerTimeout = time.Duration(v.GetInt("SERVER_TIMEOUT_SECONDS")) * time.Second
	cfg.DBConnMaxLifetime = time.Duration(v.GetInt("DB_CONN_MAX_LIFETIME_MINUTES")) * time.Minute
	cfg.SessionTTL = time.Duration(v.GetInt("AUTH_SESSION_TTL_MINUTES")) * time.Minute
	cfg.ProfileFetchTimeout = time.Duration(v.GetInt("AUTH_PROFILE_FETCH_TIMEOUT_MS")) * time.Millisecond
	cfg.GuardWait = time.Duration(v.GetInt("AUTH_GUARD_WAIT_MS")) * time.Millisecond
	cfg.AuthStateIdleTTL = time.Duration(v.GetInt("AUTH_STATE_IDLE_MINUTES")) * time.Minute
	cfg.CORSAllowedOrigins = splitList(v.GetString("CORS_ALLOWED_ORIGINS"))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_TIMEOUT_SECONDS", 30)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "fitcoach_db")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_TIMEZONE", "UTC")
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_MAX_OPEN_CONNS", 100)
	v.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 60)
	v.SetDefault("DB_AUTO_MIGRATE", false)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	v.SetDefault("AUTH_JWT_SECRET", "")
	v.SetDefault("AUTH_SESSION_TTL_MINUTES", 60*24)
	v.SetDefault("AUTH_PROFILE_FETCH_TIMEOUT_MS", 5000)
	v.SetDefault("AUTH_GUARD_WAIT_MS", 2000)
	v.SetDefault("AUTH_STATE_IDLE_MINUTES", 30)
	v.SetDefault("AUTH_CLIENT_COOKIE_NAME", "fitcoach_client")
	v.SetDefault("AUTH_COOKIE_SECURE", false)
	v.SetDefault("AUTH_MIN_PASSWORD_LENGTH", 6)
	v.SetDefault("SIGNIN_RATE_PER_MINUTE", 10)
	v.SetDefault("SIGNIN_BURST", 5)
	v.SetDefault("EVENTS_BACKEND", EventsBackendMemory)

	v.SetDefault("SESSION_EXPIRY_JOB_SCHEDULE", "@every 1m")

	v.SetDefault("FIREBASE_CREDENTIALS_FILE", "")
	v.SetDefault("FIREBASE_PROJECT_ID", "")

	v.SetDefault("ELASTICSEARCH_URL", "")

	v.SetDefault("AVATAR_STORAGE_PATH", "./uploads")
	v.SetDefault("AVATAR_PUBLIC_BASE_URL", "/uploads")
}

// Validate checks the settings the server cannot run without.
func (c *Config) Validate() error {
	if c.GinMode == "release" && len(c.JWTSecret) < 32 {
		return fmt.Errorf("FATAL: AUTH_JWT_SECRET must be at least 32 characters in release mode")
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("FATAL: AUTH_JWT_SECRET is not set")
	}
	switch c.EventsBackend {
	case EventsBackendMemory, EventsBackendPostgres:
	default:
		return fmt.Errorf("unknown EVENTS_BACKEND %q (want %q or %q)", c.EventsBackend, EventsBackendMemory, EventsBackendPostgres)
	}
	if c.ProfileFetchTimeout <= 0 {
		return fmt.Errorf("AUTH_PROFILE_FETCH_TIMEOUT_MS must be positive")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("AUTH_SESSION_TTL_MINUTES must be positive")
	}
	if c.FirebaseCredentialsFile != "" {
		if _, err := os.Stat(c.FirebaseCredentialsFile); os.IsNotExist(err) {
			return fmt.Errorf("firebase credentials file %s not found", c.FirebaseCredentialsFile)
		}
	}
	return nil
}

// DSN builds the key/value connection string understood by both the GORM postgres driver and lib/pq.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode, c.DBTimezone)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
