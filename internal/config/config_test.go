package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndOverrides(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "test-secret")
	t.Setenv("AUTH_PROFILE_FETCH_TIMEOUT_MS", "1500")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, 30*time.Second, cfg.ServerTimeout)
	assert.Equal(t, 1500*time.Millisecond, cfg.ProfileFetchTimeout)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "fitcoach_client", cfg.ClientCookieName)
	assert.Equal(t, EventsBackendMemory, cfg.EventsBackend)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSAllowedOrigins)
}

func TestLoad_IntegerDurationsFromEnv(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "test-secret")
	t.Setenv("SERVER_TIMEOUT_SECONDS", "12")
	t.Setenv("DB_CONN_MAX_LIFETIME_MINUTES", "7")
	t.Setenv("AUTH_SESSION_TTL_MINUTES", "90")
	t.Setenv("AUTH_PROFILE_FETCH_TIMEOUT_MS", "250")
	t.Setenv("AUTH_GUARD_WAIT_MS", "800")
	t.Setenv("AUTH_STATE_IDLE_MINUTES", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 12*time.Second, cfg.ServerTimeout)
	assert.Equal(t, 7*time.Minute, cfg.DBConnMaxLifetime)
	assert.Equal(t, 90*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 250*time.Millisecond, cfg.ProfileFetchTimeout)
	assert.Equal(t, 800*time.Millisecond, cfg.GuardWait)
	assert.Equal(t, 3*time.Minute, cfg.AuthStateIdleTTL)
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			GinMode:             "debug",
			JWTSecret:           "secret",
			EventsBackend:       EventsBackendMemory,
			ProfileFetchTimeout: time.Second,
			SessionTTL:          time.Hour,
		}
	}

	assert.NoError(t, base().Validate())

	c := base()
	c.EventsBackend = "kafka"
	assert.Error(t, c.Validate())

	c = base()
	c.GinMode = "release"
	assert.Error(t, c.Validate(), "short secret must be rejected in release mode")

	c = base()
	c.ProfileFetchTimeout = 0
	assert.Error(t, c.Validate())

	c = base()
	c.FirebaseCredentialsFile = "/does/not/exist.json"
	assert.Error(t, c.Validate())
}

func TestDSN(t *testing.T) {
	c := &Config{DBHost: "db", DBPort: "5432", DBUser: "u", DBPassword: "p", DBName: "n", DBSSLMode: "disable", DBTimezone: "UTC"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable TimeZone=UTC", c.DSN())
}
