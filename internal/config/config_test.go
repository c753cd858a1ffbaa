package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Port:              "8080",
		Env:               "production",
		DBDriver:          "postgres",
		DBSSLMode:         "require",
		DBPassword:        "secure-password",
		JWTSecret:         "secure-secret-at-least-32-chars-long",
		SessionCookieName: "sos_session",
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"Production baseline", func(c *Config) {}, false},
		{"Production with disable SSL mode", func(c *Config) { c.DBSSLMode = "disable" }, true},
		{"Production with empty SSL mode", func(c *Config) { c.DBSSLMode = "" }, true},
		{"Production with default secret", func(c *Config) { c.JWTSecret = defaultJWTSecret }, true},
		{"Production with short secret", func(c *Config) { c.JWTSecret = "short" }, true},
		{"Production with weak DB password", func(c *Config) { c.DBPassword = "password" }, true},
		{"Production on sqlite", func(c *Config) { c.DBDriver = "sqlite" }, true},
		{"Development on sqlite without SSL", func(c *Config) {
			c.Env = "development"
			c.DBDriver = "sqlite"
			c.DBSSLMode = "disable"
			c.JWTSecret = "dev"
		}, false},
		{"Unknown driver", func(c *Config) { c.DBDriver = "mongo" }, true},
		{"Missing port", func(c *Config) { c.Port = "" }, true},
		{"Missing cookie name", func(c *Config) { c.SessionCookieName = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_DefaultsAndNormalization(t *testing.T) {
	defer viper.Reset()

	t.Setenv("APP_ENV", "test")
	t.Setenv("DB_DRIVER", "  SQLite ")
	t.Setenv("DB_SSLMODE", "  DISABLE  ")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", c.DBDriver)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, "sos_session", c.SessionCookieName)
	assert.Equal(t, 7*24*time.Hour, c.SessionTTL())
	assert.Equal(t, time.Minute, c.UserCacheTTL())
	assert.Equal(t, 30*time.Second, c.AITimeout())
}

func TestDurations_FallBackOnNonPositive(t *testing.T) {
	c := &Config{SessionTTLHours: -1, UserCacheTTLSeconds: 0, AITimeoutSeconds: 5}
	assert.Equal(t, 7*24*time.Hour, c.SessionTTL())
	assert.Equal(t, time.Minute, c.UserCacheTTL())
	assert.Equal(t, 5*time.Second, c.AITimeout())
}
