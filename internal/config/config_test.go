package config

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("DATA_DIR", "var")
	cfg := FromEnv()

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, filepath.Join("var", "reservations.txt"), cfg.ReservationsFile)
	assert.Equal(t, filepath.Join("var", "reservation_counter.txt"), cfg.CounterFile)
	assert.Equal(t, filepath.Join("var", "logs.txt"), cfg.AuditLogFile)
	assert.Equal(t, 10, cfg.TableCount)
	assert.Equal(t, "file", cfg.AccountBackend)
	assert.Equal(t, 12*time.Hour, cfg.SessionTTL)
	assert.False(t, cfg.Events.Enabled)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 5, cfg.LoginLimit.Capacity)
	require.NoError(t, cfg.Validate())
}

func TestFromEnv_Overrides(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "records.txt")
	t.Setenv("RESERVATIONS_FILE", abs)
	t.Setenv("TABLE_COUNT", "25")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("LOGIN_LIMIT_CAPACITY", "0")
	t.Setenv("LOGIN_LIMIT_REFILL_INTERVAL", "1s")
	t.Setenv("LOGIN_LIMIT_TTL", "1s")

	cfg := FromEnv()
	assert.Equal(t, abs, cfg.ReservationsFile)
	assert.Equal(t, 25, cfg.TableCount)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, "cache:6380", cfg.Redis.Addr)
	assert.Equal(t, 1, cfg.LoginLimit.Capacity)
	assert.Equal(t, 5*time.Second, cfg.LoginLimit.TTL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mut     func(*Config)
		wantErr string
	}{
		{"unknown env", func(c *Config) { c.Env = "staging" }, "Env"},
		{"no tables", func(c *Config) { c.TableCount = 0 }, "TableCount"},
		{"bad reference", func(c *Config) { c.ReferenceNow = "2025-05-22T22:19" }, "ReferenceNow"},
		{"bad backend", func(c *Config) { c.AccountBackend = "ldap" }, "AccountBackend"},
		{"short secret", func(c *Config) { c.JWTSecret = "abc" }, "JWTSecret"},
		{"admin symbols", func(c *Config) { c.AdminPassword = "p@ss" }, "AdminPassword"},
		{"low bcrypt cost", func(c *Config) { c.BcryptCost = 2 }, "BcryptCost"},
		{"events without url", func(c *Config) { c.Events.Enabled = true; c.Events.RabbitURL = "" }, "RabbitURL"},
		{"prod with dev secret", func(c *Config) { c.Env = "prod" }, "JWT_SECRET"},
		{"prod with dev admin password", func(c *Config) { c.Env = "prod"; c.JWTSecret = "a-real-production-signing-key-0123" }, "ADMIN_PASSWORD"},
		{"mysql without host", func(c *Config) { c.AccountBackend = "mysql"; c.DB.Host = "" }, "DB_HOST"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := FromEnv()
			tt.mut(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_ProdWithOwnSecrets(t *testing.T) {
	cfg := FromEnv()
	cfg.Env = "prod"
	cfg.JWTSecret = "a-real-production-signing-key-0123"
	cfg.AdminPassword = "Str0ngAdminPass"
	require.NoError(t, cfg.Validate())
}

func TestNow(t *testing.T) {
	cfg := FromEnv()
	cfg.ReferenceNow = "2025-05-22 22:19"
	now := cfg.Now()()
	assert.Equal(t, "2025-05-22 22:19", now.Format(referenceLayout))

	cfg.ReferenceNow = ""
	assert.WithinDuration(t, time.Now(), cfg.Now()(), time.Minute)
}

func TestNewRedisClient_Disabled(t *testing.T) {
	assert.Nil(t, NewRedisClient(context.Background(), RedisConfig{}))
}
