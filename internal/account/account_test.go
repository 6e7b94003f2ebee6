package account

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/table-reservation/internal/config"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/repository"
)

var t0 = time.Date(2025, 5, 22, 22, 19, 0, 0, time.UTC)

func limitCfg() config.LoginLimitConfig {
	return config.LoginLimitConfig{
		Enabled:        true,
		Capacity:       3,
		RefillTokens:   1,
		RefillInterval: time.Minute,
		TTL:            10 * time.Minute,
		Prefix:         "test:login",
	}
}

func newAuth(t *testing.T, limiter Limiter) *Authenticator {
	t.Helper()
	store := repository.NewAccountFileRepo(filepath.Join(t.TempDir(), "accounts.txt"), nil)
	return NewAuthenticator(store, limiter, Options{
		BcryptCost:    bcrypt.MinCost,
		AdminUsername: "admin",
		AdminPassword: "admin123",
	})
}

func TestAuthenticator_CreateAndVerify(t *testing.T) {
	a := newAuth(t, nil)
	ctx := context.Background()

	require.NoError(t, a.Create(ctx, "alice", "pw123", model.RoleCustomer))
	require.NoError(t, a.Create(ctx, "desk1", "front", model.RoleReceptionist))

	role, err := a.Verify(ctx, "alice", "pw123")
	require.NoError(t, err)
	assert.Equal(t, model.RoleCustomer, role)

	role, err = a.Verify(ctx, "desk1", "front")
	require.NoError(t, err)
	assert.Equal(t, model.RoleReceptionist, role)

	role, err = a.Verify(ctx, "admin", "admin123")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, role)
}

func TestAuthenticator_Rejections(t *testing.T) {
	a := newAuth(t, nil)
	ctx := context.Background()
	require.NoError(t, a.Create(ctx, "alice", "pw123", model.RoleCustomer))

	_, err := a.Verify(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = a.Verify(ctx, "nobody", "pw123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = a.Verify(ctx, "admin", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	assert.ErrorIs(t, a.Create(ctx, "alice", "other", model.RoleCustomer), ErrAccountExists)
	assert.ErrorIs(t, a.Create(ctx, "admin", "x1", model.RoleCustomer), ErrAccountExists)
	assert.ErrorIs(t, a.Create(ctx, "bad name", "pw", model.RoleCustomer), ErrCredentialFormat)
	assert.ErrorIs(t, a.Create(ctx, "bob", "", model.RoleCustomer), ErrCredentialFormat)
	assert.ErrorIs(t, a.Create(ctx, "root", "pw1", model.RoleAdmin), ErrForbidden)
}

func TestAuthenticator_Throttle(t *testing.T) {
	now := t0
	lim := NewMemoryLimiter(limitCfg(), func() time.Time { return now })
	a := newAuth(t, lim)
	ctx := context.Background()
	require.NoError(t, a.Create(ctx, "alice", "pw123", model.RoleCustomer))

	for i := 0; i < 3; i++ {
		_, err := a.Verify(ctx, "alice", "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}
	_, err := a.Verify(ctx, "alice", "pw123")
	require.ErrorIs(t, err, ErrThrottled)

	// Other users have their own bucket.
	_, err = a.Verify(ctx, "admin", "admin123")
	require.NoError(t, err)

	now = now.Add(time.Minute)
	role, err := a.Verify(ctx, "alice", "pw123")
	require.NoError(t, err)
	assert.Equal(t, model.RoleCustomer, role)

	// Success resets the bucket.
	for i := 0; i < 3; i++ {
		_, err := a.Verify(ctx, "alice", "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string) (Decision, error) {
	return Decision{}, errors.New("redis down")
}
func (brokenLimiter) Reset(context.Context, string) error { return errors.New("redis down") }

func TestAuthenticator_LimiterFailureAllows(t *testing.T) {
	a := newAuth(t, brokenLimiter{})
	role, err := a.Verify(context.Background(), "admin", "admin123")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, role)
}

func TestMemoryLimiter_Refill(t *testing.T) {
	now := t0
	lim := NewMemoryLimiter(limitCfg(), func() time.Time { return now })
	ctx := context.Background()

	for i := 2; i >= 0; i-- {
		d, err := lim.Allow(ctx, "k")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, int64(i), d.Remaining)
	}
	now = now.Add(20 * time.Second)
	d, err := lim.Allow(ctx, "k")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 40*time.Second, d.RetryAfter)

	now = now.Add(3 * time.Minute)
	d, err = lim.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, int64(2), d.Remaining)

	require.NoError(t, lim.Reset(ctx, "k"))
	d, err = lim.Allow(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(2), d.Remaining)
}

func TestRedisLimiter(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()
	require.NoError(t, rdb.Ping(ctx).Err())

	lim := NewRedisLimiter(rdb, limitCfg())
	key := "user-" + time.Now().Format("150405.000000")
	defer lim.Reset(ctx, key)

	for i := 0; i < 3; i++ {
		d, err := lim.Allow(ctx, key)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}
	d, err := lim.Allow(ctx, key)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Greater(t, d.RetryAfter, time.Duration(0))

	require.NoError(t, lim.Reset(ctx, key))
	d, err = lim.Allow(ctx, key)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestAsInt64(t *testing.T) {
	assert.Equal(t, int64(1), asInt64(int64(1)))
	assert.Equal(t, int64(7), asInt64("7"))
	assert.Equal(t, int64(3), asInt64(float64(3)))
	assert.Equal(t, int64(0), asInt64(nil))
}
