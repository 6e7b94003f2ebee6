package account

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/table-reservation/internal/model"
)

const testSecret = "test-session-secret-0123456789"

func TestSessionFile_Lifecycle(t *testing.T) {
	now := t0
	path := filepath.Join(t.TempDir(), "nested", "session.jwt")
	sf := NewSessionFile(path, testSecret, time.Hour, func() time.Time { return now })

	_, err := sf.Load()
	require.ErrorIs(t, err, ErrNoSession)

	saved, err := sf.Save("desk1", model.RoleReceptionist)
	require.NoError(t, err)
	assert.Equal(t, t0.Add(time.Hour), saved.Exp)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := sf.Load()
	require.NoError(t, err)
	assert.Equal(t, "desk1", got.Username)
	assert.Equal(t, model.RoleReceptionist, got.Role)

	now = now.Add(2 * time.Hour)
	_, err = sf.Load()
	require.ErrorIs(t, err, ErrNoSession)

	require.NoError(t, sf.Clear())
	require.NoError(t, sf.Clear())
}

func TestSessionFile_WrongSecret(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.jwt")
	clock := func() time.Time { return t0 }
	_, err := NewSessionFile(path, testSecret, time.Hour, clock).Save("alice", model.RoleCustomer)
	require.NoError(t, err)

	_, err = NewSessionFile(path, "another-secret-entirely-000", time.Hour, clock).Load()
	require.ErrorIs(t, err, ErrNoSession)
}

func TestRequireRole(t *testing.T) {
	staff := Session{Username: "desk1", Role: model.RoleReceptionist}
	assert.NoError(t, RequireRole(staff, model.RoleReceptionist, model.RoleAdmin))
	assert.ErrorIs(t, RequireRole(staff, model.RoleAdmin), ErrForbidden)
	assert.ErrorIs(t, RequireRole(Session{}, model.RoleCustomer), ErrForbidden)
}
