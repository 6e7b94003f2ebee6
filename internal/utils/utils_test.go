package utils

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestSessionToken_RoundTrip(t *testing.T) {
	now := time.Date(2025, 5, 22, 22, 19, 0, 0, time.UTC)
	tok, err := NewSessionToken("s3cret", "alice", "Customer", time.Hour, now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), tok.Exp)

	claims, err := ParseSessionToken("s3cret", tok.Token, now.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "Customer", claims.Role)
	assert.Equal(t, tok.Exp, claims.Exp)
}

func TestSessionToken_Rejections(t *testing.T) {
	now := time.Date(2025, 5, 22, 22, 19, 0, 0, time.UTC)
	tok, err := NewSessionToken("s3cret", "alice", "Customer", time.Hour, now)
	require.NoError(t, err)

	_, err = ParseSessionToken("other", tok.Token, now)
	assert.ErrorIs(t, err, ErrInvalidSession, "wrong secret")

	_, err = ParseSessionToken("s3cret", tok.Token, now.Add(2*time.Hour))
	assert.ErrorIs(t, err, ErrInvalidSession, "expired")

	_, err = ParseSessionToken("s3cret", "not-a-jwt", now)
	assert.ErrorIs(t, err, ErrInvalidSession, "garbage")
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("admin123", bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "admin123"))
	assert.False(t, VerifyPassword(hash, "admin124"))
}

func TestFingerprint(t *testing.T) {
	fp := Fingerprint("admin123")
	assert.Len(t, fp, 12)
	assert.Equal(t, fp, Fingerprint("admin123"))
	assert.NotEqual(t, fp, Fingerprint("admin124"))
}

func TestNewLogger_Levels(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, NewLogger("debug", "text").GetLevel())
	assert.Equal(t, logrus.InfoLevel, NewLogger("nonsense", "json").GetLevel())
	_, isJSON := NewLogger("info", "json").Formatter.(*logrus.JSONFormatter)
	assert.True(t, isJSON)
}
