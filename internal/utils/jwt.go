package utils // package utils provides helper functions for session tokens, hashing and logging

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidSession is returned when a session token cannot be verified or
// lacks the expected claims.
var ErrInvalidSession = errors.New("invalid session token")

// SessionToken is a signed HS256 JWT identifying who is acting, along with
// its expiry.  The CLI keeps it on disk between invocations so every
// command can name its actor in the audit log.
type SessionToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// SessionClaims are the identity fields carried by a session token.
type SessionClaims struct {
	Username string
	Role     string
	Exp      time.Time
}

// NewSessionToken builds and signs a session token for username acting in
// role.  The JWT carries sub (username), role, exp and iat claims.
func NewSessionToken(secret, username, role string, ttl time.Duration, now time.Time) (SessionToken, error) {
	exp := now.UTC().Add(ttl)
	claims := jwt.MapClaims{
		"sub":  username,
		"role": role,
		"exp":  exp.Unix(),
		"iat":  now.UTC().Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return SessionToken{}, err
	}
	return SessionToken{Token: signed, Exp: exp}, nil
}

// ParseSessionToken verifies raw with secret and returns its claims.  Only
// HMAC signing methods are accepted; expired tokens are rejected.
func ParseSessionToken(secret, raw string, now time.Time) (SessionClaims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithTimeFunc(func() time.Time { return now }), jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return SessionClaims{}, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return SessionClaims{}, ErrInvalidSession
	}
	sub, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	if sub == "" || role == "" {
		return SessionClaims{}, fmt.Errorf("%w: missing sub or role", ErrInvalidSession)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return SessionClaims{}, fmt.Errorf("%w: missing exp", ErrInvalidSession)
	}
	return SessionClaims{Username: sub, Role: role, Exp: exp.Time.UTC()}, nil
}

// Fingerprint returns a short SHA-256 hex digest of a secret.  It lets the
// audit log correlate logins without ever recording the secret itself.
func Fingerprint(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])[:12]
}
