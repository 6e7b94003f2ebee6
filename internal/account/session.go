package account

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/utils"
)

// Session identifies the logged-in actor.
type Session struct {
	Username string
	Role     model.Role
	Exp      time.Time
}

// SessionFile stores one signed session token on disk between CLI
// invocations.
type SessionFile struct {
	path   string
	secret string
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionFile(path, secret string, ttl time.Duration, now func() time.Time) *SessionFile {
	if now == nil {
		now = time.Now
	}
	return &SessionFile{path: path, secret: secret, ttl: ttl, now: now}
}

// Save signs a session for username and role and writes it, replacing any
// previous session.
func (s *SessionFile) Save(username string, role model.Role) (Session, error) {
	tok, err := utils.NewSessionToken(s.secret, username, string(role), s.ttl, s.now())
	if err != nil {
		return Session{}, fmt.Errorf("sign session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return Session{}, fmt.Errorf("mkdir session dir: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(tok.Token+"\n"), 0o600); err != nil {
		return Session{}, fmt.Errorf("write session: %w", err)
	}
	return Session{Username: username, Role: role, Exp: tok.Exp}, nil
}

// Load returns the current session.  A missing, tampered or expired token
// yields ErrNoSession.
func (s *SessionFile) Load() (Session, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Session{}, ErrNoSession
		}
		return Session{}, fmt.Errorf("read session: %w", err)
	}
	claims, err := utils.ParseSessionToken(s.secret, strings.TrimSpace(string(b)), s.now())
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	role, ok := model.ParseRole(claims.Role)
	if !ok {
		return Session{}, fmt.Errorf("%w: unknown role %q", ErrNoSession, claims.Role)
	}
	return Session{Username: claims.Username, Role: role, Exp: claims.Exp}, nil
}

// Clear logs out.  Clearing when nobody is logged in is not an error.
func (s *SessionFile) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

// RequireRole returns ErrForbidden unless sess has one of roles.
func RequireRole(sess Session, roles ...model.Role) error {
	for _, r := range roles {
		if sess.Role == r {
			return nil
		}
	}
	return fmt.Errorf("%w: %s may not do this", ErrForbidden, sess.Role)
}
