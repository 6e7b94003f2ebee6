// Package account authenticates the people driving the reservation core.
// It verifies credentials against a Store, throttles repeated failures and
// keeps the signed session that tells later commands who is acting.
package account

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/repository"
	"github.com/iliyamo/table-reservation/internal/utils"
	"github.com/iliyamo/table-reservation/internal/validate"
)

var (
	// ErrInvalidCredentials is returned for an unknown user or wrong password.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrCredentialFormat is returned when a new username or password is not alphanumeric.
	ErrCredentialFormat = errors.New("username and password must be non-empty and alphanumeric")
	// ErrAccountExists is returned when the username is already taken.
	ErrAccountExists = repository.ErrAccountExists
	// ErrThrottled is returned when too many sign-in attempts were made.
	ErrThrottled = errors.New("too many login attempts")
	// ErrNoSession is returned when nobody is logged in or the session expired.
	ErrNoSession = errors.New("not logged in")
	// ErrForbidden is returned when the session role may not run a command.
	ErrForbidden = errors.New("forbidden")
)

// Store persists accounts.  repository.AccountFileRepo and
// repository.AccountSQLRepo implement it.
type Store interface {
	GetByUsername(ctx context.Context, username string) (model.Account, error)
	Create(ctx context.Context, username, password string, role model.Role, cost int) error
}

// Options configures an Authenticator.
type Options struct {
	BcryptCost    int
	AdminUsername string
	AdminPassword string
	Logger        *logrus.Logger
}

// Authenticator verifies and creates accounts.  The admin account comes
// from configuration and is never stored.
type Authenticator struct {
	store   Store
	limiter Limiter
	opts    Options
	log     *logrus.Logger
}

// NewAuthenticator wires store and limiter.  limiter may be nil to disable
// throttling.
func NewAuthenticator(store Store, limiter Limiter, opts Options) *Authenticator {
	log := opts.Logger
	if log == nil {
		log = utils.DiscardLogger()
	}
	return &Authenticator{store: store, limiter: limiter, opts: opts, log: log}
}

// Verify checks username and password and returns the account's role.
func (a *Authenticator) Verify(ctx context.Context, username, password string) (model.Role, error) {
	if err := a.throttle(ctx, username); err != nil {
		return "", err
	}

	if a.isAdmin(username) {
		if subtle.ConstantTimeCompare([]byte(password), []byte(a.opts.AdminPassword)) != 1 {
			return "", ErrInvalidCredentials
		}
		a.reset(ctx, username)
		return model.RoleAdmin, nil
	}

	acc, err := a.store.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("load account: %w", err)
	}
	if !utils.VerifyPassword(acc.PasswordHash, password) {
		return "", ErrInvalidCredentials
	}
	a.reset(ctx, username)
	return acc.Role, nil
}

// Create registers a new account with role.  Admin accounts cannot be
// created this way.
func (a *Authenticator) Create(ctx context.Context, username, password string, role model.Role) error {
	if !validate.Credential(username) || !validate.Credential(password) {
		return ErrCredentialFormat
	}
	if role == model.RoleAdmin {
		return fmt.Errorf("%w: admin accounts are configured, not created", ErrForbidden)
	}
	if a.isAdmin(username) {
		return ErrAccountExists
	}
	if err := a.store.Create(ctx, username, password, role, a.opts.BcryptCost); err != nil {
		return err
	}
	a.log.WithFields(logrus.Fields{"username": username, "role": role}).Info("account created")
	return nil
}

func (a *Authenticator) isAdmin(username string) bool {
	return a.opts.AdminUsername != "" && username == a.opts.AdminUsername
}

// throttle spends one attempt for username.  A limiter backend failure is
// logged and the attempt allowed.
func (a *Authenticator) throttle(ctx context.Context, username string) error {
	if a.limiter == nil {
		return nil
	}
	d, err := a.limiter.Allow(ctx, username)
	if err != nil {
		a.log.WithError(err).Warn("login limiter unavailable")
		return nil
	}
	if !d.Allowed {
		return fmt.Errorf("%w: retry in %s", ErrThrottled, d.RetryAfter)
	}
	return nil
}

func (a *Authenticator) reset(ctx context.Context, username string) {
	if a.limiter == nil {
		return
	}
	if err := a.limiter.Reset(ctx, username); err != nil {
		a.log.WithError(err).Warn("reset login limiter")
	}
}
