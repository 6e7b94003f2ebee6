package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/table-reservation/internal/account"
	"github.com/iliyamo/table-reservation/internal/audit"
	"github.com/iliyamo/table-reservation/internal/config"
	"github.com/iliyamo/table-reservation/internal/database"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/repository"
	"github.com/iliyamo/table-reservation/internal/reservation"
	"github.com/iliyamo/table-reservation/internal/service"
	"github.com/iliyamo/table-reservation/internal/utils"
)

// app holds everything a command needs.  It is built once per invocation
// in the root command's PersistentPreRunE.
type app struct {
	cfg      config.Config
	log      *logrus.Logger
	now      func() time.Time
	auth     *account.Authenticator
	sessions *account.SessionFile
	audit    *audit.Log
	mgr      *reservation.Manager
	closers  []func() error
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	a := &app{
		cfg: cfg,
		log: utils.NewLogger(cfg.LogLevel, cfg.LogFormat),
		now: cfg.Now(),
	}

	store, err := a.accountStore(ctx)
	if err != nil {
		a.close()
		return nil, err
	}
	a.auth = account.NewAuthenticator(store, a.loginLimiter(ctx), account.Options{
		BcryptCost:    cfg.BcryptCost,
		AdminUsername: cfg.AdminUsername,
		AdminPassword: cfg.AdminPassword,
		Logger:        a.log,
	})
	a.sessions = account.NewSessionFile(cfg.SessionFile, cfg.JWTSecret, cfg.SessionTTL, a.now)

	auditOpts := []audit.Option{audit.WithClock(a.now), audit.WithLogger(a.log)}
	if cfg.Events.Enabled {
		auditOpts = append(auditOpts, audit.WithPublisher(service.NewPublisher(cfg.Events.RabbitURL, a.log)))
	}
	a.audit = audit.New(cfg.AuditLogFile, auditOpts...)

	a.mgr = reservation.NewManager(reservation.Deps{
		Repo:   repository.NewReservationFileRepo(cfg.ReservationsFile, cfg.CounterFile, a.log),
		Audit:  a.audit,
		Clock:  a.now,
		Tables: cfg.TableCount,
		Logger: a.log,
	})
	if err := a.mgr.Open(ctx); err != nil {
		a.close()
		return nil, fmt.Errorf("load reservations: %w", err)
	}
	return a, nil
}

func (a *app) accountStore(ctx context.Context) (account.Store, error) {
	if a.cfg.AccountBackend != "mysql" {
		return repository.NewAccountFileRepo(a.cfg.AccountsFile, a.log), nil
	}
	db, err := database.Open(ctx, a.cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("open account database: %w", err)
	}
	a.closers = append(a.closers, db.Close)
	if err := database.Migrate(ctx, db); err != nil {
		return nil, err
	}
	return repository.NewAccountSQLRepo(db), nil
}

// loginLimiter prefers Redis so that attempts are counted across
// invocations, and falls back to an in-process bucket.
func (a *app) loginLimiter(ctx context.Context) account.Limiter {
	if !a.cfg.LoginLimit.Enabled {
		return nil
	}
	if rdb := config.NewRedisClient(ctx, a.cfg.Redis); rdb != nil {
		a.closers = append(a.closers, rdb.Close)
		return account.NewRedisLimiter(rdb, a.cfg.LoginLimit)
	}
	if a.cfg.Redis.Enabled {
		a.log.WithField("addr", a.cfg.Redis.Addr).Warn("redis unreachable; login throttle is per-process")
	}
	return account.NewMemoryLimiter(a.cfg.LoginLimit, nil)
}

// session returns the logged-in actor, restricted to roles when any are
// given.
func (a *app) session(roles ...model.Role) (reservation.Actor, error) {
	sess, err := a.sessions.Load()
	if err != nil {
		return reservation.Actor{}, err
	}
	if len(roles) > 0 {
		if err := account.RequireRole(sess, roles...); err != nil {
			return reservation.Actor{}, err
		}
	}
	return reservation.Actor{Role: sess.Role, Username: sess.Username}, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.WithError(err).Debug("close")
		}
	}
	a.closers = nil
}
