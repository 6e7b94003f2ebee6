package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/utils"
)

// mysqlDuplicateEntry is the server error number for a unique key violation.
const mysqlDuplicateEntry = 1062

// AccountSQLRepo mirrors the 'accounts' table:
//
//	CREATE TABLE accounts (
//	    username      VARCHAR(64)  PRIMARY KEY,
//	    role          VARCHAR(16)  NOT NULL,
//	    password_hash VARCHAR(255) NOT NULL,
//	    created_at    TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP
//	);
//
// It is used instead of the accounts file when several front desks share
// one account database.
type AccountSQLRepo struct{ DB *sql.DB }

func NewAccountSQLRepo(db *sql.DB) *AccountSQLRepo { return &AccountSQLRepo{DB: db} }

// Create inserts an account, hashing password with bcrypt at the given cost.
func (r *AccountSQLRepo) Create(ctx context.Context, username, password string, role model.Role, cost int) error {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO accounts (username, role, password_hash) VALUES (?,?,?)",
		username, string(role), hash)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
			return ErrAccountExists
		}
		return err
	}
	return nil
}

// GetByUsername fetches one account or ErrAccountNotFound.
func (r *AccountSQLRepo) GetByUsername(ctx context.Context, username string) (model.Account, error) {
	var (
		a    model.Account
		role string
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT username, role, password_hash FROM accounts WHERE username=? LIMIT 1",
		username).Scan(&a.Username, &role, &a.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Account{}, ErrAccountNotFound
		}
		return model.Account{}, err
	}
	parsed, ok := model.ParseRole(strings.TrimSpace(role))
	if !ok {
		return model.Account{}, errors.New("account " + username + " has unknown role " + role)
	}
	a.Role = parsed
	return a, nil
}
