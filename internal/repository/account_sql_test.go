package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/table-reservation/internal/model"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *AccountSQLRepo) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewAccountSQLRepo(db)
}

func TestAccountSQLRepo_Create(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO accounts`).
		WithArgs("alice", "Customer", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Create(context.Background(), "alice", "secret1", model.RoleCustomer, bcrypt.MinCost)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountSQLRepo_CreateDuplicate(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO accounts`).
		WithArgs("alice", "Customer", sqlmock.AnyArg()).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'alice' for key 'PRIMARY'"})

	err := repo.Create(context.Background(), "alice", "secret1", model.RoleCustomer, bcrypt.MinCost)
	assert.ErrorIs(t, err, ErrAccountExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountSQLRepo_GetByUsername(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"username", "role", "password_hash"}).
		AddRow("desk1", "receptionist", "$2a$04$hash")
	mock.ExpectQuery(`SELECT username, role, password_hash FROM accounts`).
		WithArgs("desk1").
		WillReturnRows(rows)

	a, err := repo.GetByUsername(context.Background(), "desk1")
	require.NoError(t, err)
	assert.Equal(t, model.Account{Username: "desk1", Role: model.RoleReceptionist, PasswordHash: "$2a$04$hash"}, a)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountSQLRepo_GetByUsernameNotFound(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT username, role, password_hash FROM accounts`).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"username", "role", "password_hash"}))

	_, err := repo.GetByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountSQLRepo_GetByUsernameUnknownRole(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT username, role, password_hash FROM accounts`).
		WithArgs("odd").
		WillReturnRows(sqlmock.NewRows([]string{"username", "role", "password_hash"}).AddRow("odd", "Chef", "h"))

	_, err := repo.GetByUsername(context.Background(), "odd")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrAccountNotFound)
}
