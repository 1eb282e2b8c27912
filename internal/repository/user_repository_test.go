package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebitTxDeductsWhenCovered(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET balance_cents = balance_cents - ")).
		WithArgs(uint64(5000), "user-1", uint64(5000)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	repo := NewUserRepo(db)
	require.NoError(t, repo.DebitTx(context.Background(), tx, "user-1", 5000))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDebitTxInsufficientBalance(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET balance_cents = balance_cents - ")).
		WithArgs(uint64(5000), "user-1", uint64(5000)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM users")).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)
	repo := NewUserRepo(db)
	err = repo.DebitTx(context.Background(), tx, "user-1", 5000)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDebitTxUnknownUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET balance_cents = balance_cents - ")).
		WithArgs(uint64(100), "ghost", uint64(100)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM users")).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)
	repo := NewUserRepo(db)
	err = repo.DebitTx(context.Background(), tx, "ghost", 100)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChargeReturnsNewBalance(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET balance_cents = balance_cents + ")).
		WithArgs(uint64(2000), "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT balance_cents FROM users")).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"balance_cents"}).AddRow(7000))

	repo := NewUserRepo(db)
	balance, err := repo.Charge(context.Background(), "user-1", 2000)
	require.NoError(t, err)
	assert.Equal(t, uint64(7000), balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}
