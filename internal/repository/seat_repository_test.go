package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryHoldWinsWhenSeatFree(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expires := time.Date(2025, 6, 1, 12, 5, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE seats")).
		WithArgs("res-1", expires, "seat-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewSeatRepo(db)
	err = repo.TryHold(context.Background(), "seat-1", "res-1", expires)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTryHoldLosesWhenSeatTaken(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expires := time.Date(2025, 6, 1, 12, 5, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE seats")).
		WithArgs("res-2", expires, "seat-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewSeatRepo(db)
	err = repo.TryHold(context.Background(), "seat-1", "res-2", expires)
	assert.ErrorIs(t, err, ErrSeatUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmSaleTxRejectsLostHold(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE seats")).
		WithArgs("seat-1", "res-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)
	repo := NewSeatRepo(db)
	err = repo.ConfirmSaleTx(context.Background(), tx, "seat-1", "res-1")
	assert.ErrorIs(t, err, ErrConflict)
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListAvailableEmptyForUnknownDate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "concert_date_id", "seat_no", "price_cents", "status"})
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, concert_date_id, seat_no, price_cents, status")).
		WithArgs("nope").
		WillReturnRows(rows)

	repo := NewSeatRepo(db)
	seats, err := repo.ListAvailable(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, seats)
	assert.NotNil(t, seats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, concert_date_id, seat_no, price_cents, status, reservation_id, hold_expires_at")).
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	repo := NewSeatRepo(db)
	_, err = repo.GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}
