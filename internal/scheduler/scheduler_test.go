package scheduler

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/concert-ticketing/internal/config"
	"github.com/iliyamo/concert-ticketing/internal/model"
	"github.com/iliyamo/concert-ticketing/internal/repository"
)

func testConfig() config.Config {
	return config.Config{
		QueueActiveCap:       2,
		QueueActiveTTL:       10 * time.Minute,
		QueueMaxWait:         30 * time.Minute,
		QueuePromoteInterval: time.Second,
		QueueExpireInterval:  time.Second,
		HoldSweepInterval:    time.Second,
		HoldSweepBatch:       100,
	}
}

func expectOpenConcerts(mock sqlmock.Sqlmock, ids ...string) {
	rows := sqlmock.NewRows([]string{"id"})
	for _, id := range ids {
		rows.AddRow(id)
	}
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM concerts")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(rows)
}

func TestPromoteWaitingFillsSlots(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := repository.NewMemoryQueueTokenStore()
	ctx := context.Background()
	first, err := store.Issue(ctx, "a", "concert-1")
	require.NoError(t, err)
	_, err = store.Issue(ctx, "b", "concert-1")
	require.NoError(t, err)
	_, err = store.Issue(ctx, "c", "concert-1")
	require.NoError(t, err)

	expectOpenConcerts(mock, "concert-1")

	s := New(testConfig(), store, repository.NewConcertRepo(db), repository.NewReservationRepo(db))
	s.promoteWaiting()

	count, err := store.ActiveCount(ctx, "concert-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	got, err := store.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QueueActive, got.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExpireOverdueHoldsSweep(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, seat_id FROM reservations")).
		WithArgs(100).
		WillReturnRows(sqlmock.NewRows([]string{"id", "seat_id"}).AddRow("res-1", "seat-1"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE reservations SET status = 'EXPIRED'")).
		WithArgs("res-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE seats")).
		WithArgs("seat-1", "res-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	store := repository.NewMemoryQueueTokenStore()
	s := New(testConfig(), store, repository.NewConcertRepo(db), repository.NewReservationRepo(db))
	s.expireOverdueHolds()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStartStop(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	_ = mock

	cfg := testConfig()
	cfg.QueuePromoteInterval = time.Hour // keep tickers quiet
	cfg.QueueExpireInterval = time.Hour
	cfg.HoldSweepInterval = time.Hour

	store := repository.NewMemoryQueueTokenStore()
	s := New(cfg, store, repository.NewConcertRepo(db), repository.NewReservationRepo(db))
	s.Start()
	s.Stop() // must not hang
}
