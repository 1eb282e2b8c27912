package handler

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/concert-ticketing/internal/middleware"
	"github.com/iliyamo/concert-ticketing/internal/model"
	"github.com/iliyamo/concert-ticketing/internal/repository"
)

func activeToken(now time.Time) *model.QueueToken {
	activated := now
	expires := now.Add(10 * time.Minute)
	return &model.QueueToken{
		ID:          "tok-1",
		UserID:      "user-1",
		ConcertID:   "concert-1",
		Status:      model.QueueActive,
		EnqueuedAt:  now.Add(-time.Minute),
		ActivatedAt: &activated,
		ExpiresAt:   &expires,
	}
}

func reserveContext(e *echo.Echo, token *model.QueueToken, seatID string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("seatId")
	c.SetParamValues(seatID)
	c.Set(middleware.CtxQueueToken, token)
	return c, rec
}

func expectNoPendingForToken(mock sqlmock.Sqlmock, tokenID string) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM reservations")).
		WithArgs(tokenID).
		WillReturnRows(sqlmock.NewRows([]string{"1"}))
}

func expectSeatLookup(mock sqlmock.Sqlmock, seatID string) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, concert_date_id, seat_no, price_cents, status, reservation_id, hold_expires_at")).
		WithArgs(seatID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "concert_date_id", "seat_no", "price_cents", "status", "reservation_id", "hold_expires_at",
		}).AddRow(seatID, "date-1", 7, 5000, "FREE", nil, nil))
}

func TestReserveClaimsSeat(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	token := activeToken(now)

	expectNoPendingForToken(mock, token.ID)
	expectSeatLookup(mock, "seat-1")
	mock.ExpectExec(regexp.QuoteMeta("UPDATE seats")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "seat-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reservations")).
		WithArgs(sqlmock.AnyArg(), token.ID, token.UserID, "seat-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	h := NewReservationHandler(repository.NewSeatRepo(db), repository.NewReservationRepo(db), 5*time.Minute)
	c, rec := reserveContext(echo.New(), token, "seat-1")
	require.NoError(t, h.Reserve(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "reservation_id")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveConflictWhenSeatTaken(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	token := activeToken(now)

	expectNoPendingForToken(mock, token.ID)
	expectSeatLookup(mock, "seat-1")
	mock.ExpectExec(regexp.QuoteMeta("UPDATE seats")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "seat-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	h := NewReservationHandler(repository.NewSeatRepo(db), repository.NewReservationRepo(db), 5*time.Minute)
	c, rec := reserveContext(echo.New(), token, "seat-1")
	require.NoError(t, h.Reserve(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveRejectsSecondPendingForToken(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	token := activeToken(now)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM reservations")).
		WithArgs(token.ID).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	h := NewReservationHandler(repository.NewSeatRepo(db), repository.NewReservationRepo(db), 5*time.Minute)
	c, rec := reserveContext(echo.New(), token, "seat-1")
	require.NoError(t, h.Reserve(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveRejectsLapsedToken(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// ACTIVE on paper, but the deadline already passed and the sweep has
	// not caught up.
	now := time.Now().UTC()
	token := activeToken(now.Add(-20 * time.Minute))

	h := NewReservationHandler(repository.NewSeatRepo(db), repository.NewReservationRepo(db), 5*time.Minute)
	c, rec := reserveContext(echo.New(), token, "seat-1")
	require.NoError(t, h.Reserve(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
