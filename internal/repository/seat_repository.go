package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/concert-ticketing/internal/model"
)

// SeatRepo provides data access to the seats table.  Every state
// transition is a single-row conditional UPDATE: the WHERE clause
// carries the expected current state, so the row's own atomicity gives
// linearizable per-seat claims without locking the inventory.  All
// timestamps are UTC.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo returns a SeatRepo bound to the given database.
func NewSeatRepo(db *sql.DB) *SeatRepo { return &SeatRepo{db: db} }

// ListAvailable returns a snapshot of FREE seats for a concert date.
// The snapshot may race with concurrent holds; callers re-attempt on
// conflict rather than holding any lock across the listing.
func (r *SeatRepo) ListAvailable(ctx context.Context, concertDateID string) ([]model.Seat, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, concert_date_id, seat_no, price_cents, status
         FROM seats
         WHERE concert_date_id = ? AND status = 'FREE'
         ORDER BY seat_no`, concertDateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	seats := make([]model.Seat, 0)
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.ID, &s.ConcertDateID, &s.SeatNo, &s.PriceCents, &s.Status); err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	return seats, rows.Err()
}

// GetByID loads a single seat.  Returns ErrNotFound when it does not
// exist.
func (r *SeatRepo) GetByID(ctx context.Context, seatID string) (*model.Seat, error) {
	var (
		s             model.Seat
		reservationID sql.NullString
		holdExpiresAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, concert_date_id, seat_no, price_cents, status, reservation_id, hold_expires_at
         FROM seats WHERE id = ?`, seatID).Scan(
		&s.ID, &s.ConcertDateID, &s.SeatNo, &s.PriceCents, &s.Status,
		&reservationID, &holdExpiresAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if reservationID.Valid {
		rid := reservationID.String
		s.ReservationID = &rid
	}
	if holdExpiresAt.Valid {
		t := holdExpiresAt.Time.UTC()
		s.HoldExpiresAt = &t
	}
	return &s, nil
}

// GetTx loads a seat's pricing fields within an existing transaction.
// The settlement path reads the price here before attempting the
// HELD→SOLD transition on the same row.
func (r *SeatRepo) GetTx(ctx context.Context, tx *sql.Tx, seatID string) (*model.Seat, error) {
	var s model.Seat
	err := tx.QueryRowContext(ctx,
		`SELECT id, concert_date_id, seat_no, price_cents, status
         FROM seats WHERE id = ?`, seatID).Scan(
		&s.ID, &s.ConcertDateID, &s.SeatNo, &s.PriceCents, &s.Status)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// TryHold atomically claims a FREE seat for the given reservation.
// Exactly one concurrent caller can win: the UPDATE matches only while
// status is FREE, so the losers see zero affected rows and get
// ErrSeatUnavailable.
func (r *SeatRepo) TryHold(ctx context.Context, seatID, reservationID string, expiresAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE seats
         SET status = 'HELD', reservation_id = ?, hold_expires_at = ?, updated_at = UTC_TIMESTAMP()
         WHERE id = ? AND status = 'FREE'`,
		reservationID, expiresAt.UTC(), seatID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSeatUnavailable
	}
	return nil
}

// ConfirmSaleTx transitions HELD→SOLD within the settlement transaction,
// but only while the seat is still held by the settling reservation.  A
// zero-row update means the hold was lost to expiry or never belonged to
// this reservation, reported as ErrConflict.
func (r *SeatRepo) ConfirmSaleTx(ctx context.Context, tx *sql.Tx, seatID, reservationID string) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE seats
         SET status = 'SOLD', hold_expires_at = NULL, updated_at = UTC_TIMESTAMP()
         WHERE id = ? AND status = 'HELD' AND reservation_id = ?`,
		seatID, reservationID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// ReleaseHold returns a held seat to FREE if the holder matches.  It is
// deliberately a no-op otherwise, which makes releases idempotent and
// safe to call from cancellation, expiry and failure paths alike.
func (r *SeatRepo) ReleaseHold(ctx context.Context, seatID, reservationID string) error {
	_, err := r.db.ExecContext(ctx, releaseHoldQuery, seatID, reservationID)
	return err
}

// ReleaseHoldTx is ReleaseHold within an existing transaction.
func (r *SeatRepo) ReleaseHoldTx(ctx context.Context, tx *sql.Tx, seatID, reservationID string) error {
	_, err := tx.ExecContext(ctx, releaseHoldQuery, seatID, reservationID)
	return err
}

const releaseHoldQuery = `UPDATE seats
    SET status = 'FREE', reservation_id = NULL, hold_expires_at = NULL, updated_at = UTC_TIMESTAMP()
    WHERE id = ? AND status = 'HELD' AND reservation_id = ?`
