package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/concert-ticketing/internal/model"
)

// ReservationRepo provides CRUD and state-machine transitions for
// reservations.  The state machine is PENDING → {CONFIRMED, EXPIRED,
// CANCELLED}; every transition out of PENDING is a conditional UPDATE
// guarded on the current status, so a reservation leaves PENDING at
// most once no matter how many writers race.  All timestamps are UTC.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// DB exposes the underlying handle so orchestrating handlers can open
// transactions spanning reservations, seats, users and payments.
func (r *ReservationRepo) DB() *sql.DB { return r.db }

// Create persists a new PENDING reservation.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reservations (id, token_id, user_id, seat_id, status, hold_deadline)
         VALUES (?, ?, ?, ?, 'PENDING', ?)`,
		res.ID, res.TokenID, res.UserID, res.SeatID, res.HoldDeadline.UTC())
	return err
}

// GetByID loads a reservation.  Returns ErrNotFound when it does not exist.
func (r *ReservationRepo) GetByID(ctx context.Context, id string) (*model.Reservation, error) {
	return scanReservation(r.db.QueryRowContext(ctx, selectReservationQuery, id))
}

// GetByIDForUpdateTx loads a reservation with a row lock inside the
// settlement transaction, serializing concurrent settles of the same
// reservation.
func (r *ReservationRepo) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id string) (*model.Reservation, error) {
	return scanReservation(tx.QueryRowContext(ctx, selectReservationQuery+" FOR UPDATE", id))
}

// HasPendingForToken reports whether the token already authorizes an
// in-flight reservation.  One token carries at most one PENDING
// reservation at a time.
func (r *ReservationRepo) HasPendingForToken(ctx context.Context, tokenID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM reservations WHERE token_id = ? AND status = 'PENDING' LIMIT 1`,
		tokenID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ConfirmTx transitions PENDING→CONFIRMED within the settlement
// transaction.  Zero affected rows means another writer already moved
// the reservation out of PENDING, reported as ErrConflict.
func (r *ReservationRepo) ConfirmTx(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE reservations SET status = 'CONFIRMED', updated_at = UTC_TIMESTAMP()
         WHERE id = ? AND status = 'PENDING'`, id)
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

// ExpireTx transitions PENDING→EXPIRED within an existing transaction.
// A reservation already out of PENDING is left untouched.
func (r *ReservationRepo) ExpireTx(ctx context.Context, tx *sql.Tx, id string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE reservations SET status = 'EXPIRED', updated_at = UTC_TIMESTAMP()
         WHERE id = ? AND status = 'PENDING'`, id)
	return err
}

// Cancel is explicit client abandonment: it marks the caller's PENDING
// reservation CANCELLED and frees its seat in one transaction.  Unknown
// reservations and owner mismatches both come back as ErrNotFound (the
// resource is not visible to other subjects); a reservation already in
// a terminal state yields ErrReservationExpired.
func (r *ReservationRepo) Cancel(ctx context.Context, id, userID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := scanReservation(tx.QueryRowContext(ctx, selectReservationQuery+" FOR UPDATE", id))
	if err != nil {
		return err
	}
	if res.UserID != userID {
		return ErrNotFound
	}
	if res.Status != model.ReservationPending {
		return ErrReservationExpired
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE reservations SET status = 'CANCELLED', updated_at = UTC_TIMESTAMP()
         WHERE id = ? AND status = 'PENDING'`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, releaseHoldQuery, res.SeatID, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// CancelPendingByToken cancels the in-flight reservation authorized by
// an expired queue token, freeing its seat.  This is the cascade the
// token expiry sweep runs; a token without a pending reservation is a
// no-op.
func (r *ReservationRepo) CancelPendingByToken(ctx context.Context, tokenID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	rows, err := tx.QueryContext(ctx,
		`SELECT id, seat_id FROM reservations
         WHERE token_id = ? AND status = 'PENDING' FOR UPDATE`, tokenID)
	if err != nil {
		return err
	}
	type pair struct{ id, seatID string }
	var pending []pair
	for rows.Next() {
		var p pair
		if err := rows.Scan(&p.id, &p.seatID); err != nil {
			rows.Close()
			return err
		}
		pending = append(pending, p)
	}
	if err := rows.Close(); err != nil {
		return err
	}
	for _, p := range pending {
		if _, err := tx.ExecContext(ctx,
			`UPDATE reservations SET status = 'CANCELLED', updated_at = UTC_TIMESTAMP()
             WHERE id = ? AND status = 'PENDING'`, p.id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, releaseHoldQuery, p.seatID, p.id); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// ExpireOverdue is the hold sweep: in one transaction it finds PENDING
// reservations past their hold deadline, marks them EXPIRED and frees
// their seats.  It returns the expired reservation ids.  The limit
// bounds a single pass so the sweep never monopolizes the pool.
func (r *ReservationRepo) ExpireOverdue(ctx context.Context, limit int) ([]string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	rows, err := tx.QueryContext(ctx,
		`SELECT id, seat_id FROM reservations
         WHERE status = 'PENDING' AND hold_deadline <= UTC_TIMESTAMP()
         ORDER BY hold_deadline LIMIT ? FOR UPDATE`, limit)
	if err != nil {
		return nil, err
	}
	type pair struct{ id, seatID string }
	var overdue []pair
	for rows.Next() {
		var p pair
		if err := rows.Scan(&p.id, &p.seatID); err != nil {
			rows.Close()
			return nil, err
		}
		overdue = append(overdue, p)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if len(overdue) == 0 {
		return []string{}, nil
	}

	ids := make([]string, 0, len(overdue))
	for _, p := range overdue {
		if _, err := tx.ExecContext(ctx,
			`UPDATE reservations SET status = 'EXPIRED', updated_at = UTC_TIMESTAMP()
             WHERE id = ? AND status = 'PENDING'`, p.id); err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx, releaseHoldQuery, p.seatID, p.id); err != nil {
			return nil, err
		}
		ids = append(ids, p.id)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return ids, nil
}

const selectReservationQuery = `SELECT id, token_id, user_id, seat_id, status, hold_deadline, created_at, updated_at
    FROM reservations WHERE id = ?`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (*model.Reservation, error) {
	var res model.Reservation
	err := row.Scan(&res.ID, &res.TokenID, &res.UserID, &res.SeatID, &res.Status,
		&res.HoldDeadline, &res.CreatedAt, &res.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	res.HoldDeadline = res.HoldDeadline.UTC()
	return &res, nil
}
