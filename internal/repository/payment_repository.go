package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/concert-ticketing/internal/model"
)

// mysqlDuplicateEntry is the server error number for a UNIQUE violation.
const mysqlDuplicateEntry = 1062

// PaymentRepo persists the payment audit trail.  One row per settled
// reservation; the UNIQUE constraint on reservation_id turns a racing
// double-settle into a duplicate-key error, surfaced as
// ErrAlreadySettled.
type PaymentRepo struct {
	db *sql.DB
}

// NewPaymentRepo returns a PaymentRepo bound to the given database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// InsertTx writes the audit row inside the settlement transaction.
func (r *PaymentRepo) InsertTx(ctx context.Context, tx *sql.Tx, p *model.Payment) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO payments (id, reservation_id, user_id, amount_cents)
         VALUES (?, ?, ?, ?)`,
		p.ID, p.ReservationID, p.UserID, p.AmountCents)
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
		return ErrAlreadySettled
	}
	return err
}

// GetByReservationID loads the audit row for a reservation.  Returns
// ErrNotFound when the reservation has never settled.
func (r *PaymentRepo) GetByReservationID(ctx context.Context, reservationID string) (*model.Payment, error) {
	var p model.Payment
	err := r.db.QueryRowContext(ctx,
		`SELECT id, reservation_id, user_id, amount_cents, created_at
         FROM payments WHERE reservation_id = ?`, reservationID).Scan(
		&p.ID, &p.ReservationID, &p.UserID, &p.AmountCents, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
