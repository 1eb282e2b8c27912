package repository

import (
	"context"
	"database/sql"
)

// UserRepo provides balance access for the wallet rows standing in for
// the external account service.  The debit is a conditional UPDATE so
// a balance can never go negative regardless of concurrent settles.
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo returns a UserRepo bound to the given database.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

// Exists reports whether a user row exists.
func (r *UserRepo) Exists(ctx context.Context, userID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM users WHERE id = ?`, userID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetBalance returns the current balance in cents.  Returns ErrNotFound
// for unknown users.
func (r *UserRepo) GetBalance(ctx context.Context, userID string) (uint64, error) {
	var balance uint64
	err := r.db.QueryRowContext(ctx,
		`SELECT balance_cents FROM users WHERE id = ?`, userID).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// Charge adds funds to a wallet and returns the new balance.  Returns
// ErrNotFound for unknown users.
func (r *UserRepo) Charge(ctx context.Context, userID string, amountCents uint64) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET balance_cents = balance_cents + ?, updated_at = UTC_TIMESTAMP()
         WHERE id = ?`, amountCents, userID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrNotFound
	}
	return r.GetBalance(ctx, userID)
}

// DebitTx deducts the amount inside the settlement transaction, but
// only when the balance covers it.  Zero affected rows means the funds
// are not there: ErrInsufficientBalance for known users, ErrNotFound
// otherwise.
func (r *UserRepo) DebitTx(ctx context.Context, tx *sql.Tx, userID string, amountCents uint64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE users SET balance_cents = balance_cents - ?, updated_at = UTC_TIMESTAMP()
         WHERE id = ? AND balance_cents >= ?`,
		amountCents, userID, amountCents)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var one int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = ?`, userID).Scan(&one)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return ErrInsufficientBalance
	}
	return nil
}
