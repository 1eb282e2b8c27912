package model

import "time"

// PaymentOutcome enumerates the result of a settlement attempt.
type PaymentOutcome string

const (
	PaymentSuccess             PaymentOutcome = "SUCCESS"
	PaymentInsufficientBalance PaymentOutcome = "INSUFFICIENT_BALANCE"
	PaymentAlreadySettled      PaymentOutcome = "ALREADY_SETTLED"
	PaymentReservationExpired  PaymentOutcome = "RESERVATION_EXPIRED"
)

// Payment is the audit record of a settled reservation.  Only successful
// settlements are persisted; the UNIQUE constraint on ReservationID is
// the idempotency backstop that keeps a reservation from being charged
// twice.
//
// Fields:
//  ID            – primary key (UUID).
//  ReservationID – reservation this payment settled.
//  UserID        – subject whose balance was debited.
//  AmountCents   – amount deducted.
type Payment struct {
	ID            string
	ReservationID string
	UserID        string
	AmountCents   uint32
	CreatedAt     time.Time
}
