// Package queue defines message payloads exchanged over the message broker.
package queue

// PaymentCompletedEvent is published after a payment settles and the seat
// is sold.  It carries enough information for downstream consumers to log,
// notify, or feed analytics without querying the primary database.
type PaymentCompletedEvent struct {
	PaymentID     string `json:"payment_id"`
	ReservationID string `json:"reservation_id"`
	UserID        string `json:"user_id"`
	ConcertID     string `json:"concert_id"`
	SeatID        string `json:"seat_id"`
	SeatNo        uint32 `json:"seat_no"`
	AmountCents   uint32 `json:"amount_cents"`
	SettledAt     string `json:"settled_at"`
}
