package model

import "time"

// SeatStatus enumerates seat availability states.  Transitions are
// FREE→HELD (hold), HELD→FREE (release/expiry) and HELD→SOLD (payment);
// SOLD is terminal and a sold seat is never re-held.
type SeatStatus string

const (
	SeatFree SeatStatus = "FREE"
	SeatHeld SeatStatus = "HELD"
	SeatSold SeatStatus = "SOLD"
)

// Seat is one sellable seat for a concert date.  ReservationID and
// HoldExpiresAt are set while the seat is HELD or SOLD and identify the
// reservation that claimed it.  Every state change is a single-row
// conditional update, which is what makes per-seat operations
// linearizable without any cross-seat locking.
//
// Fields:
//  ID            – primary key (UUID).
//  ConcertDateID – session this seat belongs to.
//  SeatNo        – seat number within the session.
//  PriceCents    – price in cents.
//  Status        – FREE, HELD or SOLD.
//  ReservationID – claiming reservation (nil when FREE).
//  HoldExpiresAt – hold deadline (nil unless HELD).
type Seat struct {
	ID            string
	ConcertDateID string
	SeatNo        uint32
	PriceCents    uint32
	Status        SeatStatus
	ReservationID *string
	HoldExpiresAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
