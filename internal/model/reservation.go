package model

import "time"

// ReservationStatus enumerates reservation states.  PENDING is the only
// non-terminal state; CONFIRMED, EXPIRED and CANCELLED are terminal and
// no transition leaves them.
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "PENDING"
	ReservationConfirmed ReservationStatus = "CONFIRMED"
	ReservationExpired   ReservationStatus = "EXPIRED"
	ReservationCancelled ReservationStatus = "CANCELLED"
)

// Reservation ties a queue token to a held seat until payment settles or
// the hold deadline passes.  One token authorizes at most one in-flight
// reservation; one seat is claimed by at most one reservation at a time.
//
// Fields:
//  ID           – primary key (UUID).
//  TokenID      – queue token that authorized the hold.
//  UserID       – subject that placed the hold.
//  SeatID       – seat claimed by this reservation.
//  Status       – PENDING, CONFIRMED, EXPIRED or CANCELLED.
//  HoldDeadline – moment the unpaid hold lapses.
type Reservation struct {
	ID           string
	TokenID      string
	UserID       string
	SeatID       string
	Status       ReservationStatus
	HoldDeadline time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Overdue reports whether the hold deadline has lapsed at the given
// instant.
func (r *Reservation) Overdue(now time.Time) bool {
	return !r.HoldDeadline.After(now)
}
