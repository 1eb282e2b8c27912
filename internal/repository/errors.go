// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios and map
// them to HTTP status codes. For example, ErrSeatUnavailable signals a
// seat that is already held or sold, while ErrAlreadySettled marks an
// idempotent retry of a payment that has already gone through.
package repository

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
// Handlers should translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrDuplicateEnrollment is returned when a subject already holds a
// non-expired queue token for the same concert. Handlers should
// translate this into an HTTP 409 response.
var ErrDuplicateEnrollment = errors.New("duplicate enrollment")

// ErrTokenNotActive is returned when an operation requires an ACTIVE
// queue token and the presented token is WAITING or EXPIRED. Handlers
// should translate this into an HTTP 401 response.
var ErrTokenNotActive = errors.New("token not active")

// ErrSeatUnavailable is returned when a hold is attempted on a seat
// that is already HELD or SOLD. The caller may retry with a different
// seat. Handlers should translate this into an HTTP 409 response.
var ErrSeatUnavailable = errors.New("seat unavailable")

// ErrReservationExpired is returned when settlement or cancellation is
// attempted on a reservation whose hold deadline has passed or that has
// already reached a terminal state other than CONFIRMED. The attempt is
// over; the client must re-enter the queue.
var ErrReservationExpired = errors.New("reservation expired")

// ErrInsufficientBalance is returned when the subject's balance does
// not cover the seat price. The reservation stays PENDING and may be
// retried until its hold deadline.
var ErrInsufficientBalance = errors.New("insufficient balance")

// ErrAlreadySettled is returned when settling a reservation that is
// already CONFIRMED. It is an idempotent no-op: the balance has been
// deducted exactly once.
var ErrAlreadySettled = errors.New("already settled")

// ErrConflict is returned when a conditional single-row update matched
// no row, meaning another writer got there first. Callers retry once
// internally before surfacing it.
var ErrConflict = errors.New("conflict")
