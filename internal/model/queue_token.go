package model

import "time"

// QueueStatus enumerates the lifecycle states of a queue token.  A token
// starts WAITING, may be promoted to ACTIVE by the admission sweep, and
// ends EXPIRED either by TTL or after a successful payment releases its
// admission slot.
type QueueStatus string

const (
	QueueWaiting QueueStatus = "WAITING"
	QueueActive  QueueStatus = "ACTIVE"
	QueueExpired QueueStatus = "EXPIRED"
)

// QueueToken is a subject's position in, or admission past, the waiting
// room for one concert.  Tokens are owned by the queue token store; other
// components read them but never mutate them directly.
//
// Fields:
//  ID          – opaque token identifier (UUID).
//  UserID      – subject that enrolled.
//  ConcertID   – concert the token grants access to.
//  Status      – WAITING, ACTIVE or EXPIRED.
//  Position    – number of WAITING tokens ahead (0 when ACTIVE).
//  EnqueuedAt  – when the token entered the waiting queue.
//  ActivatedAt – when the token was promoted (nil while WAITING).
//  ExpiresAt   – ACTIVE deadline (nil while WAITING).
type QueueToken struct {
	ID          string
	UserID      string
	ConcertID   string
	Status      QueueStatus
	Position    int64
	EnqueuedAt  time.Time
	ActivatedAt *time.Time
	ExpiresAt   *time.Time
}

// IsActive reports whether the token currently grants admission.  An
// ACTIVE token past its expiry is treated as expired even if the sweep
// has not yet observed it.
func (t *QueueToken) IsActive(now time.Time) bool {
	if t.Status != QueueActive {
		return false
	}
	if t.ExpiresAt != nil && !t.ExpiresAt.After(now) {
		return false
	}
	return true
}
