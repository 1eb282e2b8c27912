package repository

import (
	"context"
	"time"

	"github.com/iliyamo/concert-ticketing/internal/model"
)

// QueueTokenStore is the contract of the waiting-room token state
// machine. Two implementations exist: RedisQueueTokenStore for
// production and MemoryQueueTokenStore for tests and for degraded
// startup when Redis is unreachable.
//
// Invariants every implementation must keep:
//   - at most `cap` tokens per concert are ACTIVE at any instant;
//   - WAITING tokens form a strict FIFO per concert, ordered by enqueue
//     time with ties broken by token id;
//   - a subject holds at most one non-expired token per concert;
//   - Promote and ExpireStale are idempotent and safe to run on a cadence.
type QueueTokenStore interface {
	// Issue creates a WAITING token for the subject, or returns
	// ErrDuplicateEnrollment when a non-expired token already exists for
	// the same subject and concert. The check-and-create is atomic.
	Issue(ctx context.Context, userID, concertID string) (*model.QueueToken, error)

	// Get loads a token with its current state. The Position field is
	// the count of WAITING tokens ahead of it, or 0 when ACTIVE.
	// Returns ErrNotFound for unknown or fully purged tokens.
	Get(ctx context.Context, tokenID string) (*model.QueueToken, error)

	// Promote activates up to cap-currentActive WAITING tokens for the
	// concert in FIFO order, stamping activation and expiry. It returns
	// the number of tokens promoted.
	Promote(ctx context.Context, concertID string, cap int, activeTTL time.Duration) (int, error)

	// ExpireStale expires ACTIVE tokens past their deadline and WAITING
	// tokens older than maxWait, returning the ids of every token it
	// expired so callers can cascade reservation cancellation.
	ExpireStale(ctx context.Context, concertID string, maxWait time.Duration) ([]string, error)

	// Expire unconditionally ends a single token, releasing its
	// admission slot and its enrollment guard. Used after a successful
	// payment. A missing token is not an error.
	Expire(ctx context.Context, tokenID string) error

	// ActiveCount reports the number of currently ACTIVE tokens for a
	// concert, derived from live state rather than a counter.
	ActiveCount(ctx context.Context, concertID string) (int, error)
}
