package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/concert-ticketing/internal/model"
)

// Redis key layout for the waiting room.  The waiting ZSET is scored by
// enqueue time in milliseconds, so ZRANGE yields strict FIFO order with
// ties broken lexicographically by token id.  The active ZSET is scored
// by the activation deadline, which lets the expiry sweep find stale
// tokens with a single ZRANGEBYSCORE.
const (
	waitingKeyPrefix  = "queue:waiting:"
	activeKeyPrefix   = "queue:active:"
	tokenKeyPrefix    = "queue:token:"
	enrolledKeyPrefix = "queue:enrolled:"
)

// issueScript atomically guards the one-token-per-subject rule and
// enqueues the new token.  SETNX-style existence check, token hash and
// waiting ZSET insert happen in one script so two concurrent issues for
// the same subject cannot both succeed.
//
// KEYS[1] enrolled guard, KEYS[2] token hash, KEYS[3] waiting zset
// ARGV[1] tokenID, ARGV[2] userID, ARGV[3] concertID,
// ARGV[4] now (unix ms), ARGV[5] retention seconds
var issueScript = redis.NewScript(`
    if redis.call('EXISTS', KEYS[1]) == 1 then
        return 0
    end
    redis.call('SET', KEYS[1], ARGV[1], 'EX', tonumber(ARGV[5]))
    redis.call('HSET', KEYS[2],
        'user_id', ARGV[2],
        'concert_id', ARGV[3],
        'state', 'WAITING',
        'enqueued_at_ms', ARGV[4])
    redis.call('EXPIRE', KEYS[2], tonumber(ARGV[5]))
    redis.call('ZADD', KEYS[3], tonumber(ARGV[4]), ARGV[1])
    return 1
`)

// promoteScript moves the head of the waiting queue into the active set,
// bounded by the admission cap.  The free-slot count is derived from
// ZCARD at execution time rather than a maintained counter, so repeated
// or concurrent runs cannot overshoot the cap.
//
// KEYS[1] active zset, KEYS[2] waiting zset
// ARGV[1] cap, ARGV[2] now (unix ms), ARGV[3] active TTL (ms),
// ARGV[4] token hash prefix, ARGV[5] retention seconds
var promoteScript = redis.NewScript(`
    local cap = tonumber(ARGV[1])
    local now = tonumber(ARGV[2])
    local ttl = tonumber(ARGV[3])
    local slots = cap - redis.call('ZCARD', KEYS[1])
    if slots <= 0 then
        return 0
    end
    local picked = redis.call('ZRANGE', KEYS[2], 0, slots - 1)
    if #picked == 0 then
        return 0
    end
    for _, id in ipairs(picked) do
        local deadline = now + ttl
        redis.call('ZADD', KEYS[1], deadline, id)
        redis.call('ZREM', KEYS[2], id)
        local tkey = ARGV[4] .. id
        redis.call('HSET', tkey,
            'state', 'ACTIVE',
            'activated_at_ms', now,
            'expires_at_ms', deadline)
        redis.call('EXPIRE', tkey, tonumber(ARGV[5]))
    end
    return #picked
`)

// expireStaleScript sweeps both ZSETs for one concert: actives past
// their deadline and waiters past the max-wait ceiling.  Each swept
// token is marked EXPIRED and its enrollment guard is dropped so the
// subject may re-enroll.  The swept ids are returned for reservation
// cascade.
//
// KEYS[1] active zset, KEYS[2] waiting zset
// ARGV[1] now (unix ms), ARGV[2] waiting cutoff (unix ms),
// ARGV[3] token hash prefix, ARGV[4] enrolled prefix incl. concert
var expireStaleScript = redis.NewScript(`
    local expired = {}
    local function sweep(zkey, cutoff)
        local stale = redis.call('ZRANGEBYSCORE', zkey, '-inf', cutoff)
        for _, id in ipairs(stale) do
            redis.call('ZREM', zkey, id)
            local tkey = ARGV[3] .. id
            local user = redis.call('HGET', tkey, 'user_id')
            redis.call('HSET', tkey, 'state', 'EXPIRED')
            if user then
                redis.call('DEL', ARGV[4] .. user)
            end
            table.insert(expired, id)
        end
    end
    sweep(KEYS[1], ARGV[1])
    sweep(KEYS[2], ARGV[2])
    return expired
`)

// expireOneScript ends a single token regardless of state, used when a
// successful payment releases the admission slot early.
//
// KEYS[1] token hash
// ARGV[1] tokenID, ARGV[2] active prefix, ARGV[3] waiting prefix,
// ARGV[4] enrolled prefix
var expireOneScript = redis.NewScript(`
    local state = redis.call('HGET', KEYS[1], 'state')
    if not state then
        return 0
    end
    local user = redis.call('HGET', KEYS[1], 'user_id')
    local concert = redis.call('HGET', KEYS[1], 'concert_id')
    redis.call('HSET', KEYS[1], 'state', 'EXPIRED')
    if concert then
        redis.call('ZREM', ARGV[2] .. concert, ARGV[1])
        redis.call('ZREM', ARGV[3] .. concert, ARGV[1])
        if user then
            redis.call('DEL', ARGV[4] .. concert .. ':' .. user)
        end
    end
    return 1
`)

// RedisQueueTokenStore implements QueueTokenStore on Redis.  All state
// transitions run inside Lua scripts, which gives the per-token
// compare-and-set semantics the admission controller relies on without
// any client-side locking.
type RedisQueueTokenStore struct {
	rdb       *redis.Client
	retention time.Duration // how long token hashes outlive their usefulness, for status polling
}

// NewRedisQueueTokenStore returns a store bound to the given client.
// Token records are retained for an hour after their last transition so
// late status polls still resolve instead of returning 404.
func NewRedisQueueTokenStore(rdb *redis.Client) *RedisQueueTokenStore {
	return &RedisQueueTokenStore{rdb: rdb, retention: time.Hour}
}

// Issue creates a WAITING token for the subject or reports
// ErrDuplicateEnrollment when the enrollment guard already exists.
func (s *RedisQueueTokenStore) Issue(ctx context.Context, userID, concertID string) (*model.QueueToken, error) {
	tokenID := uuid.NewString()
	now := time.Now().UTC()

	keys := []string{
		enrolledKey(concertID, userID),
		tokenKeyPrefix + tokenID,
		waitingKeyPrefix + concertID,
	}
	created, err := issueScript.Run(ctx, s.rdb, keys,
		tokenID, userID, concertID,
		now.UnixMilli(), int64(s.retention/time.Second),
	).Int64()
	if err != nil {
		return nil, err
	}
	if created == 0 {
		return nil, ErrDuplicateEnrollment
	}
	return &model.QueueToken{
		ID:         tokenID,
		UserID:     userID,
		ConcertID:  concertID,
		Status:     model.QueueWaiting,
		EnqueuedAt: now,
	}, nil
}

// Get loads the token hash and, for WAITING tokens, its queue position
// from ZRANK.  An ACTIVE token past its deadline is reported EXPIRED
// even before the sweep observes it.
func (s *RedisQueueTokenStore) Get(ctx context.Context, tokenID string) (*model.QueueToken, error) {
	fields, err := s.rdb.HGetAll(ctx, tokenKeyPrefix+tokenID).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	tok := &model.QueueToken{
		ID:        tokenID,
		UserID:    fields["user_id"],
		ConcertID: fields["concert_id"],
		Status:    model.QueueStatus(fields["state"]),
	}
	if ms, err := strconv.ParseInt(fields["enqueued_at_ms"], 10, 64); err == nil {
		tok.EnqueuedAt = time.UnixMilli(ms).UTC()
	}
	if ms, err := strconv.ParseInt(fields["activated_at_ms"], 10, 64); err == nil {
		t := time.UnixMilli(ms).UTC()
		tok.ActivatedAt = &t
	}
	if ms, err := strconv.ParseInt(fields["expires_at_ms"], 10, 64); err == nil {
		t := time.UnixMilli(ms).UTC()
		tok.ExpiresAt = &t
	}

	now := time.Now().UTC()
	switch tok.Status {
	case model.QueueActive:
		if !tok.IsActive(now) {
			tok.Status = model.QueueExpired
		}
	case model.QueueWaiting:
		rank, err := s.rdb.ZRank(ctx, waitingKeyPrefix+tok.ConcertID, tokenID).Result()
		switch {
		case err == nil:
			tok.Position = rank
		case errors.Is(err, redis.Nil):
			// dropped from the queue between HGETALL and ZRANK
			tok.Status = model.QueueExpired
		default:
			return nil, err
		}
	}
	return tok, nil
}

// Promote fills free admission slots from the head of the waiting queue.
func (s *RedisQueueTokenStore) Promote(ctx context.Context, concertID string, cap int, activeTTL time.Duration) (int, error) {
	keys := []string{activeKeyPrefix + concertID, waitingKeyPrefix + concertID}
	n, err := promoteScript.Run(ctx, s.rdb, keys,
		cap,
		time.Now().UTC().UnixMilli(),
		activeTTL.Milliseconds(),
		tokenKeyPrefix,
		int64(s.retention/time.Second),
	).Int64()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// ExpireStale sweeps overdue actives and over-waited waiters for one
// concert and returns the expired token ids.
func (s *RedisQueueTokenStore) ExpireStale(ctx context.Context, concertID string, maxWait time.Duration) ([]string, error) {
	now := time.Now().UTC()
	keys := []string{activeKeyPrefix + concertID, waitingKeyPrefix + concertID}
	res, err := expireStaleScript.Run(ctx, s.rdb, keys,
		now.UnixMilli(),
		now.Add(-maxWait).UnixMilli(),
		tokenKeyPrefix,
		enrolledKeyPrefix+concertID+":",
	).StringSlice()
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Expire unconditionally ends one token. Unknown tokens are ignored.
func (s *RedisQueueTokenStore) Expire(ctx context.Context, tokenID string) error {
	return expireOneScript.Run(ctx, s.rdb, []string{tokenKeyPrefix + tokenID},
		tokenID, activeKeyPrefix, waitingKeyPrefix, enrolledKeyPrefix,
	).Err()
}

// ActiveCount derives the live admission count from the active ZSET.
func (s *RedisQueueTokenStore) ActiveCount(ctx context.Context, concertID string) (int, error) {
	n, err := s.rdb.ZCard(ctx, activeKeyPrefix+concertID).Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func enrolledKey(concertID, userID string) string {
	return enrolledKeyPrefix + concertID + ":" + userID
}
