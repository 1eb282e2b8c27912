package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/concert-ticketing/internal/model"
)

// MemoryQueueTokenStore is a mutex-guarded in-memory implementation of
// QueueTokenStore. It backs the test suite and lets the server come up
// in a degraded single-node mode when Redis is unreachable; the
// semantics match the Redis store exactly.
type MemoryQueueTokenStore struct {
	mu       sync.Mutex
	tokens   map[string]*model.QueueToken
	enrolled map[string]string // concertID:userID -> tokenID
	now      func() time.Time  // injectable clock for tests
}

// NewMemoryQueueTokenStore returns an empty in-memory store.
func NewMemoryQueueTokenStore() *MemoryQueueTokenStore {
	return &MemoryQueueTokenStore{
		tokens:   make(map[string]*model.QueueToken),
		enrolled: make(map[string]string),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Issue creates a WAITING token unless the subject already holds a
// non-expired token for the concert.
func (s *MemoryQueueTokenStore) Issue(ctx context.Context, userID, concertID string) (*model.QueueToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := concertID + ":" + userID
	if existingID, ok := s.enrolled[key]; ok {
		if tok, ok := s.tokens[existingID]; ok && tok.Status != model.QueueExpired {
			return nil, ErrDuplicateEnrollment
		}
	}

	tok := &model.QueueToken{
		ID:         uuid.NewString(),
		UserID:     userID,
		ConcertID:  concertID,
		Status:     model.QueueWaiting,
		EnqueuedAt: s.now(),
	}
	s.tokens[tok.ID] = tok
	s.enrolled[key] = tok.ID

	out := *tok
	return &out, nil
}

// Get returns a copy of the token with its waiting position computed
// from the live queue.
func (s *MemoryQueueTokenStore) Get(ctx context.Context, tokenID string) (*model.QueueToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, ok := s.tokens[tokenID]
	if !ok {
		return nil, ErrNotFound
	}
	out := *tok
	switch out.Status {
	case model.QueueActive:
		if !out.IsActive(s.now()) {
			out.Status = model.QueueExpired
		}
	case model.QueueWaiting:
		out.Position = s.positionLocked(tok)
	}
	return &out, nil
}

// Promote activates waiting tokens in FIFO order up to the cap.
func (s *MemoryQueueTokenStore) Promote(ctx context.Context, concertID string, cap int, activeTTL time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slots := cap - s.activeCountLocked(concertID)
	if slots <= 0 {
		return 0, nil
	}
	waiting := s.waitingLocked(concertID)
	if len(waiting) > slots {
		waiting = waiting[:slots]
	}
	now := s.now()
	deadline := now.Add(activeTTL)
	for _, tok := range waiting {
		tok.Status = model.QueueActive
		activated := now
		expires := deadline
		tok.ActivatedAt = &activated
		tok.ExpiresAt = &expires
	}
	return len(waiting), nil
}

// ExpireStale expires overdue actives and over-waited waiters.
func (s *MemoryQueueTokenStore) ExpireStale(ctx context.Context, concertID string, maxWait time.Duration) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	waitCutoff := now.Add(-maxWait)
	var expired []string
	for _, tok := range s.tokens {
		if tok.ConcertID != concertID {
			continue
		}
		switch tok.Status {
		case model.QueueActive:
			if tok.ExpiresAt != nil && !tok.ExpiresAt.After(now) {
				s.expireLocked(tok)
				expired = append(expired, tok.ID)
			}
		case model.QueueWaiting:
			if !tok.EnqueuedAt.After(waitCutoff) {
				s.expireLocked(tok)
				expired = append(expired, tok.ID)
			}
		}
	}
	return expired, nil
}

// Expire unconditionally ends one token. Unknown tokens are ignored.
func (s *MemoryQueueTokenStore) Expire(ctx context.Context, tokenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok, ok := s.tokens[tokenID]; ok {
		s.expireLocked(tok)
	}
	return nil
}

// ActiveCount reports the number of ACTIVE tokens for a concert.
func (s *MemoryQueueTokenStore) ActiveCount(ctx context.Context, concertID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeCountLocked(concertID), nil
}

func (s *MemoryQueueTokenStore) expireLocked(tok *model.QueueToken) {
	tok.Status = model.QueueExpired
	key := tok.ConcertID + ":" + tok.UserID
	if s.enrolled[key] == tok.ID {
		delete(s.enrolled, key)
	}
}

func (s *MemoryQueueTokenStore) activeCountLocked(concertID string) int {
	n := 0
	for _, tok := range s.tokens {
		if tok.ConcertID == concertID && tok.Status == model.QueueActive {
			n++
		}
	}
	return n
}

// waitingLocked returns the concert's WAITING tokens in FIFO order:
// enqueue time ascending, ties broken by token id.
func (s *MemoryQueueTokenStore) waitingLocked(concertID string) []*model.QueueToken {
	var waiting []*model.QueueToken
	for _, tok := range s.tokens {
		if tok.ConcertID == concertID && tok.Status == model.QueueWaiting {
			waiting = append(waiting, tok)
		}
	}
	sort.Slice(waiting, func(i, j int) bool {
		if waiting[i].EnqueuedAt.Equal(waiting[j].EnqueuedAt) {
			return waiting[i].ID < waiting[j].ID
		}
		return waiting[i].EnqueuedAt.Before(waiting[j].EnqueuedAt)
	})
	return waiting
}

func (s *MemoryQueueTokenStore) positionLocked(tok *model.QueueToken) int64 {
	var pos int64
	for _, other := range s.waitingLocked(tok.ConcertID) {
		if other.ID == tok.ID {
			return pos
		}
		pos++
	}
	return pos
}
