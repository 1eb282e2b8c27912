package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/concert-ticketing/internal/model"
)

// fakeClock lets the tests drive the store's notion of time.
type fakeClock struct {
	t time.Time
}

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestStore() (*MemoryQueueTokenStore, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryQueueTokenStore()
	store.now = clock.now
	return store, clock
}

func TestIssueStartsWaiting(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	tok, err := store.Issue(ctx, "user-1", "concert-1")
	require.NoError(t, err)
	assert.Equal(t, model.QueueWaiting, tok.Status)
	assert.NotEmpty(t, tok.ID)

	got, err := store.Get(ctx, tok.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QueueWaiting, got.Status)
	assert.Equal(t, int64(0), got.Position)
}

func TestIssueRejectsDuplicateEnrollment(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	_, err := store.Issue(ctx, "user-1", "concert-1")
	require.NoError(t, err)

	_, err = store.Issue(ctx, "user-1", "concert-1")
	assert.ErrorIs(t, err, ErrDuplicateEnrollment)

	// A different concert is a separate queue.
	_, err = store.Issue(ctx, "user-1", "concert-2")
	assert.NoError(t, err)
}

func TestIssueAllowsReEnrollAfterExpiry(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	tok, err := store.Issue(ctx, "user-1", "concert-1")
	require.NoError(t, err)
	require.NoError(t, store.Expire(ctx, tok.ID))

	again, err := store.Issue(ctx, "user-1", "concert-1")
	require.NoError(t, err)
	assert.NotEqual(t, tok.ID, again.ID)
}

func TestPromoteRespectsCapAndFIFO(t *testing.T) {
	store, clock := newTestStore()
	ctx := context.Background()

	var ids []string
	for _, user := range []string{"a", "b", "c", "d", "e"} {
		tok, err := store.Issue(ctx, user, "concert-1")
		require.NoError(t, err)
		ids = append(ids, tok.ID)
		clock.advance(time.Second) // distinct enqueue times
	}

	n, err := store.Promote(ctx, "concert-1", 2, 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Earliest two are ACTIVE, the rest still WAITING with shifted positions.
	for i, id := range ids {
		got, err := store.Get(ctx, id)
		require.NoError(t, err)
		if i < 2 {
			assert.Equal(t, model.QueueActive, got.Status, "token %d", i)
		} else {
			assert.Equal(t, model.QueueWaiting, got.Status, "token %d", i)
			assert.Equal(t, int64(i-2), got.Position, "token %d", i)
		}
	}

	// Cap reached: another promote admits nobody.
	n, err = store.Promote(ctx, "concert-1", 2, 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	count, err := store.ActiveCount(ctx, "concert-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestPromoteRefillsAfterExpiry(t *testing.T) {
	store, clock := newTestStore()
	ctx := context.Background()

	first, err := store.Issue(ctx, "a", "concert-1")
	require.NoError(t, err)
	clock.advance(time.Second)
	second, err := store.Issue(ctx, "b", "concert-1")
	require.NoError(t, err)

	n, err := store.Promote(ctx, "concert-1", 1, 10*time.Minute)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	// The active token overstays its TTL and gets swept.
	clock.advance(11 * time.Minute)
	expired, err := store.ExpireStale(ctx, "concert-1", time.Hour)
	require.NoError(t, err)
	require.Equal(t, []string{first.ID}, expired)

	// The freed slot goes to the next waiter.
	n, err = store.Promote(ctx, "concert-1", 1, 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := store.Get(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QueueActive, got.Status)
}

func TestGetReportsOverdueActiveAsExpired(t *testing.T) {
	store, clock := newTestStore()
	ctx := context.Background()

	tok, err := store.Issue(ctx, "a", "concert-1")
	require.NoError(t, err)
	_, err = store.Promote(ctx, "concert-1", 1, 10*time.Minute)
	require.NoError(t, err)

	clock.advance(10*time.Minute + time.Second)

	// The sweep has not run, but readers must not see a usable token.
	got, err := store.Get(ctx, tok.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QueueExpired, got.Status)
	assert.False(t, got.IsActive(clock.now()))
}

func TestExpireStaleDropsOverWaitedTokens(t *testing.T) {
	store, clock := newTestStore()
	ctx := context.Background()

	old, err := store.Issue(ctx, "a", "concert-1")
	require.NoError(t, err)
	clock.advance(31 * time.Minute)
	fresh, err := store.Issue(ctx, "b", "concert-1")
	require.NoError(t, err)

	expired, err := store.ExpireStale(ctx, "concert-1", 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, []string{old.ID}, expired)

	got, err := store.Get(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QueueWaiting, got.Status)
	assert.Equal(t, int64(0), got.Position)
}

func TestGetUnknownToken(t *testing.T) {
	store, _ := newTestStore()
	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}
