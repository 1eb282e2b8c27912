package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueBearerRoundTrip(t *testing.T) {
	raw, err := NewQueueBearer("secret", "tok-1", "user-1", "concert-1")
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	claims, err := ParseQueueBearer("secret", raw)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", claims.ID)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "concert-1", claims.ConcertID)
}

func TestQueueBearerRejectsWrongSecret(t *testing.T) {
	raw, err := NewQueueBearer("secret", "tok-1", "user-1", "concert-1")
	require.NoError(t, err)

	_, err = ParseQueueBearer("other", raw)
	assert.Error(t, err)
}

func TestQueueBearerRejectsGarbage(t *testing.T) {
	_, err := ParseQueueBearer("secret", "not.a.jwt")
	assert.Error(t, err)

	_, err = ParseQueueBearer("secret", "")
	assert.Error(t, err)
}
