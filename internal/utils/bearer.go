package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// QueueClaims is the signed envelope around a queue token id.  The JWT
// carries identity only; validity (WAITING, ACTIVE, EXPIRED) always comes
// from the token store, so the envelope deliberately has no exp claim.
type QueueClaims struct {
	ConcertID string `json:"cid"`
	jwt.RegisteredClaims
}

var errInvalidBearer = errors.New("invalid queue bearer")

// NewQueueBearer signs a bearer for an issued queue token.  jti is the
// opaque token id, sub the user, cid the concert the token queues for.
func NewQueueBearer(secret, tokenID, userID, concertID string) (string, error) {
	claims := QueueClaims{
		ConcertID: concertID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       tokenID,
			Subject:  userID,
			IssuedAt: jwt.NewNumericDate(time.Now().UTC()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseQueueBearer verifies the signature and returns the claims.  Any
// malformed, unsigned or foreign-key token is rejected; the caller still
// has to check the token's state against the store.
func ParseQueueBearer(secret, raw string) (*QueueClaims, error) {
	var claims QueueClaims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errInvalidBearer
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return nil, errInvalidBearer
	}
	if claims.ID == "" || claims.Subject == "" {
		return nil, errInvalidBearer
	}
	return &claims, nil
}
