package model

import "time"

// User is the wallet row standing in for the external account service.
// Only the balance matters to this service; account management lives
// elsewhere.
//
// Fields:
//  ID           – primary key (UUID).
//  BalanceCents – current balance in cents.
type User struct {
	ID           string
	BalanceCents uint64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
