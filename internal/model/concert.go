package model

import "time"

// Concert is the resource the waiting room throttles access to.  The
// booking window between OpenAt and CloseAt decides which concerts the
// background sweeps consider.
//
// Fields:
//  ID        – primary key (UUID).
//  Title     – display name.
//  OpenAt    – when booking opens.
//  CloseAt   – when booking closes.
//  CreatedAt – creation timestamp.
type Concert struct {
	ID        string
	Title     string
	OpenAt    time.Time
	CloseAt   time.Time
	CreatedAt time.Time
}

// ConcertDate is a single performance session of a concert.  Seats hang
// off a concert date, not off the concert itself.
type ConcertDate struct {
	ID         string
	ConcertID  string
	PerformsAt time.Time
}
