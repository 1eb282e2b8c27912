package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/concert-ticketing/internal/model"
)

// ConcertRepo provides read access to the concert catalog.  The catalog
// itself is maintained elsewhere; this service only needs existence
// checks for enrollment validation and the open-concert list that the
// background sweeps iterate over.  All timestamps are UTC.
type ConcertRepo struct {
	db *sql.DB
}

// NewConcertRepo returns a ConcertRepo bound to the given database.
func NewConcertRepo(db *sql.DB) *ConcertRepo { return &ConcertRepo{db: db} }

// Exists reports whether a concert with the given id exists.
func (r *ConcertRepo) Exists(ctx context.Context, concertID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM concerts WHERE id = ?`, concertID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListOpenIDs returns the ids of concerts whose booking window contains
// the given instant.  The promote and expiry sweeps run once per open
// concert.
func (r *ConcertRepo) ListOpenIDs(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM concerts WHERE open_at <= ? AND close_at > ?`,
		now.UTC(), now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListDates returns the performance dates of a concert ordered by
// performance time.  An unknown concert yields an empty slice, matching
// the boundary contract (200 with an empty list).
func (r *ConcertRepo) ListDates(ctx context.Context, concertID string) ([]model.ConcertDate, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, concert_id, performs_at FROM concert_dates
         WHERE concert_id = ? ORDER BY performs_at`, concertID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	dates := make([]model.ConcertDate, 0)
	for rows.Next() {
		var d model.ConcertDate
		if err := rows.Scan(&d.ID, &d.ConcertID, &d.PerformsAt); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}
