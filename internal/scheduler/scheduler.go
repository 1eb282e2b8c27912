// Package scheduler runs the background sweeps that keep the waiting room
// and the seat inventory honest: promoting WAITING tokens into free
// ACTIVE slots, expiring tokens that overstayed, and releasing seat holds
// whose deadline lapsed without payment.  All cleanup lives here so the
// request path never pays for it.
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/iliyamo/concert-ticketing/internal/config"
	"github.com/iliyamo/concert-ticketing/internal/repository"
)

// Scheduler owns the sweep tickers.  Each sweep runs under its own
// bounded-timeout context; a slow database round stalls one tick, never
// the process.
type Scheduler struct {
	cfg          config.Config
	store        repository.QueueTokenStore
	concerts     *repository.ConcertRepo
	reservations *repository.ReservationRepo
	stop         chan struct{}
	done         chan struct{}
}

// New constructs a Scheduler.
func New(cfg config.Config, store repository.QueueTokenStore, concerts *repository.ConcertRepo, reservations *repository.ReservationRepo) *Scheduler {
	return &Scheduler{
		cfg:          cfg,
		store:        store,
		concerts:     concerts,
		reservations: reservations,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// Start launches the sweep loop in a goroutine.
func (s *Scheduler) Start() {
	go s.run()
}

// Stop halts the sweeps and waits for the loop to drain.
func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.done
}

func (s *Scheduler) run() {
	defer close(s.done)

	promote := time.NewTicker(s.cfg.QueuePromoteInterval)
	expire := time.NewTicker(s.cfg.QueueExpireInterval)
	holds := time.NewTicker(s.cfg.HoldSweepInterval)
	defer promote.Stop()
	defer expire.Stop()
	defer holds.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-promote.C:
			s.promoteWaiting()
		case <-expire.C:
			s.expireStaleTokens()
		case <-holds.C:
			s.expireOverdueHolds()
		}
	}
}

// promoteWaiting moves WAITING tokens into free ACTIVE slots, per
// concert, preserving FIFO order.
func (s *Scheduler) promoteWaiting() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ids, err := s.concerts.ListOpenIDs(ctx, time.Now().UTC())
	if err != nil {
		log.Printf("scheduler: list open concerts: %v", err)
		return
	}
	for _, concertID := range ids {
		n, err := s.store.Promote(ctx, concertID, s.cfg.QueueActiveCap, s.cfg.QueueActiveTTL)
		if err != nil {
			log.Printf("scheduler: promote concert %s: %v", concertID, err)
			continue
		}
		if n > 0 {
			log.Printf("scheduler: promoted %d tokens for concert %s", n, concertID)
		}
	}
}

// expireStaleTokens expires ACTIVE tokens past their deadline and WAITING
// tokens that sat unpromoted beyond the maximum wait, then cancels any
// reservation the expired tokens still had in flight.
func (s *Scheduler) expireStaleTokens() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ids, err := s.concerts.ListOpenIDs(ctx, time.Now().UTC())
	if err != nil {
		log.Printf("scheduler: list open concerts: %v", err)
		return
	}
	for _, concertID := range ids {
		expired, err := s.store.ExpireStale(ctx, concertID, s.cfg.QueueMaxWait)
		if err != nil {
			log.Printf("scheduler: expire tokens for concert %s: %v", concertID, err)
			continue
		}
		for _, tokenID := range expired {
			if err := s.reservations.CancelPendingByToken(ctx, tokenID); err != nil {
				log.Printf("scheduler: cancel reservations for token %s: %v", tokenID, err)
			}
		}
		if len(expired) > 0 {
			log.Printf("scheduler: expired %d tokens for concert %s", len(expired), concertID)
		}
	}
}

// expireOverdueHolds releases seats whose hold deadline passed without a
// settled payment.  This sweep is the liveness guarantee: a seat held by
// an abandoned client becomes sellable again without any client action.
func (s *Scheduler) expireOverdueHolds() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ids, err := s.reservations.ExpireOverdue(ctx, s.cfg.HoldSweepBatch)
	if err != nil {
		log.Printf("scheduler: expire overdue holds: %v", err)
		return
	}
	if len(ids) > 0 {
		log.Printf("scheduler: expired %d overdue holds", len(ids))
	}
}
