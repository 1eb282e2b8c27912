package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/concert-ticketing/internal/middleware"
	"github.com/iliyamo/concert-ticketing/internal/model"
	"github.com/iliyamo/concert-ticketing/internal/repository"
)

// ReservationHandler serves seat holds and explicit cancellation.  A hold
// is a claim, not a purchase: it survives for HoldTTL and either settles
// through the payment endpoint or lapses back to FREE via the sweep.
type ReservationHandler struct {
	SeatRepo        *repository.SeatRepo
	ReservationRepo *repository.ReservationRepo
	HoldTTL         time.Duration
}

// NewReservationHandler constructs a ReservationHandler.
func NewReservationHandler(seats *repository.SeatRepo, reservations *repository.ReservationRepo, holdTTL time.Duration) *ReservationHandler {
	if seats == nil || reservations == nil {
		panic("nil repository passed to NewReservationHandler")
	}
	if holdTTL <= 0 {
		holdTTL = 5 * time.Minute
	}
	return &ReservationHandler{SeatRepo: seats, ReservationRepo: reservations, HoldTTL: holdTTL}
}

// Reserve handles POST /reservations/seats/:seatId.  The ACTIVE-token
// middleware has already admitted the caller; this re-checks the token
// against the clock (the sweep may not have run yet), enforces the
// one-pending-reservation-per-token rule, claims the seat with a
// conditional update and records the PENDING reservation.  Exactly one
// concurrent caller can win a given seat; losers get 409 and pick
// another seat.
func (h *ReservationHandler) Reserve(c echo.Context) error {
	token, ok := middleware.TokenFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing queue token"})
	}
	now := time.Now().UTC()
	if !token.IsActive(now) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "queue token not active"})
	}
	seatID := c.Param("seatId")
	if seatID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat id is required"})
	}
	ctx := c.Request().Context()

	pending, err := h.ReservationRepo.HasPendingForToken(ctx, token.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if pending {
		return c.JSON(http.StatusConflict, echo.Map{"error": "token already has a reservation in flight"})
	}

	if _, err := h.SeatRepo.GetByID(ctx, seatID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "seat not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	reservationID := uuid.NewString()
	holdDeadline := now.Add(h.HoldTTL)

	if err := h.SeatRepo.TryHold(ctx, seatID, reservationID, holdDeadline); err != nil {
		if errors.Is(err, repository.ErrSeatUnavailable) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "seat is not available"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	res := &model.Reservation{
		ID:           reservationID,
		TokenID:      token.ID,
		UserID:       token.UserID,
		SeatID:       seatID,
		Status:       model.ReservationPending,
		HoldDeadline: holdDeadline,
	}
	if err := h.ReservationRepo.Create(ctx, res); err != nil {
		// The seat was claimed but the reservation row failed; undo the
		// hold so the seat is not stranded until the sweep.
		_ = h.SeatRepo.ReleaseHold(ctx, seatID, reservationID)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create reservation"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"reservation_id": reservationID,
		"seat_id":        seatID,
		"hold_deadline":  holdDeadline.Format(time.RFC3339),
	})
}

// Cancel handles DELETE /reservations/:reservationId.  Only the owner can
// cancel, only while the reservation is still PENDING; the seat returns
// to FREE immediately instead of waiting for the hold sweep.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	token, ok := middleware.TokenFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing queue token"})
	}
	reservationID := c.Param("reservationId")
	if reservationID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "reservation id is required"})
	}

	err := h.ReservationRepo.Cancel(c.Request().Context(), reservationID, token.UserID)
	switch {
	case err == nil:
		return c.NoContent(http.StatusNoContent)
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
	case errors.Is(err, repository.ErrReservationExpired):
		return c.JSON(http.StatusConflict, echo.Map{"error": "reservation is no longer pending"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
}
