package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/concert-ticketing/internal/repository"
)

// ConcertHandler serves the catalog reads behind the waiting room:
// performance dates for a concert and the FREE seats for a date.  Both
// are snapshots; a listed seat can be gone by the time a hold is
// attempted, which the reserve endpoint reports as a conflict.
type ConcertHandler struct {
	ConcertRepo *repository.ConcertRepo
	SeatRepo    *repository.SeatRepo
}

// NewConcertHandler constructs a ConcertHandler.
func NewConcertHandler(concerts *repository.ConcertRepo, seats *repository.SeatRepo) *ConcertHandler {
	if concerts == nil || seats == nil {
		panic("nil repository passed to NewConcertHandler")
	}
	return &ConcertHandler{ConcertRepo: concerts, SeatRepo: seats}
}

// ListDates handles GET /concerts/:concertId/dates.  Returns the
// performance dates for the concert; an unknown concert simply yields an
// empty list, matching the catalog's read-only contract.
func (h *ConcertHandler) ListDates(c echo.Context) error {
	concertID := c.Param("concertId")
	dates, err := h.ConcertRepo.ListDates(c.Request().Context(), concertID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]echo.Map, 0, len(dates))
	for _, d := range dates {
		out = append(out, echo.Map{
			"concert_date_id": d.ID,
			"performs_at":     d.PerformsAt.UTC().Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"dates": out})
}

// ListSeats handles GET /concerts/:concertId/dates/:concertDateId/seats.
// Returns the currently FREE seats for the date.
func (h *ConcertHandler) ListSeats(c echo.Context) error {
	concertDateID := c.Param("concertDateId")
	seats, err := h.SeatRepo.ListAvailable(c.Request().Context(), concertDateID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]echo.Map, 0, len(seats))
	for _, s := range seats {
		out = append(out, echo.Map{
			"seat_id":     s.ID,
			"seat_no":     s.SeatNo,
			"price_cents": s.PriceCents,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"seats": out})
}
