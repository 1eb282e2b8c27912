package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/concert-ticketing/internal/middleware"
	"github.com/iliyamo/concert-ticketing/internal/model"
	"github.com/iliyamo/concert-ticketing/internal/queue"
	"github.com/iliyamo/concert-ticketing/internal/repository"
	queue_publisher "github.com/iliyamo/concert-ticketing/internal/service"
)

// PaymentHandler settles reservations.  The entire settlement — balance
// debit, seat HELD→SOLD, reservation PENDING→CONFIRMED, payment audit
// row — runs in one database transaction so the system can never sell a
// seat without charging for it or charge without selling.
type PaymentHandler struct {
	ReservationRepo *repository.ReservationRepo
	SeatRepo        *repository.SeatRepo
	UserRepo        *repository.UserRepo
	PaymentRepo     *repository.PaymentRepo
	Store           repository.QueueTokenStore
	Publish         func(ctx context.Context, ev queue.PaymentCompletedEvent) error
}

// NewPaymentHandler constructs a PaymentHandler wired to the default
// RabbitMQ publisher.
func NewPaymentHandler(reservations *repository.ReservationRepo, seats *repository.SeatRepo, users *repository.UserRepo, payments *repository.PaymentRepo, store repository.QueueTokenStore) *PaymentHandler {
	if reservations == nil || seats == nil || users == nil || payments == nil || store == nil {
		panic("nil dependency passed to NewPaymentHandler")
	}
	return &PaymentHandler{
		ReservationRepo: reservations,
		SeatRepo:        seats,
		UserRepo:        users,
		PaymentRepo:     payments,
		Store:           store,
		Publish:         queue_publisher.PublishPaymentCompleted,
	}
}

// settled carries the committed facts out of the transaction for the
// response and the broker event.
type settled struct {
	outcome     model.PaymentOutcome
	paymentID   string
	amountCents uint32
	seatID      string
	seatNo      uint32
}

// Settle handles POST /payments/:reservationId.  Outcomes:
//
//	SUCCESS              – balance debited, seat SOLD, reservation CONFIRMED
//	ALREADY_SETTLED      – reservation was CONFIRMED before this call; no debit
//	RESERVATION_EXPIRED  – hold lapsed or reservation is terminal; no debit
//	INSUFFICIENT_BALANCE – nothing changes, retryable until the hold deadline
//
// A reservation whose hold deadline has passed but which the sweep has
// not visited yet is expired here inline, so the deadline is enforced
// regardless of sweep timing.  Low-level update conflicts are retried
// once before surfacing.
func (h *PaymentHandler) Settle(c echo.Context) error {
	token, ok := middleware.TokenFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing queue token"})
	}
	reservationID := c.Param("reservationId")
	if reservationID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "reservation id is required"})
	}
	ctx := c.Request().Context()

	out, err := h.settleOnce(ctx, reservationID, token.UserID)
	if errors.Is(err, repository.ErrConflict) {
		out, err = h.settleOnce(ctx, reservationID, token.UserID)
	}
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		case errors.Is(err, repository.ErrInsufficientBalance):
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{
				"reservation_id": reservationID,
				"outcome":        model.PaymentInsufficientBalance,
			})
		case errors.Is(err, repository.ErrReservationExpired):
			return c.JSON(http.StatusConflict, echo.Map{
				"reservation_id": reservationID,
				"outcome":        model.PaymentReservationExpired,
			})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "settlement conflict, retry"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
	}

	if out.outcome == model.PaymentSuccess {
		// The token has served its purpose; expiring it frees an ACTIVE
		// slot for the next WAITING holder.
		if err := h.Store.Expire(ctx, token.ID); err != nil {
			log.Printf("payment: expire token %s: %v", token.ID, err)
		}
		ev := queue.PaymentCompletedEvent{
			PaymentID:     out.paymentID,
			ReservationID: reservationID,
			UserID:        token.UserID,
			ConcertID:     token.ConcertID,
			SeatID:        out.seatID,
			SeatNo:        out.seatNo,
			AmountCents:   out.amountCents,
			SettledAt:     time.Now().UTC().Format(time.RFC3339),
		}
		go func() {
			pubCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = h.Publish(pubCtx, ev)
		}()
	}

	return c.JSON(http.StatusOK, echo.Map{
		"reservation_id": reservationID,
		"outcome":        out.outcome,
		"amount_cents":   out.amountCents,
	})
}

// settleOnce runs one settlement attempt in a single transaction.
func (h *PaymentHandler) settleOnce(ctx context.Context, reservationID, userID string) (*settled, error) {
	tx, err := h.ReservationRepo.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := h.ReservationRepo.GetByIDForUpdateTx(ctx, tx, reservationID)
	if err != nil {
		return nil, err
	}
	if res.UserID != userID {
		return nil, repository.ErrNotFound
	}

	switch res.Status {
	case model.ReservationConfirmed:
		return &settled{outcome: model.PaymentAlreadySettled, seatID: res.SeatID}, nil
	case model.ReservationExpired, model.ReservationCancelled:
		return nil, repository.ErrReservationExpired
	}

	now := time.Now().UTC()
	if res.Overdue(now) {
		// Enforce the deadline inline instead of waiting for the sweep.
		if err := h.ReservationRepo.ExpireTx(ctx, tx, res.ID); err != nil {
			return nil, err
		}
		if err := h.SeatRepo.ReleaseHoldTx(ctx, tx, res.SeatID, res.ID); err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		committed = true
		return nil, repository.ErrReservationExpired
	}

	seat, err := h.SeatRepo.GetTx(ctx, tx, res.SeatID)
	if err != nil {
		return nil, err
	}

	if err := h.UserRepo.DebitTx(ctx, tx, userID, uint64(seat.PriceCents)); err != nil {
		return nil, err
	}
	if err := h.SeatRepo.ConfirmSaleTx(ctx, tx, res.SeatID, res.ID); err != nil {
		return nil, err
	}
	if err := h.ReservationRepo.ConfirmTx(ctx, tx, res.ID); err != nil {
		return nil, err
	}

	payment := &model.Payment{
		ID:            uuid.NewString(),
		ReservationID: res.ID,
		UserID:        userID,
		AmountCents:   seat.PriceCents,
	}
	if err := h.PaymentRepo.InsertTx(ctx, tx, payment); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return &settled{
		outcome:     model.PaymentSuccess,
		paymentID:   payment.ID,
		amountCents: seat.PriceCents,
		seatID:      seat.ID,
		seatNo:      seat.SeatNo,
	}, nil
}
