package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/concert-ticketing/internal/middleware"
	"github.com/iliyamo/concert-ticketing/internal/model"
	"github.com/iliyamo/concert-ticketing/internal/repository"
	"github.com/iliyamo/concert-ticketing/internal/utils"
)

// QueueHandler serves the waiting-room endpoints: enqueueing a user for a
// concert and polling queue position.  Admission itself (promotion into
// the ACTIVE window) happens in the background sweeps, never in the
// request path.
type QueueHandler struct {
	Store       repository.QueueTokenStore
	ConcertRepo *repository.ConcertRepo
	UserRepo    *repository.UserRepo
	Secret      string
}

// NewQueueHandler constructs a QueueHandler.  All dependencies must be
// non-nil.
func NewQueueHandler(store repository.QueueTokenStore, concerts *repository.ConcertRepo, users *repository.UserRepo, secret string) *QueueHandler {
	if store == nil || concerts == nil || users == nil {
		panic("nil dependency passed to NewQueueHandler")
	}
	return &QueueHandler{Store: store, ConcertRepo: concerts, UserRepo: users, Secret: secret}
}

// Issue handles POST /queue/concerts/:concertId/users/:userId.  It
// enqueues the user for the concert and returns 201 with the opaque token
// id and a signed bearer for subsequent calls.  A user already holding a
// live token for this concert gets 409.
func (h *QueueHandler) Issue(c echo.Context) error {
	concertID := c.Param("concertId")
	userID := c.Param("userId")
	if concertID == "" || userID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "concert id and user id are required"})
	}
	ctx := c.Request().Context()

	ok, err := h.ConcertRepo.Exists(ctx, concertID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "concert not found"})
	}
	ok, err = h.UserRepo.Exists(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}

	token, err := h.Store.Issue(ctx, userID, concertID)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEnrollment) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "user already enqueued for this concert"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "queue store unavailable"})
	}

	bearer, err := utils.NewQueueBearer(h.Secret, token.ID, userID, concertID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to sign token"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"token_id": token.ID,
		"bearer":   bearer,
		"status":   token.Status,
		"position": token.Position,
	})
}

// Status handles GET /queue/concerts/:concertId.  The queue token
// middleware has already resolved the bearer; this just reports the
// token's current state and, for WAITING tokens, the FIFO position.
// A bearer issued for a different concert gets 404 so tokens cannot be
// replayed across concerts.
func (h *QueueHandler) Status(c echo.Context) error {
	token, ok := middleware.TokenFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing queue token"})
	}
	if token.ConcertID != c.Param("concertId") {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "token was issued for a different concert"})
	}

	resp := echo.Map{"status": token.Status}
	if token.Status == model.QueueWaiting {
		resp["position"] = token.Position
	}
	if token.ExpiresAt != nil {
		resp["expires_at"] = token.ExpiresAt.UTC()
	}
	return c.JSON(http.StatusOK, resp)
}
