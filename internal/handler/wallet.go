package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/concert-ticketing/internal/repository"
)

// WalletHandler serves the balance endpoints.  Balances are prepaid:
// users top up ahead of the sale and settlement debits from the same
// row, so the payment path never leaves the database.
type WalletHandler struct {
	UserRepo *repository.UserRepo
}

// NewWalletHandler constructs a WalletHandler.
func NewWalletHandler(users *repository.UserRepo) *WalletHandler {
	if users == nil {
		panic("nil repository passed to NewWalletHandler")
	}
	return &WalletHandler{UserRepo: users}
}

// Balance handles GET /users/:userId/balance.
func (h *WalletHandler) Balance(c echo.Context) error {
	userID := c.Param("userId")
	balance, err := h.UserRepo.GetBalance(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user_id":       userID,
		"balance_cents": balance,
	})
}

// Charge handles POST /users/:userId/balance/charge with body
// {"amount_cents": n}.  Returns the balance after the top-up.
func (h *WalletHandler) Charge(c echo.Context) error {
	userID := c.Param("userId")
	var body struct {
		AmountCents uint64 `json:"amount_cents"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.AmountCents == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount_cents must be positive"})
	}
	balance, err := h.UserRepo.Charge(c.Request().Context(), userID, body.AmountCents)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user_id":       userID,
		"balance_cents": balance,
	})
}
