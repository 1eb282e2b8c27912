package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/concert-ticketing/internal/model"
	"github.com/iliyamo/concert-ticketing/internal/repository"
	"github.com/iliyamo/concert-ticketing/internal/utils"
)

// Context keys populated by the queue token middleware.
const (
	CtxQueueToken = "queue_token" // *model.QueueToken
	CtxUserID     = "user_id"     // string
)

// QueueToken authenticates the Authorization bearer: it verifies the
// signed envelope, loads the referenced token from the store and places
// both the token and the user id in the request context.  It does NOT
// require the token to be ACTIVE; the status endpoint serves WAITING and
// EXPIRED holders too.
func QueueToken(secret string, store repository.QueueTokenStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearerToken(c)
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			claims, err := utils.ParseQueueBearer(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid bearer token"})
			}
			token, err := store.Get(c.Request().Context(), claims.ID)
			if err != nil {
				if err == repository.ErrNotFound {
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unknown queue token"})
				}
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "queue store unavailable"})
			}
			c.Set(CtxQueueToken, token)
			c.Set(CtxUserID, token.UserID)
			return next(c)
		}
	}
}

// RequireActive gates the reservation and payment routes: only holders
// whose token is currently ACTIVE may pass.  WAITING and EXPIRED holders
// get 401 so clients fall back to polling the status endpoint.
func RequireActive() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := TokenFrom(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing queue token"})
			}
			if token.Status != model.QueueActive {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "queue token not active"})
			}
			return next(c)
		}
	}
}

// TokenFrom extracts the queue token the middleware stored in context.
func TokenFrom(c echo.Context) (*model.QueueToken, bool) {
	token, ok := c.Get(CtxQueueToken).(*model.QueueToken)
	return token, ok
}

func bearerToken(c echo.Context) string {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	if h == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}
