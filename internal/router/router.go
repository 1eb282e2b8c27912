package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/concert-ticketing/internal/config"
	"github.com/iliyamo/concert-ticketing/internal/handler"
	"github.com/iliyamo/concert-ticketing/internal/middleware"
	"github.com/iliyamo/concert-ticketing/internal/repository"
)

// Deps bundles everything route registration needs: the handlers, the
// queue token store backing bearer authentication, the signing secret,
// and the optional Redis client for rate limiting and response caching.
type Deps struct {
	Queue       *handler.QueueHandler
	Concert     *handler.ConcertHandler
	Reservation *handler.ReservationHandler
	Payment     *handler.PaymentHandler
	Wallet      *handler.WalletHandler
	Store       repository.QueueTokenStore
	Secret      string
	Redis       *redis.Client
	RateLimit   config.RateLimitConfig
	Cache       config.CacheConfig
}

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Used by load balancers and monitoring to verify the service is up.
	e.GET("/healthz", handler.Health)
}

// RegisterAPI wires the /api/v1 surface.  Three tiers of access:
//
//   - public: enqueue and wallet endpoints, guarded only by the rate
//     limiter (these run before any token exists);
//   - bearer: the status poll, which any token holder may call
//     regardless of WAITING/ACTIVE/EXPIRED state;
//   - active: catalog reads, seat holds and settlement, reserved for
//     holders whose token is currently ACTIVE.
func RegisterAPI(e *echo.Echo, d Deps) {
	limiter := middleware.NewTokenBucket(d.RateLimit, d.Redis)
	cached := middleware.NewRedisCache(d.Cache, d.Redis)
	bearer := middleware.QueueToken(d.Secret, d.Store)

	v1 := e.Group("/api/v1", limiter)

	// Enqueue for a concert; this is the only write that needs no token.
	v1.POST("/queue/concerts/:concertId/users/:userId", d.Queue.Issue)

	// Wallet top-ups happen before the sale opens, outside the queue.
	v1.GET("/users/:userId/balance", d.Wallet.Balance)
	v1.POST("/users/:userId/balance/charge", d.Wallet.Charge)

	// Any token holder may poll position, including WAITING and EXPIRED.
	polled := v1.Group("/queue", bearer)
	polled.GET("/concerts/:concertId", d.Queue.Status)

	// Everything past the waiting room requires an ACTIVE token.
	active := v1.Group("", bearer, middleware.RequireActive())
	active.GET("/concerts/:concertId/dates", d.Concert.ListDates, cached)
	active.GET("/concerts/:concertId/dates/:concertDateId/seats", d.Concert.ListSeats, cached)
	active.POST("/reservations/seats/:seatId", d.Reservation.Reserve)
	active.DELETE("/reservations/:reservationId", d.Reservation.Cancel)
	active.POST("/payments/:reservationId", d.Payment.Settle)
}
