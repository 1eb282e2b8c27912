package main // Entry point package

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/concert-ticketing/internal/config"
	"github.com/iliyamo/concert-ticketing/internal/database"
	"github.com/iliyamo/concert-ticketing/internal/handler"
	"github.com/iliyamo/concert-ticketing/internal/queue"
	"github.com/iliyamo/concert-ticketing/internal/repository"
	"github.com/iliyamo/concert-ticketing/internal/router"
	"github.com/iliyamo/concert-ticketing/internal/scheduler"
)

func main() {
	// Load .env in development; a missing file is fine in prod where the
	// environment is injected directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("mysql: %v", err)
	}
	defer db.Close()

	// Redis backs the queue, the rate limiter and the response cache.
	// Without it the server still boots: the queue falls back to the
	// in-process store and the middlewares become pass-throughs.
	rdb := config.NewRedisClient()
	var store repository.QueueTokenStore
	if rdb != nil {
		store = repository.NewRedisQueueTokenStore(rdb)
	} else {
		log.Println("redis unavailable, using in-process queue store")
		store = repository.NewMemoryQueueTokenStore()
	}

	concertRepo := repository.NewConcertRepo(db)
	seatRepo := repository.NewSeatRepo(db)
	reservationRepo := repository.NewReservationRepo(db)
	userRepo := repository.NewUserRepo(db)
	paymentRepo := repository.NewPaymentRepo(db)

	// Background sweeps: promote WAITING tokens, expire stale tokens,
	// release overdue seat holds.
	sched := scheduler.New(cfg, store, concertRepo, reservationRepo)
	sched.Start()
	defer sched.Stop()

	// Consume payment.completed events for the audit log.
	go func() {
		if err := queue.StartPaymentConsumer(); err != nil {
			log.Printf("payment consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	router.RegisterRoutes(e)
	router.RegisterAPI(e, router.Deps{
		Queue:       handler.NewQueueHandler(store, concertRepo, userRepo, cfg.QueueTokenSecret),
		Concert:     handler.NewConcertHandler(concertRepo, seatRepo),
		Reservation: handler.NewReservationHandler(seatRepo, reservationRepo, cfg.HoldTTL),
		Payment:     handler.NewPaymentHandler(reservationRepo, seatRepo, userRepo, paymentRepo, store),
		Wallet:      handler.NewWalletHandler(userRepo),
		Store:       store,
		Secret:      cfg.QueueTokenSecret,
		Redis:       rdb,
		RateLimit:   config.LoadRateLimitConfig(),
		Cache:       config.LoadCacheConfig(),
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	go func() {
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
