package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cargo-dispatch/internal/config"
	"cargo-dispatch/internal/domain"
	dispatchredis "cargo-dispatch/internal/infrastructure/redis"
	"cargo-dispatch/internal/infrastructure/websocket"
	"cargo-dispatch/internal/services"
	"cargo-dispatch/pkg/logger"

	redisClient "github.com/go-redis/redis/v8"
)

// The driver agent is the headless client half of the notification core. It
// runs the dual-cadence poller against the dispatch backend, keeps a push
// channel open while it can, and funnels both into one deduplicated
// notification sink. SIGUSR1 maps to the foreground-resume transition.
func main() {
	log := logger.New()
	log.Info("Starting Driver Agent")

	cfg, err := config.Load()
	if err != nil {
		log.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	driverID := cfg.Driver.ID
	if driverID == "" {
		log.Error("driver.id is required (DRIVER_ID)")
		os.Exit(1)
	}

	// Initialize Redis (the agent's durable key-value store)
	rdb := redisClient.NewClient(&redisClient.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("Connected to Redis", "address", cfg.Redis.Address)

	store := dispatchredis.NewKeyValueStore(rdb)
	dedup := services.NewOfferDeduplicator(store, log)
	activeJobs := services.NewActiveJobTracker(store, log)
	notifier := services.NewOfferNotifier(dedup, activeJobs, log)
	checker := services.NewAcceptedOfferChecker(cfg.Backend.BaseURL, activeJobs, log)
	scheduler := services.NewPollScheduler(checker, notifier,
		cfg.Poll.BackgroundInterval, cfg.Poll.ForegroundInterval, log)

	onAccepted := func(offer domain.AcceptedOffer) {
		log.Info("OFFER ACCEPTED",
			"offer_id", offer.OfferID,
			"request_id", offer.RequestID,
			"origin", offer.Origin,
			"destination", offer.Destination,
			"price", offer.Price)
	}

	if err := scheduler.StartChecking(driverID, onAccepted); err != nil {
		log.Error("Failed to start offer checking", "error", err)
		os.Exit(1)
	}

	// Push channel: strictly an accelerator over polling. Accepted offers
	// received here go through the same notifier gate as polled ones.
	pushCtx, pushCancel := context.WithCancel(context.Background())
	defer pushCancel()
	push := websocket.NewPushListener(cfg.Backend.WSURL, driverID, func(offer domain.AcceptedOffer) {
		gateCtx, gateCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer gateCancel()
		notifier.NotifyIfNew(gateCtx, driverID, offer)
	}, log)
	go push.Run(pushCtx)

	resume := make(chan os.Signal, 1)
	signal.Notify(resume, syscall.SIGUSR1)
	go func() {
		for range resume {
			log.Info("Resume transition, checking immediately")
			scheduler.Resume()
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down driver agent...")
	pushCancel()
	scheduler.StopChecking()
	log.Info("Driver agent stopped")
}
