package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cargo-dispatch/internal/config"
	"cargo-dispatch/internal/infrastructure/mysql"
	dispatchredis "cargo-dispatch/internal/infrastructure/redis"
	"cargo-dispatch/internal/infrastructure/websocket"
	"cargo-dispatch/internal/services"
	"cargo-dispatch/pkg/logger"
	"cargo-dispatch/pkg/utils"

	redisClient "github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type OfferHandler struct {
	offers   *services.OfferService
	registry *websocket.ConnectionRegistry
	log      logger.Logger
}

type CreateRequestRequest struct {
	CustomerID  string `json:"customer_id"`
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
}

type SubmitOfferRequest struct {
	DriverID string  `json:"driver_id"`
	Price    float64 `json:"price"`
}

type SubmitOfferResponse struct {
	OfferID   string  `json:"offer_id"`
	RequestID string  `json:"request_id"`
	DriverID  string  `json:"driver_id"`
	Price     float64 `json:"price"`
	Status    string  `json:"status"`
}

func NewOfferHandler(offers *services.OfferService, registry *websocket.ConnectionRegistry, log logger.Logger) *OfferHandler {
	return &OfferHandler{
		offers:   offers,
		registry: registry,
		log:      log,
	}
}

func (h *OfferHandler) CreateRequest(c echo.Context) error {
	var req CreateRequestRequest
	if err := c.Bind(&req); err != nil {
		h.log.Error("Failed to bind request", "error", err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	if req.CustomerID == "" || req.Origin == "" || req.Destination == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "customer_id, origin and destination required"})
	}

	request, err := h.offers.CreateRequest(c.Request().Context(), req.CustomerID, req.Origin, req.Destination)
	if err != nil {
		h.log.Error("Failed to create request", "customer_id", req.CustomerID, "error", err)
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"request_id":  request.ID,
		"customer_id": request.CustomerID,
		"origin":      request.Origin,
		"destination": request.Destination,
		"status":      request.Status.String(),
	})
}

func (h *OfferHandler) SubmitOffer(c echo.Context) error {
	requestID := c.Param("id")

	var req SubmitOfferRequest
	if err := c.Bind(&req); err != nil {
		h.log.Error("Failed to bind request", "error", err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	if req.DriverID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "driver_id required"})
	}

	offer, err := h.offers.SubmitOffer(c.Request().Context(), requestID, req.DriverID, req.Price)
	if err != nil {
		h.log.Error("Failed to submit offer", "request_id", requestID, "error", err)
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusCreated, SubmitOfferResponse{
		OfferID:   offer.ID,
		RequestID: offer.RequestID,
		DriverID:  offer.DriverID,
		Price:     offer.Price,
		Status:    offer.Status.String(),
	})
}

func (h *OfferHandler) AcceptOffer(c echo.Context) error {
	requestID := c.Param("id")
	offerID := c.Param("offerID")

	snapshot, err := h.offers.AcceptOffer(c.Request().Context(), requestID, offerID)
	if err != nil {
		h.log.Error("Failed to accept offer", "request_id", requestID, "offer_id", offerID, "error", err)
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, snapshot)
}

// AcceptedOfferForDriver serves the endpoint the driver-side poller consumes.
func (h *OfferHandler) AcceptedOfferForDriver(c echo.Context) error {
	driverID := c.Param("id")

	offer, err := h.offers.AcceptedOfferForDriver(c.Request().Context(), driverID)
	if err != nil {
		h.log.Error("Failed to query accepted offer", "driver_id", driverID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"has_accepted_offer": offer != nil,
		"offer":              offer,
	})
}

func (h *OfferHandler) ConnectionStats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.registry.Stats())
}

func main() {
	log := logger.New()
	log.Info("Starting Dispatch Service")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize Redis
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

	// Initialize MySQL
	db := utils.InitializeMysql(cfg, log, ctx)
	defer db.Close()
	log.Info("Connected to MySQL")

	// Initialize repositories and Redis based components
	offerRepo := mysql.NewMySQLOfferRepository(db)
	eventPublisher := dispatchredis.NewEventPublisher(rdb)
	eventSubscriber := dispatchredis.NewEventSubscriber(rdb, log)
	leaderElection := dispatchredis.NewLeaderElection(rdb, cfg.Leader.TTL)

	validator := services.NewPriceBandValidator(rdb)
	if err := validator.LoadRules(ctx); err != nil {
		log.Error("Failed to load offer validation rules", "error", err)
		os.Exit(1)
	}

	// Real-time components
	registry := websocket.NewConnectionRegistry(log)
	rooms := websocket.NewRoomRouter(log)
	dispatcher := websocket.NewNotificationDispatcher(registry, rooms, log)
	socketHandler := websocket.NewSocketHandler(registry, rooms, dispatcher, log)

	offerService := services.NewOfferService(offerRepo, eventPublisher, validator, log)
	eventListener := services.NewEventListener(dispatcher, log)
	sweeper := services.NewExpirySweeper(offerService, leaderElection, cfg.Instance.ID, cfg.Offers.MaxAge, log)

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			echo.GET, echo.HEAD, echo.PUT, echo.PATCH,
			echo.POST, echo.DELETE, echo.OPTIONS,
		},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
		},
	}))

	offerHandler := NewOfferHandler(offerService, registry, log)

	// API routes
	api := e.Group("/api/v1")
	api.POST("/requests", offerHandler.CreateRequest)
	api.POST("/requests/:id/offers", offerHandler.SubmitOffer)
	api.POST("/requests/:id/offers/:offerID/accept", offerHandler.AcceptOffer)
	api.GET("/drivers/:id/accepted-offer", offerHandler.AcceptedOfferForDriver)
	api.GET("/stats/connections", offerHandler.ConnectionStats)

	// Health check endpoint
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"service":   "dispatch-service",
			"timestamp": time.Now().Format(time.RFC3339),
			"port":      cfg.Server.Port,
		})
	})

	// Websocket listener on its own port
	wsServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.WebSocket.Port),
		Handler: socketHandler.Router(),
	}
	go func() {
		log.Info("Starting websocket listener", "port", cfg.WebSocket.Port)
		if err := wsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Websocket listener failed", "error", err)
			os.Exit(1)
		}
	}()

	// Start background services
	listenerCtx, listenerCancel := context.WithCancel(context.Background())
	defer listenerCancel()
	go func() {
		if err := eventListener.Start(listenerCtx, eventSubscriber); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Event listener stopped", "error", err)
		}
	}()

	go func() {
		if err := sweeper.Start(context.Background()); err != nil {
			log.Error("Failed to start expiry sweeper", "error", err)
		}
	}()

	// Try to become leader
	go func() {
		for {
			became, err := leaderElection.BecomeLeader(context.Background(), cfg.Instance.ID)
			if err != nil {
				log.Error("Failed to attempt leadership", "error", err)
				time.Sleep(5 * time.Second)
				continue
			}
			if became {
				log.Info("Became dispatch leader", "instance_id", cfg.Instance.ID)
			}
			time.Sleep(10 * time.Second)
		}
	}()

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Info("Starting dispatch server", "address", serverAddr)

	go func() {
		if err := e.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down dispatch service...")

	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	listenerCancel()
	if err := sweeper.Stop(); err != nil {
		log.Error("Failed to stop sweeper", "error", err)
	}
	if err := leaderElection.ReleaseLeadership(ctx, cfg.Instance.ID); err != nil {
		log.Error("Failed to release leadership", "error", err)
	}
	if err := wsServer.Shutdown(ctx); err != nil {
		log.Error("Websocket listener forced to shutdown", "error", err)
	}
	if err := e.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Dispatch service stopped")
}
