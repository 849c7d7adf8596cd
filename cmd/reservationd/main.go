// Command reservationd runs the Availability & Reservation Engine: its
// HTTP API, background retry sweep, and (when NATS is configured) the
// webhook dispatcher and realtime hub's event subscriptions.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/slotwise/reservation-engine/internal/config"
	"github.com/slotwise/reservation-engine/internal/database"
	"github.com/slotwise/reservation-engine/internal/dispatcher"
	"github.com/slotwise/reservation-engine/internal/handlers"
	"github.com/slotwise/reservation-engine/internal/middleware"
	"github.com/slotwise/reservation-engine/internal/realtime"
	"github.com/slotwise/reservation-engine/internal/repository"
	"github.com/slotwise/reservation-engine/internal/reservation"
	"github.com/slotwise/reservation-engine/internal/subscribers"
	"github.com/slotwise/reservation-engine/internal/timeslot"
	"github.com/slotwise/reservation-engine/pkg/events"
	"github.com/slotwise/reservation-engine/pkg/identity"
	"github.com/slotwise/reservation-engine/pkg/logger"
	"github.com/slotwise/reservation-engine/pkg/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	log := logger.New(cfg.LogLevel)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatal("failed to connect to database", "error", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("failed to run database migrations", "error", err)
	}

	var redisClient *redis.Client
	redisClient, err = database.ConnectRedis(cfg.Redis)
	if err != nil {
		if cfg.Environment == "development" {
			log.Warn("continuing without redis", "error", err)
			redisClient = nil
		} else {
			log.Fatal("failed to connect to redis", "error", err)
		}
	}

	var natsConn *nats.Conn
	var publisher *events.Publisher
	natsConn, err = events.Connect(cfg.NATS)
	if err != nil {
		if cfg.Environment == "development" {
			log.Warn("continuing without nats", "error", err)
			publisher = events.NewNullPublisher(log)
		} else {
			log.Fatal("failed to connect to nats", "error", err)
		}
	} else {
		defer natsConn.Close()
		publisher = events.NewPublisher(natsConn, log)
	}

	stores := repository.NewStoreRepository(db)
	catalog := repository.NewCatalogRepository(db)
	timeslots := repository.NewTimeslotRepository(db)
	bookings := repository.NewBookingRepository(db)
	webhooks := repository.NewWebhookRepository(db)
	cache := repository.NewCacheRepository(redisClient)

	engine := reservation.New(db, stores, catalog, timeslots, bookings, publisher, log)
	index := timeslot.New(db, timeslots, stores)
	disp := dispatcher.New(webhooks, cfg.Webhook, log)
	hub := realtime.NewHub(log)
	go hub.Run()

	var eventSubscriber *events.Subscriber
	eventHandlers := subscribers.NewEventHandlers(disp, log)
	if natsConn != nil {
		eventSubscriber = events.NewSubscriber(natsConn, log)
		if err := eventHandlers.Register(eventSubscriber); err != nil {
			log.Fatal("failed to register event handlers", "error", err)
		}
		if err := hub.RegisterEventSubscriptions(eventSubscriber); err != nil {
			log.Fatal("failed to register realtime subscriptions", "error", err)
		}
	} else {
		log.Warn("skipping event subscriptions (no nats connection)")
	}

	cronScheduler := scheduler.New(log)
	sweepSpec := cfg.Webhook.RetrySweepSpec
	if sweepSpec == "" {
		sweepSpec = "@every 1m"
	}
	if err := cronScheduler.AddJob(sweepSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := eventHandlers.Sweep(ctx); err != nil {
			log.Error("webhook retry sweep failed", "error", err)
		}
	}); err != nil {
		log.Fatal("failed to schedule retry sweep", "error", err)
	}
	if err := cronScheduler.AddJob("@daily", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		purged, err := timeslots.PurgePast(ctx, time.Now().Truncate(24*time.Hour))
		if err != nil {
			log.Error("timeslot purge failed", "error", err)
			return
		}
		log.Info("purged past timeslots", "count", purged)
	}); err != nil {
		log.Fatal("failed to schedule timeslot purge", "error", err)
	}
	cronScheduler.Start()
	defer cronScheduler.Stop()

	identityManager := identity.NewManager(cfg.JWT.Secret)

	bookingHandler := handlers.NewBookingHandler(engine, bookings, log)
	availabilityHandler := handlers.NewAvailabilityHandler(index, stores, catalog, cache, log)
	storeHandler := handlers.NewStoreHandler(stores, log)
	catalogHandler := handlers.NewCatalogHandler(catalog, log)
	webhookHandler := handlers.NewWebhookHandler(webhooks, log)
	healthHandler := handlers.NewHealthHandler(db, redisClient, log)
	realtimeHandler := realtime.NewHandler(hub, log)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging(log))
	router.Use(middleware.CORS([]string{"*"}))

	rateLimiter := middleware.NewRateLimiter(redisClient, middleware.RateLimitConfig{
		Requests: cfg.RateLimit.RequestsPerWindow,
		Window:   cfg.RateLimit.Window,
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	}, log)
	router.Use(rateLimiter.Middleware())

	router.GET("/health", healthHandler.Health)
	router.GET("/health/ready", healthHandler.Readiness)
	router.GET("/health/live", healthHandler.Liveness)
	router.GET("/version", healthHandler.Version)

	router.GET("/stores/:storeId/realtime", realtimeHandler.Connect)

	authed := router.Group("/")
	authed.Use(middleware.RequireAuth(identityManager))
	{
		authed.GET("/stores/:storeId", storeHandler.Get)
		authed.PATCH("/stores/:storeId/quota", middleware.RequireRole(identity.RoleStoreAdmin), storeHandler.PatchQuota)

		authed.GET("/stores/:storeId/availability", availabilityHandler.List)
		authed.POST("/stores/:storeId/timeslots/generate", middleware.RequireRole(identity.RoleStoreAdmin), availabilityHandler.Generate)

		authed.GET("/treatments/:treatmentId/eligible-staff", catalogHandler.EligibleStaff)

		authed.POST("/bookings", bookingHandler.Create)
		authed.GET("/bookings/:bookingId", bookingHandler.Get)
		authed.PATCH("/bookings/:bookingId", bookingHandler.Reschedule)
		authed.POST("/bookings/:bookingId/cancel", bookingHandler.Cancel)
		authed.POST("/bookings/:bookingId/confirm", middleware.RequireRole(identity.RoleStaff), bookingHandler.Confirm)
		authed.POST("/bookings/:bookingId/start", middleware.RequireRole(identity.RoleStaff), bookingHandler.Start)
		authed.POST("/bookings/:bookingId/complete", middleware.RequireRole(identity.RoleStaff), bookingHandler.Complete)
		authed.POST("/bookings/:bookingId/no-show", middleware.RequireRole(identity.RoleStaff), bookingHandler.MarkNoShow)
		authed.GET("/customers/:customerId/bookings", bookingHandler.ListForCustomer)
		authed.GET("/stores/:storeId/bookings", middleware.RequireRole(identity.RoleStaff), bookingHandler.ListForStore)

		webhookAdmin := authed.Group("/webhooks")
		webhookAdmin.Use(middleware.RequireRole(identity.RoleSuperAdmin))
		{
			webhookAdmin.POST("", webhookHandler.Create)
			webhookAdmin.GET("", webhookHandler.List)
			webhookAdmin.GET("/:webhookId", webhookHandler.Get)
			webhookAdmin.PATCH("/:webhookId", webhookHandler.Update)
			webhookAdmin.DELETE("/:webhookId", webhookHandler.Delete)
		}
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("starting reservation engine", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down reservation engine")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("server forced to shutdown", "error", err)
	}
	log.Info("reservation engine stopped")
}
