package cmd

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	pubnub "github.com/pubnub/go"

	"event-booker/config"
	"event-booker/handlers"
	"event-booker/internal/services/payment"
	"event-booker/internal/services/payment/stripe"
	"event-booker/monitoring"
	"event-booker/notify"
	"event-booker/security"
	"event-booker/services"
	"event-booker/store"
	"event-booker/utils"
)

func Start() error {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := config.LoadConfig()

	// Initialize Redis
	redisClient, err := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	// Initialize the change publisher. Without PubNub keys, changes still
	// reach in-process subscribers, just nothing beyond the process.
	var publisher notify.Publisher = notify.Noop{}
	if cfg.PubNubPublishKey != "" && cfg.PubNubSubscribeKey != "" {
		pnConfig := pubnub.NewConfig()
		pnConfig.PublishKey = cfg.PubNubPublishKey
		pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
		pnConfig.SecretKey = cfg.PubNubSecretKey
		publisher = notify.NewPubNubPublisher(pubnub.NewPubNub(pnConfig))
		log.Println("PubNub publisher enabled")
	}

	// Initialize the event store
	eventStore := store.NewRedisStore(redisClient,
		store.WithKey(cfg.EventsKey),
		store.WithBroadcaster(publisher),
	)

	// Initialize the payment provider
	provider, err := buildProvider(cfg)
	if err != nil {
		return err
	}
	defer provider.Close(context.Background())
	log.Printf("Payment provider: %s", provider.Name())

	// Initialize services
	catalogService := services.NewCatalogService(eventStore)
	eventService := services.NewEventService(eventStore)
	bookingService := services.NewBookingService(redisClient, provider, publisher, cfg)

	// Initialize handlers
	eventHandler := handlers.NewEventHandler(catalogService)
	bookingHandler := handlers.NewBookingHandler(bookingService, catalogService)
	adminHandler := handlers.NewAdminHandler(eventService)

	rateLimiter := security.NewRateLimiter(redisClient, cfg.RateLimitPerMinute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start background tasks
	if cfg.EnableMetrics {
		monitor := monitoring.NewMonitor(redisClient, cfg.EventsKey)
		go monitor.Start(ctx, cfg.MetricsInterval)
		go serveMetrics(cfg.MetricsPort)
	}
	go logStoreChanges(eventStore)

	e := echo.New()
	e.Use(rateLimiter.AntiBotMiddleware())

	// Event endpoints
	e.GET("/api/v1/events", eventHandler.ListEvents)
	e.GET("/api/v1/events/recommended", eventHandler.Recommended)
	e.GET("/api/v1/events/:eventId", eventHandler.GetEvent)
	e.GET("/api/v1/calendar", eventHandler.Calendar)
	e.GET("/api/v1/calendar.ics", eventHandler.CalendarICS)

	// Booking endpoints
	booking := e.Group("/api/v1/bookings", rateLimiter.BookingRateLimit())
	booking.POST("/sessions", bookingHandler.StartSession)
	booking.GET("/sessions/:sessionId", bookingHandler.GetSession)
	booking.PATCH("/sessions/:sessionId", bookingHandler.UpdateField)
	booking.POST("/sessions/:sessionId/submit", bookingHandler.Submit)
	booking.GET("/history", bookingHandler.History)

	// Admin endpoints
	admin := e.Group("/api/v1/admin", rateLimiter.AdminRateLimit())
	admin.POST("/events", adminHandler.CreateEvent)
	admin.DELETE("/events", adminHandler.ClearEvents)

	// Health check
	e.GET("/health", func(c echo.Context) error {
		if err := utils.RedisHealthCheck(redisClient); err != nil {
			return c.JSON(503, map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			})
		}
		return c.JSON(200, map[string]string{"status": "healthy"})
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: e,
	}

	// Setup graceful shutdown
	go handleShutdown(srv, cancel)

	log.Printf("Server listening on :%s", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func buildProvider(cfg *config.Config) (payment.Provider, error) {
	factory := payment.NewFactory()

	name := payment.ProviderName(cfg.PaymentProvider)
	if name == payment.ProviderStripe {
		return factory.CreateProvider(name, &stripe.Config{
			SecretKey: cfg.StripeSecretKey,
			BaseURL:   cfg.StripeBaseURL,
		})
	}
	return factory.CreateProvider(name, nil)
}

// logStoreChanges drains the in-process subscription so every mutation
// leaves a trace in the server log.
func logStoreChanges(eventStore store.EventStore) {
	changes, unsubscribe := eventStore.Subscribe()
	defer unsubscribe()

	for change := range changes {
		slog.Info("event collection changed", "op", change.Op, "event_id", change.EventID)
	}
}

func serveMetrics(port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.Printf("Metrics listening on :%s", port)
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		log.Printf("Metrics server stopped: %v", err)
	}
}

// handleShutdown handles graceful shutdown
func handleShutdown(srv *http.Server, cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
}
