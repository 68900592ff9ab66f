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

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/zatekoja/viewingscheduler/internal/adapters/database"
	"github.com/zatekoja/viewingscheduler/internal/adapters/events"
	"github.com/zatekoja/viewingscheduler/internal/adapters/locking"
	"github.com/zatekoja/viewingscheduler/internal/adapters/providers/geolocation"
	"github.com/zatekoja/viewingscheduler/internal/adapters/providers/routing"
	"github.com/zatekoja/viewingscheduler/internal/api/handlers"
	"github.com/zatekoja/viewingscheduler/internal/api/routes"
	"github.com/zatekoja/viewingscheduler/internal/application/loaders"
	"github.com/zatekoja/viewingscheduler/internal/application/services"
	"github.com/zatekoja/viewingscheduler/internal/domain/providers"
	"github.com/zatekoja/viewingscheduler/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/viewingscheduler/internal/infrastructure/clients/redis"
	"github.com/zatekoja/viewingscheduler/internal/infrastructure/observability"
	"github.com/zatekoja/viewingscheduler/pkg/config"
)

func main() {
	// A missing .env is normal outside local development
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Environment, cfg.LogLevel)

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	// Initialize database client
	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()

	// Redis is optional: without it events stay in-process and locks are local
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, falling back to in-process events and locks")
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	// Initialize adapters
	appointmentAdapter := database.NewAppointmentAdapter(pgClient)
	agentAdapter := database.NewAgentAdapter(pgClient)

	var eventBus providers.EventBus
	if redisClient != nil {
		eventBus = events.NewRedisEventBus(redisClient)
	} else {
		eventBus = events.NewMemoryEventBus()
	}

	var locker providers.BookingLocker
	switch {
	case !cfg.Booking.LockEnabled:
		log.Warn().Msg("Booking locks disabled; concurrent bookings for one agent may double-book")
	case redisClient != nil:
		locker = locking.NewRedisBookingLocker(redisClient, cfg.Booking.LockWait)
	default:
		locker = locking.NewLocalBookingLocker(cfg.Booking.LockWait)
	}

	var geolocationProvider providers.GeolocationProvider
	switch cfg.Postcodes.Provider {
	case "mock":
		geolocationProvider = geolocation.NewMockGeolocationProvider()
	default:
		geolocationProvider = geolocation.NewPostcodesIOProviderWithOptions(cfg.Postcodes.BaseURL, cfg.Postcodes.Timeout, nil)
	}

	routingProvider := routing.NewOpenRouteServiceProviderWithOptions(cfg.Routing.APIKey, cfg.Routing.BaseURL, cfg.Routing.Timeout, nil)
	if !routingProvider.Configured() {
		log.Warn().Msg("OPENROUTE_API_KEY is not set; travel times use the straight-line estimate")
	}

	// Initialize services
	loc := cfg.Business.Location()
	geocodingService := services.NewGeocodingService(geolocationProvider)
	travelService := services.NewTravelService(geocodingService, routingProvider, services.TravelConfig{
		OfficePostcode:       cfg.Business.OfficePostcode,
		DefaultSpeedKmh:      cfg.Business.DefaultTravelSpeedKmh,
		MinimumTravelMinutes: cfg.Business.MinimumTravelMinutes,
		RoadDetourFactor:     cfg.Business.RoadDetourFactor,
	}, metrics)

	appointmentService := services.NewAppointmentService(services.AppointmentServiceDeps{
		Repo:      appointmentAdapter,
		AgentRepo: agentAdapter,
		Geocoder:  geocodingService,
		Travel:    travelService,
		Conflicts: services.NewConflictService(appointmentAdapter, loc),
		Rules:     services.NewBookingRules(loc, time.Now),
		Locker:    locker,
		Events:    eventBus,
		Metrics:   metrics,
	}, services.AppointmentServiceConfig{
		AppointmentDuration: cfg.Business.AppointmentDuration(),
		Location:            loc,
		LockTTL:             cfg.Booking.LockTTL,
	})
	agentService := services.NewAgentService(agentAdapter)

	// Set up router
	router := routes.NewRouter(routes.RouterDeps{
		AppointmentHandler: handlers.NewAppointmentHandler(appointmentService),
		GeolocationHandler: handlers.NewGeolocationHandler(appointmentService),
		AgentHandler:       handlers.NewAgentHandler(agentService),
		SSEHandler:         handlers.NewSSEHandler(eventBus),
		RequestScope:       loaders.Middleware(agentAdapter),
		AllowedOrigins:     cfg.Server.AllowedOrigins,
		Metrics:            metrics,
	})

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Str("office", cfg.Business.OfficePostcode).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}

	if err := eventBus.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing event bus")
	}

	log.Info().Msg("Server stopped")
}
