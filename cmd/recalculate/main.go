package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/zatekoja/viewingscheduler/internal/adapters/database"
	"github.com/zatekoja/viewingscheduler/internal/adapters/providers/geolocation"
	"github.com/zatekoja/viewingscheduler/internal/adapters/providers/routing"
	"github.com/zatekoja/viewingscheduler/internal/application/services"
	"github.com/zatekoja/viewingscheduler/internal/domain/entities"
	"github.com/zatekoja/viewingscheduler/internal/domain/providers"
	"github.com/zatekoja/viewingscheduler/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/viewingscheduler/internal/infrastructure/observability"
	"github.com/zatekoja/viewingscheduler/pkg/config"
)

func main() {
	var workers int
	var fromFlag, toFlag, appointmentID string

	flag.IntVar(&workers, "workers", 3, "Number of concurrent workers")
	flag.StringVar(&fromFlag, "from", "", "First appointment date to recalculate (YYYY-MM-DD, default today)")
	flag.StringVar(&toFlag, "to", "", "Last appointment date to recalculate (YYYY-MM-DD, default one year ahead)")
	flag.StringVar(&appointmentID, "appointment", "", "Single appointment ID to recalculate")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger(cfg.OTEL.ServiceName+"-recalculate", cfg.Environment, cfg.LogLevel)

	loc := cfg.Business.Location()
	today := entities.DateOf(time.Now().In(loc))
	from, err := dateFlag(fromFlag, today)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid -from")
	}
	to, err := dateFlag(toFlag, today.AddDate(1, 0, 0))
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid -to")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pgClient.Close()

	var geolocationProvider providers.GeolocationProvider
	switch cfg.Postcodes.Provider {
	case "mock":
		geolocationProvider = geolocation.NewMockGeolocationProvider()
	default:
		geolocationProvider = geolocation.NewPostcodesIOProviderWithOptions(cfg.Postcodes.BaseURL, cfg.Postcodes.Timeout, nil)
	}
	routingProvider := routing.NewOpenRouteServiceProviderWithOptions(cfg.Routing.APIKey, cfg.Routing.BaseURL, cfg.Routing.Timeout, nil)

	repo := database.NewAppointmentAdapter(pgClient)
	travel := services.NewTravelService(services.NewGeocodingService(geolocationProvider), routingProvider, services.TravelConfig{
		OfficePostcode:       cfg.Business.OfficePostcode,
		DefaultSpeedKmh:      cfg.Business.DefaultTravelSpeedKmh,
		MinimumTravelMinutes: cfg.Business.MinimumTravelMinutes,
		RoadDetourFactor:     cfg.Business.RoadDetourFactor,
	}, nil)
	svc := services.NewRecalculationService(repo, travel, services.NewConflictService(repo, loc), cfg.Business.AppointmentDuration(), workers)

	start := time.Now()

	if appointmentID != "" {
		if err := svc.RecalculateOne(ctx, appointmentID); err != nil {
			log.Fatal().Err(err).Str("appointment_id", appointmentID).Msg("Failed to recalculate appointment")
		}
		log.Info().Str("appointment_id", appointmentID).Msg("Recalculated appointment")
		return
	}

	log.Info().Int("workers", workers).Str("from", from.String()).Str("to", to.String()).Msg("Starting recalculation")
	summary, err := svc.RecalculateRange(ctx, from, to)
	if err != nil {
		log.Error().Err(err).Msg("Recalculation stopped early")
	}
	if summary != nil {
		log.Info().
			Dur("elapsed", time.Since(start)).
			Int("processed", summary.TotalProcessed).
			Int("updated", summary.UpdatedCount).
			Int("failed", summary.FailureCount).
			Int("conflicts", summary.ConflictCount).
			Msg("Recalculation complete")
	}
}

func dateFlag(value string, fallback entities.Date) (entities.Date, error) {
	if value == "" {
		return fallback, nil
	}
	return entities.ParseDate(value)
}
