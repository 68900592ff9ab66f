package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/zatekoja/viewingscheduler/internal/domain/providers"
	"github.com/zatekoja/viewingscheduler/internal/infrastructure/observability"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// RoutingMethod records how a travel estimate was produced
type RoutingMethod string

const (
	RoutingMethodAPI      RoutingMethod = "api"
	RoutingMethodFallback RoutingMethod = "fallback"
)

// DegradedReason explains why the routing provider was not used
type DegradedReason string

const (
	DegradedNotConfigured DegradedReason = "not_configured"
	DegradedTimeout       DegradedReason = "timeout"
	DegradedNoRoute       DegradedReason = "no_route"
	DegradedRequestFailed DegradedReason = "request_failed"
)

// RouteOutcome is the result of asking the routing provider for a route.
// Exactly one of Summary and Reason is set.
type RouteOutcome struct {
	Summary *providers.RouteSummary
	Reason  DegradedReason
	Err     error
}

// Degraded reports whether the estimate must fall back to the heuristic
func (o RouteOutcome) Degraded() bool {
	return o.Summary == nil
}

// TravelInfo is the one-way trip from the office to a property
type TravelInfo struct {
	DistanceKm        float64        `json:"distance_km"`
	TravelTimeMinutes int            `json:"travel_time_minutes"`
	RoutingMethod     RoutingMethod  `json:"routing_method"`
	DegradedReason    DegradedReason `json:"degraded_reason,omitempty"`

	Office   *providers.PostcodeLocation `json:"-"`
	Property *providers.PostcodeLocation `json:"-"`
}

// GeocodingError identifies which end of the trip failed to geocode
type GeocodingError struct {
	Role     string
	Postcode string
	Err      error
}

func (e *GeocodingError) Error() string {
	return fmt.Sprintf("geocoding %s postcode %s failed: %v", e.Role, e.Postcode, e.Err)
}

func (e *GeocodingError) Unwrap() error {
	return e.Err
}

const (
	GeocodingRoleOffice   = "office"
	GeocodingRoleProperty = "property"
)

// TravelConfig holds the constants of the travel estimate
type TravelConfig struct {
	OfficePostcode       string
	DefaultSpeedKmh      float64
	MinimumTravelMinutes int
	RoadDetourFactor     float64
}

// configuredRouter is implemented by routing providers that can tell whether they hold credentials
type configuredRouter interface {
	Configured() bool
}

// TravelService estimates driving distance and time from the office
type TravelService struct {
	geocoder *GeocodingService
	router   providers.RoutingProvider
	cfg      TravelConfig
	metrics  *observability.Metrics
}

// NewTravelService creates a new travel service. router may be nil.
func NewTravelService(geocoder *GeocodingService, router providers.RoutingProvider, cfg TravelConfig, metrics *observability.Metrics) *TravelService {
	return &TravelService{
		geocoder: geocoder,
		router:   router,
		cfg:      cfg,
		metrics:  metrics,
	}
}

// CalculateTravelInfo geocodes the office and the property concurrently and estimates the trip.
// Only geocoding failures are returned; routing failures degrade to the heuristic.
func (s *TravelService) CalculateTravelInfo(ctx context.Context, propertyPostcode string) (*TravelInfo, error) {
	ctx, span := observability.StartSpan(ctx, "travel.calculate")
	defer span.End()

	var office, property *providers.PostcodeLocation

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		loc, err := s.geocoder.GetCoordinates(gctx, s.cfg.OfficePostcode)
		if err != nil {
			return &GeocodingError{Role: GeocodingRoleOffice, Postcode: s.cfg.OfficePostcode, Err: err}
		}
		office = loc
		return nil
	})
	g.Go(func() error {
		loc, err := s.geocoder.GetCoordinates(gctx, propertyPostcode)
		if err != nil {
			return &GeocodingError{Role: GeocodingRoleProperty, Postcode: NormalizePostcode(propertyPostcode), Err: err}
		}
		property = loc
		return nil
	})
	if err := g.Wait(); err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	info := s.Estimate(ctx, office.Coordinates, property.Coordinates)
	info.Office = office
	info.Property = property

	observability.SetSpanAttributes(span,
		attribute.String("routing.method", string(info.RoutingMethod)),
		attribute.Float64("travel.distance_km", info.DistanceKm),
		attribute.Int("travel.minutes", info.TravelTimeMinutes),
	)
	return info, nil
}

// Estimate computes the trip between two known points
func (s *TravelService) Estimate(ctx context.Context, from, to providers.Coordinates) *TravelInfo {
	outcome := s.route(ctx, from, to)

	var (
		distanceKm float64
		minutes    int
		info       = &TravelInfo{}
	)

	if outcome.Degraded() {
		logger := observability.LoggerFromContext(ctx)
		event := logger.Warn()
		if outcome.Reason == DegradedNotConfigured {
			event = logger.Debug()
		}
		event.Err(outcome.Err).Str("reason", string(outcome.Reason)).Msg("Routing unavailable, using distance estimate")

		distanceKm = HaversineDistance(from.Latitude, from.Longitude, to.Latitude, to.Longitude) * s.cfg.RoadDetourFactor
		minutes = int(math.Round(distanceKm / s.cfg.DefaultSpeedKmh * 60))
		info.RoutingMethod = RoutingMethodFallback
		info.DegradedReason = outcome.Reason
	} else {
		distanceKm = outcome.Summary.DistanceMeters / 1000
		minutes = int(math.Round(outcome.Summary.DurationSeconds / 60))
		info.RoutingMethod = RoutingMethodAPI
	}

	if minutes < s.cfg.MinimumTravelMinutes {
		minutes = s.cfg.MinimumTravelMinutes
	}
	info.DistanceKm = roundTo(distanceKm, 2)
	info.TravelTimeMinutes = minutes

	observability.RecordRouteLookup(ctx, s.metrics, string(info.RoutingMethod), string(info.DegradedReason))
	return info
}

// route never fails: every provider error becomes a degraded outcome with a reason
func (s *TravelService) route(ctx context.Context, from, to providers.Coordinates) RouteOutcome {
	if s.router == nil {
		return RouteOutcome{Reason: DegradedNotConfigured, Err: providers.ErrRoutingNotConfigured}
	}
	if c, ok := s.router.(configuredRouter); ok && !c.Configured() {
		return RouteOutcome{Reason: DegradedNotConfigured, Err: providers.ErrRoutingNotConfigured}
	}

	ctx, span := observability.StartSpan(ctx, "routing.route")
	defer span.End()

	summary, err := s.router.Route(ctx, from, to)
	switch {
	case err == nil && summary != nil:
		return RouteOutcome{Summary: summary}
	case err == nil:
		return RouteOutcome{Reason: DegradedNoRoute, Err: providers.ErrNoRoute}
	}

	observability.RecordError(span, err)
	switch {
	case errors.Is(err, providers.ErrRoutingNotConfigured):
		return RouteOutcome{Reason: DegradedNotConfigured, Err: err}
	case errors.Is(err, providers.ErrRoutingTimeout), errors.Is(err, context.DeadlineExceeded):
		return RouteOutcome{Reason: DegradedTimeout, Err: err}
	case errors.Is(err, providers.ErrNoRoute):
		return RouteOutcome{Reason: DegradedNoRoute, Err: err}
	default:
		return RouteOutcome{Reason: DegradedRequestFailed, Err: err}
	}
}

func roundTo(value float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(value*factor) / factor
}
