package services

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/zatekoja/viewingscheduler/internal/domain/providers"
	"github.com/zatekoja/viewingscheduler/internal/infrastructure/observability"
	"go.opentelemetry.io/otel/attribute"
)

const earthRadiusKm = 6371.0

// GeocodingService resolves postcodes through a GeolocationProvider. It does not cache.
type GeocodingService struct {
	provider providers.GeolocationProvider
}

// NewGeocodingService creates a new geocoding service
func NewGeocodingService(provider providers.GeolocationProvider) *GeocodingService {
	return &GeocodingService{provider: provider}
}

// GetCoordinates normalizes postcode and looks it up.
// Errors wrap providers.ErrPostcodeNotFound, ErrGeocodingTimeout or ErrGeocodingProvider.
func (s *GeocodingService) GetCoordinates(ctx context.Context, postcode string) (*providers.PostcodeLocation, error) {
	normalized := NormalizePostcode(postcode)

	ctx, span := observability.StartSpan(ctx, "geocoding.lookup")
	defer span.End()
	observability.SetSpanAttributes(span, attribute.String("postcode", normalized))

	location, err := s.provider.LookupPostcode(ctx, normalized)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	return location, nil
}

// NormalizePostcode removes all whitespace and upper-cases the postcode.
func NormalizePostcode(postcode string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToUpper(r)
	}, postcode)
}

// HaversineDistance returns the great-circle distance in kilometres.
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := toRadians(lat1)
	lat2Rad := toRadians(lat2)
	deltaLat := toRadians(lat2 - lat1)
	deltaLon := toRadians(lon2 - lon1)

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

func toRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}
