package services_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/viewingscheduler/internal/application/services"
	"github.com/zatekoja/viewingscheduler/internal/domain/providers"
)

var testTravelConfig = services.TravelConfig{
	OfficePostcode:       "SW1A 1AA",
	DefaultSpeedKmh:      30,
	MinimumTravelMinutes: 5,
	RoadDetourFactor:     1.3,
}

func newGeocoderWithFixtures() *MockGeolocationProvider {
	geo := new(MockGeolocationProvider)
	geo.On("LookupPostcode", mock.Anything, "SW1A1AA").Return(officeLocation, nil)
	geo.On("LookupPostcode", mock.Anything, "EC1A1BB").Return(propertyLocation, nil)
	return geo
}

func TestTravelService_FallbackWithoutRouter(t *testing.T) {
	svc := services.NewTravelService(services.NewGeocodingService(newGeocoderWithFixtures()), nil, testTravelConfig, nil)

	info, err := svc.CalculateTravelInfo(context.Background(), "ec1a 1bb")
	require.NoError(t, err)

	straight := services.HaversineDistance(
		officeLocation.Coordinates.Latitude, officeLocation.Coordinates.Longitude,
		propertyLocation.Coordinates.Latitude, propertyLocation.Coordinates.Longitude,
	)
	expectedKm := math.Round(straight*1.3*100) / 100

	assert.Equal(t, services.RoutingMethodFallback, info.RoutingMethod)
	assert.Equal(t, services.DegradedNotConfigured, info.DegradedReason)
	assert.Equal(t, expectedKm, info.DistanceKm)
	assert.Equal(t, 10, info.TravelTimeMinutes)
	assert.Equal(t, officeLocation, info.Office)
	assert.Equal(t, propertyLocation, info.Property)
}

func TestTravelService_UsesRoutedSummary(t *testing.T) {
	router := new(MockRoutingProvider)
	router.On("Route", mock.Anything, officeLocation.Coordinates, propertyLocation.Coordinates).
		Return(&providers.RouteSummary{DistanceMeters: 6234, DurationSeconds: 1150}, nil)

	svc := services.NewTravelService(services.NewGeocodingService(newGeocoderWithFixtures()), router, testTravelConfig, nil)

	info, err := svc.CalculateTravelInfo(context.Background(), "EC1A 1BB")
	require.NoError(t, err)

	assert.Equal(t, services.RoutingMethodAPI, info.RoutingMethod)
	assert.Empty(t, info.DegradedReason)
	assert.Equal(t, 6.23, info.DistanceKm)
	assert.Equal(t, 19, info.TravelTimeMinutes)
	router.AssertExpectations(t)
}

func TestTravelService_RoutingFailuresDegrade(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		reason services.DegradedReason
	}{
		{name: "timeout", err: providers.ErrRoutingTimeout, reason: services.DegradedTimeout},
		{name: "no route", err: providers.ErrNoRoute, reason: services.DegradedNoRoute},
		{name: "not configured", err: providers.ErrRoutingNotConfigured, reason: services.DegradedNotConfigured},
		{name: "other", err: errors.New("status 500"), reason: services.DegradedRequestFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := new(MockRoutingProvider)
			router.On("Route", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err)

			svc := services.NewTravelService(services.NewGeocodingService(newGeocoderWithFixtures()), router, testTravelConfig, nil)

			info, err := svc.CalculateTravelInfo(context.Background(), "EC1A1BB")
			require.NoError(t, err)
			assert.Equal(t, services.RoutingMethodFallback, info.RoutingMethod)
			assert.Equal(t, tt.reason, info.DegradedReason)
			assert.Equal(t, 10, info.TravelTimeMinutes)
		})
	}
}

func TestTravelService_EnforcesMinimumTravelTime(t *testing.T) {
	svc := services.NewTravelService(services.NewGeocodingService(new(MockGeolocationProvider)), nil, testTravelConfig, nil)

	info := svc.Estimate(context.Background(), officeLocation.Coordinates, officeLocation.Coordinates)
	assert.Equal(t, 5, info.TravelTimeMinutes)
	assert.Zero(t, info.DistanceKm)

	router := new(MockRoutingProvider)
	router.On("Route", mock.Anything, mock.Anything, mock.Anything).
		Return(&providers.RouteSummary{DistanceMeters: 400, DurationSeconds: 90}, nil)
	svc = services.NewTravelService(services.NewGeocodingService(new(MockGeolocationProvider)), router, testTravelConfig, nil)

	info = svc.Estimate(context.Background(), officeLocation.Coordinates, propertyLocation.Coordinates)
	assert.Equal(t, services.RoutingMethodAPI, info.RoutingMethod)
	assert.Equal(t, 5, info.TravelTimeMinutes)
	assert.Equal(t, 0.4, info.DistanceKm)
}

func TestTravelService_PropertyGeocodingFailureAborts(t *testing.T) {
	geo := new(MockGeolocationProvider)
	geo.On("LookupPostcode", mock.Anything, "SW1A1AA").Return(officeLocation, nil).Maybe()
	geo.On("LookupPostcode", mock.Anything, "ZZ99ZZ").Return(nil, providers.ErrPostcodeNotFound)

	svc := services.NewTravelService(services.NewGeocodingService(geo), nil, testTravelConfig, nil)

	_, err := svc.CalculateTravelInfo(context.Background(), "ZZ9 9ZZ")
	require.Error(t, err)

	var geoErr *services.GeocodingError
	require.ErrorAs(t, err, &geoErr)
	assert.Equal(t, services.GeocodingRoleProperty, geoErr.Role)
	assert.Equal(t, "ZZ99ZZ", geoErr.Postcode)
	assert.ErrorIs(t, err, providers.ErrPostcodeNotFound)
}

func TestTravelService_SameInputsSameEstimate(t *testing.T) {
	svc := services.NewTravelService(services.NewGeocodingService(newGeocoderWithFixtures()), nil, testTravelConfig, nil)

	first, err := svc.CalculateTravelInfo(context.Background(), "EC1A1BB")
	require.NoError(t, err)
	second, err := svc.CalculateTravelInfo(context.Background(), "EC1A1BB")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
