package geolocation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/viewingscheduler/internal/domain/providers"
)

func TestPostcodesIOProvider_LookupPostcode(t *testing.T) {
	var requestedPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestedPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": 200,
			"result": {
				"postcode": "SW1A 1AA",
				"latitude": 51.501009,
				"longitude": -0.141588,
				"country": "England",
				"region": "London",
				"admin_district": "Westminster"
			}
		}`))
	}))
	defer server.Close()

	provider := NewPostcodesIOProviderWithOptions(server.URL, time.Second, server.Client())

	location, err := provider.LookupPostcode(context.Background(), "SW1A1AA")
	require.NoError(t, err)

	assert.Equal(t, "/postcodes/SW1A1AA", requestedPath)
	assert.Equal(t, "SW1A 1AA", location.Postcode)
	assert.InDelta(t, 51.501009, location.Coordinates.Latitude, 1e-9)
	assert.InDelta(t, -0.141588, location.Coordinates.Longitude, 1e-9)
	assert.Equal(t, "Westminster", location.AdminDistrict)
}

func TestPostcodesIOProvider_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"status": 404, "error": "Invalid postcode"}`))
	}))
	defer server.Close()

	provider := NewPostcodesIOProviderWithOptions(server.URL, time.Second, server.Client())

	_, err := provider.LookupPostcode(context.Background(), "ZZ999ZZ")
	assert.ErrorIs(t, err, providers.ErrPostcodeNotFound)
}

func TestPostcodesIOProvider_BodyStatusNotOK(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status": 404, "result": null}`))
	}))
	defer server.Close()

	provider := NewPostcodesIOProviderWithOptions(server.URL, time.Second, server.Client())

	_, err := provider.LookupPostcode(context.Background(), "AB12CD")
	assert.ErrorIs(t, err, providers.ErrPostcodeNotFound)
}

func TestPostcodesIOProvider_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	provider := NewPostcodesIOProviderWithOptions(server.URL, time.Second, server.Client())

	_, err := provider.LookupPostcode(context.Background(), "SW1A1AA")
	assert.ErrorIs(t, err, providers.ErrGeocodingProvider)
	assert.NotErrorIs(t, err, providers.ErrPostcodeNotFound)
}

func TestPostcodesIOProvider_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	provider := NewPostcodesIOProviderWithOptions(server.URL, 50*time.Millisecond, server.Client())

	_, err := provider.LookupPostcode(context.Background(), "SW1A1AA")
	assert.ErrorIs(t, err, providers.ErrGeocodingTimeout)
}

func TestMockGeolocationProvider(t *testing.T) {
	provider := NewMockGeolocationProvider()

	location, err := provider.LookupPostcode(context.Background(), "M11AE")
	require.NoError(t, err)
	assert.Equal(t, "M1 1AE", location.Postcode)

	_, err = provider.LookupPostcode(context.Background(), "ZZ999ZZ")
	assert.ErrorIs(t, err, providers.ErrPostcodeNotFound)
}
