package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/zatekoja/viewingscheduler/internal/domain/providers"
)

const (
	openRouteServiceBaseURL = "https://api.openrouteservice.org"
	drivingDirectionsPath   = "/v2/directions/driving-car/geojson"
	defaultRouteTimeout     = 10 * time.Second
	snapRadiusMeters        = 1000
)

// OpenRouteServiceProvider implements the RoutingProvider using the OpenRouteService directions API.
type OpenRouteServiceProvider struct {
	apiKey     string
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

// NewOpenRouteServiceProvider creates a new OpenRouteService routing provider.
func NewOpenRouteServiceProvider(apiKey string, timeout time.Duration) *OpenRouteServiceProvider {
	return NewOpenRouteServiceProviderWithOptions(apiKey, openRouteServiceBaseURL, timeout, nil)
}

// NewOpenRouteServiceProviderWithOptions allows overriding base URL and HTTP client (used for tests).
func NewOpenRouteServiceProviderWithOptions(apiKey, baseURL string, timeout time.Duration, httpClient *http.Client) *OpenRouteServiceProvider {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = openRouteServiceBaseURL
	}
	if timeout <= 0 {
		timeout = defaultRouteTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &OpenRouteServiceProvider{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    timeout,
		httpClient: httpClient,
	}
}

// Configured reports whether an API key is set.
func (p *OpenRouteServiceProvider) Configured() bool {
	return p.apiKey != ""
}

// Route returns the driving distance and duration between two points.
func (p *OpenRouteServiceProvider) Route(ctx context.Context, from, to providers.Coordinates) (*providers.RouteSummary, error) {
	if !p.Configured() {
		return nil, providers.ErrRoutingNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	// GeoJSON order is [longitude, latitude].
	body, err := json.Marshal(directionsRequest{
		Coordinates: [][2]float64{
			{from.Longitude, from.Latitude},
			{to.Longitude, to.Latitude},
		},
		Radiuses:     []int{snapRadiusMeters, snapRadiusMeters},
		Instructions: false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode directions request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+drivingDirectionsPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build directions request: %w", err)
	}
	req.Header.Set("Authorization", p.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, application/geo+json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", providers.ErrRoutingTimeout, p.timeout)
		}
		return nil, fmt.Errorf("directions request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("directions request returned status %d", resp.StatusCode)
	}

	var payload directionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", providers.ErrRoutingTimeout, p.timeout)
		}
		return nil, fmt.Errorf("failed to decode directions response: %w", err)
	}

	if len(payload.Features) == 0 || payload.Features[0].Properties.Summary == nil {
		return nil, providers.ErrNoRoute
	}

	summary := payload.Features[0].Properties.Summary
	return &providers.RouteSummary{
		DistanceMeters:  summary.Distance,
		DurationSeconds: summary.Duration,
	}, nil
}

type directionsRequest struct {
	Coordinates  [][2]float64 `json:"coordinates"`
	Radiuses     []int        `json:"radiuses"`
	Instructions bool         `json:"instructions"`
}

type directionsResponse struct {
	Features []directionsFeature `json:"features"`
}

type directionsFeature struct {
	Properties directionsProperties `json:"properties"`
}

type directionsProperties struct {
	Summary *directionsSummary `json:"summary"`
}

type directionsSummary struct {
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
}
