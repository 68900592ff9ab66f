package geolocation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/zatekoja/viewingscheduler/internal/domain/providers"
)

const (
	postcodesIOBaseURL   = "https://api.postcodes.io"
	defaultLookupTimeout = 5 * time.Second
	postcodesIOStatusOK  = http.StatusOK
)

// PostcodesIOProvider implements the GeolocationProvider using the postcodes.io lookup API.
type PostcodesIOProvider struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

// NewPostcodesIOProvider creates a provider against the public postcodes.io endpoint.
func NewPostcodesIOProvider(timeout time.Duration) providers.GeolocationProvider {
	return NewPostcodesIOProviderWithOptions(postcodesIOBaseURL, timeout, nil)
}

// NewPostcodesIOProviderWithOptions allows overriding base URL and HTTP client (used for tests).
func NewPostcodesIOProviderWithOptions(baseURL string, timeout time.Duration, httpClient *http.Client) *PostcodesIOProvider {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = postcodesIOBaseURL
	}
	if timeout <= 0 {
		timeout = defaultLookupTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &PostcodesIOProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    timeout,
		httpClient: httpClient,
	}
}

// LookupPostcode resolves a normalized postcode to coordinates.
func (p *PostcodesIOProvider) LookupPostcode(ctx context.Context, postcode string) (*providers.PostcodeLocation, error) {
	if postcode == "" {
		return nil, providers.ErrPostcodeNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	reqURL := fmt.Sprintf("%s/postcodes/%s", p.baseURL, url.PathEscape(postcode))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build request: %v", providers.ErrGeocodingProvider, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, fmt.Errorf("%w: %s", providers.ErrGeocodingTimeout, postcode)
		}
		return nil, fmt.Errorf("%w: %v", providers.ErrGeocodingProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", providers.ErrPostcodeNotFound, postcode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: lookup returned status %d", providers.ErrGeocodingProvider, resp.StatusCode)
	}

	var payload postcodesIOResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		if isTimeout(ctx, err) {
			return nil, fmt.Errorf("%w: %s", providers.ErrGeocodingTimeout, postcode)
		}
		return nil, fmt.Errorf("%w: failed to decode response: %v", providers.ErrGeocodingProvider, err)
	}

	if payload.Status != postcodesIOStatusOK || payload.Result == nil {
		return nil, fmt.Errorf("%w: %s", providers.ErrPostcodeNotFound, postcode)
	}
	if payload.Result.Latitude == nil || payload.Result.Longitude == nil {
		// Some terminated or offshore postcodes have no coordinates.
		return nil, fmt.Errorf("%w: %s has no coordinates", providers.ErrPostcodeNotFound, postcode)
	}

	return &providers.PostcodeLocation{
		Postcode: payload.Result.Postcode,
		Coordinates: providers.Coordinates{
			Latitude:  *payload.Result.Latitude,
			Longitude: *payload.Result.Longitude,
		},
		Country:       payload.Result.Country,
		Region:        payload.Result.Region,
		AdminDistrict: payload.Result.AdminDistrict,
	}, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

type postcodesIOResponse struct {
	Status int                `json:"status"`
	Error  string             `json:"error,omitempty"`
	Result *postcodesIOResult `json:"result"`
}

type postcodesIOResult struct {
	Postcode      string   `json:"postcode"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
	Country       string   `json:"country"`
	Region        string   `json:"region"`
	AdminDistrict string   `json:"admin_district"`
}
