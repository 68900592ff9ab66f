package geolocation

import (
	"context"
	"fmt"

	"github.com/zatekoja/viewingscheduler/internal/domain/providers"
)

// MockGeolocationProvider resolves a fixed set of UK postcodes without network access.
// Used for local development and tests.
type MockGeolocationProvider struct {
	locations map[string]providers.PostcodeLocation
}

// NewMockGeolocationProvider creates a new mock geolocation provider
func NewMockGeolocationProvider() *MockGeolocationProvider {
	locations := map[string]providers.PostcodeLocation{
		"SW1A1AA": {Postcode: "SW1A 1AA", Coordinates: providers.Coordinates{Latitude: 51.501009, Longitude: -0.141588}, Country: "England", Region: "London", AdminDistrict: "Westminster"},
		"EC1A1BB": {Postcode: "EC1A 1BB", Coordinates: providers.Coordinates{Latitude: 51.520180, Longitude: -0.097680}, Country: "England", Region: "London", AdminDistrict: "City of London"},
		"W1A0AX":  {Postcode: "W1A 0AX", Coordinates: providers.Coordinates{Latitude: 51.518561, Longitude: -0.143799}, Country: "England", Region: "London", AdminDistrict: "Westminster"},
		"E145AB":  {Postcode: "E14 5AB", Coordinates: providers.Coordinates{Latitude: 51.505495, Longitude: -0.023395}, Country: "England", Region: "London", AdminDistrict: "Tower Hamlets"},
		"M11AE":   {Postcode: "M1 1AE", Coordinates: providers.Coordinates{Latitude: 53.481028, Longitude: -2.238218}, Country: "England", Region: "North West", AdminDistrict: "Manchester"},
		"B338TH":  {Postcode: "B33 8TH", Coordinates: providers.Coordinates{Latitude: 52.476870, Longitude: -1.789520}, Country: "England", Region: "West Midlands", AdminDistrict: "Birmingham"},
		"CR26XH":  {Postcode: "CR2 6XH", Coordinates: providers.Coordinates{Latitude: 51.348560, Longitude: -0.083440}, Country: "England", Region: "London", AdminDistrict: "Croydon"},
		"DN551PT": {Postcode: "DN55 1PT", Coordinates: providers.Coordinates{Latitude: 53.522820, Longitude: -1.128462}, Country: "England", Region: "Yorkshire and The Humber", AdminDistrict: "Doncaster"},
	}
	return &MockGeolocationProvider{locations: locations}
}

// Add registers an extra postcode fixture.
func (m *MockGeolocationProvider) Add(postcode string, location providers.PostcodeLocation) {
	m.locations[postcode] = location
}

// LookupPostcode returns the fixture for postcode or ErrPostcodeNotFound.
func (m *MockGeolocationProvider) LookupPostcode(ctx context.Context, postcode string) (*providers.PostcodeLocation, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", providers.ErrGeocodingTimeout, err)
	}
	location, ok := m.locations[postcode]
	if !ok {
		return nil, fmt.Errorf("%w: %s", providers.ErrPostcodeNotFound, postcode)
	}
	return &location, nil
}
