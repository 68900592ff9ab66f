package providers

import (
	"context"
	"errors"
)

var (
	// ErrPostcodeNotFound is returned when the lookup service has no match for a postcode
	ErrPostcodeNotFound = errors.New("postcode not found")

	// ErrGeocodingTimeout is returned when the lookup service does not answer in time
	ErrGeocodingTimeout = errors.New("postcode service timeout")

	// ErrGeocodingProvider covers every other lookup failure
	ErrGeocodingProvider = errors.New("postcode lookup failed")
)

// GeolocationProvider resolves postcodes to coordinates
type GeolocationProvider interface {
	// LookupPostcode resolves an already normalized postcode
	LookupPostcode(ctx context.Context, postcode string) (*PostcodeLocation, error)
}

// Coordinates represents geographical coordinates
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// PostcodeLocation is the geocoded form of a postcode
type PostcodeLocation struct {
	Postcode      string      `json:"postcode"`
	Coordinates   Coordinates `json:"coordinates"`
	Country       string      `json:"country,omitempty"`
	Region        string      `json:"region,omitempty"`
	AdminDistrict string      `json:"admin_district,omitempty"`
}
