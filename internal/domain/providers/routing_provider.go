package providers

import (
	"context"
	"errors"
)

var (
	// ErrNoRoute is returned when the routing service answers without a usable route
	ErrNoRoute = errors.New("no route found")

	// ErrRoutingNotConfigured is returned when the routing service has no credentials
	ErrRoutingNotConfigured = errors.New("routing service not configured")

	// ErrRoutingTimeout is returned when the routing service does not answer in time
	ErrRoutingTimeout = errors.New("routing service timeout")
)

// RoutingProvider computes driving routes between two points
type RoutingProvider interface {
	// Route returns the driving distance and duration from one point to another
	Route(ctx context.Context, from, to Coordinates) (*RouteSummary, error)
}

// RouteSummary is the distance and duration of a driving route
type RouteSummary struct {
	DistanceMeters  float64
	DurationSeconds float64
}
