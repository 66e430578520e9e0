package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingEndpoint means origin or destination is not set yet.
	ErrMissingEndpoint = errors.New("origin and destination are required")
	// ErrCapacityExceeded rejects a selection beyond MaxWaypoints.
	ErrCapacityExceeded = fmt.Errorf("max limit of %d waypoints reached", MaxWaypoints)
	// ErrEmptyResult marks a discovery that found no chargers. Directories never return it.
	ErrEmptyResult = errors.New("no chargers found")
	// ErrServiceError wraps network, status and payload failures of external services.
	ErrServiceError = errors.New("service error")
	// ErrTimeout is returned when an external call exceeds its deadline.
	ErrTimeout = errors.New("request timed out")
	// ErrRouteComputationFailed is matched by every *RouteFailedError.
	ErrRouteComputationFailed = errors.New("route computation failed")
	// ErrUnknownCharger is returned when toggling a position that was never discovered.
	ErrUnknownCharger = errors.New("unknown charger position")
	// ErrSessionNotFound is returned by the session registry.
	ErrSessionNotFound = errors.New("session not found")
)

// RouteFailedError carries the routing provider's non-OK status.
type RouteFailedError struct {
	Status  string
	Message string
}

func (e *RouteFailedError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("directions request failed due to %s: %s", e.Status, e.Message)
	}
	return "directions request failed due to " + e.Status
}

func (e *RouteFailedError) Is(target error) bool { return target == ErrRouteComputationFailed }
