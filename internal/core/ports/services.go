package ports

import (
	"context"

	"github.com/samirrijal/voltrip/internal/core/domain"
)

// RouteProvider computes candidate driving routes.
type RouteProvider interface {
	// Route returns the provider's routes in provider order. A non-OK provider
	// status is reported as *domain.RouteFailedError.
	Route(ctx context.Context, req domain.RouteRequest) ([]domain.Route, error)
}

// ChargerDirectory looks up chargers inside a bounding box.
type ChargerDirectory interface {
	// QueryAvailable returns an empty slice and a nil error when the box holds no chargers.
	QueryAvailable(ctx context.Context, box domain.BoundingBox) ([]domain.Charger, error)
}

// Presenter receives session output. Implementations must not block for long;
// the session calls them after its state lock is released.
//
// ChargersDiscovered carries newly discovered chargers; an empty list means
// the session cleared its charger set and clients should drop their markers.
type Presenter interface {
	RoutesComputed(ctx context.Context, sessionID string, routes []domain.Route)
	ChargersDiscovered(ctx context.Context, sessionID string, chargers []domain.Charger)
	WaypointsChanged(ctx context.Context, sessionID string, waypoints []domain.Waypoint)
	UserNotice(ctx context.Context, sessionID string, notice domain.Notice)
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
