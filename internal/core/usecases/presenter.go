package usecases

import (
	"context"
	"log/slog"

	"github.com/samirrijal/voltrip/internal/core/domain"
	"github.com/samirrijal/voltrip/internal/core/ports"
)

// NopPresenter discards all output.
type NopPresenter struct{}

func (NopPresenter) RoutesComputed(context.Context, string, []domain.Route)       {}
func (NopPresenter) ChargersDiscovered(context.Context, string, []domain.Charger) {}
func (NopPresenter) WaypointsChanged(context.Context, string, []domain.Waypoint)  {}
func (NopPresenter) UserNotice(context.Context, string, domain.Notice)            {}

// LogPresenter writes session output to slog.
type LogPresenter struct {
	Logger *slog.Logger
}

func (p LogPresenter) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

func (p LogPresenter) RoutesComputed(ctx context.Context, sessionID string, routes []domain.Route) {
	attrs := []any{"session_id", sessionID, "routes", len(routes)}
	if len(routes) > 0 {
		attrs = append(attrs, "primary_meters", routes[0].DistanceMeters(), "primary_legs", len(routes[0].Legs))
	}
	p.logger().InfoContext(ctx, "routes computed", attrs...)
}

func (p LogPresenter) ChargersDiscovered(ctx context.Context, sessionID string, chargers []domain.Charger) {
	if len(chargers) == 0 {
		p.logger().InfoContext(ctx, "chargers cleared", "session_id", sessionID)
		return
	}
	p.logger().InfoContext(ctx, "chargers discovered", "session_id", sessionID, "count", len(chargers))
}

func (p LogPresenter) WaypointsChanged(ctx context.Context, sessionID string, waypoints []domain.Waypoint) {
	p.logger().InfoContext(ctx, "waypoints changed", "session_id", sessionID, "count", len(waypoints))
}

func (p LogPresenter) UserNotice(ctx context.Context, sessionID string, n domain.Notice) {
	p.logger().InfoContext(ctx, "user notice", "session_id", sessionID, "kind", n.Kind, "message", n.Message)
}

// MultiPresenter fans output out to several presenters in order.
type MultiPresenter []ports.Presenter

func (m MultiPresenter) RoutesComputed(ctx context.Context, sessionID string, routes []domain.Route) {
	for _, p := range m {
		p.RoutesComputed(ctx, sessionID, routes)
	}
}

func (m MultiPresenter) ChargersDiscovered(ctx context.Context, sessionID string, chargers []domain.Charger) {
	for _, p := range m {
		p.ChargersDiscovered(ctx, sessionID, chargers)
	}
}

func (m MultiPresenter) WaypointsChanged(ctx context.Context, sessionID string, waypoints []domain.Waypoint) {
	for _, p := range m {
		p.WaypointsChanged(ctx, sessionID, waypoints)
	}
}

func (m MultiPresenter) UserNotice(ctx context.Context, sessionID string, n domain.Notice) {
	for _, p := range m {
		p.UserNotice(ctx, sessionID, n)
	}
}
