package domain

import "time"

// MaxWaypoints is the number of mandatory stops a single route request accepts.
const MaxWaypoints = 25

// Charger is a charging point returned by a directory query.
// ID is only unique within one query batch.
type Charger struct {
	ID       string   `json:"id"`
	Position GeoPoint `json:"position"`
}

// Key identifies the charger across overlapping query batches.
func (c Charger) Key() string { return c.Position.Key() + "/" + c.ID }

// Waypoint is a selected charger inserted into the route request as a stop.
type Waypoint struct {
	ChargerID string   `json:"charger_id"`
	Position  GeoPoint `json:"position"`
	Stopover  bool     `json:"stopover"`
}

// RouteLegStep is one maneuver of a leg as reported by the routing provider.
type RouteLegStep struct {
	Start          GeoPoint `json:"start"`
	End            GeoPoint `json:"end"`
	DistanceMeters float64  `json:"distance_meters"`
}

// RouteLeg is the part of a route between two consecutive stops.
type RouteLeg struct {
	StartAddress    string         `json:"start_address,omitempty"`
	EndAddress      string         `json:"end_address,omitempty"`
	Start           GeoPoint       `json:"start"`
	End             GeoPoint       `json:"end"`
	DistanceMeters  float64        `json:"distance_meters"`
	DurationSeconds float64        `json:"duration_seconds"`
	Steps           []RouteLegStep `json:"steps"`
}

// Route is one candidate driving route.
type Route struct {
	Summary       string      `json:"summary,omitempty"`
	Legs          []RouteLeg  `json:"legs"`
	Bounds        BoundingBox `json:"bounds"`
	WaypointOrder []int       `json:"waypoint_order,omitempty"`
}

// DistanceMeters sums the leg distances.
func (r Route) DistanceMeters() float64 {
	var total float64
	for _, l := range r.Legs {
		total += l.DistanceMeters
	}
	return total
}

// DurationSeconds sums the leg durations.
func (r Route) DurationSeconds() float64 {
	var total float64
	for _, l := range r.Legs {
		total += l.DurationSeconds
	}
	return total
}

// RouteRequest is what the session asks the routing provider for.
type RouteRequest struct {
	OriginPlaceID      string     `json:"origin_place_id"`
	DestinationPlaceID string     `json:"destination_place_id"`
	Waypoints          []Waypoint `json:"waypoints"`
	OptimizeWaypoints  bool       `json:"optimize_waypoints"`
	Alternatives       bool       `json:"alternatives"`
}

// NoticeKind classifies a user-facing message.
type NoticeKind string

const (
	NoticeMissingEndpoint NoticeKind = "missing_endpoint"
	NoticeCapacity        NoticeKind = "capacity_exceeded"
	NoticeEmptyResult     NoticeKind = "empty_result"
	NoticeServiceError    NoticeKind = "service_error"
	NoticeRouteFailed     NoticeKind = "route_failed"
	NoticeUnknownCharger  NoticeKind = "unknown_charger"
)

// Notice is an informational or failure message for the driver.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
	At      time.Time  `json:"at"`
}

// ChargerState is the toggle state of a discovered charger position.
type ChargerState string

const (
	ChargerAvailable ChargerState = "available"
	ChargerSelected  ChargerState = "selected"
)

// SessionSnapshot is a read-only copy of a trip session.
type SessionSnapshot struct {
	ID                 string     `json:"id"`
	OriginPlaceID      string     `json:"origin_place_id,omitempty"`
	DestinationPlaceID string     `json:"destination_place_id,omitempty"`
	Waypoints          []Waypoint `json:"waypoints"`
	Available          []Charger  `json:"available"`
	Selected           []Charger  `json:"selected"`
	Routes             []Route    `json:"routes"`
	Notices            []Notice   `json:"notices,omitempty"`
	RouteSeq           uint64     `json:"route_seq"`
	UpdatedAt          time.Time  `json:"updated_at"`
}
