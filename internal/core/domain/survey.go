package domain

import "time"

// SurveyRequest asks for an offline survey of chargers along every route
// between two places.
type SurveyRequest struct {
	OriginPlaceID      string `json:"origin_place_id"`
	DestinationPlaceID string `json:"destination_place_id"`
}

// RouteSurvey summarizes the chargers found along one candidate route.
type RouteSurvey struct {
	Summary         string    `json:"summary"`
	DistanceMeters  float64   `json:"distance_meters"`
	DurationSeconds float64   `json:"duration_seconds"`
	Chargers        []Charger `json:"chargers"`
}

// CorridorSurvey is the outcome of a survey workflow.
type CorridorSurvey struct {
	ID                 string        `json:"id"`
	OriginPlaceID      string        `json:"origin_place_id"`
	DestinationPlaceID string        `json:"destination_place_id"`
	Routes             []RouteSurvey `json:"routes"`
	CompletedAt        time.Time     `json:"completed_at"`
}

// TotalChargers counts distinct chargers across all routes.
func (s CorridorSurvey) TotalChargers() int {
	seen := make(map[string]struct{})
	for _, r := range s.Routes {
		for _, c := range r.Chargers {
			seen[c.Key()] = struct{}{}
		}
	}
	return len(seen)
}
