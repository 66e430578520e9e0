package workflows

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/voltrip/internal/core/domain"
	"github.com/samirrijal/voltrip/internal/core/ports"
	"github.com/samirrijal/voltrip/internal/core/usecases"
)

// SurveyPublisher delivers finished surveys.
type SurveyPublisher interface {
	PublishSurvey(ctx context.Context, survey domain.CorridorSurvey) error
}

// SurveyActivities holds the activity implementations for the corridor survey workflow.
type SurveyActivities struct {
	Provider  ports.RouteProvider
	Directory *usecases.DirectoryService
	Publisher SurveyPublisher
}

// ComputeRoutes asks the provider for every alternative between the two places.
func (a *SurveyActivities) ComputeRoutes(ctx context.Context, req domain.SurveyRequest) ([]domain.Route, error) {
	routes, err := a.Provider.Route(ctx, domain.RouteRequest{
		OriginPlaceID:      req.OriginPlaceID,
		DestinationPlaceID: req.DestinationPlaceID,
		Alternatives:       true,
	})
	if err != nil {
		var rf *domain.RouteFailedError
		if errors.As(err, &rf) {
			// The provider answered; asking again gives the same status.
			return nil, temporal.NewNonRetryableApplicationError(rf.Error(), "route_failed", err)
		}
		return nil, fmt.Errorf("compute routes: %w", err)
	}
	if len(routes) == 0 {
		return nil, temporal.NewNonRetryableApplicationError("no routes between the places", "route_failed", nil)
	}
	return routes, nil
}

// DiscoverAlongRoute looks up the chargers inside the bounds of one route.
func (a *SurveyActivities) DiscoverAlongRoute(ctx context.Context, route domain.Route) (domain.RouteSurvey, error) {
	rs := domain.RouteSurvey{
		Summary:         route.Summary,
		DistanceMeters:  route.DistanceMeters(),
		DurationSeconds: route.DurationSeconds(),
		Chargers:        []domain.Charger{},
	}
	if !route.Bounds.Valid() {
		return rs, nil
	}

	res := a.Directory.Discover(ctx, []domain.BoundingBox{route.Bounds})
	if res.Failed() {
		return rs, fmt.Errorf("discover along %q: %w", route.Summary, res.Errors[0])
	}
	if len(res.Chargers) > 0 {
		rs.Chargers = res.Chargers
	}
	activity.GetLogger(ctx).Info("Route surveyed", "summary", route.Summary, "chargers", len(rs.Chargers))
	return rs, nil
}

// PublishSurvey hands the finished survey to the publisher, if any.
func (a *SurveyActivities) PublishSurvey(ctx context.Context, survey domain.CorridorSurvey) error {
	if a.Publisher == nil {
		activity.GetLogger(ctx).Info("Survey complete (no publisher)", "id", survey.ID, "chargers", survey.TotalChargers())
		return nil
	}
	if err := a.Publisher.PublishSurvey(ctx, survey); err != nil {
		return fmt.Errorf("publish survey %s: %w", survey.ID, err)
	}
	return nil
}
