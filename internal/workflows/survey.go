package workflows

import (
	"errors"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/voltrip/internal/core/domain"
)

// Activity names as registered from SurveyActivities.
const (
	computeRoutesActivity      = "ComputeRoutes"
	discoverAlongRouteActivity = "DiscoverAlongRoute"
	publishSurveyActivity      = "PublishSurvey"
)

// CorridorSurveyWorkflow routes an origin/destination pair with alternatives,
// discovers chargers inside the bounds of every candidate route, and
// publishes the summary.
func CorridorSurveyWorkflow(ctx workflow.Context, req domain.SurveyRequest) (domain.CorridorSurvey, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting corridor survey", "origin", req.OriginPlaceID, "destination", req.DestinationPlaceID)

	if req.OriginPlaceID == "" || req.DestinationPlaceID == "" {
		return domain.CorridorSurvey{}, temporal.NewNonRetryableApplicationError(
			domain.ErrMissingEndpoint.Error(), "missing_endpoint", nil)
	}

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: time.Second,
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	// Step 1: candidate routes
	var routes []domain.Route
	if err := workflow.ExecuteActivity(ctx, computeRoutesActivity, req).Get(ctx, &routes); err != nil {
		return domain.CorridorSurvey{}, err
	}

	// Step 2: discovery per route, in parallel
	futures := make([]workflow.Future, len(routes))
	for i, r := range routes {
		futures[i] = workflow.ExecuteActivity(ctx, discoverAlongRouteActivity, r)
	}

	survey := domain.CorridorSurvey{
		ID:                 workflow.GetInfo(ctx).WorkflowExecution.ID,
		OriginPlaceID:      req.OriginPlaceID,
		DestinationPlaceID: req.DestinationPlaceID,
		Routes:             make([]domain.RouteSurvey, 0, len(routes)),
	}
	var failed int
	for i, f := range futures {
		var rs domain.RouteSurvey
		if err := f.Get(ctx, &rs); err != nil {
			logger.Warn("route discovery failed", "route", i, "error", err)
			failed++
			continue
		}
		survey.Routes = append(survey.Routes, rs)
	}
	if len(routes) > 0 && failed == len(routes) {
		return domain.CorridorSurvey{}, errors.New("charger discovery failed for every route")
	}
	survey.CompletedAt = workflow.Now(ctx)

	// Step 3: publish. The survey is still returned if this fails.
	if err := workflow.ExecuteActivity(ctx, publishSurveyActivity, survey).Get(ctx, nil); err != nil {
		logger.Warn("publishing survey failed", "error", err)
	}

	logger.Info("Corridor survey complete", "routes", len(survey.Routes), "chargers", survey.TotalChargers())
	return survey, nil
}
