package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/voltrip/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to the session registry.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lng": &graphql.Field{Type: graphql.Float},
		},
	})

	boundsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "BoundingBox",
		Fields: graphql.Fields{
			"min_lat": &graphql.Field{Type: graphql.Float},
			"max_lat": &graphql.Field{Type: graphql.Float},
			"min_lng": &graphql.Field{Type: graphql.Float},
			"max_lng": &graphql.Field{Type: graphql.Float},
		},
	})

	chargerType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Charger",
		Fields: graphql.Fields{
			"id":       &graphql.Field{Type: graphql.String},
			"position": &graphql.Field{Type: geoPointType},
		},
	})

	waypointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Waypoint",
		Fields: graphql.Fields{
			"charger_id": &graphql.Field{Type: graphql.String},
			"position":   &graphql.Field{Type: geoPointType},
			"stopover":   &graphql.Field{Type: graphql.Boolean},
		},
	})

	legType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RouteLeg",
		Fields: graphql.Fields{
			"start_address":    &graphql.Field{Type: graphql.String},
			"end_address":      &graphql.Field{Type: graphql.String},
			"start":            &graphql.Field{Type: geoPointType},
			"end":              &graphql.Field{Type: geoPointType},
			"distance_meters":  &graphql.Field{Type: graphql.Float},
			"duration_seconds": &graphql.Field{Type: graphql.Float},
		},
	})

	routeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Route",
		Fields: graphql.Fields{
			"summary":        &graphql.Field{Type: graphql.String},
			"bounds":         &graphql.Field{Type: boundsType},
			"legs":           &graphql.Field{Type: graphql.NewList(legType)},
			"waypoint_order": &graphql.Field{Type: graphql.NewList(graphql.Int)},
			"distance_meters": &graphql.Field{
				Type: graphql.Float,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(domain.Route).DistanceMeters(), nil
				},
			},
			"duration_seconds": &graphql.Field{
				Type: graphql.Float,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(domain.Route).DurationSeconds(), nil
				},
			},
		},
	})

	noticeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Notice",
		Fields: graphql.Fields{
			"kind":    &graphql.Field{Type: graphql.String},
			"message": &graphql.Field{Type: graphql.String},
			"at":      &graphql.Field{Type: graphql.DateTime},
		},
	})

	sessionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Session",
		Fields: graphql.Fields{
			"id":                   &graphql.Field{Type: graphql.String},
			"origin_place_id":      &graphql.Field{Type: graphql.String},
			"destination_place_id": &graphql.Field{Type: graphql.String},
			"waypoints":            &graphql.Field{Type: graphql.NewList(waypointType)},
			"available":            &graphql.Field{Type: graphql.NewList(chargerType)},
			"selected":             &graphql.Field{Type: graphql.NewList(chargerType)},
			"routes":               &graphql.Field{Type: graphql.NewList(routeType)},
			"notices":              &graphql.Field{Type: graphql.NewList(noticeType)},
			"updated_at":           &graphql.Field{Type: graphql.DateTime},
		},
	})

	toggleType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ToggleResult",
		Fields: graphql.Fields{
			"charger": &graphql.Field{Type: chargerType},
			"from":    &graphql.Field{Type: graphql.String},
			"to":      &graphql.Field{Type: graphql.String},
			"session": &graphql.Field{Type: sessionType},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"session": &graphql.Field{
				Type:        sessionType,
				Description: "Current state of a trip session",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					s, err := deps.Sessions.Get(p.Args["id"].(string))
					if err != nil {
						return nil, err
					}
					return s.Snapshot(), nil
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"toggle": &graphql.Field{
				Type:        toggleType,
				Description: "Select or deselect the charger at a position",
				Args: graphql.FieldConfigArgument{
					"session": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"lat":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lng":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					s, err := deps.Sessions.Get(p.Args["session"].(string))
					if err != nil {
						return nil, err
					}
					pos := domain.GeoPoint{Lat: p.Args["lat"].(float64), Lng: p.Args["lng"].(float64)}
					tr, err := s.Toggle(p.Context, pos)
					if err != nil && !isRoutingError(err) {
						return nil, err
					}
					return map[string]interface{}{
						"charger": tr.Charger,
						"from":    string(tr.From),
						"to":      string(tr.To),
						"session": s.Snapshot(),
					}, nil
				},
			},
			"route": &graphql.Field{
				Type:        sessionType,
				Description: "Recompute the routes of a session",
				Args: graphql.FieldConfigArgument{
					"session":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"discover": &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: true},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					s, err := deps.Sessions.Get(p.Args["session"].(string))
					if err != nil {
						return nil, err
					}
					if err := s.Route(p.Context, p.Args["discover"].(bool)); err != nil {
						return nil, err
					}
					return s.Snapshot(), nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// A broken schema is a programming error.
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Query == "" {
			return errBadRequest(c, "query is required")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})
		if len(result.Errors) > 0 {
			LoggerFromCtx(c.UserContext()).Debug("graphql request returned errors", "count", len(result.Errors))
		}

		return c.JSON(result)
	}
}
