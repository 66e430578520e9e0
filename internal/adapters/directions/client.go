// Package directions computes driving routes with the Google Directions JSON API.
package directions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/samirrijal/voltrip/internal/core/domain"
	"github.com/samirrijal/voltrip/internal/pkg/httpclient"
)

// Client implements ports.RouteProvider.
type Client struct {
	baseURL string
	apiKey  string
	http    *httpclient.Client
}

// New creates a Client. baseURL is the full JSON endpoint.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{baseURL: baseURL, apiKey: apiKey, http: httpclient.New(timeout)}
}

type latLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (l latLng) point() domain.GeoPoint { return domain.GeoPoint{Lat: l.Lat, Lng: l.Lng} }

type valueText struct {
	Value float64 `json:"value"`
	Text  string  `json:"text"`
}

type directionsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Routes       []struct {
		Summary string `json:"summary"`
		Bounds  struct {
			Northeast latLng `json:"northeast"`
			Southwest latLng `json:"southwest"`
		} `json:"bounds"`
		WaypointOrder []int `json:"waypoint_order"`
		Legs          []struct {
			StartAddress  string    `json:"start_address"`
			EndAddress    string    `json:"end_address"`
			StartLocation latLng    `json:"start_location"`
			EndLocation   latLng    `json:"end_location"`
			Distance      valueText `json:"distance"`
			Duration      valueText `json:"duration"`
			Steps         []struct {
				StartLocation latLng    `json:"start_location"`
				EndLocation   latLng    `json:"end_location"`
				Distance      valueText `json:"distance"`
			} `json:"steps"`
		} `json:"legs"`
	} `json:"routes"`
}

// Params encodes the query for req.
func (c *Client) Params(req domain.RouteRequest) url.Values {
	q := url.Values{}
	q.Set("origin", "place_id:"+req.OriginPlaceID)
	q.Set("destination", "place_id:"+req.DestinationPlaceID)
	q.Set("mode", "driving")
	if req.Alternatives {
		q.Set("alternatives", "true")
	}
	if len(req.Waypoints) > 0 {
		parts := make([]string, 0, len(req.Waypoints)+1)
		if req.OptimizeWaypoints {
			parts = append(parts, "optimize:true")
		}
		for _, w := range req.Waypoints {
			loc := formatCoord(w.Position.Lat) + "," + formatCoord(w.Position.Lng)
			if !w.Stopover {
				loc = "via:" + loc
			}
			parts = append(parts, loc)
		}
		q.Set("waypoints", strings.Join(parts, "|"))
	}
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}
	return q
}

// Route requests routes for req. A non-OK status yields *domain.RouteFailedError.
func (c *Client) Route(ctx context.Context, req domain.RouteRequest) ([]domain.Route, error) {
	if len(req.Waypoints) > domain.MaxWaypoints {
		return nil, domain.ErrCapacityExceeded
	}
	endpoint := c.baseURL + "?" + c.Params(req).Encode()

	resp, err := c.http.Do(ctx, func() (*http.Request, error) {
		r, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		r.Header.Set("Accept", "application/json")
		return r, nil
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: directions: %v", domain.ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: directions: %v", domain.ErrServiceError, err)
	}
	defer resp.Body.Close()

	var decoded directionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: decode directions: %v", domain.ErrServiceError, err)
	}
	if decoded.Status != "OK" {
		return nil, &domain.RouteFailedError{Status: decoded.Status, Message: decoded.ErrorMessage}
	}

	routes := make([]domain.Route, 0, len(decoded.Routes))
	for _, r := range decoded.Routes {
		route := domain.Route{
			Summary:       r.Summary,
			Bounds:        domain.BoundsFrom(r.Bounds.Southwest.point(), r.Bounds.Northeast.point()),
			WaypointOrder: r.WaypointOrder,
		}
		for _, l := range r.Legs {
			leg := domain.RouteLeg{
				StartAddress:    l.StartAddress,
				EndAddress:      l.EndAddress,
				Start:           l.StartLocation.point(),
				End:             l.EndLocation.point(),
				DistanceMeters:  l.Distance.Value,
				DurationSeconds: l.Duration.Value,
				Steps:           make([]domain.RouteLegStep, 0, len(l.Steps)),
			}
			for _, s := range l.Steps {
				leg.Steps = append(leg.Steps, domain.RouteLegStep{
					Start:          s.StartLocation.point(),
					End:            s.EndLocation.point(),
					DistanceMeters: s.Distance.Value,
				})
			}
			route.Legs = append(route.Legs, leg)
		}
		routes = append(routes, route)
	}
	return routes, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
