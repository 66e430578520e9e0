// Package bolt queries the remote charger service for available chargers.
package bolt

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

// Options configures the client. Zero clustering values are not sent.
type Options struct {
	BaseURL   string
	AppToken  string
	AuthToken string
	Timeout   time.Duration
	Zoom      int
	MinZoom   int
	MaxZoom   int
	Radius    float64
}

// Client implements ports.ChargerDirectory against /charger/getAvailable.
type Client struct {
	opts Options
	http *httpclient.Client
}

// New creates a Client.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &Client{opts: opts, http: httpclient.New(opts.Timeout)}
}

type availableResponse struct {
	Data []struct {
		Charger struct {
			ChargerID string `json:"chargerId"`
		} `json:"charger"`
		Station struct {
			Location struct {
				Latitude  *float64 `json:"latitude"`
				Longitude *float64 `json:"longitude"`
			} `json:"location"`
		} `json:"station"`
	} `json:"data"`
}

func (c *Client) query(box domain.BoundingBox) url.Values {
	q := url.Values{}
	q.Set("lat_top", formatCoord(box.MaxLat))
	q.Set("lat_bottom", formatCoord(box.MinLat))
	q.Set("lng_left", formatCoord(box.MinLng))
	q.Set("lng_right", formatCoord(box.MaxLng))
	if c.opts.Zoom > 0 {
		q.Set("zoom", strconv.Itoa(c.opts.Zoom))
	}
	if c.opts.MinZoom > 0 {
		q.Set("minZoom", strconv.Itoa(c.opts.MinZoom))
	}
	if c.opts.MaxZoom > 0 {
		q.Set("maxZoom", strconv.Itoa(c.opts.MaxZoom))
	}
	if c.opts.Radius > 0 {
		q.Set("radius", strconv.FormatFloat(c.opts.Radius, 'f', -1, 64))
	}
	return q
}

// QueryAvailable returns the chargers inside box.
func (c *Client) QueryAvailable(ctx context.Context, box domain.BoundingBox) ([]domain.Charger, error) {
	if !box.Valid() {
		return nil, fmt.Errorf("%w: invalid box %s", domain.ErrServiceError, box)
	}
	endpoint := c.opts.BaseURL + "/charger/getAvailable?" + c.query(box).Encode()

	resp, err := c.http.Do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("token", c.opts.AppToken)
		req.Header.Set("Authorization", "Bearer "+c.opts.AuthToken)
		return req, nil
	})
	if err != nil {
		return nil, classify(err)
	}
	defer resp.Body.Close()

	var decoded availableResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: decode chargers: %v", domain.ErrServiceError, err)
	}

	chargers := make([]domain.Charger, 0, len(decoded.Data))
	for i, d := range decoded.Data {
		loc := d.Station.Location
		if loc.Latitude == nil || loc.Longitude == nil {
			return nil, fmt.Errorf("%w: charger %d has no location", domain.ErrServiceError, i)
		}
		chargers = append(chargers, domain.Charger{
			ID:       d.Charger.ChargerID,
			Position: domain.GeoPoint{Lat: *loc.Latitude, Lng: *loc.Longitude},
		})
	}
	return chargers, nil
}

func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}
	var ue *url.Error
	if errors.As(err, &ue) && ue.Timeout() {
		return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}
	return fmt.Errorf("%w: charger query: %v", domain.ErrServiceError, err)
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
