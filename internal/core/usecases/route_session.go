package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/voltrip/internal/core/domain"
	"github.com/samirrijal/voltrip/internal/core/ports"
	"github.com/samirrijal/voltrip/internal/pkg/metrics"
)

const maxNotices = 20

var tracer = otel.Tracer("github.com/samirrijal/voltrip/internal/core/usecases")

// SessionConfig tunes routing and discovery for a session.
type SessionConfig struct {
	Scanner           Scanner
	Coverage          LegCoverage
	ExploreAlternates bool
	RouteTimeout      time.Duration
	MaxWaypoints      int
}

// DefaultSessionConfig mirrors the configuration defaults.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Scanner:           NewScanner(20000, 1, 0),
		Coverage:          CoverFirstLeg,
		ExploreAlternates: true,
		RouteTimeout:      10 * time.Second,
		MaxWaypoints:      domain.MaxWaypoints,
	}
}

// RouteSession is the single owner of one trip's state: its endpoints, the
// charger toggle state, and the last routes computed. It is the only component
// that calls the RouteProvider.
//
// Every Route call takes a sequence number; a provider response that is not
// for the latest number is dropped. Discovery results are tagged with the
// endpoint epoch and dropped once the endpoints have changed.
type RouteSession struct {
	id        string
	provider  ports.RouteProvider
	directory *DirectoryService
	presenter ports.Presenter
	cfg       SessionConfig
	log       *slog.Logger
	now       func() time.Time

	// pubMu orders RoutesComputed calls so an older result is never
	// published after a newer one.
	pubMu sync.Mutex

	mu          sync.Mutex
	origin      string
	destination string
	toggles     *ToggleState
	routes      []domain.Route
	seq         uint64
	epoch       uint64
	notices     []domain.Notice
	updatedAt   time.Time
}

// NewRouteSession creates a new RouteSession. presenter may be nil.
func NewRouteSession(
	id string,
	provider ports.RouteProvider,
	directory *DirectoryService,
	presenter ports.Presenter,
	cfg SessionConfig,
) *RouteSession {
	if presenter == nil {
		presenter = NopPresenter{}
	}
	if cfg.RouteTimeout <= 0 {
		cfg.RouteTimeout = 10 * time.Second
	}
	return &RouteSession{
		id:        id,
		provider:  provider,
		directory: directory,
		presenter: presenter,
		cfg:       cfg,
		log:       slog.Default().With("session_id", id),
		now:       time.Now,
		toggles:   NewToggleState(cfg.MaxWaypoints),
		updatedAt: time.Now(),
	}
}

// ID returns the session id.
func (s *RouteSession) ID() string { return s.id }

// SetOrigin replaces the origin, clears waypoints and chargers, and reroutes
// with discovery once both endpoints are known.
func (s *RouteSession) SetOrigin(ctx context.Context, placeID string) error {
	return s.setEndpoint(ctx, func() { s.origin = placeID })
}

// SetDestination replaces the destination. See SetOrigin.
func (s *RouteSession) SetDestination(ctx context.Context, placeID string) error {
	return s.setEndpoint(ctx, func() { s.destination = placeID })
}

func (s *RouteSession) setEndpoint(ctx context.Context, apply func()) error {
	s.mu.Lock()
	apply()
	s.epoch++
	// Routes in flight were computed for the old endpoints.
	s.seq++
	hadWaypoints := len(s.toggles.Waypoints()) > 0
	hadChargers := len(s.toggles.Available())+len(s.toggles.Selected()) > 0
	dropped := s.toggles.Reset()
	s.routes = nil
	s.updatedAt = s.now()
	ready := s.origin != "" && s.destination != ""
	s.mu.Unlock()

	if len(dropped) > 0 {
		s.log.Info("endpoint change cleared waypoints", "dropped", len(dropped))
	}
	if hadWaypoints {
		s.presenter.WaypointsChanged(ctx, s.id, []domain.Waypoint{})
	}
	if hadChargers {
		s.presenter.ChargersDiscovered(ctx, s.id, []domain.Charger{})
	}
	if !ready {
		return nil
	}
	return s.Route(ctx, true)
}

// Route asks the provider for routes through the current waypoints and
// publishes them. With discover set, chargers along the result are looked up
// afterwards. Failures are published as notices and leave prior state intact.
func (s *RouteSession) Route(ctx context.Context, discover bool) (err error) {
	ctx, span := tracer.Start(ctx, "RouteSession.Route")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	span.SetAttributes(attribute.String("session.id", s.id), attribute.Bool("route.discover", discover))

	s.mu.Lock()
	if s.origin == "" || s.destination == "" {
		n := s.recordLocked(domain.NoticeMissingEndpoint, "Please select an origin and a destination")
		s.mu.Unlock()
		s.presenter.UserNotice(ctx, s.id, n)
		return domain.ErrMissingEndpoint
	}
	s.seq++
	seq, epoch := s.seq, s.epoch
	req := domain.RouteRequest{
		OriginPlaceID:      s.origin,
		DestinationPlaceID: s.destination,
		Waypoints:          s.toggles.Waypoints(),
		OptimizeWaypoints:  true,
		Alternatives:       true,
	}
	s.mu.Unlock()

	span.SetAttributes(attribute.Int64("route.seq", int64(seq)), attribute.Int("route.waypoints", len(req.Waypoints)))

	rctx, cancel := context.WithTimeout(ctx, s.cfg.RouteTimeout)
	start := time.Now()
	routes, err := s.provider.Route(rctx, req)
	cancel()
	metrics.RouteLatency.Observe(time.Since(start).Seconds())

	if err == nil && len(routes) == 0 {
		err = &domain.RouteFailedError{Status: "ZERO_RESULTS"}
	}

	s.mu.Lock()
	if seq != s.seq {
		s.mu.Unlock()
		metrics.StaleResponses.WithLabelValues("route").Inc()
		s.log.Debug("discarding stale route response", "seq", seq)
		return nil
	}
	if err != nil {
		err = classifyExternal(err)
		n := s.recordLocked(routeFailureKind(err), routeFailureMessage(err))
		s.mu.Unlock()
		metrics.RouteRequests.WithLabelValues("error").Inc()
		s.log.Warn("route request failed", "seq", seq, "error", err)
		s.presenter.UserNotice(ctx, s.id, n)
		return err
	}
	s.routes = routes
	s.updatedAt = s.now()
	s.mu.Unlock()

	metrics.RouteRequests.WithLabelValues("ok").Inc()
	if !s.publishRoutes(ctx, seq, routes) {
		metrics.StaleResponses.WithLabelValues("route").Inc()
		s.log.Debug("discarding route superseded before publish", "seq", seq)
		return nil
	}

	if discover {
		s.discover(ctx, epoch, routes)
	}
	return nil
}

// publishRoutes hands routes to the presenter unless a newer Route call has
// started since seq was taken.
func (s *RouteSession) publishRoutes(ctx context.Context, seq uint64, routes []domain.Route) bool {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	s.mu.Lock()
	latest := seq == s.seq
	s.mu.Unlock()
	if !latest {
		return false
	}
	s.presenter.RoutesComputed(ctx, s.id, routes)
	return true
}

// Toggle flips the charger at pos between available and selected and then
// reroutes without discovery.
func (s *RouteSession) Toggle(ctx context.Context, pos domain.GeoPoint) (Transition, error) {
	s.mu.Lock()
	tr, err := s.toggles.Toggle(pos)
	if err != nil {
		var n domain.Notice
		if errors.Is(err, domain.ErrCapacityExceeded) {
			n = s.recordLocked(domain.NoticeCapacity, fmt.Sprintf("Max limit of %d waypoints reached", s.toggles.maxSelected))
		} else {
			n = s.recordLocked(domain.NoticeUnknownCharger, "No charger known at "+pos.Key())
		}
		s.mu.Unlock()
		s.presenter.UserNotice(ctx, s.id, n)
		return tr, err
	}
	waypoints := s.toggles.Waypoints()
	s.updatedAt = s.now()
	s.mu.Unlock()

	metrics.Toggles.WithLabelValues(string(tr.To)).Inc()
	s.presenter.WaypointsChanged(ctx, s.id, waypoints)

	return tr, s.Route(ctx, false)
}

// Snapshot returns a copy of the session state.
func (s *RouteSession) Snapshot() domain.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	routes := make([]domain.Route, len(s.routes))
	copy(routes, s.routes)
	notices := make([]domain.Notice, len(s.notices))
	copy(notices, s.notices)

	return domain.SessionSnapshot{
		ID:                 s.id,
		OriginPlaceID:      s.origin,
		DestinationPlaceID: s.destination,
		Waypoints:          s.toggles.Waypoints(),
		Available:          s.toggles.Available(),
		Selected:           s.toggles.Selected(),
		Routes:             routes,
		Notices:            notices,
		RouteSeq:           s.seq,
		UpdatedAt:          s.updatedAt,
	}
}

// Notices returns the most recent notices, oldest first.
func (s *RouteSession) Notices() []domain.Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Notice, len(s.notices))
	copy(out, s.notices)
	return out
}

// DiscoveryBoxes returns the boxes the discovery policy queries for routes:
// scan boxes along the primary route, then the bounds of each alternate.
func (s *RouteSession) DiscoveryBoxes(routes []domain.Route) []domain.BoundingBox {
	return discoveryBoxes(s.cfg, routes)
}

func discoveryBoxes(cfg SessionConfig, routes []domain.Route) []domain.BoundingBox {
	if len(routes) == 0 {
		return nil
	}
	var boxes []domain.BoundingBox
	cfg.Scanner.ScanRoute(routes[0], cfg.Coverage, func(b domain.BoundingBox) {
		boxes = append(boxes, b)
	})
	if cfg.ExploreAlternates {
		for _, r := range routes[1:] {
			if r.Bounds.Valid() {
				boxes = append(boxes, r.Bounds)
			}
		}
	}
	return boxes
}

func (s *RouteSession) discover(ctx context.Context, epoch uint64, routes []domain.Route) {
	ctx, span := tracer.Start(ctx, "RouteSession.discover")
	defer span.End()

	boxes := discoveryBoxes(s.cfg, routes)
	span.SetAttributes(attribute.Int("discovery.boxes", len(boxes)))
	if len(boxes) == 0 || s.directory == nil {
		return
	}

	res := s.directory.Discover(ctx, boxes)
	for _, err := range res.Errors {
		s.log.Warn("charger discovery failed", "error", err)
	}

	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		metrics.StaleResponses.WithLabelValues("discovery").Inc()
		return
	}
	var notices []domain.Notice
	if len(res.Errors) > 0 {
		notices = append(notices, s.recordLocked(domain.NoticeServiceError,
			fmt.Sprintf("Charger lookup failed for %d of %d areas", len(res.Errors), res.Queried)))
	} else if res.Empty() {
		notices = append(notices, s.recordLocked(domain.NoticeEmptyResult, "No chargers found near this route"))
	}
	added := s.toggles.AddAvailable(res.Chargers)
	if len(added) > 0 {
		s.updatedAt = s.now()
	}
	s.mu.Unlock()

	metrics.ChargersDiscovered.Add(float64(len(added)))
	for _, n := range notices {
		s.presenter.UserNotice(ctx, s.id, n)
	}
	if len(added) > 0 {
		s.presenter.ChargersDiscovered(ctx, s.id, added)
	}
}

func (s *RouteSession) recordLocked(kind domain.NoticeKind, msg string) domain.Notice {
	n := domain.Notice{Kind: kind, Message: msg, At: s.now()}
	s.notices = append(s.notices, n)
	if len(s.notices) > maxNotices {
		s.notices = s.notices[len(s.notices)-maxNotices:]
	}
	return n
}

func routeFailureKind(err error) domain.NoticeKind {
	if errors.Is(err, domain.ErrRouteComputationFailed) {
		return domain.NoticeRouteFailed
	}
	return domain.NoticeServiceError
}

func routeFailureMessage(err error) string {
	var rf *domain.RouteFailedError
	if errors.As(err, &rf) {
		return "Directions request failed due to " + rf.Status
	}
	if errors.Is(err, domain.ErrTimeout) {
		return "Directions request timed out"
	}
	return "Directions request failed: " + err.Error()
}
