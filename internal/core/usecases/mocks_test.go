package usecases_test

import (
	"context"
	"errors"
	"sync"

	"github.com/samirrijal/voltrip/internal/core/domain"
)

// --- Mock RouteProvider ---

type mockProvider struct {
	mu      sync.Mutex
	calls   []domain.RouteRequest
	routeFn func(ctx context.Context, n int, req domain.RouteRequest) ([]domain.Route, error)
}

func (m *mockProvider) Route(ctx context.Context, req domain.RouteRequest) ([]domain.Route, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	n := len(m.calls)
	m.mu.Unlock()

	if m.routeFn != nil {
		return m.routeFn(ctx, n, req)
	}
	return []domain.Route{straightRoute()}, nil
}

func (m *mockProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockProvider) lastCall() domain.RouteRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[len(m.calls)-1]
}

// --- Mock ChargerDirectory ---

type mockDirectory struct {
	mu      sync.Mutex
	boxes   []domain.BoundingBox
	queryFn func(ctx context.Context, n int, box domain.BoundingBox) ([]domain.Charger, error)
}

func (m *mockDirectory) QueryAvailable(ctx context.Context, box domain.BoundingBox) ([]domain.Charger, error) {
	m.mu.Lock()
	m.boxes = append(m.boxes, box)
	n := len(m.boxes)
	m.mu.Unlock()

	if m.queryFn != nil {
		return m.queryFn(ctx, n, box)
	}
	return nil, nil
}

func (m *mockDirectory) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.boxes)
}

// --- Mock CacheService ---

type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newMockCache() *mockCache { return &mockCache{data: map[string][]byte{}} }

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, errors.New("cache miss")
	}
	return v, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttl int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.sets++
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// --- Recording Presenter ---

type recordingPresenter struct {
	mu        sync.Mutex
	routes    [][]domain.Route
	chargers  [][]domain.Charger
	waypoints [][]domain.Waypoint
	notices   []domain.Notice

	// onRoutes runs before routes are recorded, outside mu.
	onRoutes func(routes []domain.Route)
}

func (p *recordingPresenter) RoutesComputed(ctx context.Context, id string, routes []domain.Route) {
	if p.onRoutes != nil {
		p.onRoutes(routes)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.routes = append(p.routes, routes)
}

func (p *recordingPresenter) ChargersDiscovered(ctx context.Context, id string, chargers []domain.Charger) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chargers = append(p.chargers, chargers)
}

func (p *recordingPresenter) WaypointsChanged(ctx context.Context, id string, waypoints []domain.Waypoint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.waypoints = append(p.waypoints, waypoints)
}

func (p *recordingPresenter) UserNotice(ctx context.Context, id string, n domain.Notice) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notices = append(p.notices, n)
}

func (p *recordingPresenter) noticeKinds() []domain.NoticeKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	kinds := make([]domain.NoticeKind, 0, len(p.notices))
	for _, n := range p.notices {
		kinds = append(kinds, n.Kind)
	}
	return kinds
}

func (p *recordingPresenter) hasNotice(kind domain.NoticeKind) bool {
	for _, k := range p.noticeKinds() {
		if k == kind {
			return true
		}
	}
	return false
}

// --- Fixtures ---

func pt(lat, lng float64) domain.GeoPoint { return domain.GeoPoint{Lat: lat, Lng: lng} }

// steps builds a chain of steps heading north with the given lengths.
func steps(lengths ...float64) []domain.RouteLegStep {
	out := make([]domain.RouteLegStep, 0, len(lengths))
	lat := 13.0
	for _, l := range lengths {
		next := lat + l/111195
		out = append(out, domain.RouteLegStep{
			Start:          pt(lat, 77.6),
			End:            pt(next, 77.6),
			DistanceMeters: l,
		})
		lat = next
	}
	return out
}

func straightRoute(lengths ...float64) domain.Route {
	if len(lengths) == 0 {
		lengths = []float64{10, 10, 5}
	}
	s := steps(lengths...)
	return domain.Route{
		Summary: "NH44",
		Legs:    []domain.RouteLeg{{Steps: s, DistanceMeters: 25, Start: s[0].Start, End: s[len(s)-1].End}},
		Bounds:  domain.BoundsFrom(s[0].Start, s[len(s)-1].End),
	}
}

func chargersAround(n int) []domain.Charger {
	out := make([]domain.Charger, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.Charger{
			ID:       "CH-" + string(rune('A'+i%26)) + string(rune('a'+i/26)),
			Position: pt(13.0+float64(i)*0.001, 77.6+float64(i)*0.001),
		})
	}
	return out
}
