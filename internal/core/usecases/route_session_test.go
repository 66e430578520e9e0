package usecases_test

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/samirrijal/voltrip/internal/core/domain"
	"github.com/samirrijal/voltrip/internal/core/usecases"
)

func testConfig() usecases.SessionConfig {
	return usecases.SessionConfig{
		Scanner:      usecases.NewScanner(20, 1, 0),
		Coverage:     usecases.CoverFirstLeg,
		RouteTimeout: time.Second,
		MaxWaypoints: domain.MaxWaypoints,
	}
}

func newTestSession(p *mockProvider, d *mockDirectory, pres *recordingPresenter, cfg usecases.SessionConfig) *usecases.RouteSession {
	dir := usecases.NewDirectoryService(d, nil, 0, time.Second)
	return usecases.NewRouteSession("trip-1", p, dir, pres, cfg)
}

func startTrip(t *testing.T, s *usecases.RouteSession) {
	t.Helper()
	ctx := context.Background()
	if err := s.SetOrigin(ctx, "place-origin"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.SetDestination(ctx, "place-destination"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRouteSession_RouteWithoutWaypoints(t *testing.T) {
	routes := []domain.Route{straightRoute(), straightRoute(30, 30)}
	routes[1].Summary = "SH17"
	p := &mockProvider{
		routeFn: func(ctx context.Context, n int, req domain.RouteRequest) ([]domain.Route, error) {
			return routes, nil
		},
	}
	pres := &recordingPresenter{}
	s := newTestSession(p, &mockDirectory{}, pres, testConfig())

	startTrip(t, s)

	if p.callCount() != 1 {
		t.Fatalf("expected 1 provider request, got %d", p.callCount())
	}
	req := p.lastCall()
	if len(req.Waypoints) != 0 {
		t.Errorf("expected no waypoints, got %d", len(req.Waypoints))
	}
	if !req.OptimizeWaypoints || !req.Alternatives {
		t.Errorf("expected optimize and alternatives, got %+v", req)
	}
	if req.OriginPlaceID != "place-origin" || req.DestinationPlaceID != "place-destination" {
		t.Errorf("unexpected endpoints %q -> %q", req.OriginPlaceID, req.DestinationPlaceID)
	}
	if len(pres.routes) != 1 || !reflect.DeepEqual(pres.routes[0], routes) {
		t.Errorf("expected routes published unmodified, got %v", pres.routes)
	}
	if !reflect.DeepEqual(s.Snapshot().Routes, routes) {
		t.Error("expected snapshot to hold provider routes in order")
	}
}

func TestRouteSession_MissingEndpoint(t *testing.T) {
	p := &mockProvider{}
	pres := &recordingPresenter{}
	s := newTestSession(p, &mockDirectory{}, pres, testConfig())

	if err := s.SetOrigin(context.Background(), "place-origin"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := s.Route(context.Background(), true)
	if !errors.Is(err, domain.ErrMissingEndpoint) {
		t.Fatalf("expected ErrMissingEndpoint, got %v", err)
	}
	if p.callCount() != 0 {
		t.Errorf("expected no provider calls, got %d", p.callCount())
	}
	if !pres.hasNotice(domain.NoticeMissingEndpoint) {
		t.Errorf("expected missing endpoint notice, got %v", pres.noticeKinds())
	}
}

func TestRouteSession_DiscoversAlongRoute(t *testing.T) {
	found := chargersAround(3)
	d := &mockDirectory{
		queryFn: func(ctx context.Context, n int, box domain.BoundingBox) ([]domain.Charger, error) {
			return found, nil
		},
	}
	pres := &recordingPresenter{}
	s := newTestSession(&mockProvider{}, d, pres, testConfig())

	startTrip(t, s)

	if d.callCount() != 1 {
		t.Fatalf("expected 1 directory query, got %d", d.callCount())
	}
	st := steps(10, 10, 5)
	if want := domain.BoundsFrom(st[1].Start, st[1].End); d.boxes[0] != want {
		t.Errorf("expected box %s, got %s", want, d.boxes[0])
	}
	snap := s.Snapshot()
	if len(snap.Available) != 3 || len(snap.Selected) != 0 {
		t.Errorf("expected 3 available, got %d available %d selected", len(snap.Available), len(snap.Selected))
	}
	if len(pres.chargers) != 1 || len(pres.chargers[0]) != 3 {
		t.Errorf("expected one discovery publication of 3, got %v", pres.chargers)
	}
}

func TestRouteSession_ExploresAlternates(t *testing.T) {
	alt := straightRoute(5, 5)
	alt.Bounds = domain.BoundsFrom(pt(12, 77), pt(12.5, 77.5))
	p := &mockProvider{
		routeFn: func(ctx context.Context, n int, req domain.RouteRequest) ([]domain.Route, error) {
			return []domain.Route{straightRoute(), alt}, nil
		},
	}
	d := &mockDirectory{}
	cfg := testConfig()
	cfg.ExploreAlternates = true
	s := newTestSession(p, d, &recordingPresenter{}, cfg)

	startTrip(t, s)

	if d.callCount() != 2 {
		t.Fatalf("expected scan box plus alternate bounds, got %d queries", d.callCount())
	}
	if d.boxes[1] != alt.Bounds {
		t.Errorf("expected alternate bounds %s, got %s", alt.Bounds, d.boxes[1])
	}
	if got := s.DiscoveryBoxes([]domain.Route{straightRoute(), alt}); len(got) != 2 {
		t.Errorf("expected 2 discovery boxes, got %d", len(got))
	}
}

func TestRouteSession_EmptyDiscovery(t *testing.T) {
	pres := &recordingPresenter{}
	s := newTestSession(&mockProvider{}, &mockDirectory{}, pres, testConfig())

	startTrip(t, s)

	if !pres.hasNotice(domain.NoticeEmptyResult) {
		t.Errorf("expected empty result notice, got %v", pres.noticeKinds())
	}
	snap := s.Snapshot()
	if len(snap.Available) != 0 || len(snap.Waypoints) != 0 {
		t.Error("expected no state change on empty discovery")
	}
	if len(pres.chargers) != 0 {
		t.Errorf("expected no discovery publication, got %d", len(pres.chargers))
	}
}

func TestRouteSession_DiscoveryFailure(t *testing.T) {
	d := &mockDirectory{
		queryFn: func(ctx context.Context, n int, box domain.BoundingBox) ([]domain.Charger, error) {
			return nil, errors.New("503 service unavailable")
		},
	}
	pres := &recordingPresenter{}
	s := newTestSession(&mockProvider{}, d, pres, testConfig())

	startTrip(t, s)

	if !pres.hasNotice(domain.NoticeServiceError) {
		t.Errorf("expected service error notice, got %v", pres.noticeKinds())
	}
	if len(s.Snapshot().Routes) != 1 {
		t.Error("expected routes kept after discovery failure")
	}
}

func TestRouteSession_ToggleRoundTrip(t *testing.T) {
	found := chargersAround(3)
	d := &mockDirectory{
		queryFn: func(ctx context.Context, n int, box domain.BoundingBox) ([]domain.Charger, error) {
			return found, nil
		},
	}
	p := &mockProvider{}
	pres := &recordingPresenter{}
	s := newTestSession(p, d, pres, testConfig())
	startTrip(t, s)

	before := s.Snapshot()
	ctx := context.Background()

	tr, err := s.Toggle(ctx, found[1].Position)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.To != domain.ChargerSelected {
		t.Errorf("expected selected, got %s", tr.To)
	}
	if p.callCount() != 2 {
		t.Fatalf("expected reroute after toggle, got %d calls", p.callCount())
	}
	req := p.lastCall()
	if len(req.Waypoints) != 1 || !req.Waypoints[0].Position.Equal(found[1].Position) || !req.Waypoints[0].Stopover {
		t.Errorf("expected one stopover at the charger, got %+v", req.Waypoints)
	}

	if _, err := s.Toggle(ctx, found[1].Position); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	after := s.Snapshot()
	if !reflect.DeepEqual(before.Available, after.Available) || len(after.Waypoints) != 0 || len(after.Selected) != 0 {
		t.Errorf("expected state restored, got %+v", after)
	}
	if d.callCount() != 1 {
		t.Errorf("expected toggles not to trigger discovery, got %d queries", d.callCount())
	}
	if len(pres.waypoints) != 2 {
		t.Errorf("expected 2 waypoint publications, got %d", len(pres.waypoints))
	}
}

func TestRouteSession_CapacityExceeded(t *testing.T) {
	found := chargersAround(26)
	d := &mockDirectory{
		queryFn: func(ctx context.Context, n int, box domain.BoundingBox) ([]domain.Charger, error) {
			return found, nil
		},
	}
	p := &mockProvider{}
	pres := &recordingPresenter{}
	s := newTestSession(p, d, pres, testConfig())
	startTrip(t, s)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		if _, err := s.Toggle(ctx, found[i].Position); err != nil {
			t.Fatalf("toggle %d: unexpected error: %v", i, err)
		}
	}
	calls := p.callCount()

	_, err := s.Toggle(ctx, found[25].Position)
	if !errors.Is(err, domain.ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
	if p.callCount() != calls {
		t.Errorf("expected no reroute on rejected toggle, got %d calls", p.callCount())
	}
	snap := s.Snapshot()
	if len(snap.Waypoints) != 25 {
		t.Errorf("expected 25 waypoints, got %d", len(snap.Waypoints))
	}
	last := snap.Notices[len(snap.Notices)-1]
	if last.Kind != domain.NoticeCapacity || !strings.Contains(last.Message, "25") {
		t.Errorf("expected capacity notice, got %+v", last)
	}
}

func TestRouteSession_EndpointChangeClearsSelection(t *testing.T) {
	found := chargersAround(5)
	d := &mockDirectory{
		queryFn: func(ctx context.Context, n int, box domain.BoundingBox) ([]domain.Charger, error) {
			return found, nil
		},
	}
	pres := &recordingPresenter{}
	s := newTestSession(&mockProvider{}, d, pres, testConfig())
	startTrip(t, s)
	ctx := context.Background()

	for _, c := range found[:3] {
		if _, err := s.Toggle(ctx, c.Position); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if err := s.SetOrigin(ctx, "place-elsewhere"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap := s.Snapshot()
	if len(snap.Waypoints) != 0 || len(snap.Selected) != 0 {
		t.Errorf("expected selection cleared, got %d waypoints", len(snap.Waypoints))
	}
	if len(snap.Available) != 5 {
		t.Errorf("expected rediscovery to surface all 5 as available, got %d", len(snap.Available))
	}
	last := pres.waypoints[len(pres.waypoints)-1]
	if len(last) != 0 {
		t.Errorf("expected empty waypoint publication, got %v", last)
	}
}

func TestRouteSession_EndpointChangePublishesChargerReset(t *testing.T) {
	found := chargersAround(5)
	d := &mockDirectory{
		queryFn: func(ctx context.Context, n int, box domain.BoundingBox) ([]domain.Charger, error) {
			return found, nil
		},
	}
	pres := &recordingPresenter{}
	s := newTestSession(&mockProvider{}, d, pres, testConfig())
	startTrip(t, s)

	if err := s.SetDestination(context.Background(), "place-elsewhere"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(pres.chargers) != 3 {
		t.Fatalf("expected discovery, reset, rediscovery; got %d publications", len(pres.chargers))
	}
	if len(pres.chargers[0]) != 5 || len(pres.chargers[2]) != 5 {
		t.Errorf("expected 5 chargers per discovery, got %d and %d", len(pres.chargers[0]), len(pres.chargers[2]))
	}
	if pres.chargers[1] == nil || len(pres.chargers[1]) != 0 {
		t.Errorf("expected empty reset publication, got %v", pres.chargers[1])
	}
}

func TestRouteSession_EndpointChangeWithoutChargersSkipsReset(t *testing.T) {
	pres := &recordingPresenter{}
	s := newTestSession(&mockProvider{}, &mockDirectory{}, pres, testConfig())
	startTrip(t, s)

	if err := s.SetOrigin(context.Background(), "place-elsewhere"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pres.chargers) != 0 {
		t.Errorf("expected no charger publications, got %v", pres.chargers)
	}
}

func TestRouteSession_FailurePreservesRoutes(t *testing.T) {
	p := &mockProvider{
		routeFn: func(ctx context.Context, n int, req domain.RouteRequest) ([]domain.Route, error) {
			if n == 1 {
				return []domain.Route{straightRoute()}, nil
			}
			return nil, &domain.RouteFailedError{Status: "NOT_FOUND"}
		},
	}
	pres := &recordingPresenter{}
	s := newTestSession(p, &mockDirectory{}, pres, testConfig())
	startTrip(t, s)

	err := s.Route(context.Background(), false)
	if !errors.Is(err, domain.ErrRouteComputationFailed) {
		t.Fatalf("expected ErrRouteComputationFailed, got %v", err)
	}
	snap := s.Snapshot()
	if len(snap.Routes) != 1 {
		t.Errorf("expected previous routes kept, got %d", len(snap.Routes))
	}
	last := snap.Notices[len(snap.Notices)-1]
	if last.Kind != domain.NoticeRouteFailed || last.Message != "Directions request failed due to NOT_FOUND" {
		t.Errorf("unexpected notice %+v", last)
	}
}

func TestRouteSession_ZeroRoutes(t *testing.T) {
	p := &mockProvider{
		routeFn: func(ctx context.Context, n int, req domain.RouteRequest) ([]domain.Route, error) {
			return nil, nil
		},
	}
	s := newTestSession(p, &mockDirectory{}, &recordingPresenter{}, testConfig())

	ctx := context.Background()
	s.SetOrigin(ctx, "a")
	err := s.SetDestination(ctx, "b")
	var rf *domain.RouteFailedError
	if !errors.As(err, &rf) || rf.Status != "ZERO_RESULTS" {
		t.Errorf("expected ZERO_RESULTS, got %v", err)
	}
}

func TestRouteSession_Timeout(t *testing.T) {
	p := &mockProvider{
		routeFn: func(ctx context.Context, n int, req domain.RouteRequest) ([]domain.Route, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	pres := &recordingPresenter{}
	cfg := testConfig()
	cfg.RouteTimeout = 20 * time.Millisecond
	s := newTestSession(p, &mockDirectory{}, pres, cfg)

	ctx := context.Background()
	s.SetOrigin(ctx, "a")
	err := s.SetDestination(ctx, "b")
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if !pres.hasNotice(domain.NoticeServiceError) {
		t.Errorf("expected service error notice, got %v", pres.noticeKinds())
	}
}

func TestRouteSession_StaleRouteDiscarded(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	stale := []domain.Route{straightRoute()}
	stale[0].Summary = "stale"
	fresh := []domain.Route{straightRoute()}
	fresh[0].Summary = "fresh"

	p := &mockProvider{
		routeFn: func(ctx context.Context, n int, req domain.RouteRequest) ([]domain.Route, error) {
			switch n {
			case 1:
				return []domain.Route{straightRoute()}, nil
			case 2:
				close(started)
				<-release
				return stale, nil
			default:
				return fresh, nil
			}
		},
	}
	pres := &recordingPresenter{}
	s := newTestSession(p, &mockDirectory{}, pres, testConfig())
	startTrip(t, s)

	done := make(chan error, 1)
	go func() { done <- s.Route(context.Background(), false) }()
	<-started

	if err := s.Route(context.Background(), false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("expected stale response dropped silently, got %v", err)
	}

	if got := s.Snapshot().Routes[0].Summary; got != "fresh" {
		t.Errorf("expected fresh routes kept, got %q", got)
	}
	for _, r := range pres.routes {
		if r[0].Summary == "stale" {
			t.Error("stale routes were published")
		}
	}
}

func TestRouteSession_RoutesPublishedInOrder(t *testing.T) {
	first := []domain.Route{straightRoute()}
	first[0].Summary = "first"
	second := []domain.Route{straightRoute()}
	second[0].Summary = "second"

	p := &mockProvider{
		routeFn: func(ctx context.Context, n int, req domain.RouteRequest) ([]domain.Route, error) {
			switch n {
			case 2:
				return first, nil
			case 3:
				return second, nil
			default:
				return []domain.Route{straightRoute()}, nil
			}
		},
	}

	entered := make(chan struct{})
	release := make(chan struct{})
	var inFlight, maxInFlight atomic.Int32
	pres := &recordingPresenter{}
	pres.onRoutes = func(routes []domain.Route) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		if n > maxInFlight.Load() {
			maxInFlight.Store(n)
		}
		if routes[0].Summary == "first" {
			close(entered)
			<-release
		}
	}
	s := newTestSession(p, &mockDirectory{}, pres, testConfig())
	startTrip(t, s)

	firstDone := make(chan error, 1)
	go func() { firstDone <- s.Route(context.Background(), false) }()
	<-entered

	secondDone := make(chan error, 1)
	go func() { secondDone <- s.Route(context.Background(), false) }()

	select {
	case err := <-secondDone:
		t.Fatalf("newer routes published while older publish in progress (err=%v)", err)
	case <-time.After(50 * time.Millisecond):
	}
	close(release)

	for _, ch := range []chan error{firstDone, secondDone} {
		if err := <-ch; err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if got := maxInFlight.Load(); got != 1 {
		t.Errorf("expected publishes to be serialized, got %d concurrent", got)
	}
	last := pres.routes[len(pres.routes)-1]
	if last[0].Summary != "second" {
		t.Errorf("expected newest routes published last, got %q", last[0].Summary)
	}
	if got := s.Snapshot().Routes[0].Summary; got != "second" {
		t.Errorf("expected newest routes kept, got %q", got)
	}
}

func TestRouteSession_StaleDiscoveryDiscarded(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	old := domain.Charger{ID: "CH-old", Position: pt(10, 10)}
	current := domain.Charger{ID: "CH-new", Position: pt(11, 11)}

	d := &mockDirectory{
		queryFn: func(ctx context.Context, n int, box domain.BoundingBox) ([]domain.Charger, error) {
			if n == 1 {
				close(started)
				<-release
				return []domain.Charger{old}, nil
			}
			return []domain.Charger{current}, nil
		},
	}
	s := newTestSession(&mockProvider{}, d, &recordingPresenter{}, testConfig())
	ctx := context.Background()
	if err := s.SetOrigin(ctx, "a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- s.SetDestination(ctx, "b") }()
	<-started

	if err := s.SetOrigin(ctx, "c"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	avail := s.Snapshot().Available
	if len(avail) != 1 || avail[0].ID != "CH-new" {
		t.Errorf("expected only current discovery, got %v", avail)
	}
}
