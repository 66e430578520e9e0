//go:build integration
// +build integration

package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/samirrijal/voltrip/internal/adapters/http"
	"github.com/samirrijal/voltrip/internal/adapters/postgres"
	"github.com/samirrijal/voltrip/internal/core/domain"
	"github.com/samirrijal/voltrip/internal/core/usecases"
	"github.com/samirrijal/voltrip/internal/pkg/config"
)

// setupTestDB connects to the test database and removes seeded rows afterwards.
func setupTestDB(t *testing.T) *postgres.DB {
	cfg, err := config.Load("voltrip-test")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(func() {
		db.Pool.Exec(context.Background(), `DELETE FROM chargers WHERE source = 'http-test'`)
		db.Close()
	})
	return db
}

// setupTestDeps serves chargers from the local table and routes with the mock provider.
func setupTestDeps(t *testing.T, db *postgres.DB) *http.Dependencies {
	cfg := sessionConfig()
	cfg.Scanner = usecases.NewScanner(20000, 1, 2000)
	svc := usecases.NewDirectoryService(postgres.NewChargerRepo(db), nil, 0, 5*time.Second)

	return &http.Dependencies{
		Sessions: usecases.NewSessionManager(&mockProvider{}, svc, nil, cfg),
		DB:       db,
	}
}

// TestSessionFlow_Integration plans a trip against chargers stored in PostGIS.
func TestSessionFlow_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	repo := postgres.NewChargerRepo(db)

	// Next to the second step of tripRoute, and one far away.
	seeded := []domain.Charger{
		{ID: "IT-1", Position: domain.GeoPoint{Lat: 13.15, Lng: 77.601}},
		{ID: "IT-2", Position: domain.GeoPoint{Lat: 13.17, Lng: 77.599}},
		{ID: "IT-FAR", Position: domain.GeoPoint{Lat: 20.0, Lng: 80.0}},
	}
	if _, err := repo.UpsertBatch(context.Background(), "http-test", seeded); err != nil {
		t.Fatalf("seed chargers: %v", err)
	}

	app := setupApp(setupTestDeps(t, db))
	id := plannedSession(t, app)

	code, body := doJSON(t, app, "GET", "/v1/sessions/"+id, "")
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	var snap domain.SessionSnapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	found := map[string]bool{}
	for _, c := range snap.Available {
		found[c.ID] = true
	}
	if !found["IT-1"] || !found["IT-2"] {
		t.Errorf("expected chargers along the route, got %+v", snap.Available)
	}
	if found["IT-FAR"] {
		t.Error("charger outside the scan box should not be discovered")
	}

	c := seeded[0]
	code, _ = doJSON(t, app, "POST", "/v1/sessions/"+id+"/toggle", fmt.Sprintf(`{"lat":%v,"lng":%v}`, c.Position.Lat, c.Position.Lng))
	if code != 200 {
		t.Fatalf("toggle: expected 200, got %d", code)
	}
}

func TestReady_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	app := setupApp(setupTestDeps(t, db))

	code, body := doJSON(t, app, "GET", "/v1/ready", "")
	if code != 200 {
		t.Fatalf("expected 200, got %d: %s", code, body)
	}
}
