package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("voltrip-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Telemetry.ServiceName != "voltrip-test" {
		t.Errorf("expected service name voltrip-test, got %s", cfg.Telemetry.ServiceName)
	}
	if cfg.Discovery.MaxTriggers != 1 {
		t.Errorf("expected 1 trigger by default, got %d", cfg.Discovery.MaxTriggers)
	}
	if cfg.Route.RouteTimeout() != 10*time.Second {
		t.Errorf("expected 10s route timeout, got %s", cfg.Route.RouteTimeout())
	}
	if cfg.Route.MaxWaypoints != 25 {
		t.Errorf("expected 25 waypoints, got %d", cfg.Route.MaxWaypoints)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("VOLTRIP_DISCOVERY_THRESHOLD_METERS", "5000")
	t.Setenv("VOLTRIP_DISCOVERY_LEG_COVERAGE", "all")
	t.Setenv("VOLTRIP_CHARGERS_AUTH_TOKEN", "secret")

	cfg, err := Load("voltrip-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Discovery.ThresholdMeters != 5000 {
		t.Errorf("expected threshold 5000, got %v", cfg.Discovery.ThresholdMeters)
	}
	if cfg.Discovery.LegCoverage != "all" {
		t.Errorf("expected coverage all, got %s", cfg.Discovery.LegCoverage)
	}
	if cfg.Chargers.AuthToken != "secret" {
		t.Errorf("expected auth token from env, got %q", cfg.Chargers.AuthToken)
	}
}

func TestValidate_CollectsErrors(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"server.port", "nats.url", "chargers.source", "route.max_waypoints"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in error, got %v", want, err)
		}
	}
}

func TestValidate_MaxWaypointsCap(t *testing.T) {
	t.Setenv("VOLTRIP_ROUTE_MAX_WAYPOINTS", "26")
	if _, err := Load("voltrip-test"); err == nil {
		t.Fatal("expected error for 26 waypoints")
	}
}
