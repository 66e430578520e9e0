package http

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/voltrip/internal/adapters/postgres"
	"github.com/samirrijal/voltrip/internal/core/domain"
	"github.com/samirrijal/voltrip/internal/core/usecases"
)

// SurveyRequester queues corridor surveys.
type SurveyRequester interface {
	RequestSurvey(ctx context.Context, req domain.SurveyRequest) error
}

// Pinger is a dependency the readiness probe can check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Sessions *usecases.SessionManager
	Surveys  SurveyRequester
	// NATS relays session events to WebSocket clients.
	NATS       *nats.Conn
	NATSPrefix string
	// DB is only set when chargers come from the local table.
	DB    *postgres.DB
	Cache Pinger
	// SpecPath locates the OpenAPI document served under /docs.
	SpecPath string
}
