package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/voltrip/internal/core/domain"
)

// Event types carried in Envelope.Type.
const (
	EventRoutes    = "routes"
	EventChargers  = "chargers"
	EventWaypoints = "waypoints"
	EventNotice    = "notice"
)

// Envelope is the JSON body of every session event.
type Envelope struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id"`
	At        time.Time       `json:"at"`
	Data      json.RawMessage `json:"data"`
}

// Publisher publishes session events and survey results. It implements
// ports.Presenter: session events go to <prefix>.session.<id>.<type>.
type Publisher struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	prefix string
}

// NewPublisher connects to NATS, enables JetStream and ensures the streams
// that retain session events and survey results exist.
func NewPublisher(url, prefix string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	for _, cfg := range StreamConfigs(prefix) {
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist; try update
			if _, err := js.UpdateStream(&cfg); err != nil {
				return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}

	return &Publisher{conn: conn, js: js, prefix: prefix}, nil
}

// SessionSubject returns the subject for one event type of a session.
func SessionSubject(prefix, sessionID, event string) string {
	return prefix + ".session." + sessionID + "." + event
}

func (p *Publisher) publish(ctx context.Context, sessionID, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.ErrorContext(ctx, "encode session event", "type", event, "error", err)
		return
	}
	body, err := json.Marshal(Envelope{Type: event, SessionID: sessionID, At: time.Now().UTC(), Data: data})
	if err != nil {
		slog.ErrorContext(ctx, "encode session envelope", "type", event, "error", err)
		return
	}
	// Core publish: the presenter must not wait on acks. The session stream
	// still captures it for late subscribers.
	if err := p.conn.Publish(SessionSubject(p.prefix, sessionID, event), body); err != nil {
		slog.WarnContext(ctx, "publish session event", "type", event, "session_id", sessionID, "error", err)
	}
}

func (p *Publisher) RoutesComputed(ctx context.Context, sessionID string, routes []domain.Route) {
	p.publish(ctx, sessionID, EventRoutes, routes)
}

func (p *Publisher) ChargersDiscovered(ctx context.Context, sessionID string, chargers []domain.Charger) {
	p.publish(ctx, sessionID, EventChargers, chargers)
}

func (p *Publisher) WaypointsChanged(ctx context.Context, sessionID string, waypoints []domain.Waypoint) {
	p.publish(ctx, sessionID, EventWaypoints, waypoints)
}

func (p *Publisher) UserNotice(ctx context.Context, sessionID string, n domain.Notice) {
	p.publish(ctx, sessionID, EventNotice, n)
}

// Survey subjects. Requests are a work queue consumed by the surveyor; results
// are retained for readers.
func SurveyRequestSubject(prefix string) string { return prefix + ".survey.requests" }

func SurveyResultSubject(prefix, id string) string { return prefix + ".survey.results." + id }

// StreamConfigs returns the JetStream streams the publisher ensures, in the
// order they are applied. The survey queue is listed before results so an
// older queue bound to <prefix>.survey.> is narrowed before results claim
// their subjects.
func StreamConfigs(prefix string) []nats.StreamConfig {
	return []nats.StreamConfig{
		{
			Name:      "VOLTRIP_SESSIONS",
			Subjects:  []string{prefix + ".session.>"},
			Retention: nats.LimitsPolicy,
			MaxAge:    1 * time.Hour,
			Storage:   nats.MemoryStorage,
		},
		{
			Name:      "VOLTRIP_SURVEYS",
			Subjects:  []string{SurveyRequestSubject(prefix)},
			Retention: nats.WorkQueuePolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
		{
			Name:      "VOLTRIP_SURVEY_RESULTS",
			Subjects:  []string{SurveyResultSubject(prefix, "*")},
			Retention: nats.LimitsPolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
	}
}

// RequestSurvey enqueues a corridor survey request.
func (p *Publisher) RequestSurvey(ctx context.Context, req domain.SurveyRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(SurveyRequestSubject(p.prefix), data, nats.Context(ctx))
	return err
}

// PublishSurvey stores a finished survey.
func (p *Publisher) PublishSurvey(ctx context.Context, survey domain.CorridorSurvey) error {
	data, err := json.Marshal(survey)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(SurveyResultSubject(p.prefix, survey.ID), data, nats.Context(ctx))
	return err
}

// Conn exposes the underlying connection for relays and readiness checks.
func (p *Publisher) Conn() *nats.Conn { return p.conn }

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection.
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
