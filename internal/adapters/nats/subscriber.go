package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/voltrip/internal/core/domain"
)

// Subscriber consumes survey requests and relays session events.
type Subscriber struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	prefix string
	subs   []*nats.Subscription
}

// NewSubscriber creates a subscriber with its own connection.
func NewSubscriber(url, prefix string) (*Subscriber, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	return &Subscriber{conn: conn, js: js, prefix: prefix}, nil
}

// SubscribeSurveyRequests delivers queued survey requests to handler. A
// handler error NAKs the message for redelivery, up to three attempts.
func (s *Subscriber) SubscribeSurveyRequests(ctx context.Context, handler func(ctx context.Context, req domain.SurveyRequest) error) error {
	sub, err := s.js.Subscribe(SurveyRequestSubject(s.prefix), func(msg *nats.Msg) {
		var req domain.SurveyRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			// Malformed requests will never succeed.
			_ = msg.Term()
			return
		}
		if err := handler(ctx, req); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable("survey-starter"),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// SubscribeSession relays every event of one session. Unsubscribe the
// returned subscription when the consumer goes away.
func SubscribeSession(conn *nats.Conn, prefix, sessionID string, handler func(event string, data []byte)) (*nats.Subscription, error) {
	base := prefix + ".session." + sessionID + "."
	return conn.Subscribe(base+">", func(msg *nats.Msg) {
		handler(msg.Subject[len(base):], msg.Data)
	})
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
