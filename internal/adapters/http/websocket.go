package http

import (
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/voltrip/internal/adapters/nats"
	"github.com/samirrijal/voltrip/internal/pkg/metrics"
)

// wsMessage is sent from client to narrow or widen the relayed events.
type wsMessage struct {
	Action string   `json:"action"` // "subscribe" | "unsubscribe"
	Events []string `json:"events"` // routes, chargers, waypoints, notice
}

var knownEvents = map[string]bool{
	natsadapter.EventRoutes:    true,
	natsadapter.EventChargers:  true,
	natsadapter.EventWaypoints: true,
	natsadapter.EventNotice:    true,
}

// WebSocketHandler relays the events of one session (the "session" local
// set by the upgrade middleware) from NATS to the client. All event types
// are relayed until the client unsubscribes from some.
func WebSocketHandler(nc *nats.Conn, prefix string) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		sessionID, _ := c.Locals("session").(string)
		log := slog.Default().With("session_id", sessionID, "remote", c.RemoteAddr().String())
		log.Info("ws client connected")
		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		var mu sync.Mutex
		enabled := make(map[string]bool, len(knownEvents))
		for e := range knownEvents {
			enabled[e] = true
		}

		// Thread-safe write
		writeRaw := func(data []byte) error {
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			return writeRaw(data)
		}

		sub, err := natsadapter.SubscribeSession(nc, prefix, sessionID, func(event string, data []byte) {
			mu.Lock()
			on := enabled[event]
			mu.Unlock()
			if on {
				_ = writeRaw(data)
			}
		})
		if err != nil {
			log.Error("ws subscribe failed", "error", err)
			return
		}
		defer func() { _ = sub.Unsubscribe() }()

		// Keep-alive ping
		done := make(chan struct{})
		defer close(done)
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}
			if m.Action != "subscribe" && m.Action != "unsubscribe" {
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
				continue
			}

			var unknown []string
			mu.Lock()
			for _, e := range m.Events {
				if !knownEvents[e] {
					unknown = append(unknown, e)
					continue
				}
				enabled[e] = m.Action == "subscribe"
			}
			active := make([]string, 0, len(enabled))
			for e, on := range enabled {
				if on {
					active = append(active, e)
				}
			}
			mu.Unlock()
			sort.Strings(active)

			if len(unknown) > 0 {
				_ = writeJSON(map[string]interface{}{"error": "unknown events", "events": unknown})
				continue
			}
			_ = writeJSON(map[string]interface{}{"status": m.Action + "d", "events": active})
		}

		log.Info("ws client disconnected")
	}
}
