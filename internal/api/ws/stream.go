// Package ws streams live audit activity to admin consoles over
// WebSocket, backed by the redis pub/sub bus.
package ws

import (
	"context"
	"net/http"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"

	"github.com/oemportal/audittrail/internal/audit"
)

// Subscriber provides a streaming subscription to a bus channel.
// *redis.PubSub satisfies this interface.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error)
}

// Hub serves WebSocket tails of the audit event and alert channels.
type Hub struct {
	bus Subscriber
}

func NewHub(bus Subscriber) *Hub {
	return &Hub{bus: bus}
}

// ServeEvents streams every appended audit record to the client.
func (h *Hub) ServeEvents(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, audit.EventsChannel)
}

// ServeAlerts streams integrity alerts from failed verification runs.
func (h *Hub) ServeAlerts(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, audit.AlertsChannel)
}

func (h *Hub) serve(w http.ResponseWriter, r *http.Request, channel string) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()

	messages, cleanup, err := h.bus.Subscribe(ctx, channel)
	if err != nil {
		log.Error().Err(err).Str("channel", channel).Msg("websocket subscribe")
		_ = conn.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}
	defer cleanup()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "connection closed")
			return
		case msg, msgOK := <-messages:
			if !msgOK {
				_ = conn.Close(websocket.StatusNormalClosure, "channel closed")
				return
			}
			if writeErr := conn.Write(ctx, websocket.MessageText, msg); writeErr != nil {
				log.Debug().Err(writeErr).Msg("websocket write")
				return
			}
		}
	}
}
