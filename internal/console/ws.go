package console

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/matthewbaird/lowcode-console/internal/poller"
)

// ClientMessage is the envelope for all client-to-server WebSocket messages.
type ClientMessage struct {
	Type string          `json:"type"` // "ping", "status"
	ID   string          `json:"id"`   // Client-assigned request ID
	Data json.RawMessage `json:"data,omitempty"`
}

// StatusData is the payload for "status" messages.
type StatusData struct {
	Entity string `json:"entity"`
}

// ServerMessage is the envelope for all server-to-client WebSocket messages.
type ServerMessage struct {
	Type      string `json:"type"`                 // "hello", "generation", "entities", "status", "error", "pong"
	RequestID string `json:"request_id,omitempty"` // Echoes client ID
	Data      any    `json:"data,omitempty"`
}

// ErrorData is sent when a client message cannot be handled.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ServeWS upgrades to WebSocket, sends the current generation runs, then
// streams generation events and entity list refreshes until the client goes
// away.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.WarnContext(r.Context(), "console: websocket accept", "err", err)
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events, stopEvents := h.events.Listen()
	defer stopEvents()
	refreshes, stopRefreshes := h.listenRefresh()
	defer stopRefreshes()

	// Writes happen on this goroutine only; the reader hands requests over.
	requests := make(chan ClientMessage)
	go func() {
		defer cancel()
		for {
			var msg ClientMessage
			if err := wsjson.Read(ctx, conn, &msg); err != nil {
				if websocket.CloseStatus(err) != -1 {
					slog.DebugContext(ctx, "console: connection closed", "status", websocket.CloseStatus(err))
				}
				return
			}
			select {
			case requests <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	h.send(ctx, conn, ServerMessage{Type: "hello", Data: h.poller.Snapshot()})

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			h.send(ctx, conn, ServerMessage{Type: "generation", Data: evt})
		case list := <-refreshes:
			h.send(ctx, conn, ServerMessage{Type: "entities", Data: list})
		case msg := <-requests:
			h.handleMessage(ctx, conn, msg)
		}
	}
}

func (h *Handler) handleMessage(ctx context.Context, conn *websocket.Conn, msg ClientMessage) {
	switch msg.Type {
	case "ping":
		h.send(ctx, conn, ServerMessage{Type: "pong", RequestID: msg.ID})
	case "status":
		var data StatusData
		if err := json.Unmarshal(msg.Data, &data); err != nil || data.Entity == "" {
			h.sendError(ctx, conn, msg.ID, "invalid_data", "invalid status data")
			return
		}
		res := poller.Result{Entity: data.Entity, State: poller.Idle}
		if j := h.poller.Job(data.Entity); j != nil {
			res = j.Result()
		}
		h.send(ctx, conn, ServerMessage{Type: "status", RequestID: msg.ID, Data: res})
	default:
		h.sendError(ctx, conn, msg.ID, "unknown_type", fmt.Sprintf("unknown message type: %s", msg.Type))
	}
}

func (h *Handler) send(ctx context.Context, conn *websocket.Conn, msg ServerMessage) {
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		slog.DebugContext(ctx, "console: write error", "err", err)
	}
}

func (h *Handler) sendError(ctx context.Context, conn *websocket.Conn, requestID, code, message string) {
	h.send(ctx, conn, ServerMessage{
		Type:      "error",
		RequestID: requestID,
		Data: ErrorData{
			Code:    code,
			Message: message,
		},
	})
}
