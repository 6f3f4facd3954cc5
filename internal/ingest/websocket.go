package ingest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/sitetime/internal/metrics"
	"github.com/ashureev/sitetime/internal/tracker"
	"github.com/coder/websocket"
	"github.com/google/uuid"
)

const (
	readLimit    = 64 << 10
	writeTimeout = 5 * time.Second
)

// EventSink applies tracker events.
type EventSink interface {
	Handle(ctx context.Context, ev tracker.Event) error
	Shutdown(ctx context.Context) error
}

// Handler serves the event websocket and the HTTP event endpoint.
type Handler struct {
	sink           EventSink
	clients        *ClientManager
	metrics        *metrics.Collector
	originPatterns []string
}

// NewHandler creates an event handler. originPatterns follow
// websocket.AcceptOptions; "*" accepts any origin.
func NewHandler(sink EventSink, clients *ClientManager, m *metrics.Collector, originPatterns []string) *Handler {
	if clients == nil {
		clients = NewClientManager()
	}
	return &Handler{
		sink:           sink,
		clients:        clients,
		metrics:        m,
		originPatterns: originPatterns,
	}
}

// Clients returns the connection registry.
func (h *Handler) Clients() *ClientManager {
	return h.clients
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	clientID := uuid.NewString()
	slog.Info("Event websocket connection request", "client_id", clientID, "ip", r.RemoteAddr)

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		slog.Warn("Failed to accept WebSocket", "error", err, "client_id", clientID)
		return
	}
	ws.SetReadLimit(readLimit)
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "client_id", clientID)
		}
	}()

	h.clients.Register(clientID, ws)
	h.metrics.ClientConnected(1)

	sawShutdown := h.readLoop(r.Context(), ws, clientID)
	remaining := h.clients.Unregister(clientID)
	h.metrics.ClientConnected(-1)

	// A vanished browser gets the same close-out as an explicit shutdown,
	// unless another connection is still driving the session.
	if !sawShutdown && remaining == 0 {
		if err := h.sink.Shutdown(context.WithoutCancel(r.Context())); err != nil {
			slog.Warn("Best-effort close-out failed", "error", err, "client_id", clientID)
		}
	}
	slog.Info("Event websocket session ended",
		"client_id", clientID,
		"shutdown_received", sawShutdown,
		"clients_remaining", remaining)
}

// readLoop handles messages until the connection ends. It reports whether
// the client sent an explicit shutdown.
func (h *Handler) readLoop(ctx context.Context, ws *websocket.Conn, clientID string) bool {
	for {
		typ, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "client_id", clientID)
			} else if ctx.Err() == nil {
				slog.Warn("WebSocket read error", "error", err, "client_id", clientID)
			}
			return false
		}
		if typ != websocket.MessageText {
			h.reply(ctx, ws, Reply{Type: "error", Error: "expected text message"})
			continue
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			h.reply(ctx, ws, Reply{Type: "error", Error: "malformed JSON"})
			continue
		}

		reply, shutdown := h.dispatch(ctx, msg)
		h.reply(ctx, ws, reply)
		if shutdown {
			return true
		}
	}
}

// dispatch applies one message and returns the reply plus whether it was a
// shutdown.
func (h *Handler) dispatch(ctx context.Context, msg Message) (Reply, bool) {
	if err := msg.Validate(); err != nil {
		return errorReply(err), false
	}
	if msg.Type == "ping" {
		return pongReply, false
	}
	ev, err := msg.Event()
	if err != nil {
		return errorReply(err), false
	}
	if err := h.sink.Handle(ctx, ev); err != nil {
		// The transition itself was applied; only recording failed.
		return errorReply(err), ev.Kind == tracker.Shutdown
	}
	return ackReply, ev.Kind == tracker.Shutdown
}

func (h *Handler) reply(ctx context.Context, ws *websocket.Conn, v Reply) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("Failed to encode reply", "error", err)
		return
	}
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()
	if err := ws.Write(writeCtx, websocket.MessageText, data); err != nil {
		slog.Debug("Failed to send reply", "error", err, "type", v.Type)
	}
}
