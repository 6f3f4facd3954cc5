package ingest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ashureev/sitetime/internal/api"
	"github.com/go-chi/chi/v5"
)

const maxEventBody = 16 << 10

// RegisterRoutes registers the event endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/events", h.ServeHTTP)
	r.Post("/api/events", h.PostEvent)
}

// PostEvent applies a single event sent as a JSON body.
func (h *Handler) PostEvent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxEventBody)

	var msg Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.Error(w, http.StatusRequestEntityTooLarge, "event body too large")
			return
		}
		api.Error(w, http.StatusBadRequest, "malformed JSON")
		return
	}

	if err := msg.Validate(); err != nil {
		api.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if msg.Type == "ping" {
		api.JSON(w, http.StatusOK, pongReply)
		return
	}

	ev, err := msg.Event()
	if err != nil {
		api.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.sink.Handle(r.Context(), ev); err != nil {
		slog.Error("Failed to apply event", "error", err, "type", msg.Type)
		api.Error(w, http.StatusInternalServerError, "failed to record visit")
		return
	}
	api.JSON(w, http.StatusOK, ackReply)
}
