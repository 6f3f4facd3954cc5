package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/sitetime/internal/tracker"
)

// StatusResponse describes the live tracking session.
type StatusResponse struct {
	Tracking  bool          `json:"tracking"`
	State     tracker.State `json:"state"`
	ElapsedMs int64         `json:"elapsedMs"`
	Today     string        `json:"today"`
}

// GetStatus returns the tracker state.
func (h *Handler) GetStatus(w http.ResponseWriter, _ *http.Request) {
	state := h.tracker.Snapshot()
	resp := StatusResponse{
		Tracking: state.Armed && state.URL != "",
		State:    state,
		Today:    h.rollups.Today(),
	}
	if resp.Tracking {
		resp.ElapsedMs = time.Since(state.StartedAt).Milliseconds()
	}
	JSON(w, http.StatusOK, resp)
}

// Refresh checkpoints the current session so stored totals are current.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.tracker.Checkpoint(r.Context()); err != nil {
		slog.Error("Refresh checkpoint failed", "error", err)
		Error(w, http.StatusInternalServerError, "failed to record current session")
		return
	}
	JSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Rollup summarizes ?day (default: today) on demand.
func (h *Handler) Rollup(w http.ResponseWriter, r *http.Request) {
	day := r.URL.Query().Get("day")
	if day == "" {
		day = h.rollups.Today()
	}
	summary, err := h.rollups.Run(r.Context(), day)
	if err != nil {
		fail(w, err, "failed to run rollup", "day", day)
		return
	}
	JSON(w, http.StatusOK, summary)
}
