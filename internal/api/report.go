package api

import (
	"net/http"
	"strconv"

	"github.com/ashureev/sitetime/internal/report"
	"github.com/go-chi/chi/v5"
)

// GetReport returns the aggregate, trend and top sites for a range.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := report.Query{
		Range: report.Range(q.Get("range")),
		Start: q.Get("start"),
		End:   q.Get("end"),
	}
	if top := q.Get("top"); top != "" {
		n, err := strconv.Atoi(top)
		if err != nil || n < 1 || n > 100 {
			Error(w, http.StatusBadRequest, "top must be between 1 and 100")
			return
		}
		query.Top = n
	}

	rep, err := h.reports.Report(r.Context(), query)
	if err != nil {
		fail(w, err, "failed to build report", "range", query.Range)
		return
	}
	JSON(w, http.StatusOK, rep)
}

// GetDay returns the records of a single day.
func (h *Handler) GetDay(w http.ResponseWriter, r *http.Request) {
	day := chi.URLParam(r, "day")
	rep, err := h.reports.Day(r.Context(), day)
	if err != nil {
		fail(w, err, "failed to load day", "day", day)
		return
	}
	JSON(w, http.StatusOK, rep)
}

// GetWeekly returns the Sunday to Saturday report for the week containing
// ?start (default: this week).
func (h *Handler) GetWeekly(w http.ResponseWriter, r *http.Request) {
	start := r.URL.Query().Get("start")
	rep, err := h.reports.Weekly(r.Context(), start)
	if err != nil {
		fail(w, err, "failed to build weekly report", "start", start)
		return
	}
	JSON(w, http.StatusOK, rep)
}
