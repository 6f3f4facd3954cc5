// Package api provides HTTP handlers for the sitetime API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/ashureev/sitetime/internal/domain"
	"github.com/ashureev/sitetime/internal/report"
	"github.com/ashureev/sitetime/internal/rollup"
	"github.com/ashureev/sitetime/internal/store"
	"github.com/ashureev/sitetime/internal/tracker"
	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 20

// Tracker is the part of the activity tracker the API needs.
type Tracker interface {
	Checkpoint(ctx context.Context) error
	Snapshot() tracker.State
}

// Handler provides the report, tracking and settings endpoints.
type Handler struct {
	repo     store.Repository
	reports  *report.Service
	rollups  *rollup.Service
	tracker  Tracker
	validate *validator.Validate
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository, reports *report.Service, rollups *rollup.Service, t Tracker) *Handler {
	return &Handler{
		repo:     repo,
		reports:  reports,
		rollups:  rollups,
		tracker:  t,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// decode reads a JSON body into v and validates it.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("request body is empty")
		}
		return fmt.Errorf("malformed JSON: %w", err)
	}
	if err := h.validate.Struct(v); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("field %s failed %s validation", fe.Field(), fe.Tag())
	}
	return err
}

// fail maps a service error to a response. Bad input becomes 400, anything
// else is logged and reported as 500.
func fail(w http.ResponseWriter, err error, msg string, attrs ...any) {
	switch {
	case errors.Is(err, domain.ErrInvalidDay),
		errors.Is(err, domain.ErrInvalidCategory),
		errors.Is(err, domain.ErrInvalidSettings),
		errors.Is(err, report.ErrInvalidRange):
		Error(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error(msg, append([]any{"error", err}, attrs...)...)
		Error(w, http.StatusInternalServerError, msg)
	}
}
