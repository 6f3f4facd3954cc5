package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ashureev/sitetime/internal/classify"
	"github.com/ashureev/sitetime/internal/config"
	"github.com/ashureev/sitetime/internal/domain"
)

// CategoryRequest adds a site to a category list.
type CategoryRequest struct {
	Site     string `json:"site" validate:"required,max=253"`
	Category string `json:"category" validate:"required,oneof=productive unproductive"`
}

// CategoryResponse reports the result of a category change.
type CategoryResponse struct {
	Site       string                `json:"site"`
	Category   domain.Category       `json:"category"`
	Moved      bool                  `json:"moved,omitempty"`
	Categories domain.UserCategories `json:"categories"`
}

// CategoriesRequest replaces both category lists.
type CategoriesRequest struct {
	Productive   []string `json:"productive" validate:"max=1000,dive,max=253"`
	Unproductive []string `json:"unproductive" validate:"max=1000,dive,max=253"`
}

// GetCategories returns both category lists.
func (h *Handler) GetCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.repo.GetCategories(r.Context())
	if err != nil {
		fail(w, err, "failed to load categories")
		return
	}
	JSON(w, http.StatusOK, cats)
}

// AddCategory puts a site on a list, moving it off the other list.
func (h *Handler) AddCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if err := h.decode(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	site := classify.NormalizePattern(req.Site)
	if site == "" {
		Error(w, http.StatusBadRequest, "site cannot be empty")
		return
	}
	category, err := domain.ParseCategory(req.Category, true)
	if err != nil {
		fail(w, err, "invalid category")
		return
	}

	moved, err := h.repo.AddCategory(r.Context(), site, category)
	if err != nil {
		fail(w, err, "failed to add category", "site", site)
		return
	}
	if moved {
		slog.Info("Site moved between categories", "site", site, "category", category)
	}

	h.respondCategories(w, r, http.StatusOK, CategoryResponse{Site: site, Category: category, Moved: moved})
}

// RemoveCategory deletes ?site from the ?category list.
func (h *Handler) RemoveCategory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	site := classify.NormalizePattern(q.Get("site"))
	if site == "" {
		Error(w, http.StatusBadRequest, "site is required")
		return
	}
	category, err := domain.ParseCategory(q.Get("category"), true)
	if err != nil {
		fail(w, err, "invalid category")
		return
	}

	removed, err := h.repo.RemoveCategory(r.Context(), site, category)
	if err != nil {
		fail(w, err, "failed to remove category", "site", site)
		return
	}
	if !removed {
		Error(w, http.StatusNotFound, fmt.Sprintf("%s is not in the %s list", site, category))
		return
	}

	h.respondCategories(w, r, http.StatusOK, CategoryResponse{Site: site, Category: category})
}

// ReplaceCategories overwrites both lists.
func (h *Handler) ReplaceCategories(w http.ResponseWriter, r *http.Request) {
	var req CategoriesRequest
	if err := h.decode(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	cats := config.NormalizeCategories(domain.UserCategories{Productive: req.Productive, Unproductive: req.Unproductive})
	if err := h.repo.ReplaceCategories(r.Context(), cats); err != nil {
		fail(w, err, "failed to replace categories")
		return
	}
	h.respondCategories(w, r, http.StatusOK, CategoryResponse{})
}

func (h *Handler) respondCategories(w http.ResponseWriter, r *http.Request, status int, resp CategoryResponse) {
	cats, err := h.repo.GetCategories(r.Context())
	if err != nil {
		fail(w, err, "failed to load categories")
		return
	}
	resp.Categories = cats
	JSON(w, status, resp)
}

// GetSettings returns the user settings.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.repo.GetSettings(r.Context())
	if err != nil {
		fail(w, err, "failed to load settings")
		return
	}
	JSON(w, http.StatusOK, s)
}

// PutSettings replaces the user settings.
func (h *Handler) PutSettings(w http.ResponseWriter, r *http.Request) {
	var s domain.Settings
	if err := h.decode(w, r, &s); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.Check(); err != nil {
		fail(w, err, "invalid settings")
		return
	}
	if err := h.repo.SaveSettings(r.Context(), s); err != nil {
		fail(w, err, "failed to save settings")
		return
	}
	JSON(w, http.StatusOK, s)
}

// ClearData deletes all tracked time and summaries. Categories and settings
// are kept.
func (h *Handler) ClearData(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.ClearTracking(r.Context()); err != nil {
		fail(w, err, "failed to clear data")
		return
	}
	slog.Info("Tracking data cleared")
	JSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Export returns every stored record as a JSON download.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	exp, err := h.reports.Export(r.Context())
	if err != nil {
		fail(w, err, "failed to export data")
		return
	}
	filename := fmt.Sprintf("sitetime-export-%s.json", h.rollups.Today())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	JSON(w, http.StatusOK, exp)
}
