package api

import "github.com/go-chi/chi/v5"

// RegisterRoutes registers the report, tracking and settings routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/report", h.GetReport)
		r.Get("/days/{day}", h.GetDay)
		r.Get("/weekly", h.GetWeekly)

		r.Get("/status", h.GetStatus)
		r.Post("/refresh", h.Refresh)
		r.Post("/rollup", h.Rollup)

		r.Get("/categories", h.GetCategories)
		r.Post("/categories", h.AddCategory)
		r.Put("/categories", h.ReplaceCategories)
		r.Delete("/categories", h.RemoveCategory)

		r.Get("/settings", h.GetSettings)
		r.Put("/settings", h.PutSettings)

		r.Delete("/data", h.ClearData)
		r.Get("/export", h.Export)
	})
}
