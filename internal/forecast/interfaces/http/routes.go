package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RegisterRoutes registers all resource-forecasting API routes. Unlike the
// CRM routes this grew from, the verb table splits into an authenticated
// mutating half and an unauthenticated read half (§6), so AuthMiddleware is
// applied per-route instead of once for the whole /api/v1/forecast group.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Route("/api/v1/forecast", func(r chi.Router) {
		// Timelines: compute/patch/delete are mutating and authenticated;
		// get is a read and stays open.
		r.Route("/timelines", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(h.AuthMiddleware)
				r.Post("/compute", h.ComputeTimeline)
				r.Patch("/status", h.PatchStatus)
				r.Patch("/interval", h.PatchInterval)
				r.Post("/generate-bulk", h.GenerateBulk)
				r.Post("/clear-predicted", h.ClearPredicted)
			})

			r.Get("/stats", h.GenerationStats)
		})

		r.Route("/opportunities/{opportunityID}/timeline", func(r chi.Router) {
			r.Get("/", h.GetTimeline)

			r.Group(func(r chi.Router) {
				r.Use(h.AuthMiddleware)
				r.Delete("/", h.DeleteTimeline)
			})
		})

		// Portfolio aggregation verbs are all reads.
		r.Route("/portfolio", func(r chi.Router) {
			r.Get("/", h.PortfolioForecast)
			r.Get("/by-stage", h.StageResourceForecast)
			r.Get("/bounds", h.TimelineBounds)
		})
	})
}

// NewRouter creates a new chi router with all forecast routes registered.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}
