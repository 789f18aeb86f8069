package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all optimization routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/optimize", h.HandleOptimize)
	r.Route("/portfolio", func(r chi.Router) {
		r.Post("/score", h.HandleScore)
		r.Post("/frontier", h.HandleFrontier)
	})
	r.Get("/quotes", h.HandleQuotes)
}
