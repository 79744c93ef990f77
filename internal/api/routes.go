package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/publications", h.CreatePublication)
		r.Get("/publications", h.ListPublications)
		r.Route("/publications/{publicationId}", func(r chi.Router) {
			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				h.GetPublication(w, r, chi.URLParam(r, "publicationId"))
			})
			r.Get("/progress", func(w http.ResponseWriter, r *http.Request) {
				h.GetProgress(w, r, chi.URLParam(r, "publicationId"))
			})
		})
	})

	return r
}
