package quotations

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers the quotation endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/quotations", h.List)
	r.Post("/quotations", h.Create)
	r.Get("/quotations/{id}", h.Get)
	r.Put("/quotations/{id}", h.Update)
	r.Delete("/quotations/{id}", h.Delete)
	r.Post("/quotations/{id}/{event:send|view|accept|reject|cancel}", h.Transition)
}
