package invoices

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers the invoice endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/invoices", h.List)
	r.Get("/invoices/{id}", h.Get)
	r.Get("/quotations/{quotationID}/invoice", h.GetByQuotation)
	r.Post("/quotations/{quotationID}/invoice", h.Derive)
}
