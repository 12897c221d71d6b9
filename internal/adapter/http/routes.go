package http

import (
	"github.com/go-chi/chi/v5"

	"github.com/sitegrove/sitegrove/internal/middleware"
)

// MountRoutes attaches the public and administrative API routes.
//
// Public routes resolve the tenant from the request's Host header;
// administrative routes carry the tenant id in the path (or X-Tenant-ID
// header for cross-tenant listings) and bypass hostname resolution.
func MountRoutes(r chi.Router, h *Handlers) {
	// Public site surface, reached via a tenant hostname.
	r.Group(func(r chi.Router) {
		r.Use(middleware.ResolveTenant(h.Resolver, h.Metrics))

		r.Get("/api/v1/status", h.GetStatus)
		r.Get("/api/v1/resolve", h.GetResolve)
		r.Get("/api/v1/menu", h.ListMenu)
	})

	// Administrative mutation hooks for the (external) CRUD surface.
	r.Route("/admin/v1", func(r chi.Router) {
		r.Get("/tenants", h.ListTenants)

		r.Route("/tenants/{tenantID}", func(r chi.Router) {
			r.Put("/emergency-close", h.SetEmergencyClose)
			r.Delete("/emergency-close", h.ClearEmergencyClose)

			r.Put("/special-dates", h.UpsertSpecialDate)
			r.Delete("/special-dates/{date}", h.DeleteSpecialDate)

			r.Put("/hours/{day}", h.ReplaceHours)

			r.Post("/menu-items", h.CreateMenuItem)
			r.Delete("/menu-items/{itemID}", h.DeleteMenuItem)

			r.Post("/invalidate", h.InvalidateTenant)
		})

		r.Post("/hosts/{hostname}/invalidate", h.InvalidateHost)
	})
}
