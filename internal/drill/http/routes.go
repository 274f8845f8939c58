package drillhttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// MountRoutes registers the drill endpoints onto the router. The CSV export
// is rate limited per client since it bypasses the cache page size.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(10, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	r.Get("/api/drill", h.handleDrill)
	r.Get("/api/drill/accounts", h.handleAccounts)
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Get("/api/drill/export.csv", h.handleExport)
	})
}
