package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mwhitford/leadchat/internal/metrics"
)

// RouterConfig holds everything the router mounts.
type RouterConfig struct {
	Chat     *ChatHandler
	Leads    *LeadsHandler
	Health   *HealthHandler
	LogLevel *LogLevelHandler
	Metrics  *metrics.Metrics

	// Middleware is applied to every route, in order.
	Middleware []func(http.Handler) http.Handler
}

// NewRouter assembles the HTTP routes. Probes and metrics sit at the root,
// outside the API group, so infrastructure can reach them unversioned.
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()
	for _, mw := range cfg.Middleware {
		r.Use(mw)
	}

	if cfg.Health != nil {
		cfg.Health.RegisterRoutes(r)
	}
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}
	if cfg.LogLevel != nil {
		r.Handle("/admin/log-level", cfg.LogLevel)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.Chat != nil {
			cfg.Chat.RegisterRoutes(r)
		}
		if cfg.Leads != nil {
			cfg.Leads.RegisterRoutes(r)
		}
	})

	return r
}
