package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	otelx "github.com/arcwell-foundry/aria/internal/adapter/otel"
	"github.com/arcwell-foundry/aria/internal/config"
)

// NewRouter assembles the coordinator's HTTP routes with the standard
// middleware stack.
func NewRouter(h *Handlers, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	r.Use(CORS(cfg.Server.CORSOrigin))
	r.Use(Logger)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	if cfg.Telemetry.Enabled {
		r.Use(otelx.HTTPMiddleware("aria-http"))
	}
	r.Use(APIKey(cfg.Auth.APIKeyHash, cfg.Auth.Enabled))

	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/evaluations", h.Evaluate)
		r.Post("/actions", h.SubmitAction)
		r.Post("/actions/{id}/undo", h.RequestUndo)
		r.Get("/escalations", h.ListEscalations)
	})

	return r
}
