package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/user/prospector/internal/delivery/http/handler"
	"github.com/user/prospector/internal/delivery/http/middleware"
	"github.com/user/prospector/pkg/metrics"
)

// New builds the API router. gatherer backs /metrics.
func New(h *handler.Handler, m *metrics.Metrics, gatherer prometheus.Gatherer, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Metrics(m))
	r.Use(chimw.Recoverer)

	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/api/health", h.HandleHealthCheck)

	r.Route("/api", func(r chi.Router) {
		// Site validation drives a browser and needs a longer budget.
		r.With(chimw.Timeout(90*time.Second)).Post("/validate", h.HandleValidateSite)

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(30 * time.Second))
			r.Post("/harvest", h.HandleSubmitHarvest)
			r.Get("/harvest/{id}", h.HandleGetHarvest)
			r.Get("/prospects", h.HandleListProspects)
			r.Get("/prospects/{id}", h.HandleGetProspect)
			r.Patch("/prospects/{id}/status", h.HandleUpdateProspectStatus)
		})
	})

	return otelhttp.NewHandler(r, "prospector-api")
}
