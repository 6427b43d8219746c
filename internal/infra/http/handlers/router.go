package handlers

import (
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/xavierca1/realty-leads/internal/infra/http/middleware"
)

type RouterConfig struct {
	AllowedOrigins []string
	AdminToken     string
	Limiter        middleware.Limiter
	TrustedProxies []netip.Prefix
	RetryAfter     time.Duration
	Logger         *zap.Logger
}

func NewRouter(cfg RouterConfig, leads *LeadHandler, admin *AdminLeadHandler, health *HealthHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", health.Handle)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if cfg.Limiter != nil {
			r.Use(middleware.RateLimit(cfg.Limiter, cfg.RetryAfter, cfg.TrustedProxies, cfg.Logger))
		}
		r.Post("/leads", leads.CaptureLead)
	})

	r.Route("/admin/leads", func(r chi.Router) {
		r.Use(middleware.AdminAuth(cfg.AdminToken))
		r.Get("/", admin.List)
		r.Get("/{id}", admin.Get)
		r.Patch("/{id}", admin.Update)
		r.Delete("/{id}", admin.Delete)
	})

	return r
}
