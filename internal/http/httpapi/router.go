package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"server/internal/http/handlers"
	"server/internal/infra"
	"server/internal/middleware"
)

func NewRouter(app *handlers.App, cfg *infra.Config) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(cfg.CORSAllowedOrigins),
	)

	r.Get("/v1/healthz", app.Health)
	r.Handle("/metrics", promhttp.Handler())

	// Webhooks authenticate by signature, never by session.
	r.Post("/webhooks/provider", app.WebhooksProvider)

	r.Route("/donations", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitPerMin, time.Minute))
		r.With(middleware.OptionalAuthJWT(cfg.JWTSecret)).Post("/", app.DonationsCreate)
		r.Get("/recent", app.DonationsRecent)
	})

	r.Route("/subscriptions", func(r chi.Router) {
		r.Use(middleware.AuthJWT(cfg.JWTSecret))
		r.Post("/", app.SubscriptionsCreate)
		r.Get("/{id}", app.SubscriptionsGet)
		r.Post("/{id}/pause", app.SubscriptionsPause)
		r.Post("/{id}/resume", app.SubscriptionsResume)
		r.Delete("/{id}", app.SubscriptionsCancel)
	})

	return r
}
