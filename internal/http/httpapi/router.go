package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"channelpulse/internal/http/handlers"
	"channelpulse/internal/infra"
	"channelpulse/internal/metrics"
	"channelpulse/internal/middleware"
)

func NewRouter(app *handlers.App, logger infra.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(logger),
	)

	r.Get("/v1/healthz", app.Health)
	r.Handle("/metrics", metrics.Handler())

	r.Post("/webhooks/telegram/{botToken}", app.TelegramWebhook)
	r.Get("/reports/roi", app.ROIReport)

	r.Route("/bots/{id}/webhook", func(r chi.Router) {
		r.Post("/", app.RegisterWebhook)
		r.Delete("/", app.DeregisterWebhook)
		r.Get("/", app.InspectWebhook)
	})

	return r
}
