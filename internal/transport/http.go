package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopnobari/checkout-service/internal/checkout"
	"github.com/shopnobari/checkout-service/internal/handler"
	"github.com/shopnobari/checkout-service/internal/middleware"
)

func NewRouter(svc checkout.Service) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Metrics)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	h := handler.NewCheckoutHandler(svc)
	r.Route("/api", func(r chi.Router) {
		h.RegisterRoutes(r)
	})

	return r
}
