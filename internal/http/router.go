package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cinema-ticketing/internal/observability"
	"cinema-ticketing/internal/ratelimit"
)

func SetupRouter(h *Handlers, logger observability.Logger, rl *ratelimit.RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(TracingMiddleware)
	r.Use(MetricsMiddleware)
	r.Use(RateLimitMiddleware(rl))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/rooms", h.CreateRoom)
		r.Get("/rooms", h.ListRooms)
		r.Get("/rooms/{id}", h.GetRoom)
		r.Post("/rooms/{id}/seats", h.GenerateSeats)
		r.Get("/rooms/{id}/layout", h.GetLayout)

		r.Post("/orders", h.CreateOrder)
		r.Get("/orders/{id}", h.GetOrder)
		r.Post("/orders/{id}/cancel", h.CancelOrder)
		r.Get("/users/{id}/orders", h.ListUserOrders)

		r.Post("/discounts", h.CreateDiscount)
		r.Get("/discounts", h.ListDiscounts)
		r.Get("/discounts/{code}/valid", h.ValidateDiscount)

		r.Post("/payments/intent", h.CreatePaymentIntent)
		r.Post("/payments/webhook", h.PaymentWebhook)
		r.Post("/payments/{orderId}/confirm", h.ConfirmPayment)

		r.Post("/validation/validate", h.ValidateTicket)
		r.Get("/validation/stats", h.ValidationStats)

		r.Get("/tickets/{id}", h.GetTicket)
		r.Post("/tickets/{id}/cancel", h.CancelTicket)
		r.Get("/users/{id}/tickets", h.ListUserTickets)

		r.Get("/healthz", h.Healthz)
		r.Get("/readyz", h.Readyz)
	})

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}
