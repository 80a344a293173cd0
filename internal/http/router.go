package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/go_store/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterConfig struct {
	Checkout       *CheckoutHandler
	Orders         *OrdersHandler
	Carts          *CartHandler
	Products       *ProductHandler
	Auth           Authenticator
	Metrics        *metrics.Metrics
	RequestTimeout time.Duration
	// Log receives the per-request access lines. Nil means slog.Default().
	Log            *slog.Logger
}

// NewRouter mounts the store API. The webhook route sits outside customer
// authentication since the processor proves itself with a signature.
func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware(cfg.Metrics))
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler())
	}

	r.Post("/checkout/webhook", cfg.Checkout.Webhook)
	r.Get("/products", cfg.Products.List)

	r.Route("/carts", func(r chi.Router) {
		r.Post("/", cfg.Carts.CreateCart)
		r.Get("/{cart_id}", cfg.Carts.GetCart)
		r.Post("/{cart_id}/items", cfg.Carts.AddItem)
	})

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Auth))
		r.Post("/checkout", cfg.Checkout.Checkout)
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", cfg.Orders.ListOrders)
			r.Get("/{order_id}", cfg.Orders.GetOrder)
			r.Get("/{order_id}/payments", cfg.Orders.PaymentHistory)
		})
	})

	return otelhttp.NewHandler(r, "store-http")
}
