// Package http is the REST edge: a chi router, request decoding, session
// guards and the mapping from service errors to status codes.
package http

import (
	"net/http"
	"time"

	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/domain"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/pkg/logger"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/pkg/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterConfig struct {
	RequestTimeout time.Duration
	// AuthRateLimit is requests per minute per client IP on /auth.
	AuthRateLimit int
}

type Services struct {
	Auth     Authenticator
	Catalog  ProductCatalog
	Carts    CartUseCase
	Checkout Checkouter
	Orders   OrderUseCase
	Sessions SessionVerifier
}

func NewRouter(cfg RouterConfig, svc Services, log *logger.Logger, m *metrics.Metrics) http.Handler {
	authH := NewAuthHandler(svc.Auth, log)
	productH := NewProductHandler(svc.Catalog, log)
	cartH := NewCartHandler(svc.Carts, log)
	orderH := NewOrderHandler(svc.Checkout, svc.Orders, log)
	g := guard{sessions: svc.Sessions, log: log}
	admin := func(fn authedHandlerFunc) http.HandlerFunc { return g.role(domain.RoleAdmin, fn) }

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log, m))
	r.Use(middleware.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, log, http.StatusOK, map[string]string{"status": "ok"})
	})
	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	r.Route("/auth", func(r chi.Router) {
		r.Use(rateLimit(cfg.AuthRateLimit, log))
		r.Post("/register", authH.Register)
		r.Post("/login", authH.Login)
	})

	r.Route("/products", func(r chi.Router) {
		r.Get("/", productH.List)
		r.Get("/{slug}", productH.GetBySlug)
		r.Post("/", admin(productH.Create))
		r.Put("/{id}", admin(productH.Update))
		r.Delete("/{id}", admin(productH.Delete))
	})

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", g.authed(cartH.GetCart))
		r.Delete("/", g.authed(cartH.ClearCart))
		r.Get("/items", g.authed(cartH.ListItems))
		r.Post("/items", g.authed(cartH.AddItem))
		r.Patch("/items/{itemId}", g.authed(cartH.UpdateQuantity))
		r.Delete("/items/{itemId}", g.authed(cartH.RemoveItem))
	})

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", g.authed(orderH.Checkout))
		r.Get("/", g.authed(orderH.ListMine))
		r.Get("/{id}", g.authed(orderH.Get))
	})

	r.Route("/admin", func(r chi.Router) {
		r.Get("/orders", admin(orderH.ListAll))
		r.Patch("/orders/{id}/status", admin(orderH.UpdateStatus))
		r.Get("/products", admin(productH.ListAll))
		r.Post("/products", admin(productH.Create))
		r.Put("/products/{id}", admin(productH.Update))
		r.Delete("/products/{id}", admin(productH.Delete))
	})

	return r
}
