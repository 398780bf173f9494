// Package httpapi exposes the cart and catalog services as a JSON API.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"marketplace-be/internal/cart"
	"marketplace-be/internal/catalog"
	"marketplace-be/internal/logger"
	"marketplace-be/internal/metrics"
	"marketplace-be/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

type Deps struct {
	Cart    cart.Service
	Catalog catalog.Service
	Metrics *metrics.Registry
	Limiter *middleware.RateLimiter

	JWTSecret      []byte
	AuthCookieName string
	DefaultLocale  string
	CORSOrigins    []string

	// Ping reports database health for /healthz; nil skips the check.
	Ping func(ctx context.Context) error
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(logger.RequestIDMiddleware)
	r.Use(logger.LoggingMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Language", "Authorization", "Content-Type", logger.RequestIDHeader},
		ExposedHeaders:   []string{logger.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.Auth(d.JWTSecret, d.AuthCookieName))
	if d.Limiter != nil {
		r.Use(d.Limiter.Middleware)
	}

	r.Get("/healthz", healthHandler(d.Ping))
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, d.Metrics.Snapshot())
	})

	ch := &cartHandler{svc: d.Cart}
	r.Route("/cart", ch.routes)

	cat := &catalogHandler{svc: d.Catalog, defaultLocale: d.DefaultLocale}
	r.Get("/products", cat.listProducts)
	r.Get("/products/{productID}", cat.getProduct)
	r.Get("/categories", cat.listCategories)
	r.Get("/tags", cat.listTags)

	return r
}

func healthHandler(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
