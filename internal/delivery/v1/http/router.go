package http

import (
	"context"
	"net/http"
	"time"

	_ "github.com/DRSN-tech/digital-vault/docs" // Регистрация swagger-спецификации
	"github.com/DRSN-tech/digital-vault/internal/usecase"
	"github.com/DRSN-tech/digital-vault/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

// ReadinessCheck проверяет, что зависимости сервиса доступны.
type ReadinessCheck func(ctx context.Context) error

type Router struct {
	router *chi.Mux
	logger logger.Logger
}

func NewRouter(router *chi.Mux, logger logger.Logger) *Router {
	return &Router{router: router, logger: logger}
}

func (r *Router) Init(prUC usecase.ProductUC, catUC usecase.CategoryUC, auth *Authenticator, ready ReadinessCheck) {
	r.router.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)

	r.router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"), // ссылка на JSON
	))
	r.router.Get("/health", health)
	r.router.Get("/ready", readiness(ready, r.logger))

	r.router.Route("/api/v1", func(v1 chi.Router) {
		prHandler := NewProductHandler(prUC, r.logger)
		registerProductRoutes(v1, prHandler, auth)

		catHandler := NewCategoryHandler(catUC, r.logger)
		v1.Get("/categories", catHandler.listCategories)
	})
}

func registerProductRoutes(router chi.Router, prHandler *ProductHandler, auth *Authenticator) {
	router.Route("/products", func(pr chi.Router) {
		pr.Get("/", prHandler.listProducts)
		pr.Get("/user/{userId}", prHandler.listUserProducts)
		pr.Get("/{id}", prHandler.getProduct)

		pr.Group(func(protected chi.Router) {
			protected.Use(auth.Middleware)
			protected.Post("/", prHandler.createProduct)
			protected.Patch("/{id}", prHandler.updateProduct)
			protected.Delete("/{id}", prHandler.deleteProduct)
		})
	})
}

func health(w http.ResponseWriter, _ *http.Request) {
	WriteSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}

func readiness(ready ReadinessCheck, logger logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := ready(ctx); err != nil {
			logger.Warnf("readiness check failed: %v", err)
			WriteSuccess(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}

		WriteSuccess(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
