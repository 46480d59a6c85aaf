package http

import (
	"net/http"

	_ "github.com/DRSN-tech/catalog-backend/docs" // регистрация swagger-спецификации
	"github.com/DRSN-tech/catalog-backend/internal/usecase"
	"github.com/DRSN-tech/catalog-backend/pkg/logger"
	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

type Router struct {
	router *chi.Mux
	logger logger.Logger
}

func NewRouter(router *chi.Mux, logger logger.Logger) *Router {
	return &Router{router: router, logger: logger}
}

func (r *Router) Init(prUC usecase.ProductUC, publicDir string) {
	r.router.Use(WithRequestID, WithLogging(r.logger))

	r.router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		WriteSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	pages := NewPageHandler(publicDir)
	r.router.Get("/", pages.index)
	r.router.Get("/admin", pages.admin)

	r.router.Route("/api", func(api chi.Router) {
		prHandler := NewProductHandler(prUC, r.logger)
		registerProductRoutes(api, prHandler)
	})

	r.router.Handle("/*", pages.static())
}

func registerProductRoutes(router chi.Router, prHandler *ProductHandler) {
	router.Route("/products", func(pr chi.Router) {
		pr.Get("/", prHandler.listProducts)
		pr.Post("/", prHandler.createProduct)
		pr.Post("/import", prHandler.importProducts)
		pr.Delete("/{id}", prHandler.deleteProduct)
	})
}
