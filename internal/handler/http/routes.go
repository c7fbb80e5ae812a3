package http

import (
	"github.com/devninja1/kiosk-app/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (h *Handler) Init() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(h.withRequestID)
	router.Use(h.withLogging)
	router.Use(middleware.Compress(5, "application/json"))

	router.Get("/api/version", h.getVersion)

	customers := recordHandlers[models.Customer]{service: h.services.Customers}
	router.Route("/api/customers", func(r chi.Router) {
		r.Get("/", customers.list)
		customers.mount(r)
	})

	products := recordHandlers[models.Product]{service: h.services.Products}
	router.Route("/api/products", func(r chi.Router) {
		r.Get("/", products.list)
		products.mount(r)
	})

	sales := recordHandlers[models.Sale]{service: h.services.Sales}
	router.Route("/api/sales", func(r chi.Router) {
		r.Get("/", h.listSales)
		sales.mount(r)
	})

	router.Route("/api/sync", func(r chi.Router) {
		r.Get("/status", h.syncStatus)
		r.Post("/run", h.runQueue)
		r.Get("/pending", h.pendingRequests)
		r.Get("/failed", h.failedRequests)
		r.Post("/failed/retry", h.retryAllFailed)
		r.Post("/failed/{id}/retry", h.retryFailed)
		r.Delete("/failed/{id}", h.deleteFailed)
	})

	return router
}
