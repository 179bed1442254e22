package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mmeshcher/bistro-boss/internal/metrics"
	custommiddleware "github.com/mmeshcher/bistro-boss/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса Bistro Boss.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "Content-Encoding", "Accept-Encoding"},
		MaxAge:         300,
	}))
	r.Use(metrics.Middleware)
	r.Use(custommiddleware.Logger(h.logger))
	r.Use(custommiddleware.GzipMiddleware)

	authenticated := custommiddleware.Chain(h.authMiddleware.Authenticate)
	admin := custommiddleware.Chain(
		h.authMiddleware.Authenticate,
		custommiddleware.RequireAdmin(h.service, h.logger),
	)
	self := custommiddleware.Chain(
		h.authMiddleware.Authenticate,
		custommiddleware.RequireSelf("email"),
	)

	r.Get("/", h.Health)
	r.Handle("/metrics", metrics.Handler())

	r.Post("/jwt", h.IssueToken)

	r.Get("/menus", h.ListMenu)
	r.Get("/menu/{id}", h.GetMenuItem)
	r.With(admin).Post("/menu", h.CreateMenuItem)
	r.With(admin).Patch("/menu/{id}", h.UpdateMenuItem)
	r.With(admin).Delete("/menu/{id}", h.DeleteMenuItem)

	r.Get("/reviews", h.ListReviews)

	r.Get("/carts", h.ListCartItems)
	r.Post("/carts", h.AddCartItem)
	r.Delete("/carts/{id}", h.DeleteCartItem)

	r.Route("/users", func(r chi.Router) {
		r.With(admin).Post("/", h.CreateUser)
		r.With(admin).Get("/", h.ListUsers)
		r.With(self).Get("/{email}", h.CheckAdmin)
		r.With(admin).Delete("/{id}", h.DeleteUser)
		r.With(admin).Patch("/admin/{id}", h.PromoteUser)
	})

	r.Post("/create-payment-intent", h.CreatePaymentIntent)
	r.Post("/payments", h.FinalizePayment)
	r.Get("/payments/{email}", h.ListPayments)

	r.With(admin).Get("/admin/stats", h.AdminStats)
	r.With(admin).Get("/order-stats", h.OrderStats)

	r.Group(func(r chi.Router) {
		r.Use(authenticated)
		r.Get("/me", h.Me)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
