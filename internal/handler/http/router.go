package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/vasiliy-maslov/ecommerce-platform/internal/auth"
	"github.com/vasiliy-maslov/ecommerce-platform/internal/user"
)

// Handlers bundles the endpoint groups the router mounts.
type Handlers struct {
	Auth     *AuthHandler
	Users    *UserHandler
	Products *ProductHandler
	Orders   *OrderHandler
	Reports  *ReportHandler
}

// NewRouter assembles the full HTTP surface: public catalog and auth
// endpoints, the authenticated order subtree, and the three role-scoped
// dashboard subtrees.
func NewRouter(corsOrigin string, authSvc auth.Service, h Handlers) *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{corsOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authenticate := auth.Authenticator(authSvc)

	router.Get("/health", handleHealth)

	router.Route("/api", func(api chi.Router) {
		api.Route("/auth", func(r chi.Router) {
			h.Auth.RegisterRoutes(r, authenticate)
		})

		api.Route("/products", func(r chi.Router) {
			h.Products.RegisterRoutes(r, authenticate)
		})

		api.Route("/orders", func(r chi.Router) {
			r.Use(authenticate)
			h.Orders.RegisterRoutes(r)
		})

		api.Route("/admin", func(r chi.Router) {
			r.Use(authenticate)
			r.Use(auth.RequireRole(user.RoleAdmin))
			h.Reports.RegisterAdminRoutes(r)
			h.Users.RegisterRoutes(r)
		})

		api.Route("/seller", func(r chi.Router) {
			r.Use(authenticate)
			r.Use(auth.RequireRole(user.RoleSeller))
			h.Reports.RegisterSellerRoutes(r)
			h.Products.RegisterSellerRoutes(r)
		})

		api.Route("/delivery", func(r chi.Router) {
			r.Use(authenticate)
			r.Use(auth.RequireRole(user.RoleDelivery))
			h.Reports.RegisterDeliveryRoutes(r)
			h.Orders.RegisterDeliveryRoutes(r)
		})
	})

	return router
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondWithData(w, http.StatusOK, map[string]string{"status": "ok"})
}
