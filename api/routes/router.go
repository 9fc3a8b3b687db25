package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sumon-ahmed84/book-courier-server11/api/controllers"
	"github.com/sumon-ahmed84/book-courier-server11/api/middleware"
	"github.com/sumon-ahmed84/book-courier-server11/internal/catalog"
	checkoutsvc "github.com/sumon-ahmed84/book-courier-server11/internal/checkout"
	"github.com/sumon-ahmed84/book-courier-server11/internal/orders"
	"github.com/sumon-ahmed84/book-courier-server11/internal/sellerrequests"
	"github.com/sumon-ahmed84/book-courier-server11/internal/users"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/config"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/db/models"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/logger"
)

// Deps carries everything the router wires together.
type Deps struct {
	Config  *config.Config
	Logger  *logger.Logger
	DB      controllers.Pinger
	Redis   controllers.Pinger
	Catalog catalog.Service
	Orders  orders.Service

	Checkout       checkoutsvc.Service
	Reconcile      controllers.Reconciler
	Users          users.Service
	SellerRequests sellerrequests.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"postgres": deps.DB,
			"redis":    deps.Redis,
		}))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// public catalog
		r.Route("/books", func(r chi.Router) {
			r.Get("/", controllers.BooksList(deps.Catalog, logg))
			r.Get("/latest", controllers.BooksLatest(deps.Catalog, logg))
			r.Get("/search", controllers.BooksSearch(deps.Catalog, logg))
			r.Get("/{bookId}", controllers.BookGet(deps.Catalog, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(cfg.JWT, logg))
				r.Use(middleware.RequireRole(models.RoleSeller, logg))
				r.Post("/", controllers.BookCreate(deps.Catalog, logg))
			})
		})

		// identity upsert happens before a token exists
		r.Post("/users", controllers.UserUpsert(deps.Users, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))

			r.Post("/checkout-sessions", controllers.CheckoutCreate(deps.Checkout, logg))
			r.Post("/reconcile-payment", controllers.ReconcilePayment(deps.Reconcile, logg))

			r.Get("/users/role", controllers.UserRole(deps.Users, logg))
			r.Post("/seller-requests", controllers.SellerRequestCreate(deps.SellerRequests, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/mine", controllers.OrdersMine(deps.Orders, logg))

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(models.RoleSeller, logg))
					r.Get("/by-seller", controllers.OrdersBySeller(deps.Orders, logg))
				})

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireAnyRole(logg, models.RoleSeller, models.RoleAdmin))
					r.Patch("/{orderId}/status", controllers.OrderUpdateStatus(deps.Orders, logg))
					r.Delete("/{orderId}", controllers.OrderDelete(deps.Orders, logg))
				})
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleSeller, logg))
				r.Get("/inventory/by-seller", controllers.SellerInventory(deps.Catalog, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(models.RoleAdmin, logg))

		r.Get("/users", controllers.AdminUsersList(deps.Users, logg))
		r.Get("/seller-requests", controllers.AdminSellerRequestsList(deps.SellerRequests, logg))
		r.Patch("/users/role", controllers.AdminChangeRole(deps.Users, logg))
	})

	return r
}
