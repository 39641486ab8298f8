package mockapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/middleware"
)

// catalogMaxAge is how long public catalog responses may be cached.
const catalogMaxAge = 60

// NewRouter creates a chi router with every storefront API route registered
// under /api/v1.
func NewRouter(s *Server, healthHandler *health.Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(s.cors))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("mockapi"))
	r.Use(middleware.Tracing("mockapi"))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	validate := s.tokens.ValidateAccess

	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login/", s.Login)
			r.Post("/register/", s.Register)
			r.Post("/verify_register/", s.VerifyRegister)
			r.Post("/refresh/", s.Refresh)
			r.Post("/send_email_code/", s.SendEmailCode)
			r.Post("/email_login/", s.EmailLogin)
			r.Post("/send_reset_code/", s.SendResetCode)
			r.Post("/reset_password/", s.ResetPassword)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(validate))
				r.Get("/me/", s.Me)
				r.Patch("/me/", s.UpdateMe)
				r.Put("/password_change/", s.ChangePassword)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(validate))
			r.Use(middleware.CacheControl(catalogMaxAge))
			r.Get("/categories/", s.Categories)
			r.Get("/products/", s.Products)
			r.Get("/products/{id}/", s.Product)
		})

		// Authenticated endpoints
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(validate))

			r.Get("/cart/", s.Cart)
			r.Post("/cart/add_item/", s.AddCartItem)
			r.Put("/cart/update_item/{id}/", s.UpdateCartItem)
			r.Delete("/cart/remove_item/{id}/", s.RemoveCartItem)
			r.Post("/cart/clear/", s.ClearCart)

			r.Get("/orders/", s.Orders)
			r.Post("/orders/", s.CreateOrder)
			r.Get("/orders/{id}/", s.Order)
			for _, action := range []domain.OrderAction{domain.ActionPay, domain.ActionCancel, domain.ActionConfirm} {
				r.Post("/orders/{id}/"+string(action)+"/", s.OrderAction(action))
			}

			r.Get("/addresses/", s.Addresses)
			r.Post("/addresses/", s.CreateAddress)
			r.Put("/addresses/{id}/", s.UpdateAddress)
			r.Delete("/addresses/{id}/", s.DeleteAddress)

			r.Get("/favorites/", s.Favorites)
			r.Post("/favorites/toggle/", s.ToggleFavorite)
			r.Delete("/favorites/remove/{id}/", s.RemoveFavorite)

			// Admin endpoints
			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireRole(domain.RoleAdmin))

				r.Get("/products/", s.AdminProducts)
				r.Post("/products/", s.CreateProduct)
				r.Put("/products/{id}/", s.UpdateProduct)
				r.Delete("/products/{id}/", s.DeleteProduct)

				r.Get("/orders/", s.AdminOrders)
				r.Post("/orders/{id}/ship/", s.ShipOrder)
			})
		})
	})

	return r
}
