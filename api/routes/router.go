package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/harborline/storefront-backend/api/controllers"
	cartcontrollers "github.com/harborline/storefront-backend/api/controllers/cart"
	"github.com/harborline/storefront-backend/api/middleware"
	"github.com/harborline/storefront-backend/internal/cart"
	"github.com/harborline/storefront-backend/pkg/config"
	"github.com/harborline/storefront-backend/pkg/logger"
)

// NewRouter assembles the HTTP surface for the storefront API.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbPinger controllers.Pinger,
	cachePinger controllers.Pinger,
	cartService cart.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.AllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbPinger, cachePinger))
	})

	r.Route("/api/v1/carts", func(r chi.Router) {
		r.Post("/", cartcontrollers.Create(cartService, logg))
		r.Post("/merge", cartcontrollers.Merge(cartService, logg))

		r.Route("/{cartID}", func(r chi.Router) {
			r.Get("/", cartcontrollers.Fetch(cartService, logg))
			r.Delete("/", cartcontrollers.Clear(cartService, logg))
			r.Post("/items", cartcontrollers.AddItem(cartService, logg))
			r.Put("/items/{productID}", cartcontrollers.UpdateQuantity(cartService, logg))
			r.Delete("/items/{productID}", cartcontrollers.RemoveItem(cartService, logg))
		})
	})

	return r
}
