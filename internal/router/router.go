package router

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/surtidora/api/internal/access"
	"github.com/surtidora/api/internal/cart"
	"github.com/surtidora/api/internal/config"
	"github.com/surtidora/api/internal/enum"
	"github.com/surtidora/api/internal/handler"
	mw "github.com/surtidora/api/internal/middleware"
	"github.com/surtidora/api/internal/ws"
)

// Deps are the collaborators the routes are built from.
type Deps struct {
	Config     *config.Config
	Policy     access.Policy
	Products   handler.ProductCatalog
	Carts      cart.Storage
	CartPolicy cart.Policy
	Checkout   handler.Checkouter
	Records    map[string]handler.RecordService
	Hub        *ws.Hub
}

// New creates a Chi router with all application routes wired up.
// Every route sits behind one route class of the access policy.
func New(d Deps) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.Config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/{kind}", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(d.Hub, d.Config.JWTSecret, d.Policy, w, r)
	})

	r.Group(func(r chi.Router) {
		r.Use(mw.Identify(d.Config.JWTSecret))

		guard := func(class string) func(http.Handler) http.Handler {
			return mw.RequireRouteClass(d.Policy, class)
		}

		// Public
		r.Group(func(r chi.Router) {
			r.Use(guard(enum.RouteClassPublic))

			accessHandler := handler.NewAccessHandler(d.Policy)
			r.Route("/access", accessHandler.RegisterRoutes)

			productHandler := handler.NewProductHandler(d.Products, d.CartPolicy.Tiers)
			r.Route("/products", productHandler.RegisterRoutes)
		})

		// Cart
		cartHandler := handler.NewCartHandler(d.Carts, d.Products, d.CartPolicy, d.Checkout)
		r.Route("/cart", func(r chi.Router) {
			r.With(guard(enum.RouteClassCheckout)).Post("/checkout", cartHandler.Checkout)

			r.Group(func(r chi.Router) {
				r.Use(guard(enum.RouteClassShop))
				cartHandler.RegisterRoutes(r)
			})
		})

		// Admin panels
		r.Route("/admin", func(r chi.Router) {
			r.Use(guard(enum.RouteClassAdmin))
			recordHandler := handler.NewRecordHandler(d.Records)
			recordHandler.RegisterRoutes(r)
		})
	})

	log.Println("Router initialized with all handlers")
	return r
}
