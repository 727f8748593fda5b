package router

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/zaiqa-pos/api/internal/config"
	"github.com/zaiqa-pos/api/internal/database"
	"github.com/zaiqa-pos/api/internal/events"
	"github.com/zaiqa-pos/api/internal/handler"
	mw "github.com/zaiqa-pos/api/internal/middleware"
	"github.com/zaiqa-pos/api/internal/service"
	"github.com/zaiqa-pos/api/internal/sse"
	"github.com/zaiqa-pos/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
func New(cfg *config.Config, queries *database.Queries, pool service.TxBeginner, bus *events.Bus, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// WebSocket route (handles auth internally via query param or cookie)
	r.Get("/ws/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	r.Route("/api", func(r chi.Router) {
		// Auth routes (public)
		authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
		authHandler.RegisterRoutes(r)

		// Protected routes (require the session cookie)
		r.Group(func(r chi.Router) {
			r.Use(mw.Authenticate(cfg.JWTSecret))

			r.Post("/auth/me", authHandler.Me)

			newOrderStore := func(db database.DBTX) service.OrderStore {
				return database.New(db)
			}
			orderService := service.NewOrderService(pool, newOrderStore)

			orderHandler := handler.NewOrderHandler(orderService, queries, bus)
			orderHandler.RegisterRoutes(r)

			salesHandler := handler.NewSalesHandler(queries, orderService, bus)
			salesHandler.RegisterRoutes(r)

			tableHandler := handler.NewTableHandler(queries)
			tableHandler.RegisterRoutes(r)

			catalogHandler := handler.NewCatalogHandler(queries)
			catalogHandler.RegisterRoutes(r)

			settingsHandler := handler.NewSettingsHandler(queries)
			settingsHandler.RegisterRoutes(r)

			sseHandler := sse.NewHandler(bus)
			r.Get("/notifications/stream", sseHandler.Stream)
		})
	})

	log.Println("Router initialized with all handlers")
	return r
}
