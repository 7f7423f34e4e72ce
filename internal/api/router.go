package api

import (
	"log/slog"
	"net/http"

	"github.com/farmercorner/motor-dashboard/internal/api/handlers"
	"github.com/farmercorner/motor-dashboard/internal/api/middleware"
	"github.com/farmercorner/motor-dashboard/internal/config"
	"github.com/farmercorner/motor-dashboard/internal/observability"
	"github.com/farmercorner/motor-dashboard/internal/service"
	"github.com/farmercorner/motor-dashboard/internal/websocket"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

func NewRouter(services *service.Services, hub *websocket.Hub, metrics *observability.Metrics, cfg *config.Config, log *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.RequestID)
	if cfg.TrustProxyHeaders {
		r.Use(chiMiddleware.RealIP)
	}
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.Metrics(metrics))
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.CORSOrigins()))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", metrics.Handler())

	// Initialize handlers
	cookie := handlers.SessionCookie{
		Name:   cfg.SessionCookieName,
		TTL:    cfg.SessionTTL,
		Secure: cfg.IsProduction(),
	}
	authHandler := handlers.NewAuthHandler(services.Auth, cookie, log)
	motorHandler := handlers.NewMotorHandler(services.Control, services.Activity, log)
	phaseHandler := handlers.NewPhaseHandler(services.Control, services.Activity, log)
	wsHandler := handlers.NewWebSocketHandler(hub, cfg.CORSOrigins(), log)

	requireSession := middleware.RequireSession(services.Sessions, cfg.SessionCookieName, log)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if cfg.RequestTimeout > 0 {
				r.Use(chiMiddleware.Timeout(cfg.RequestTimeout))
			}

			// Public auth routes
			r.Post("/auth/register", authHandler.Register)
			r.Post("/auth/login", authHandler.Login)

			// Protected routes
			r.Group(func(r chi.Router) {
				r.Use(requireSession)

				r.Get("/auth/me", authHandler.Me)
				r.Post("/auth/logout", authHandler.Logout)

				r.Get("/phase", phaseHandler.Current)
				r.Get("/phase/history", phaseHandler.History)

				r.Route("/motor", func(r chi.Router) {
					r.Post("/toggle", motorHandler.Toggle)
					r.Get("/status", motorHandler.Status)
					r.Get("/activity", motorHandler.Activity)
				})
			})
		})

		// WebSocket endpoint; long-lived, so outside the request timeout.
		r.With(requireSession).Get("/ws", wsHandler.Handle)
	})

	return r
}
