package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/solvedigitale/Digitext-last/internal/api/middleware"
	"github.com/solvedigitale/Digitext-last/internal/config"
	"github.com/solvedigitale/Digitext-last/internal/handlers"
	"github.com/solvedigitale/Digitext-last/internal/relay"
	"github.com/solvedigitale/Digitext-last/internal/store"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(cfg *config.Config, logger zerolog.Logger, h *handlers.Handler, hub *relay.Hub, redisStore *store.RedisStore) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(64 * 1024)) // 64KB max body; webhook deliveries are small

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	// Rate limiting (webhook and websocket routes are exempt by pattern)
	limiter := middleware.NewRateLimiter(redisStore, logger, middleware.RateLimiterConfig{
		Whitelist: cfg.RateLimitWhitelist,
	})
	r.Use(limiter.Middleware)

	// CORS - the admin front end connects from its own origin
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.FrontendURL, "https://digitext.io"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	// Service info and health
	r.Get("/", h.Root)
	r.Get("/health", h.Health)

	// Real-time relay channel
	r.Get("/ws", hub.ServeWS)

	// Provider webhooks (Instagram and Messenger share the Meta endpoint)
	r.Route("/webhooks", func(r chi.Router) {
		r.Get("/meta", h.VerifyWebhook)
		r.Post("/meta", h.MetaEvents)
		r.Get("/whatsapp", h.VerifyWebhook)
		r.Post("/whatsapp", h.WhatsAppEvents)
	})

	// Admin API
	r.Route("/api", func(r chi.Router) {
		r.Post("/accounts", h.CreateAccount)
		r.Get("/accounts", h.ListAccounts)
		r.Delete("/accounts/{id}", h.DeleteAccount)

		r.Get("/contacts", h.ListContacts)
		r.Get("/contacts/{id}/messages", h.GetContactMessages)
		r.Post("/contacts/{id}/read", h.MarkContactRead)

		// Graph API pass-through
		r.Route("/meta", func(r chi.Router) {
			r.Get("/instagram-accounts", h.GetInstagramAccounts)
			r.Get("/pages", h.GetPages)
			r.Post("/send-instagram-message", h.SendInstagramMessage)
			r.Post("/send-messenger-message", h.SendMessengerMessage)
		})
		r.Route("/whatsapp", func(r chi.Router) {
			r.Post("/send-message", h.SendWhatsAppMessage)
			r.Get("/business-profile", h.GetWhatsAppBusinessProfile)
		})
	})

	return r
}
