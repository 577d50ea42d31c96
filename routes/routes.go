package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/sop-assistant/app"
	"github.com/upb/sop-assistant/handlers"
	"github.com/upb/sop-assistant/utils"
)

const defaultRequestTimeout = 60 * time.Second

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	allowedOrigins := deps.Config.Server.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{handlers.ConversationIDHeader, "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	requestTimeout := deps.Config.Server.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}
	streamTimeout := deps.Config.Chat.StreamTimeout
	if streamTimeout <= 0 {
		streamTimeout = requestTimeout
	}

	// Health check endpoints
	r.Get("/healthz", handlers.HealthCheck(deps))
	r.Get("/readyz", handlers.ReadinessCheck(deps))

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Get("/status", handlers.StatusHandler(deps))

		r.Group(func(r chi.Router) {
			if deps.AuthMiddleware != nil {
				r.Use(deps.AuthMiddleware.RequireAuth)
			} else {
				r.Use(rejectUnauthenticated)
			}

			chatHandler := handlers.NewChatHandler(deps.ChatService, deps.Config.Chat.PersistTimeout, deps.Logger)
			docHandler := handlers.NewDocumentHandler(deps.DocumentService, deps.Config.Upload.MaxFileSize, deps.Logger)

			// Streaming chat gets its own, longer deadline
			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(streamTimeout))
				if deps.RateLimiter != nil {
					r.Use(deps.RateLimiter.Limit)
				}
				r.Post("/chat", chatHandler.HandleChat)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(requestTimeout))

				r.Get("/chats", chatHandler.HandleListChats)
				r.Get("/chats/{id}", chatHandler.HandleGetChat)

				r.Route("/sop", func(r chi.Router) {
					r.Get("/", docHandler.HandleList)
					r.Post("/", docHandler.HandleUpload)
					r.Post("/search", docHandler.HandleSearch)
					r.Get("/stats", docHandler.HandleStats)
					r.Delete("/{id}", docHandler.HandleDelete)
				})
			})
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})

	return r
}

// rejectUnauthenticated guards protected routes when no auth middleware was wired
func rejectUnauthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteUnauthorized(w, "Missing or invalid authorization")
	})
}
