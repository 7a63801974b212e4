package routes

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/openkmj/timjs/handlers"
	"github.com/openkmj/timjs/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/openkmj/timjs/docs"
)

type Handlers struct {
	Health    *handlers.HealthHandler
	Event     *handlers.EventHandler
	Media     *handlers.MediaHandler
	User      *handlers.UserHandler
	Admin     *handlers.AdminHandler
	WebSocket *handlers.WebSocketHandler
}

func SetupRoutes(router chi.Router, h Handlers, auth middleware.Authenticator, logger *slog.Logger, allowedOrigins []string) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(middleware.RequestLogger(logger))
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/", h.Health.Root)
	router.Get("/health", h.Health.Health)
	router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	router.With(middleware.Authenticate(auth, true)).Get("/ws", h.WebSocket.ServeWs)

	router.Route("/api", func(r chi.Router) {
		r.Use(middleware.Authenticate(auth, false))

		r.Route("/events", func(r chi.Router) {
			r.Get("/", h.Event.ListEvents)
			r.Post("/", h.Event.CreateEvent)
			r.Get("/{eventID}", h.Event.GetEvent)
			r.Put("/{eventID}", h.Event.UpdateEvent)
			r.Delete("/{eventID}", h.Event.DeleteEvent)
		})

		r.Route("/media", func(r chi.Router) {
			r.Get("/", h.Media.Feed)
			r.Post("/", h.Media.ConfirmUploads)
			r.Post("/presigned-url", h.Media.RequestUpload)
			r.Get("/{mediaID}", h.Media.GetMedia)
			r.Delete("/{mediaID}", h.Media.DeleteMedia)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/me", h.User.Me)
			r.Put("/push-token", h.User.UpdatePushToken)
			r.Post("/profile-image/presigned-url", h.User.RequestProfileImageUpload)
			r.Put("/profile-image", h.User.UpdateProfileImage)
		})
	})

	router.Route("/admin", func(r chi.Router) {
		r.Post("/login", h.Admin.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(auth))

			r.Get("/teams", h.Admin.ListTeams)
			r.Post("/teams", h.Admin.CreateTeam)
			r.Put("/teams/{teamID}/storage-limit", h.Admin.SetStorageLimit)
			r.Post("/teams/{teamID}/reconcile", h.Admin.ReconcileStorage)
			r.Post("/users", h.Admin.CreateUser)
			r.Post("/users/{userID}/rotate-key", h.Admin.RotateAPIKey)
		})
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"the requested resource could not be found"}` + "\n"))
	})
}
