package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/openkmj/timjs/handlers"
	"github.com/openkmj/timjs/notify"
	"github.com/openkmj/timjs/realtime"
	"github.com/openkmj/timjs/routes"
	"github.com/openkmj/timjs/services"
	"github.com/openkmj/timjs/storage"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	logger := a.logger

	objectStorage, err := storage.New(ctx, a.cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize object storage: %w", err)
	}
	logger.Info("object storage initialized", slog.String("backend", a.cfg.Storage.Backend), slog.String("bucket", a.cfg.Storage.BucketName))

	hub := realtime.NewHub(logger)
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx)
	logger.Info("websocket hub started")

	expo := notify.NewExpoClient(notify.ExpoConfig{AccessToken: a.cfg.ExpoAccessToken})
	notifier := services.NewTeamNotifier(a.userRepo, expo, hub, logger)

	authService := services.NewAuthService(a.userRepo, a.userCache, a.cfg.Admin)
	eventService := services.NewEventService(a.eventRepo, notifier)
	mediaService := services.NewMediaService(a.db, a.teamRepo, a.eventRepo, a.mediaRepo, a.ledger, objectStorage, notifier, logger)
	feedService := services.NewFeedService(a.mediaRepo)
	userService := services.NewUserService(a.userRepo, a.teamRepo, objectStorage, a.userCache)
	logger.Info("services initialized")

	router := chi.NewRouter()
	routes.SetupRoutes(router, routes.Handlers{
		Health:    handlers.NewHealthHandler(a.db),
		Event:     handlers.NewEventHandler(eventService),
		Media:     handlers.NewMediaHandler(mediaService, feedService),
		User:      handlers.NewUserHandler(userService),
		Admin:     handlers.NewAdminHandler(authService, a.teamService()),
		WebSocket: handlers.NewWebSocketHandler(hub, a.cfg.CORSAllowedOrigins),
	}, authService, logger, a.cfg.CORSAllowedOrigins)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", a.cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logger.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))
	stopHub()
	if err := server.Shutdown(shutdownCtx); err != nil {
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("failed to force close server", slog.Any("error", closeErr))
		}
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("server shutdown complete")
	return nil
}
