package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/openkmj/timjs/cache"
	"github.com/openkmj/timjs/config"
	"github.com/openkmj/timjs/db"
	"github.com/openkmj/timjs/repositories"
	"github.com/openkmj/timjs/services"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "timjs",
		Short:         "Team event and media sharing backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newServeCmd(),
		newCreateTeamCmd(),
		newCreateUserCmd(),
		newReconcileCmd(),
	)
	return root
}

// app holds the dependencies shared by every subcommand.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *sql.DB

	teamRepo  repositories.TeamRepository
	userRepo  repositories.UserRepository
	eventRepo repositories.EventRepository
	mediaRepo repositories.MediaRepository

	ledger    *services.QuotaLedger
	userCache services.UserCache
	closers   []func() error
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	logger.Info("database connection established")

	a := &app{
		cfg:       cfg,
		logger:    logger,
		db:        dbConn,
		teamRepo:  repositories.NewPostgresTeamRepository(dbConn),
		userRepo:  repositories.NewPostgresUserRepository(dbConn),
		eventRepo: repositories.NewPostgresEventRepository(dbConn),
		mediaRepo: repositories.NewPostgresMediaRepository(dbConn),
		userCache: services.NoopUserCache{},
		closers:   []func() error{dbConn.Close},
	}
	a.ledger = services.NewQuotaLedger(dbConn, a.teamRepo, a.mediaRepo)

	if cfg.RedisURL != "" {
		client, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("redis unavailable, api key cache disabled", slog.Any("error", err))
		} else {
			a.userCache = cache.NewRedisUserCache(client, cache.DefaultUserTTL, logger)
			a.closers = append(a.closers, client.Close)
			logger.Info("redis api key cache enabled")
		}
	}

	return a, nil
}

func (a *app) teamService() services.TeamService {
	return services.NewTeamService(a.teamRepo, a.userRepo, a.ledger, a.userCache, a.cfg.DefaultStorageLimitKB)
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Error("failed to release resource", slog.Any("error", err))
		}
	}
}
