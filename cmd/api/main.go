package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/danielgtaylor/huma/v2/humacli"

	"github.com/quietriver/insighthub/internal/cache"
	"github.com/quietriver/insighthub/internal/config"
	"github.com/quietriver/insighthub/internal/database"
	"github.com/quietriver/insighthub/internal/modules/forum"
	"github.com/quietriver/insighthub/internal/modules/identity"
	"github.com/quietriver/insighthub/internal/modules/insight"
	"github.com/quietriver/insighthub/internal/notification"
	"github.com/quietriver/insighthub/internal/notification/templates"
	"github.com/quietriver/insighthub/internal/server"
)

// Options for the CLI.
type Options struct {
	Port string `help:"Port to listen on" short:"p"`
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, options *Options) {
		logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
		cfg := config.Load()
		if cfg == nil {
			logger.Error("failed to load configuration")
			os.Exit(1)
		}
		logger.Info("configuration loaded", "env", cfg.Server.Env)

		port := options.Port
		if port == "" {
			port = cfg.Server.Port
		}

		// --- Database & Cache ---
		dbPool := database.NewPostgresPool(cfg.Database.URL)
		if dbPool == nil {
			logger.Error("failed to connect to postgres")
			os.Exit(1)
		}
		hooks.OnStop(dbPool.Close)
		logger.Info("connected to postgres")

		redisClient := cache.NewRedisClient(cfg.Redis.URL)
		if redisClient == nil {
			logger.Error("failed to connect to redis")
			os.Exit(1)
		}
		hooks.OnStop(func() { redisClient.Close() })
		logger.Info("connected to redis")

		// --- Notifications ---
		emailSender := notification.NewSMTPEmailSender(
			cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From, logger,
		)
		notifier := notification.NewService(logger, emailSender)
		tmplEngine := templates.NewEngine(templates.Config{}, logger)

		// --- Modules (bottom-up) ---
		identityRepo := identity.NewRepository(dbPool)
		identityService := identity.NewService(&identity.Config{
			Repo:      identityRepo,
			Logger:    logger,
			Config:    cfg,
			Notifier:  notifier,
			Templates: tmplEngine,
		})

		insightService := insight.NewService(insight.NewRepository(dbPool), logger)
		forumService := forum.NewService(forum.NewRepository(dbPool), identityService, logger)

		router := server.New(cfg, logger, redisClient, server.Services{
			Identity: identityService,
			Insight:  insightService,
			Forum:    forumService,
		})

		hooks.OnStart(func() {
			logger.Info(fmt.Sprintf("starting server on port %s", port))
			if err := http.ListenAndServe(":"+port, router); err != nil {
				logger.Error("server failed to start", "error", err)
				os.Exit(1)
			}
		})
	})
	cli.Run()
}
