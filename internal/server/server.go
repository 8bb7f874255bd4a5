package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/quietriver/insighthub/internal/config"
	"github.com/quietriver/insighthub/internal/middleware"
	"github.com/quietriver/insighthub/internal/modules/forum"
	"github.com/quietriver/insighthub/internal/modules/identity"
	"github.com/quietriver/insighthub/internal/modules/insight"
)

// Services groups the module services the router wires up.
type Services struct {
	Identity identity.Service
	Insight  insight.Service
	Forum    forum.Service
}

// New creates and configures the HTTP router: chi base middleware, the auth
// rate limiter, the session gate, and the Huma API with all module routes.
func New(cfg *config.Config, log *slog.Logger, rdb *redis.Client, svcs Services) chi.Router {
	router := chi.NewMux()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(chimw.Logger)
	router.Use(chimw.Recoverer)
	router.Use(chimw.Timeout(60 * time.Second))
	router.Use(middleware.AuthRateLimit(rdb, log, cfg.RateLimit.Requests, time.Duration(cfg.RateLimit.WindowSeconds)*time.Second))
	router.Use(middleware.SessionGate(cfg, log))

	apiConfig := huma.DefaultConfig("InsightHub", "1.0.0")
	apiConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"session": {
			Type: "apiKey",
			In:   "cookie",
			Name: cfg.Auth.CookieName,
		},
	}
	api := humachi.New(router, apiConfig)

	sessionAuth := middleware.SessionAuthHuma(cfg, log)

	identity.NewHandler(svcs.Identity, log, cfg).RegisterRoutes(api, sessionAuth)
	insight.NewHandler(svcs.Insight, svcs.Identity, log).RegisterRoutes(api, sessionAuth)
	forum.NewHandler(svcs.Forum, log).RegisterRoutes(api, sessionAuth)

	huma.Register(api, huma.Operation{
		OperationID: "get-health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health Check",
		Description: "Responds with the server's health status.",
	}, func(ctx context.Context, input *struct{}) (*struct {
		Body struct {
			Status string `json:"status"`
		}
	}, error) {
		resp := &struct {
			Body struct {
				Status string `json:"status"`
			}
		}{}
		resp.Body.Status = "ok"
		return resp, nil
	})

	return router
}
