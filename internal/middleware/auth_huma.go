package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/quietriver/insighthub/internal/config"
	"github.com/quietriver/insighthub/internal/contextx"
	"github.com/quietriver/insighthub/internal/httpx"
	"github.com/quietriver/insighthub/internal/modules/identity"
)

// SessionAuthHuma is a router-agnostic Huma middleware for operations that
// require an authenticated session. It verifies the session cookie and injects
// the claims and user ID into the request context. On failure it writes an
// RFC7807 problem+json response with code ErrUnauthorized.
func SessionAuthHuma(cfg *config.Config, logger *slog.Logger) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		r, w := humachi.Unwrap(ctx)

		writeUnauthorized := func(detail string) {
			reqID := chimw.GetReqID(r.Context())
			p := &httpx.Problem{
				Type:      "urn:problem:identity/err-unauthorized",
				Title:     http.StatusText(http.StatusUnauthorized),
				Status:    http.StatusUnauthorized,
				Detail:    detail,
				Code:      "ErrUnauthorized",
				RequestID: reqID,
			}
			w.Header().Set("Content-Type", "application/problem+json")
			w.WriteHeader(p.GetStatus())
			_ = json.NewEncoder(w).Encode(p)
		}

		cookie, err := r.Cookie(cfg.Auth.CookieName)
		if err != nil || cookie.Value == "" {
			writeUnauthorized("missing session cookie")
			return
		}

		claims, err := identity.ParseSessionToken(cfg.Auth.JWTSecret, cookie.Value)
		if err != nil {
			logger.Warn("invalid session token", "error", err)
			writeUnauthorized("invalid or expired session")
			return
		}

		ctx = huma.WithValue(ctx, contextx.SessionClaimsKey, claims)
		ctx = huma.WithValue(ctx, contextx.UserIDKey, claims.UserID())
		next(ctx)
	}
}
