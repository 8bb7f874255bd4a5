package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/quietriver/insighthub/internal/config"
	"github.com/quietriver/insighthub/internal/contextx"
	"github.com/quietriver/insighthub/internal/httpx"
	"github.com/quietriver/insighthub/internal/modules/identity"
)

// protectedPagePrefixes require a session; unauthenticated requests are
// redirected to the login page with a callback URL.
var protectedPagePrefixes = []string{"/profile", "/admin"}

// protectedAPIPrefixes require a session; unauthenticated requests get a 401.
var protectedAPIPrefixes = []string{"/api/admin"}

// passwordGateExemptPrefixes are reachable by accounts without a password
// credential: the setup page itself, the API surface, auth endpoints, and
// static assets. Everything else redirects to /set-password.
var passwordGateExemptPrefixes = []string{"/set-password", "/api/", "/auth/", "/static/", "/favicon"}

// SessionGate evaluates every request before route handlers run. It decodes
// the session cookie cryptographically (no storage call), applies the
// path-prefix policy, forces OAuth-only accounts to the password-setup page,
// and re-issues the cookie past the sliding-renewal threshold.
func SessionGate(cfg *config.Config, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := sessionFromCookie(cfg, r)

			if claims == nil {
				if requiresSession(r.URL.Path, protectedAPIPrefixes) {
					writeUnauthorized(w, r, "authentication required")
					return
				}
				if requiresSession(r.URL.Path, protectedPagePrefixes) {
					loginURL := "/login?callbackUrl=" + url.QueryEscape(r.URL.Path)
					http.Redirect(w, r, loginURL, http.StatusFound)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			// OAuth-only accounts cannot use the rest of the app until they
			// establish a password credential. The exemption list prevents a
			// redirect loop on the setup page itself.
			if !claims.HasPassword && !isPasswordGateExempt(r.URL.Path) {
				http.Redirect(w, r, "/set-password", http.StatusFound)
				return
			}

			now := time.Now()
			if identity.ShouldRenew(claims, now) {
				renewed, err := identity.SignSessionToken(cfg.Auth.JWTSecret, identity.Renew(claims, now))
				if err != nil {
					logger.Error("failed to renew session token", "error", err)
				} else {
					http.SetCookie(w, identity.NewSessionCookie(cfg, renewed))
				}
			}

			ctx := context.WithValue(r.Context(), contextx.SessionClaimsKey, claims)
			ctx = context.WithValue(ctx, contextx.UserIDKey, claims.UserID())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// sessionFromCookie decodes and verifies the session cookie. Any failure
// (missing cookie, bad signature, expiry) yields nil: "no session".
func sessionFromCookie(cfg *config.Config, r *http.Request) *identity.SessionClaims {
	cookie, err := r.Cookie(cfg.Auth.CookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	claims, err := identity.ParseSessionToken(cfg.Auth.JWTSecret, cookie.Value)
	if err != nil {
		return nil
	}
	return claims
}

func requiresSession(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

func isPasswordGateExempt(path string) bool {
	if path == "/set-password" {
		return true
	}
	for _, prefix := range passwordGateExemptPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func writeUnauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	p := &httpx.Problem{
		Type:   "urn:problem:identity/err-unauthorized",
		Title:  http.StatusText(http.StatusUnauthorized),
		Status: http.StatusUnauthorized,
		Detail: detail,
		Code:   "ErrUnauthorized",
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.GetStatus())
	_ = json.NewEncoder(w).Encode(p)
}
