package identity

import (
	"net/http"

	"github.com/quietriver/insighthub/internal/config"
)

// NewSessionCookie builds the session-carrying cookie: HTTP-only, SameSite=Lax,
// scoped to "/", Secure outside local development, fixed 30-day max age.
func NewSessionCookie(cfg *config.Config, token string) *http.Cookie {
	return &http.Cookie{
		Name:     cfg.Auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(SessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   !cfg.IsDevelopment(),
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearSessionCookie returns an expired cookie with the same attributes so
// browsers drop the session cookie.
func ClearSessionCookie(cfg *config.Config) *http.Cookie {
	c := NewSessionCookie(cfg, "")
	c.MaxAge = -1
	return c
}
