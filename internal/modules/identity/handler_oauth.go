package identity

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// --- DTOs ---

// OAuthLoginRequest names the provider in the URL path and optionally carries
// the page to return to after login.
type OAuthLoginRequest struct {
	Provider    string `path:"provider"`
	CallbackURL string `query:"callbackUrl"`
}

// OAuthLoginResponse redirects the browser to the provider's consent screen.
type OAuthLoginResponse struct {
	Status   int
	Location string `header:"Location"`
}

// OAuthCallbackRequest defines the query parameters sent back by the provider.
type OAuthCallbackRequest struct {
	Provider string `path:"provider"`
	Code     string `query:"code"`
	State    string `query:"state"`
}

// OAuthCallbackResponse sets the session cookie and redirects into the app.
type OAuthCallbackResponse struct {
	Status    int
	Location  string      `header:"Location"`
	SetCookie http.Cookie `header:"Set-Cookie"`
}

// --- Handlers ---

// OAuthLoginHandler starts the OAuth flow with a 302 to the provider.
func (h *Handler) OAuthLoginHandler(ctx context.Context, input *OAuthLoginRequest) (*OAuthLoginResponse, error) {
	h.logger.Info("initiating oauth login", "provider", input.Provider)

	redirectURL, err := h.service.InitiateOAuthLogin(ctx, input.Provider, input.CallbackURL)
	if err != nil {
		if errors.Is(err, ErrUnsupportedOAuthProvider) {
			return nil, huma.Error400BadRequest("unsupported oauth provider")
		}
		h.logger.Error("failed to initiate oauth login", "error", err)
		return nil, huma.Error500InternalServerError("failed to initiate oauth login")
	}

	return &OAuthLoginResponse{
		Status:   http.StatusFound,
		Location: redirectURL,
	}, nil
}

// OAuthCallbackHandler finishes the OAuth flow. On success the session cookie
// is set and the browser is redirected to the page stored at initiation; any
// failure bounces back to the login page with an error marker instead of a
// JSON error, since the caller here is a browser mid-redirect.
func (h *Handler) OAuthCallbackHandler(ctx context.Context, input *OAuthCallbackRequest) (*OAuthCallbackResponse, error) {
	h.logger.Info("handling oauth callback", "provider", input.Provider)

	token, redirectTo, err := h.service.HandleOAuthCallback(ctx, input.Provider, input.State, input.Code)
	if err != nil {
		h.logger.Warn("oauth callback failed", "provider", input.Provider, "error", err)
		return &OAuthCallbackResponse{
			Status:   http.StatusFound,
			Location: h.config.Auth.BaseURL + "/login?error=oauth",
		}, nil
	}

	return &OAuthCallbackResponse{
		Status:    http.StatusFound,
		Location:  redirectTo,
		SetCookie: *NewSessionCookie(h.config, token),
	}, nil
}
