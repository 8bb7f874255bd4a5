package identity

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/quietriver/insighthub/internal/validation"
)

// --- DTOs ---

// SignupRequest defines the structure for the signup request body.
type SignupRequest struct {
	Body struct {
		Email           string `json:"email" validate:"required,email"`
		Password        string `json:"password" validate:"required,min=8"`
		ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
	}
}

// SignupResponse defines the structure for a successful signup response.
type SignupResponse struct {
	Body struct {
		ID       string `json:"id"`
		Email    string `json:"email"`
		Username string `json:"username"`
	}
}

// LoginRequest defines the structure for the login request body. Login accepts
// either an email address or a username in the login field.
type LoginRequest struct {
	Body struct {
		Login       string `json:"login" validate:"required"`
		Password    string `json:"password" validate:"required"`
		CallbackURL string `json:"callbackUrl,omitempty"`
	}
}

// LoginResponse sets the session cookie and tells the client where to go next.
type LoginResponse struct {
	SetCookie http.Cookie `header:"Set-Cookie"`
	Body      struct {
		RedirectTo string `json:"redirectTo"`
	}
}

// LogoutRequest carries the raw Cookie header so the handler can find the
// session cookie regardless of the configured cookie name.
type LogoutRequest struct {
	Cookie string `header:"Cookie"`
}

// LogoutResponse clears the session cookie.
type LogoutResponse struct {
	SetCookie http.Cookie `header:"Set-Cookie"`
	Body      struct {
		Status string `json:"status"`
	}
}

// --- Handlers ---

// SignupHandler registers a password credential for an email address.
func (h *Handler) SignupHandler(ctx context.Context, input *SignupRequest) (*SignupResponse, error) {
	if err := validation.ValidateStruct(input.Body); err != nil {
		return nil, err
	}
	h.logger.Info("handling signup request", "email", input.Body.Email)

	user, err := h.service.Signup(ctx, input.Body.Email, input.Body.Password)
	if err != nil {
		if errors.Is(err, ErrEmailExists) {
			return nil, huma.Error409Conflict("an account with this email already exists")
		}
		h.logger.Error("signup failed", "error", err)
		return nil, huma.Error500InternalServerError("failed to create account")
	}

	resp := &SignupResponse{}
	resp.Body.ID = user.ID
	resp.Body.Email = user.Email
	resp.Body.Username = user.Username
	return resp, nil
}

// LoginHandler authenticates a password credential and sets the session cookie.
func (h *Handler) LoginHandler(ctx context.Context, input *LoginRequest) (*LoginResponse, error) {
	if err := validation.ValidateStruct(input.Body); err != nil {
		return nil, err
	}
	h.logger.Info("handling login request", "login", input.Body.Login)

	token, err := h.service.Login(ctx, input.Body.Login, input.Body.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			// Unknown account, OAuth-only account, and wrong password all
			// produce the same response to prevent account enumeration.
			return nil, huma.Error401Unauthorized("invalid login or password")
		}
		h.logger.Error("login failed", "error", err)
		return nil, huma.Error500InternalServerError("login failed")
	}

	resp := &LoginResponse{SetCookie: *NewSessionCookie(h.config, token)}
	resp.Body.RedirectTo = SafeCallbackURL(h.config.Auth.BaseURL, input.Body.CallbackURL)
	return resp, nil
}

// LogoutHandler deletes the server-side session row, if any, and expires the
// session cookie. Logging out with a missing or garbage cookie still succeeds.
func (h *Handler) LogoutHandler(ctx context.Context, input *LogoutRequest) (*LogoutResponse, error) {
	token := h.sessionTokenFromCookieHeader(input.Cookie)
	if err := h.service.Logout(ctx, token); err != nil {
		// The cookie is cleared regardless; a stale row is cleaned up later.
		h.logger.Warn("failed to delete session row during logout", "error", err)
	}

	resp := &LogoutResponse{SetCookie: *ClearSessionCookie(h.config)}
	resp.Body.Status = "logged out"
	return resp, nil
}

// sessionTokenFromCookieHeader extracts the session cookie's value from a raw
// Cookie header. Returns "" when the cookie is absent.
func (h *Handler) sessionTokenFromCookieHeader(rawCookie string) string {
	if rawCookie == "" {
		return ""
	}
	req := http.Request{Header: http.Header{"Cookie": []string{rawCookie}}}
	c, err := req.Cookie(h.config.Auth.CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
