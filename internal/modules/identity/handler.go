package identity

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/quietriver/insighthub/internal/config"
)

// Handler holds the dependencies for the identity module's HTTP handlers.
type Handler struct {
	service Service
	logger  *slog.Logger
	config  *config.Config
}

// NewHandler creates a new handler for the identity module.
func NewHandler(service Service, logger *slog.Logger, cfg *config.Config) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
		config:  cfg,
	}
}

// RegisterRoutes sets up the routing for the identity module. Operations that
// require an authenticated session take the session middleware.
func (h *Handler) RegisterRoutes(api huma.API, sessionAuth func(huma.Context, func(huma.Context))) {
	// --- Credential Routes ---
	huma.Register(api, huma.Operation{
		OperationID: "auth-signup",
		Method:      http.MethodPost,
		Path:        "/auth/signup",
		Summary:     "Register a password credential",
	}, h.SignupHandler)

	huma.Register(api, huma.Operation{
		OperationID: "auth-login",
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Summary:     "Log in with email or username",
	}, h.LoginHandler)

	huma.Register(api, huma.Operation{
		OperationID: "auth-logout",
		Method:      http.MethodPost,
		Path:        "/auth/logout",
		Summary:     "Log out the current session",
	}, h.LogoutHandler)

	// --- OAuth Routes ---
	huma.Register(api, huma.Operation{
		OperationID: "auth-oauth-login",
		Method:      http.MethodGet,
		Path:        "/auth/oauth/{provider}",
		Summary:     "Initiate OAuth login",
	}, h.OAuthLoginHandler)

	huma.Register(api, huma.Operation{
		OperationID: "auth-oauth-callback",
		Method:      http.MethodGet,
		Path:        "/auth/oauth/{provider}/callback",
		Summary:     "Handle OAuth callback",
	}, h.OAuthCallbackHandler)

	// --- Recovery Routes ---
	huma.Register(api, huma.Operation{
		OperationID: "auth-forgot-password",
		Method:      http.MethodPost,
		Path:        "/auth/forgot-password",
		Summary:     "Initiate password reset",
	}, h.ForgotPasswordHandler)

	huma.Register(api, huma.Operation{
		OperationID: "auth-reset-password",
		Method:      http.MethodPost,
		Path:        "/auth/reset-password",
		Summary:     "Reset password with a token",
	}, h.ResetPasswordHandler)

	huma.Register(api, huma.Operation{
		OperationID: "auth-request-set-password",
		Method:      http.MethodPost,
		Path:        "/auth/request-set-password",
		Summary:     "Request a set-password link for an OAuth-only account",
	}, h.RequestSetPasswordHandler)

	huma.Register(api, huma.Operation{
		OperationID: "auth-set-password",
		Method:      http.MethodPost,
		Path:        "/auth/set-password",
		Summary:     "Set a first password using the session or a token",
	}, h.SetPasswordHandler)

	huma.Register(api, huma.Operation{
		OperationID: "auth-forgot-username",
		Method:      http.MethodPost,
		Path:        "/auth/forgot-username",
		Summary:     "Email the account's username",
	}, h.ForgotUsernameHandler)

	// --- Account Routes (session required) ---
	huma.Register(api, huma.Operation{
		OperationID: "get-me",
		Method:      http.MethodGet,
		Path:        "/api/me",
		Summary:     "Get the current user",
		Middlewares: huma.Middlewares{sessionAuth},
	}, h.MeHandler)

	huma.Register(api, huma.Operation{
		OperationID: "change-username",
		Method:      http.MethodPost,
		Path:        "/api/change-username",
		Summary:     "Change the current user's username",
		Middlewares: huma.Middlewares{sessionAuth},
	}, h.ChangeUsernameHandler)

	huma.Register(api, huma.Operation{
		OperationID: "update-profile",
		Method:      http.MethodPatch,
		Path:        "/api/profile",
		Summary:     "Update the current user's profile",
		Middlewares: huma.Middlewares{sessionAuth},
	}, h.UpdateProfileHandler)

	huma.Register(api, huma.Operation{
		OperationID: "check-admin",
		Method:      http.MethodGet,
		Path:        "/api/check-admin",
		Summary:     "Check whether the current user is an admin",
		Middlewares: huma.Middlewares{sessionAuth},
	}, h.CheckAdminHandler)
}
