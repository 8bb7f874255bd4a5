package identity

import (
	"context"
	"log/slog"

	"github.com/quietriver/insighthub/internal/config"
	"github.com/quietriver/insighthub/internal/notification"
	"github.com/quietriver/insighthub/internal/notification/templates"
)

// Service is the identity module's business logic: credential and OAuth
// sign-in, recovery token flows, username changes, and profile access. It
// orchestrates the adapter and repository and owns session token issuance.
type Service interface {
	// Password credential path
	Signup(ctx context.Context, email, password string) (*User, error)
	Login(ctx context.Context, login, password string) (string, error)
	Logout(ctx context.Context, sessionToken string) error

	// OAuth path
	InitiateOAuthLogin(ctx context.Context, provider, callbackURL string) (redirectURL string, err error)
	HandleOAuthCallback(ctx context.Context, provider, state, code string) (sessionToken, redirectTo string, err error)

	// Recovery token flows
	InitiatePasswordReset(ctx context.Context, email string) error
	InitiatePasswordSet(ctx context.Context, email string) error
	InitiateUsernameRecovery(ctx context.Context, email string) error
	ResetPasswordWithToken(ctx context.Context, token, newPassword string) error
	SetPasswordWithSession(ctx context.Context, userID, password string) error

	// Account & profile
	ChangeUsername(ctx context.Context, userID, newUsername string) (string, error)
	GetUser(ctx context.Context, userID string) (*User, error)
	GetOrCreateProfile(ctx context.Context, userID string) (*Profile, error)
	UpdateProfile(ctx context.Context, userID string, patch ProfilePatch) (*Profile, error)
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// service implements the Service interface.
type service struct {
	repo     Repository
	adapter  *Adapter
	logger   *slog.Logger
	config   *config.Config
	notifier notification.Service
	tmpl     *templates.Engine
}

// Config holds the dependencies for the identity service.
type Config struct {
	Repo      Repository
	Logger    *slog.Logger
	Config    *config.Config
	Notifier  notification.Service
	Templates *templates.Engine
}

// NewService creates a new identity service with the given dependencies.
func NewService(cfg *Config) Service {
	return &service{
		repo:     cfg.Repo,
		adapter:  NewAdapter(cfg.Repo, cfg.Logger),
		logger:   cfg.Logger,
		config:   cfg.Config,
		notifier: cfg.Notifier,
		tmpl:     cfg.Templates,
	}
}
