package identity

import (
	"context"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/quietriver/insighthub/internal/database"
)

// Repository is the credential store gateway: thin query/mutation access to the
// users, profiles, accounts, sessions, and verification_tokens tables. No
// business logic lives here; absence is reported as ErrNotFound, everything
// else propagates as-is.
type Repository interface {
	// Users
	CreateUser(ctx context.Context, user *User) error
	FindUserByID(ctx context.Context, id string) (*User, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	FindUserByUsername(ctx context.Context, username string) (*User, error)
	UpdateUserPartial(ctx context.Context, id string, patch UserPatch) error
	UpdateUserPassword(ctx context.Context, userID string, hashedPassword string) error
	UpdateUserUsername(ctx context.Context, userID string, username string) error
	DeleteUser(ctx context.Context, id string) error

	// Profiles
	CreateProfile(ctx context.Context, profile *Profile) error
	FindProfileByUserID(ctx context.Context, userID string) (*Profile, error)
	FindProfileByUsername(ctx context.Context, username string) (*Profile, error)
	UpdateProfile(ctx context.Context, userID string, patch ProfilePatch) error
	UpdateProfileUsername(ctx context.Context, userID string, username string) error

	// Accounts
	CreateAccount(ctx context.Context, account *Account) error
	FindAccount(ctx context.Context, provider, providerAccountID string) (*Account, error)
	DeleteAccount(ctx context.Context, provider, providerAccountID string) error
	DeleteAccountsByUser(ctx context.Context, userID string) error

	// Sessions
	CreateSession(ctx context.Context, session *Session) error
	FindSessionByToken(ctx context.Context, sessionToken string) (*Session, error)
	UpdateSessionExpiry(ctx context.Context, sessionToken string, expires time.Time) (*Session, error)
	DeleteSessionByToken(ctx context.Context, sessionToken string) error
	DeleteSessionsByUser(ctx context.Context, userID string) error

	// Verification tokens
	CreateVerificationToken(ctx context.Context, token *VerificationToken) error
	DeleteVerificationTokens(ctx context.Context, identifier string, purpose TokenPurpose) error
	ConsumeVerificationToken(ctx context.Context, token string) (*VerificationToken, error)

	// OAuth states (CSRF/PKCE material for in-flight authorization flows)
	InsertOAuthState(ctx context.Context, state *OAuthState) error
	GetOAuthStateByState(ctx context.Context, state string) (*OAuthState, error)
	DeleteOAuthState(ctx context.Context, state string) error
	DeleteExpiredOAuthStates(ctx context.Context) error
}

// UserPatch holds the whitelisted updatable user fields. Nil pointers are not
// forwarded to storage.
type UserPatch struct {
	Email         *string
	Name          *string
	Image         *string
	EmailVerified *time.Time
}

// ProfilePatch holds the updatable profile fields.
type ProfilePatch struct {
	Bio       *string
	AvatarURL *string
}

// repository implements the Repository interface using pgx and squirrel.
type repository struct {
	db   database.DBTX
	psql squirrel.StatementBuilderType
}

// NewRepository creates a new identity repository with the given database connection.
func NewRepository(db database.DBTX) Repository {
	return &repository{
		db:   db,
		psql: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// IsUniqueViolation reports whether err is a Postgres unique-constraint
// violation (SQLSTATE 23505). Callers use it to recover from insert races by
// re-reading the concurrent winner's row.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
