package identity

import (
	"time"
)

// User is the canonical identity record. Email and username are unique across
// all users. A nil HashedPassword means the account has no password credential
// (OAuth-only) and is forced through the set-password flow before it can use
// the rest of the app.
type User struct {
	ID             string     `db:"id"`
	Email          string     `db:"email"`
	Name           *string    `db:"name"`
	Username       string     `db:"username"`
	Image          *string    `db:"image"`
	HashedPassword *string    `db:"hashed_password"`
	EmailVerified  *time.Time `db:"email_verified"`
	CreatedAt      time.Time  `db:"created_at"`
}

// HasPassword reports whether the user has a password credential configured.
func (u *User) HasPassword() bool {
	return u != nil && u.HashedPassword != nil && *u.HashedPassword != ""
}

// Profile is the public-facing 1:1 companion to User. Username is a
// denormalized copy of User.Username and must stay in sync with it.
type Profile struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Username  string    `db:"username"`
	AvatarURL *string   `db:"avatar_url"`
	Bio       *string   `db:"bio"`
	IsAdmin   bool      `db:"is_admin"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Account links a User to one external OAuth identity. The
// (provider, provider_account_id) pair is unique. Token material is stored
// verbatim as returned by the provider and never refreshed by this code.
type Account struct {
	ID                string  `db:"id"`
	UserID            string  `db:"user_id"`
	Provider          string  `db:"provider"`
	ProviderAccountID string  `db:"provider_account_id"`
	AccessToken       *string `db:"access_token"`
	RefreshToken      *string `db:"refresh_token"`
	ExpiresAt         *int64  `db:"expires_at"`
	TokenType         *string `db:"token_type"`
	Scope             *string `db:"scope"`
	IDToken           *string `db:"id_token"`
}

// Session is the server-side record backing a login in database-session mode.
// The deployed strategy is token-based (signed cookie, no DB lookup per
// request); these rows exist for framework compatibility.
type Session struct {
	ID           string    `db:"id"`
	SessionToken string    `db:"session_token"`
	UserID       string    `db:"user_id"`
	Expires      time.Time `db:"expires"`
}

// TokenPurpose names the recovery flow a verification token belongs to.
type TokenPurpose string

const (
	// PurposePasswordReset authorizes replacing an existing password.
	PurposePasswordReset TokenPurpose = "password_reset"
	// PurposePasswordSet authorizes setting a first password on an OAuth-only account.
	PurposePasswordSet TokenPurpose = "password_set"
	// PurposeUsernameRecovery marks tokens issued for username recovery mail.
	PurposeUsernameRecovery TokenPurpose = "username_recovery"
)

// VerificationToken is a one-time capability grant. A token is valid iff it
// exists and now < ExpiresAt; consumption deletes the row so it cannot be
// replayed. At most one live token per (identifier, purpose).
type VerificationToken struct {
	Token      string       `db:"token"`
	Identifier string       `db:"identifier"`
	Purpose    TokenPurpose `db:"purpose"`
	ExpiresAt  time.Time    `db:"expires_at"`
	CreatedAt  time.Time    `db:"created_at"`
}

// Valid reports whether the token may still be redeemed at the given instant.
func (t *VerificationToken) Valid(now time.Time) bool {
	return t != nil && now.Before(t.ExpiresAt)
}

// OAuthState carries the CSRF state and PKCE verifier for an in-flight OAuth
// authorization-code exchange.
type OAuthState struct {
	State      string    `db:"state"`
	Provider   string    `db:"provider"`
	UserID     *string   `db:"user_id"`
	Verifier   string    `db:"verifier"`
	RedirectTo string    `db:"redirect_to"`
	ExpiresAt  time.Time `db:"expires_at"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}
