package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Adapter implements the session-framework lifecycle contract on top of the
// credential store gateway. It translates between the framework's vocabulary
// and the storage schema, normalizes expiry timestamps at every read/write
// boundary, and reports absence as a nil result rather than an error. Storage
// errors propagate to the caller.
type Adapter struct {
	repo   Repository
	logger *slog.Logger
}

// NewAdapter creates a new identity adapter.
func NewAdapter(repo Repository, logger *slog.Logger) *Adapter {
	return &Adapter{repo: repo, logger: logger}
}

// UserCandidate is the framework's shape of a user about to be created.
type UserCandidate struct {
	ID            string
	Email         string
	Name          *string
	Username      string
	Image         *string
	EmailVerified *time.Time
}

// CreateUser assigns an id and a default username when absent, inserts the
// user, then eagerly inserts a matching profile. A failed profile insert does
// not roll back user creation; the lazy profile path self-heals it later.
func (a *Adapter) CreateUser(ctx context.Context, candidate UserCandidate) (*User, error) {
	if candidate.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("generate user id: %w", err)
		}
		candidate.ID = id.String()
	}
	username := candidate.Username
	if username == "" {
		username = DefaultUsername(candidate.Email)
	}

	user := &User{
		ID:            candidate.ID,
		Email:         strings.ToLower(strings.TrimSpace(candidate.Email)),
		Name:          candidate.Name,
		Username:      username,
		Image:         candidate.Image,
		EmailVerified: candidate.EmailVerified,
	}
	for attempt := 0; ; attempt++ {
		err := a.repo.CreateUser(ctx, user)
		if err == nil {
			break
		}
		if !IsUniqueViolation(err) || attempt >= 3 {
			return nil, err
		}
		// A unique violation on the email is the caller's conflict to handle;
		// one on the derived username just needs a new suffix.
		if existing, lookupErr := a.repo.FindUserByEmail(ctx, user.Email); lookupErr == nil && existing != nil {
			return nil, err
		}
		suffix, sErr := generateSecureToken(2)
		if sErr != nil {
			return nil, err
		}
		user.Username = username + suffix
	}

	profileID, err := uuid.NewV7()
	if err == nil {
		err = a.repo.CreateProfile(ctx, &Profile{
			ID:        profileID.String(),
			UserID:    user.ID,
			Username:  user.Username,
			AvatarURL: user.Image,
		})
	}
	if err != nil && !IsUniqueViolation(err) {
		a.logger.Error("failed to create profile for new user, leaving for lazy creation", "user_id", user.ID, "error", err)
	}

	return user, nil
}

// GetUser looks up a user by id. Absence returns (nil, nil).
func (a *Adapter) GetUser(ctx context.Context, id string) (*User, error) {
	user, err := a.repo.FindUserByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return user, err
}

// GetUserByEmail looks up a user by case-normalized email. Absence returns (nil, nil).
func (a *Adapter) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	user, err := a.repo.FindUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return user, err
}

// GetUserByAccount resolves an external identity to its owning user: first the
// account row by composite key, then the user. Absence at either step yields
// (nil, nil), which callers interpret as "proceed to create a new user".
func (a *Adapter) GetUserByAccount(ctx context.Context, provider, providerAccountID string) (*User, error) {
	account, err := a.repo.FindAccount(ctx, provider, providerAccountID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	user, err := a.repo.FindUserByID(ctx, account.UserID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return user, err
}

// UpdateUser forwards only the whitelisted fields of the patch to storage;
// anything the patch does not model is silently dropped.
func (a *Adapter) UpdateUser(ctx context.Context, id string, patch UserPatch) (*User, error) {
	if patch.Email != nil {
		normalized := strings.ToLower(strings.TrimSpace(*patch.Email))
		patch.Email = &normalized
	}
	if err := a.repo.UpdateUserPartial(ctx, id, patch); err != nil {
		return nil, err
	}
	return a.repo.FindUserByID(ctx, id)
}

// DeleteUser cascades manually: accounts, then sessions, then the user row.
func (a *Adapter) DeleteUser(ctx context.Context, id string) error {
	if err := a.repo.DeleteAccountsByUser(ctx, id); err != nil {
		return err
	}
	if err := a.repo.DeleteSessionsByUser(ctx, id); err != nil {
		return err
	}
	return a.repo.DeleteUser(ctx, id)
}

// LinkAccount inserts an account row, assigning an id when absent.
func (a *Adapter) LinkAccount(ctx context.Context, account *Account) error {
	if account.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("generate account id: %w", err)
		}
		account.ID = id.String()
	}
	return a.repo.CreateAccount(ctx, account)
}

// UnlinkAccount deletes the account row for the composite provider key.
func (a *Adapter) UnlinkAccount(ctx context.Context, provider, providerAccountID string) error {
	return a.repo.DeleteAccount(ctx, provider, providerAccountID)
}

// CreateSession persists a session, normalizing the expiry representation.
func (a *Adapter) CreateSession(ctx context.Context, sessionToken, userID string, expires any) (*Session, error) {
	expiry, err := NormalizeExpiry(expires)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}
	session := &Session{
		ID:           id.String(),
		SessionToken: sessionToken,
		UserID:       userID,
		Expires:      expiry,
	}
	if err := a.repo.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// GetSessionAndUser loads a session and its owning user. Missing, empty, or
// sentinel-invalid tokens short-circuit without touching storage, and an
// expired session reads as absent.
func (a *Adapter) GetSessionAndUser(ctx context.Context, sessionToken string) (*Session, *User, error) {
	if isInvalidSessionToken(sessionToken) {
		return nil, nil, nil
	}

	session, err := a.repo.FindSessionByToken(ctx, sessionToken)
	if errors.Is(err, ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	if !time.Now().Before(session.Expires) {
		return nil, nil, nil
	}

	user, err := a.repo.FindUserByID(ctx, session.UserID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	return session, user, nil
}

// UpdateSession sets a new expiry on a session. Absence returns (nil, nil).
func (a *Adapter) UpdateSession(ctx context.Context, sessionToken string, expires any) (*Session, error) {
	expiry, err := NormalizeExpiry(expires)
	if err != nil {
		return nil, err
	}

	session, err := a.repo.UpdateSessionExpiry(ctx, sessionToken, expiry)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return session, err
}

// DeleteSession removes a session row; deleting an absent session is not an error.
func (a *Adapter) DeleteSession(ctx context.Context, sessionToken string) error {
	err := a.repo.DeleteSessionByToken(ctx, sessionToken)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// CreateVerificationToken inserts a one-time token.
func (a *Adapter) CreateVerificationToken(ctx context.Context, token *VerificationToken) error {
	return a.repo.CreateVerificationToken(ctx, token)
}

// UseVerificationToken consumes a token in a single atomic delete-and-return.
// A nil result means the token was invalid or already used.
func (a *Adapter) UseVerificationToken(ctx context.Context, token string) (*VerificationToken, error) {
	vt, err := a.repo.ConsumeVerificationToken(ctx, token)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return vt, err
}

// NormalizeExpiry accepts the timestamp representations that drift across the
// framework boundary (time.Time, RFC 3339 string, epoch seconds) and returns a
// canonical time.Time.
func NormalizeExpiry(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case *time.Time:
		if t == nil {
			return time.Time{}, fmt.Errorf("nil expiry")
		}
		return *t, nil
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse expiry %q: %w", t, err)
		}
		return parsed, nil
	case int64:
		return time.Unix(t, 0), nil
	case int:
		return time.Unix(int64(t), 0), nil
	case float64:
		return time.Unix(int64(t), 0), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported expiry type %T", v)
	}
}

// DefaultUsername derives a username from the email local-part; a random
// suffix is appended later if the plain local-part collides.
func DefaultUsername(email string) string {
	local, _, found := strings.Cut(email, "@")
	if !found || local == "" {
		return "user"
	}
	var b strings.Builder
	for _, r := range local {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "user"
	}
	return strings.ToLower(b.String())
}

func isInvalidSessionToken(token string) bool {
	switch strings.TrimSpace(token) {
	case "", "null", "undefined":
		return true
	}
	return false
}
