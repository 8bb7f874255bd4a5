package identity

import (
	"context"
	"errors"
	"strings"
)

// Signup registers a password credential for an email address. Three cases:
// a previously-unused email creates a user and profile; an email that already
// holds a password credential is a conflict; an email that exists without one
// (OAuth-only account) gets the password attached to the existing identity so
// no duplicate user is ever created.
func (s *service) Signup(ctx context.Context, email, password string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	hashed, err := hashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", "error", err)
		return nil, ErrInternal.WithCause(err)
	}

	existing, err := s.adapter.GetUserByEmail(ctx, email)
	if err != nil {
		s.logger.Error("failed to look up email during signup", "error", err)
		return nil, ErrInternal.WithCause(err)
	}
	if existing != nil {
		if existing.HasPassword() {
			return nil, ErrEmailExists
		}
		if err := s.repo.UpdateUserPassword(ctx, existing.ID, hashed); err != nil {
			s.logger.Error("failed to attach password to oauth-only account", "user_id", existing.ID, "error", err)
			return nil, ErrInternal.WithCause(err)
		}
		existing.HashedPassword = &hashed
		s.logger.Info("password attached to existing oauth-only account", "user_id", existing.ID)
		return existing, nil
	}

	user, err := s.adapter.CreateUser(ctx, UserCandidate{Email: email})
	if err != nil {
		if IsUniqueViolation(err) {
			// Lost a signup race for the same email; surface a conflict
			// rather than corrupt state.
			return nil, ErrEmailExists.WithCause(err)
		}
		s.logger.Error("failed to create user", "error", err)
		return nil, ErrInternal.WithCause(err)
	}
	if err := s.repo.UpdateUserPassword(ctx, user.ID, hashed); err != nil {
		s.logger.Error("failed to store password for new user", "user_id", user.ID, "error", err)
		return nil, ErrInternal.WithCause(err)
	}
	user.HashedPassword = &hashed

	s.logger.Info("user registered successfully", "user_id", user.ID)
	return user, nil
}

// Login authenticates a password credential and returns a signed session
// token. The login identifier may be an email or a username; usernames are
// resolved to an email first. All failure modes collapse onto
// ErrInvalidCredentials so the response never distinguishes unknown users,
// OAuth-only accounts, and wrong passwords.
func (s *service) Login(ctx context.Context, login, password string) (string, error) {
	email, err := s.resolveLoginEmail(ctx, login)
	if err != nil {
		return "", err
	}

	user, err := s.adapter.GetUserByEmail(ctx, email)
	if err != nil {
		s.logger.Error("failed to find user by email", "error", err)
		return "", ErrInternal.WithCause(err)
	}
	if user == nil || !user.HasPassword() {
		return "", ErrInvalidCredentials
	}
	if !checkPasswordHash(password, *user.HashedPassword) {
		return "", ErrInvalidCredentials
	}

	token, err := s.issueSession(ctx, user)
	if err != nil {
		return "", err
	}

	s.logger.Info("user logged in successfully", "user_id", user.ID)
	return token, nil
}

// Logout removes the server-side session row backing a database-mode session.
// Token-mode sessions have no row; the handler clears the cookie either way.
func (s *service) Logout(ctx context.Context, sessionToken string) error {
	if sessionToken == "" {
		return nil
	}
	return s.adapter.DeleteSession(ctx, sessionToken)
}

// resolveLoginEmail maps a login identifier onto an email address. Identifiers
// without an "@" are treated as usernames and resolved through the users
// table, falling back to the profile copy.
func (s *service) resolveLoginEmail(ctx context.Context, login string) (string, error) {
	login = strings.TrimSpace(login)
	if strings.Contains(login, "@") {
		return strings.ToLower(login), nil
	}

	user, err := s.repo.FindUserByUsername(ctx, login)
	if err == nil {
		return user.Email, nil
	}
	if !errors.Is(err, ErrNotFound) {
		s.logger.Error("failed to resolve username", "error", err)
		return "", ErrInternal.WithCause(err)
	}

	profile, err := s.repo.FindProfileByUsername(ctx, login)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		s.logger.Error("failed to resolve username via profile", "error", err)
		return "", ErrInternal.WithCause(err)
	}
	owner, err := s.repo.FindUserByID(ctx, profile.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		s.logger.Error("failed to load profile owner", "error", err)
		return "", ErrInternal.WithCause(err)
	}
	return owner.Email, nil
}

// issueSession snapshots the user and profile into signed session claims.
func (s *service) issueSession(ctx context.Context, user *User) (string, error) {
	profile, err := s.GetOrCreateProfile(ctx, user.ID)
	if err != nil {
		s.logger.Error("failed to load profile for session claims", "user_id", user.ID, "error", err)
		return "", ErrInternal.WithCause(err)
	}

	token, err := SignSessionToken(s.config.Auth.JWTSecret, NewSessionClaims(user, profile))
	if err != nil {
		s.logger.Error("failed to sign session token", "error", err)
		return "", ErrInternal.WithCause(err)
	}
	return token, nil
}
