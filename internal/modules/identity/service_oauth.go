package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// oAuthUserInfo holds the standardized profile fields consumed from a provider.
type oAuthUserInfo struct {
	ID      string
	Email   string
	Name    string
	Picture string
}

// oAuthProvider abstracts over the configured OAuth providers.
type oAuthProvider interface {
	getOAuthConfig() *oauth2.Config
	getUserInfo(ctx context.Context, token *oauth2.Token) (*oAuthUserInfo, error)
}

// newOAuthProvider is a factory returning the provider implementation.
func (s *service) newOAuthProvider(provider string) (oAuthProvider, error) {
	switch provider {
	case "google":
		return &googleProvider{
			config: &oauth2.Config{
				ClientID:     s.config.Google.ClientID,
				ClientSecret: s.config.Google.ClientSecret,
				RedirectURL:  s.config.Google.RedirectURL,
				Endpoint:     google.Endpoint,
				Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile"},
			},
		}, nil
	default:
		return nil, ErrUnsupportedOAuthProvider.WithDetail(fmt.Sprintf("unsupported oauth provider: %s", provider))
	}
}

type googleProvider struct {
	config *oauth2.Config
}

func (g *googleProvider) getOAuthConfig() *oauth2.Config {
	return g.config
}

func (g *googleProvider) getUserInfo(ctx context.Context, token *oauth2.Token) (*oAuthUserInfo, error) {
	client := g.config.Client(ctx, token)
	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return nil, fmt.Errorf("failed to get user info from google: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read user info response body: %w", err)
	}

	var userInfo struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := json.Unmarshal(body, &userInfo); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user info: %w", err)
	}

	return &oAuthUserInfo{
		ID:      userInfo.ID,
		Email:   userInfo.Email,
		Name:    userInfo.Name,
		Picture: userInfo.Picture,
	}, nil
}

// InitiateOAuthLogin generates the provider redirect URL and persists a state
// row for CSRF protection plus the PKCE verifier. The callback URL is clamped
// to the application's own origin before it is stored, so a tampered
// callbackUrl query parameter can never redirect off-site after login.
func (s *service) InitiateOAuthLogin(ctx context.Context, provider, callbackURL string) (string, error) {
	oauthProvider, err := s.newOAuthProvider(provider)
	if err != nil {
		return "", err
	}

	state, err := generateSecureToken(32)
	if err != nil {
		return "", ErrInternal.WithCause(fmt.Errorf("failed to generate oauth state: %w", err))
	}
	verifier := oauth2.GenerateVerifier()
	err = s.repo.InsertOAuthState(ctx, &OAuthState{
		State:      state,
		Provider:   provider,
		Verifier:   verifier,
		RedirectTo: SafeCallbackURL(s.config.Auth.BaseURL, callbackURL),
		ExpiresAt:  time.Now().Add(5 * time.Minute),
	})
	if err != nil {
		return "", ErrInternal.WithCause(fmt.Errorf("failed to persist oauth state: %w", err))
	}

	url := oauthProvider.getOAuthConfig().AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.S256ChallengeOption(verifier),
	)
	return url, nil
}

// HandleOAuthCallback processes the provider callback: verifies the stored
// state, exchanges the code, fetches the profile, runs the sign-in decision
// (link to an existing identity by email or create a new one), and returns a
// signed session token along with the sanitized post-login redirect target.
func (s *service) HandleOAuthCallback(ctx context.Context, provider, state, code string) (string, string, error) {
	oauthProvider, err := s.newOAuthProvider(provider)
	if err != nil {
		return "", "", err
	}

	stored, err := s.repo.GetOAuthStateByState(ctx, state)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.Warn("oauth state not found", "state", state)
			return "", "", ErrOAuthStateInvalid.WithCause(err)
		}
		s.logger.Error("error getting oauth state", "error", err)
		return "", "", ErrInternal.WithCause(err)
	}
	if time.Now().After(stored.ExpiresAt) {
		return "", "", ErrOAuthStateExpired
	}
	defer s.repo.DeleteOAuthState(ctx, state)

	oauthToken, err := oauthProvider.getOAuthConfig().Exchange(ctx, code, oauth2.VerifierOption(stored.Verifier))
	if err != nil {
		return "", "", ErrOAuthExchangeFailed.WithCause(fmt.Errorf("failed to exchange oauth code for token: %w", err))
	}

	userInfo, err := oauthProvider.getUserInfo(ctx, oauthToken)
	if err != nil {
		return "", "", ErrOAuthExchangeFailed.WithCause(err)
	}
	if userInfo.Email == "" {
		return "", "", ErrOAuthEmailMissing
	}

	user, err := s.signInWithOAuth(ctx, provider, userInfo, oauthToken)
	if err != nil {
		return "", "", err
	}

	token, err := s.issueSession(ctx, user)
	if err != nil {
		return "", "", err
	}

	s.logger.Info("user logged in successfully via oauth", "provider", provider, "user_id", user.ID)
	return token, stored.RedirectTo, nil
}

// signInWithOAuth is the account-linking decision. An existing user matched by
// email gains an account row for this external identity if one is missing, so
// a password-first user can attach Google sign-in to the same identity. With
// no match, the adapter's normal create-and-link lifecycle runs.
func (s *service) signInWithOAuth(ctx context.Context, provider string, info *oAuthUserInfo, token *oauth2.Token) (*User, error) {
	user, err := s.adapter.GetUserByEmail(ctx, info.Email)
	if err != nil {
		s.logger.Error("failed to find user by email during oauth callback", "error", err)
		return nil, ErrInternal.WithCause(err)
	}

	if user == nil {
		var name, image *string
		if info.Name != "" {
			name = &info.Name
		}
		if info.Picture != "" {
			image = &info.Picture
		}
		now := time.Now()
		user, err = s.adapter.CreateUser(ctx, UserCandidate{
			Email:         info.Email,
			Name:          name,
			Image:         image,
			EmailVerified: &now,
		})
		if err != nil {
			if IsUniqueViolation(err) {
				// A concurrent first login won the insert; adopt its row.
				user, err = s.adapter.GetUserByEmail(ctx, info.Email)
				if err != nil || user == nil {
					return nil, ErrInternal.WithCause(err)
				}
			} else {
				s.logger.Error("failed to create new user from oauth", "error", err)
				return nil, ErrInternal.WithCause(err)
			}
		} else {
			s.logger.Info("new user created via oauth", "user_id", user.ID, "email", user.Email)
		}
	} else {
		if _, err := s.GetOrCreateProfile(ctx, user.ID); err != nil {
			s.logger.Error("failed to ensure profile during oauth sign-in", "user_id", user.ID, "error", err)
			return nil, ErrInternal.WithCause(err)
		}
		s.backfillFromProvider(ctx, user, info)
	}

	existing, err := s.repo.FindAccount(ctx, provider, info.ID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		s.logger.Error("failed to look up account link", "error", err)
		return nil, ErrInternal.WithCause(err)
	}
	if existing == nil {
		account := &Account{
			UserID:            user.ID,
			Provider:          provider,
			ProviderAccountID: info.ID,
		}
		if token.AccessToken != "" {
			account.AccessToken = &token.AccessToken
		}
		if token.RefreshToken != "" {
			account.RefreshToken = &token.RefreshToken
		}
		if token.TokenType != "" {
			account.TokenType = &token.TokenType
		}
		if !token.Expiry.IsZero() {
			exp := token.Expiry.Unix()
			account.ExpiresAt = &exp
		}
		if scope, ok := token.Extra("scope").(string); ok && scope != "" {
			account.Scope = &scope
		}
		if idToken, ok := token.Extra("id_token").(string); ok && idToken != "" {
			account.IDToken = &idToken
		}
		if err := s.adapter.LinkAccount(ctx, account); err != nil {
			if !IsUniqueViolation(err) {
				s.logger.Error("failed to link oauth account", "user_id", user.ID, "error", err)
				return nil, ErrInternal.WithCause(err)
			}
			// Concurrent callback already linked the same identity.
		} else {
			s.logger.Info("oauth account linked", "provider", provider, "user_id", user.ID)
		}
	}

	return user, nil
}

// backfillFromProvider fills name and image the provider supplies when the
// local record is missing them. Best effort; failures are logged only.
func (s *service) backfillFromProvider(ctx context.Context, user *User, info *oAuthUserInfo) {
	var patch UserPatch
	if user.Name == nil && info.Name != "" {
		patch.Name = &info.Name
	}
	if user.Image == nil && info.Picture != "" {
		patch.Image = &info.Picture
	}
	if patch.Name == nil && patch.Image == nil {
		return
	}
	if _, err := s.adapter.UpdateUser(ctx, user.ID, patch); err != nil {
		s.logger.Warn("failed to backfill user fields from oauth profile", "user_id", user.ID, "error", err)
		return
	}
	if patch.Name != nil {
		user.Name = patch.Name
	}
	if patch.Image != nil {
		user.Image = patch.Image
	}
}
