package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func oauthTestToken() *oauth2.Token {
	token := &oauth2.Token{
		AccessToken:  "ya29.access",
		RefreshToken: "1//refresh",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(time.Hour),
	}
	return token.WithExtra(map[string]interface{}{
		"scope":    "openid email profile",
		"id_token": "eyJhbGciOiJSUzI1NiJ9.payload.sig",
	})
}

func TestSignInWithOAuth(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("matching email links account to the existing user", func(t *testing.T) {
		t.Parallel()
		svc, repo, _ := newTestService(t)
		impl := svc.(*service)

		existing, err := svc.Signup(ctx, "alice@example.com", "hunter2secret")
		require.NoError(t, err)

		info := &oAuthUserInfo{ID: "g-1", Email: "alice@example.com", Name: "Alice", Picture: "https://img.example.com/a.png"}
		user, err := impl.signInWithOAuth(ctx, "google", info, oauthTestToken())
		require.NoError(t, err)

		assert.Equal(t, existing.ID, user.ID, "must reuse the existing identity")
		assert.Len(t, repo.users, 1, "no second user row")

		account, err := repo.FindAccount(ctx, "google", "g-1")
		require.NoError(t, err)
		assert.Equal(t, existing.ID, account.UserID)
		require.NotNil(t, account.AccessToken)
		assert.Equal(t, "ya29.access", *account.AccessToken)
		require.NotNil(t, account.Scope)
		assert.Equal(t, "openid email profile", *account.Scope)
		require.NotNil(t, account.IDToken)
		assert.Equal(t, "eyJhbGciOiJSUzI1NiJ9.payload.sig", *account.IDToken)
	})

	t.Run("unknown email creates a user with a linked account", func(t *testing.T) {
		t.Parallel()
		svc, repo, _ := newTestService(t)
		impl := svc.(*service)

		info := &oAuthUserInfo{ID: "g-2", Email: "Bob@Example.com", Name: "Bob"}
		user, err := impl.signInWithOAuth(ctx, "google", info, oauthTestToken())
		require.NoError(t, err)

		assert.Equal(t, "bob@example.com", user.Email)
		assert.False(t, user.HasPassword())
		require.NotNil(t, user.EmailVerified, "provider-asserted email counts as verified")

		account, err := repo.FindAccount(ctx, "google", "g-2")
		require.NoError(t, err)
		assert.Equal(t, user.ID, account.UserID)

		profile, err := repo.FindProfileByUserID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, user.Username, profile.Username)
	})

	t.Run("repeat sign-in adds no duplicate account rows", func(t *testing.T) {
		t.Parallel()
		svc, repo, _ := newTestService(t)
		impl := svc.(*service)

		info := &oAuthUserInfo{ID: "g-3", Email: "carol@example.com"}
		first, err := impl.signInWithOAuth(ctx, "google", info, oauthTestToken())
		require.NoError(t, err)
		second, err := impl.signInWithOAuth(ctx, "google", info, oauthTestToken())
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Len(t, repo.users, 1)
		assert.Len(t, repo.accounts, 1)
	})

	t.Run("backfills missing name and image from the provider", func(t *testing.T) {
		t.Parallel()
		svc, repo, _ := newTestService(t)
		impl := svc.(*service)

		bare, err := svc.Signup(ctx, "dana@example.com", "hunter2secret")
		require.NoError(t, err)
		require.Nil(t, bare.Name)

		info := &oAuthUserInfo{ID: "g-4", Email: "dana@example.com", Name: "Dana", Picture: "https://img.example.com/d.png"}
		user, err := impl.signInWithOAuth(ctx, "google", info, oauthTestToken())
		require.NoError(t, err)

		require.NotNil(t, user.Name)
		assert.Equal(t, "Dana", *user.Name)

		stored, err := repo.FindUserByID(ctx, user.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.Image)
		assert.Equal(t, "https://img.example.com/d.png", *stored.Image)
	})
}
