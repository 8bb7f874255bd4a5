package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAdapter() (*Adapter, *fakeRepository) {
	repo := newFakeRepository()
	return NewAdapter(repo, testLogger()), repo
}

func TestAdapterCreateUser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("assigns id and username, inserts profile", func(t *testing.T) {
		t.Parallel()
		adapter, repo := newTestAdapter()

		user, err := adapter.CreateUser(ctx, UserCandidate{Email: "Alice.Smith@Example.com"})
		require.NoError(t, err)

		assert.NotEmpty(t, user.ID)
		assert.Equal(t, "alice.smith@example.com", user.Email)
		assert.Equal(t, "alicesmith", user.Username, "local-part filtered to the allowed alphabet")

		profile, err := repo.FindProfileByUserID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, user.Username, profile.Username)
	})

	t.Run("keeps explicit id and username", func(t *testing.T) {
		t.Parallel()
		adapter, _ := newTestAdapter()

		user, err := adapter.CreateUser(ctx, UserCandidate{
			ID:       "fixed-id",
			Email:    "bob@example.com",
			Username: "bobby",
		})
		require.NoError(t, err)
		assert.Equal(t, "fixed-id", user.ID)
		assert.Equal(t, "bobby", user.Username)
	})

	t.Run("email collision surfaces the unique violation", func(t *testing.T) {
		t.Parallel()
		adapter, _ := newTestAdapter()

		_, err := adapter.CreateUser(ctx, UserCandidate{Email: "carol@example.com"})
		require.NoError(t, err)
		_, err = adapter.CreateUser(ctx, UserCandidate{Email: "carol@example.com"})
		require.Error(t, err)
		assert.True(t, IsUniqueViolation(err))
	})
}

func TestAdapterLookups(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	adapter, _ := newTestAdapter()

	user, err := adapter.CreateUser(ctx, UserCandidate{Email: "alice@example.com"})
	require.NoError(t, err)
	require.NoError(t, adapter.LinkAccount(ctx, &Account{
		UserID:            user.ID,
		Provider:          "google",
		ProviderAccountID: "google-123",
	}))

	t.Run("absence is nil, not an error", func(t *testing.T) {
		got, err := adapter.GetUser(ctx, "no-such-id")
		require.NoError(t, err)
		assert.Nil(t, got)

		got, err = adapter.GetUserByEmail(ctx, "nobody@example.com")
		require.NoError(t, err)
		assert.Nil(t, got)

		got, err = adapter.GetUserByAccount(ctx, "google", "unknown")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("email lookup normalizes case", func(t *testing.T) {
		got, err := adapter.GetUserByEmail(ctx, "  ALICE@example.com ")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, user.ID, got.ID)
	})

	t.Run("account lookup resolves the owning user", func(t *testing.T) {
		got, err := adapter.GetUserByAccount(ctx, "google", "google-123")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, user.ID, got.ID)
	})
}

func TestAdapterDeleteUserCascades(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	adapter, repo := newTestAdapter()

	user, err := adapter.CreateUser(ctx, UserCandidate{Email: "alice@example.com"})
	require.NoError(t, err)
	require.NoError(t, adapter.LinkAccount(ctx, &Account{
		UserID: user.ID, Provider: "google", ProviderAccountID: "g-1",
	}))
	_, err = adapter.CreateSession(ctx, "tok-1", user.ID, time.Now().Add(time.Hour))
	require.NoError(t, err)

	require.NoError(t, adapter.DeleteUser(ctx, user.ID))

	_, err = repo.FindUserByID(ctx, user.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.FindAccount(ctx, "google", "g-1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.FindSessionByToken(ctx, "tok-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAdapterSessions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()
		adapter, _ := newTestAdapter()
		user, err := adapter.CreateUser(ctx, UserCandidate{Email: "alice@example.com"})
		require.NoError(t, err)

		expires := time.Now().Add(time.Hour)
		created, err := adapter.CreateSession(ctx, "tok-1", user.ID, expires)
		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)

		session, gotUser, err := adapter.GetSessionAndUser(ctx, "tok-1")
		require.NoError(t, err)
		require.NotNil(t, session)
		require.NotNil(t, gotUser)
		assert.Equal(t, user.ID, gotUser.ID)
		assert.WithinDuration(t, expires, session.Expires, time.Second)
	})

	t.Run("expired session reads as absent", func(t *testing.T) {
		t.Parallel()
		adapter, _ := newTestAdapter()
		user, err := adapter.CreateUser(ctx, UserCandidate{Email: "bob@example.com"})
		require.NoError(t, err)

		_, err = adapter.CreateSession(ctx, "tok-old", user.ID, time.Now().Add(-time.Minute))
		require.NoError(t, err)

		session, gotUser, err := adapter.GetSessionAndUser(ctx, "tok-old")
		require.NoError(t, err)
		assert.Nil(t, session)
		assert.Nil(t, gotUser)
	})

	t.Run("sentinel tokens short-circuit", func(t *testing.T) {
		t.Parallel()
		adapter, _ := newTestAdapter()
		for _, token := range []string{"", "null", "undefined", "  "} {
			session, user, err := adapter.GetSessionAndUser(ctx, token)
			require.NoError(t, err)
			assert.Nil(t, session, "token %q", token)
			assert.Nil(t, user, "token %q", token)
		}
	})

	t.Run("update absent session is nil, delete absent is no error", func(t *testing.T) {
		t.Parallel()
		adapter, _ := newTestAdapter()

		session, err := adapter.UpdateSession(ctx, "missing", time.Now().Add(time.Hour))
		require.NoError(t, err)
		assert.Nil(t, session)

		assert.NoError(t, adapter.DeleteSession(ctx, "missing"))
	})
}

func TestAdapterVerificationTokens(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	adapter, _ := newTestAdapter()

	vt := &VerificationToken{
		Token:      "one-time-token",
		Identifier: "alice@example.com",
		Purpose:    PurposePasswordReset,
		ExpiresAt:  time.Now().Add(30 * time.Minute),
	}
	require.NoError(t, adapter.CreateVerificationToken(ctx, vt))

	used, err := adapter.UseVerificationToken(ctx, "one-time-token")
	require.NoError(t, err)
	require.NotNil(t, used)
	assert.Equal(t, PurposePasswordReset, used.Purpose)

	// Second redemption of the same token must come back nil.
	used, err = adapter.UseVerificationToken(ctx, "one-time-token")
	require.NoError(t, err)
	assert.Nil(t, used)
}

func TestNormalizeExpiry(t *testing.T) {
	t.Parallel()

	ref := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	ptr := ref

	tests := []struct {
		name    string
		input   any
		want    time.Time
		wantErr bool
	}{
		{name: "time.Time", input: ref, want: ref},
		{name: "pointer", input: &ptr, want: ref},
		{name: "rfc3339 string", input: "2026-03-14T09:26:53Z", want: ref},
		{name: "epoch int64", input: ref.Unix(), want: ref},
		{name: "epoch int", input: int(ref.Unix()), want: ref},
		{name: "epoch float64", input: float64(ref.Unix()), want: ref},
		{name: "nil pointer", input: (*time.Time)(nil), wantErr: true},
		{name: "garbage string", input: "tomorrow-ish", wantErr: true},
		{name: "unsupported type", input: struct{}{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeExpiry(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %v want %v", got, tt.want)
		})
	}
}

func TestDefaultUsername(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"alice@example.com":       "alice",
		"Alice.Smith@example.com": "alicesmith",
		"a_b-c+d@example.com":     "a_bcd",
		"@example.com":            "user",
		"no-at-sign":              "user",
		"---@example.com":         "user",
	}
	for email, want := range tests {
		assert.Equal(t, want, DefaultUsername(email), "email %q", email)
	}
}
