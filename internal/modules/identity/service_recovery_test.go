package identity

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tokenFromEmail digs the recovery token out of the link in the last email.
func tokenFromEmail(t *testing.T, notifier *fakeNotifier) string {
	t.Helper()
	last := notifier.last()
	require.NotNil(t, last, "expected a recovery email to have been sent")

	body := last.Content.EmailHTMLBody
	idx := strings.Index(body, "token=")
	require.GreaterOrEqual(t, idx, 0, "email body contains no token link: %s", body)
	token := body[idx+len("token="):]
	if end := strings.IndexAny(token, "\"&< \n"); end >= 0 {
		token = token[:end]
	}
	unescaped, err := url.QueryUnescape(token)
	require.NoError(t, err)
	return unescaped
}

func TestPasswordResetFlow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("end to end", func(t *testing.T) {
		t.Parallel()
		svc, _, notifier := newTestService(t)
		_, err := svc.Signup(ctx, "alice@example.com", "old-password-1")
		require.NoError(t, err)

		require.NoError(t, svc.InitiatePasswordReset(ctx, "alice@example.com"))
		token := tokenFromEmail(t, notifier)

		require.NoError(t, svc.ResetPasswordWithToken(ctx, token, "new-password-1"))

		_, err = svc.Login(ctx, "alice@example.com", "old-password-1")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		_, err = svc.Login(ctx, "alice@example.com", "new-password-1")
		assert.NoError(t, err)
	})

	t.Run("token is single use", func(t *testing.T) {
		t.Parallel()
		svc, _, notifier := newTestService(t)
		_, err := svc.Signup(ctx, "bob@example.com", "old-password-1")
		require.NoError(t, err)

		require.NoError(t, svc.InitiatePasswordReset(ctx, "bob@example.com"))
		token := tokenFromEmail(t, notifier)

		require.NoError(t, svc.ResetPasswordWithToken(ctx, token, "new-password-1"))
		err = svc.ResetPasswordWithToken(ctx, token, "another-password")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		t.Parallel()
		svc, repo, notifier := newTestService(t)
		_, err := svc.Signup(ctx, "carol@example.com", "old-password-1")
		require.NoError(t, err)

		require.NoError(t, svc.InitiatePasswordReset(ctx, "carol@example.com"))
		token := tokenFromEmail(t, notifier)

		repo.mu.Lock()
		for _, vt := range repo.tokens {
			vt.ExpiresAt = time.Now().Add(-time.Minute)
		}
		repo.mu.Unlock()

		err = svc.ResetPasswordWithToken(ctx, token, "new-password-1")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("empty and unknown tokens are one error class", func(t *testing.T) {
		t.Parallel()
		svc, _, _ := newTestService(t)
		assert.ErrorIs(t, svc.ResetPasswordWithToken(ctx, "", "new-password-1"), ErrInvalidToken)
		assert.ErrorIs(t, svc.ResetPasswordWithToken(ctx, "never-issued", "new-password-1"), ErrInvalidToken)
	})

	t.Run("unknown email is silent", func(t *testing.T) {
		t.Parallel()
		svc, _, notifier := newTestService(t)
		require.NoError(t, svc.InitiatePasswordReset(ctx, "nobody@example.com"))
		assert.Nil(t, notifier.last())
	})

	t.Run("reissuing invalidates the earlier token", func(t *testing.T) {
		t.Parallel()
		svc, _, notifier := newTestService(t)
		_, err := svc.Signup(ctx, "dave@example.com", "old-password-1")
		require.NoError(t, err)

		require.NoError(t, svc.InitiatePasswordReset(ctx, "dave@example.com"))
		first := tokenFromEmail(t, notifier)
		require.NoError(t, svc.InitiatePasswordReset(ctx, "dave@example.com"))
		second := tokenFromEmail(t, notifier)
		require.NotEqual(t, first, second)

		assert.ErrorIs(t, svc.ResetPasswordWithToken(ctx, first, "new-password-1"), ErrInvalidToken)
		assert.NoError(t, svc.ResetPasswordWithToken(ctx, second, "new-password-1"))
	})
}

func TestPasswordSetFlow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("oauth-only account sets a first password via token", func(t *testing.T) {
		t.Parallel()
		svc, repo, notifier := newTestService(t)
		user, err := NewAdapter(repo, testLogger()).CreateUser(ctx, UserCandidate{Email: "alice@example.com"})
		require.NoError(t, err)

		require.NoError(t, svc.InitiatePasswordSet(ctx, "alice@example.com"))
		token := tokenFromEmail(t, notifier)

		require.NoError(t, svc.ResetPasswordWithToken(ctx, token, "first-password-1"))

		stored, err := repo.FindUserByID(ctx, user.ID)
		require.NoError(t, err)
		assert.True(t, stored.HasPassword())
	})

	t.Run("rejected when a password already exists", func(t *testing.T) {
		t.Parallel()
		svc, _, _ := newTestService(t)
		_, err := svc.Signup(ctx, "bob@example.com", "hunter2secret")
		require.NoError(t, err)

		err = svc.InitiatePasswordSet(ctx, "bob@example.com")
		assert.ErrorIs(t, err, ErrPasswordAlreadySet)
	})

	t.Run("session path requires a passwordless account", func(t *testing.T) {
		t.Parallel()
		svc, repo, _ := newTestService(t)
		user, err := NewAdapter(repo, testLogger()).CreateUser(ctx, UserCandidate{Email: "carol@example.com"})
		require.NoError(t, err)

		require.NoError(t, svc.SetPasswordWithSession(ctx, user.ID, "first-password-1"))
		_, err = svc.Login(ctx, "carol@example.com", "first-password-1")
		assert.NoError(t, err)

		err = svc.SetPasswordWithSession(ctx, user.ID, "second-password-1")
		assert.ErrorIs(t, err, ErrPasswordAlreadySet)
	})

	t.Run("unknown session user", func(t *testing.T) {
		t.Parallel()
		svc, _, _ := newTestService(t)
		err := svc.SetPasswordWithSession(ctx, "no-such-user", "first-password-1")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestUsernameRecovery(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("mails the username", func(t *testing.T) {
		t.Parallel()
		svc, _, notifier := newTestService(t)
		_, err := svc.Signup(ctx, "alice@example.com", "hunter2secret")
		require.NoError(t, err)

		require.NoError(t, svc.InitiateUsernameRecovery(ctx, "alice@example.com"))
		last := notifier.last()
		require.NotNil(t, last)
		assert.Equal(t, "alice@example.com", last.Recipient)
		assert.Contains(t, last.Content.EmailHTMLBody, "alice")
	})

	t.Run("unknown email is silent", func(t *testing.T) {
		t.Parallel()
		svc, _, notifier := newTestService(t)
		require.NoError(t, svc.InitiateUsernameRecovery(ctx, "nobody@example.com"))
		assert.Nil(t, notifier.last())
	})
}

func TestRecoveryEmailFailureSurfacesAsInternal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, notifier := newTestService(t)
	_, err := svc.Signup(ctx, "alice@example.com", "hunter2secret")
	require.NoError(t, err)

	notifier.err = assert.AnError
	err = svc.InitiatePasswordReset(ctx, "alice@example.com")
	assert.ErrorIs(t, err, ErrInternal)
}
