package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateProfile(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("returns the eagerly created profile", func(t *testing.T) {
		t.Parallel()
		svc, _, _ := newTestService(t)
		user, err := svc.Signup(ctx, "alice@example.com", "hunter2secret")
		require.NoError(t, err)

		profile, err := svc.GetOrCreateProfile(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, user.ID, profile.UserID)
		assert.Equal(t, "alice", profile.Username)
	})

	t.Run("lazily heals a missing profile", func(t *testing.T) {
		t.Parallel()
		svc, repo, _ := newTestService(t)
		user, err := svc.Signup(ctx, "bob@example.com", "hunter2secret")
		require.NoError(t, err)

		// Simulate the eager insert having failed at signup time.
		repo.mu.Lock()
		for id, p := range repo.profiles {
			if p.UserID == user.ID {
				delete(repo.profiles, id)
			}
		}
		repo.mu.Unlock()

		profile, err := svc.GetOrCreateProfile(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, user.ID, profile.UserID)
		assert.Equal(t, "bob", profile.Username)

		// Stable on repeat.
		again, err := svc.GetOrCreateProfile(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, profile.ID, again.ID)
	})

	t.Run("unknown user", func(t *testing.T) {
		t.Parallel()
		svc, _, _ := newTestService(t)
		_, err := svc.GetOrCreateProfile(ctx, "no-such-user")
		assert.Error(t, err)
	})
}

func TestUpdateProfile(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	user, err := svc.Signup(ctx, "alice@example.com", "hunter2secret")
	require.NoError(t, err)

	bio := "Writes about distributed systems."
	avatar := "https://cdn.example.com/alice.png"
	profile, err := svc.UpdateProfile(ctx, user.ID, ProfilePatch{Bio: &bio, AvatarURL: &avatar})
	require.NoError(t, err)
	require.NotNil(t, profile.Bio)
	assert.Equal(t, bio, *profile.Bio)
	require.NotNil(t, profile.AvatarURL)
	assert.Equal(t, avatar, *profile.AvatarURL)

	// Partial patch leaves the other field alone.
	newBio := "Now writes about compilers."
	profile, err = svc.UpdateProfile(ctx, user.ID, ProfilePatch{Bio: &newBio})
	require.NoError(t, err)
	assert.Equal(t, newBio, *profile.Bio)
	require.NotNil(t, profile.AvatarURL)
	assert.Equal(t, avatar, *profile.AvatarURL)
}

func TestIsAdmin(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("false by default, true after the flag flips", func(t *testing.T) {
		t.Parallel()
		svc, repo, _ := newTestService(t)
		user, err := svc.Signup(ctx, "alice@example.com", "hunter2secret")
		require.NoError(t, err)

		isAdmin, err := svc.IsAdmin(ctx, user.ID)
		require.NoError(t, err)
		assert.False(t, isAdmin)

		// Flipping the row is visible immediately: no session or cache in the
		// way of the check.
		repo.mu.Lock()
		for _, p := range repo.profiles {
			if p.UserID == user.ID {
				p.IsAdmin = true
			}
		}
		repo.mu.Unlock()

		isAdmin, err = svc.IsAdmin(ctx, user.ID)
		require.NoError(t, err)
		assert.True(t, isAdmin)
	})

	t.Run("missing profile means not an admin", func(t *testing.T) {
		t.Parallel()
		svc, _, _ := newTestService(t)
		isAdmin, err := svc.IsAdmin(ctx, "no-such-user")
		require.NoError(t, err)
		assert.False(t, isAdmin)
	})
}
