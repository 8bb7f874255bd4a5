package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// GetUser retrieves a user by ID for authenticated "who am I" reads.
func (s *service) GetUser(ctx context.Context, userID string) (*User, error) {
	user, err := s.repo.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound.WithCause(err)
		}
		s.logger.Error("failed to load user", "user_id", userID, "error", err)
		return nil, ErrInternal.WithCause(err)
	}
	return user, nil
}

// GetOrCreateProfile returns the user's profile, creating it lazily when a
// signup-time insert failed or never ran. A unique-violation during the insert
// means a concurrent request created it first; the winner's row is re-read
// instead of treating the violation as fatal.
func (s *service) GetOrCreateProfile(ctx context.Context, userID string) (*Profile, error) {
	profile, err := s.repo.FindProfileByUserID(ctx, userID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, ErrNotFound) {
		s.logger.Error("failed to load profile", "user_id", userID, "error", err)
		return nil, ErrInternal.WithCause(err)
	}

	user, err := s.repo.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound.WithCause(err)
		}
		s.logger.Error("failed to load user for profile creation", "user_id", userID, "error", err)
		return nil, ErrInternal.WithCause(err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, ErrInternal.WithCause(fmt.Errorf("generate profile id: %w", err))
	}
	candidate := &Profile{
		ID:        id.String(),
		UserID:    user.ID,
		Username:  user.Username,
		AvatarURL: user.Image,
	}
	if err := s.repo.CreateProfile(ctx, candidate); err != nil {
		if IsUniqueViolation(err) {
			winner, readErr := s.repo.FindProfileByUserID(ctx, userID)
			if readErr != nil {
				s.logger.Error("failed to re-read profile after insert race", "user_id", userID, "error", readErr)
				return nil, ErrInternal.WithCause(readErr)
			}
			return winner, nil
		}
		s.logger.Error("failed to create profile lazily", "user_id", userID, "error", err)
		return nil, ErrInternal.WithCause(err)
	}

	s.logger.Info("profile created lazily", "user_id", userID)
	return candidate, nil
}

// UpdateProfile mutates the editable profile fields and returns the result.
func (s *service) UpdateProfile(ctx context.Context, userID string, patch ProfilePatch) (*Profile, error) {
	// Ensure the profile exists before patching it.
	if _, err := s.GetOrCreateProfile(ctx, userID); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateProfile(ctx, userID, patch); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound.WithCause(err)
		}
		s.logger.Error("failed to update profile", "user_id", userID, "error", err)
		return nil, ErrInternal.WithCause(err)
	}

	profile, err := s.repo.FindProfileByUserID(ctx, userID)
	if err != nil {
		s.logger.Error("failed to re-read profile after update", "user_id", userID, "error", err)
		return nil, ErrInternal.WithCause(err)
	}
	return profile, nil
}

// IsAdmin reads the profile's admin flag directly from storage on every call.
// It deliberately ignores the JWT's is_admin snapshot so a flag toggle takes
// effect on the next request without re-login.
func (s *service) IsAdmin(ctx context.Context, userID string) (bool, error) {
	profile, err := s.repo.FindProfileByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		s.logger.Error("failed to load profile for admin check", "user_id", userID, "error", err)
		return false, ErrInternal.WithCause(err)
	}
	return profile.IsAdmin, nil
}
