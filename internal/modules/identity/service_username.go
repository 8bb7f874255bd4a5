package identity

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,24}$`)

// usernameDenylist blocks names that would impersonate the product or staff.
var usernameDenylist = []string{
	"admin", "root", "support", "staff", "moderator", "insighthub", "system",
}

// ValidateUsername checks a candidate against the format rule and denylist.
func ValidateUsername(candidate string) error {
	if !usernamePattern.MatchString(candidate) {
		return ErrInvalidUsername
	}
	lowered := strings.ToLower(candidate)
	for _, banned := range usernameDenylist {
		if strings.Contains(lowered, banned) {
			return ErrInvalidUsername.WithDetail("this username is not allowed")
		}
	}
	return nil
}

// ChangeUsername validates the candidate, checks uniqueness against both the
// users and profiles tables, then updates both in sequence. If the profile
// update fails after the users update succeeded, the users row is restored to
// the previous value. The compensation is best effort, not a transaction; a
// failed rollback is logged and the error still surfaces.
func (s *service) ChangeUsername(ctx context.Context, userID, newUsername string) (string, error) {
	newUsername = strings.TrimSpace(newUsername)
	if err := ValidateUsername(newUsername); err != nil {
		return "", err
	}

	user, err := s.adapter.GetUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to load user for username change", "user_id", userID, "error", err)
		return "", ErrInternal.WithCause(err)
	}
	if user == nil {
		return "", ErrNotFound
	}
	if user.Username == newUsername {
		return newUsername, nil
	}

	// Both tables must independently reject a collision.
	if taken, err := s.usernameTaken(ctx, newUsername, userID); err != nil {
		return "", err
	} else if taken {
		return "", ErrUsernameTaken
	}

	previous := user.Username
	if err := s.repo.UpdateUserUsername(ctx, userID, newUsername); err != nil {
		if IsUniqueViolation(err) {
			return "", ErrUsernameTaken.WithCause(err)
		}
		s.logger.Error("failed to update users.username", "user_id", userID, "error", err)
		return "", ErrInternal.WithCause(err)
	}

	if err := s.repo.UpdateProfileUsername(ctx, userID, newUsername); err != nil {
		if rollbackErr := s.repo.UpdateUserUsername(ctx, userID, previous); rollbackErr != nil {
			s.logger.Error("username rollback failed, tables are inconsistent",
				"user_id", userID, "error", rollbackErr, "update_error", err)
		} else {
			s.logger.Warn("profile username update failed, users.username restored", "user_id", userID, "error", err)
		}
		if IsUniqueViolation(err) {
			return "", ErrUsernameTaken.WithCause(err)
		}
		return "", ErrInternal.WithCause(err)
	}

	s.logger.Info("username changed", "user_id", userID, "username", newUsername)
	return newUsername, nil
}

// usernameTaken reports whether any other user or profile holds the candidate.
func (s *service) usernameTaken(ctx context.Context, candidate, selfID string) (bool, error) {
	existing, err := s.repo.FindUserByUsername(ctx, candidate)
	if err == nil {
		return existing.ID != selfID, nil
	}
	if !errors.Is(err, ErrNotFound) {
		s.logger.Error("failed to check username against users", "error", err)
		return false, ErrInternal.WithCause(err)
	}

	profile, err := s.repo.FindProfileByUsername(ctx, candidate)
	if err == nil {
		return profile.UserID != selfID, nil
	}
	if !errors.Is(err, ErrNotFound) {
		s.logger.Error("failed to check username against profiles", "error", err)
		return false, ErrInternal.WithCause(err)
	}

	return false, nil
}
