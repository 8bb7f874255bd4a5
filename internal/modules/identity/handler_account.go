package identity

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/quietriver/insighthub/internal/contextx"
	"github.com/quietriver/insighthub/internal/validation"
)

// --- DTOs ---

// MeResponse is the current user's account and profile view.
type MeResponse struct {
	Body struct {
		ID          string  `json:"id"`
		Email       string  `json:"email"`
		Username    string  `json:"username"`
		Name        *string `json:"name,omitempty"`
		Image       *string `json:"image,omitempty"`
		Bio         *string `json:"bio,omitempty"`
		AvatarURL   *string `json:"avatarUrl,omitempty"`
		HasPassword bool    `json:"hasPassword"`
		IsAdmin     bool    `json:"isAdmin"`
	}
}

// ChangeUsernameRequest carries the desired new username.
type ChangeUsernameRequest struct {
	Body struct {
		Username string `json:"username" validate:"required,min=3,max=24"`
	}
}

// ChangeUsernameResponse returns the username now on record.
type ChangeUsernameResponse struct {
	Body struct {
		Username string `json:"username"`
	}
}

// UpdateProfileRequest patches the mutable profile fields. Absent fields are
// left untouched.
type UpdateProfileRequest struct {
	Body struct {
		Bio       *string `json:"bio,omitempty" validate:"omitempty,max=500"`
		AvatarURL *string `json:"avatarUrl,omitempty" validate:"omitempty,max=2048,url"`
	}
}

// UpdateProfileResponse is the profile after the patch.
type UpdateProfileResponse struct {
	Body struct {
		Username  string  `json:"username"`
		Bio       *string `json:"bio,omitempty"`
		AvatarURL *string `json:"avatarUrl,omitempty"`
	}
}

// CheckAdminResponse confirms admin standing.
type CheckAdminResponse struct {
	Body struct {
		IsAdmin bool `json:"isAdmin"`
	}
}

// --- Handlers ---

// userIDFromContext pulls the authenticated user's ID injected by the session
// middleware.
func userIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(contextx.UserIDKey).(string)
	if !ok || userID == "" {
		return "", huma.Error401Unauthorized("authentication required")
	}
	return userID, nil
}

// MeHandler returns the current user's account and profile.
func (h *Handler) MeHandler(ctx context.Context, _ *struct{}) (*MeResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	user, err := h.service.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Valid token for a deleted account.
			return nil, huma.Error401Unauthorized("account no longer exists")
		}
		h.logger.Error("failed to load current user", "user_id", userID, "error", err)
		return nil, huma.Error500InternalServerError("failed to load account")
	}
	profile, err := h.service.GetOrCreateProfile(ctx, userID)
	if err != nil {
		h.logger.Error("failed to load profile", "user_id", userID, "error", err)
		return nil, huma.Error500InternalServerError("failed to load account")
	}

	resp := &MeResponse{}
	resp.Body.ID = user.ID
	resp.Body.Email = user.Email
	resp.Body.Username = user.Username
	resp.Body.Name = user.Name
	resp.Body.Image = user.Image
	resp.Body.Bio = profile.Bio
	resp.Body.AvatarURL = profile.AvatarURL
	resp.Body.HasPassword = user.HasPassword()
	resp.Body.IsAdmin = profile.IsAdmin
	return resp, nil
}

// ChangeUsernameHandler renames the current user. The username in the session
// claims goes stale until the next sliding renewal; readers of the username
// must treat the database as authoritative.
func (h *Handler) ChangeUsernameHandler(ctx context.Context, input *ChangeUsernameRequest) (*ChangeUsernameResponse, error) {
	if err := validation.ValidateStruct(input.Body); err != nil {
		return nil, err
	}
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	h.logger.Info("handling change username request", "user_id", userID)

	username, err := h.service.ChangeUsername(ctx, userID, input.Body.Username)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidUsername):
			return nil, huma.Error400BadRequest("usernames are 3-24 characters of letters, digits, and underscores")
		case errors.Is(err, ErrUsernameTaken):
			return nil, huma.Error409Conflict("this username is already taken")
		default:
			h.logger.Error("failed to change username", "user_id", userID, "error", err)
			return nil, huma.Error500InternalServerError("could not change username")
		}
	}

	resp := &ChangeUsernameResponse{}
	resp.Body.Username = username
	return resp, nil
}

// UpdateProfileHandler patches the current user's profile.
func (h *Handler) UpdateProfileHandler(ctx context.Context, input *UpdateProfileRequest) (*UpdateProfileResponse, error) {
	if err := validation.ValidateStruct(input.Body); err != nil {
		return nil, err
	}
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	profile, err := h.service.UpdateProfile(ctx, userID, ProfilePatch{
		Bio:       input.Body.Bio,
		AvatarURL: input.Body.AvatarURL,
	})
	if err != nil {
		h.logger.Error("failed to update profile", "user_id", userID, "error", err)
		return nil, huma.Error500InternalServerError("could not update profile")
	}

	resp := &UpdateProfileResponse{}
	resp.Body.Username = profile.Username
	resp.Body.Bio = profile.Bio
	resp.Body.AvatarURL = profile.AvatarURL
	return resp, nil
}

// CheckAdminHandler reports whether the current user is an admin. The flag is
// read from the database on every call rather than from the session claims, so
// a revoked admin loses access immediately.
func (h *Handler) CheckAdminHandler(ctx context.Context, _ *struct{}) (*CheckAdminResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	isAdmin, err := h.service.IsAdmin(ctx, userID)
	if err != nil {
		h.logger.Error("failed to check admin standing", "user_id", userID, "error", err)
		return nil, huma.Error500InternalServerError("could not verify permissions")
	}
	if !isAdmin {
		return nil, huma.Error403Forbidden("admin access required")
	}

	resp := &CheckAdminResponse{}
	resp.Body.IsAdmin = true
	return resp, nil
}
