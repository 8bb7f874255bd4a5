package identity

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/quietriver/insighthub/internal/contextx"
	"github.com/quietriver/insighthub/internal/validation"
)

// --- DTOs ---

// ForgotPasswordRequest initiates a password reset for an email address.
type ForgotPasswordRequest struct {
	Body struct {
		Email string `json:"email" validate:"required,email"`
	}
}

// ForgotPasswordResponse is an empty successful response.
type ForgotPasswordResponse struct{}

// ResetPasswordRequest finalizes a password reset with an emailed token.
type ResetPasswordRequest struct {
	Body struct {
		Token           string `json:"token" validate:"required"`
		Password        string `json:"password" validate:"required,min=8"`
		ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
	}
}

// ResetPasswordResponse is an empty successful response.
type ResetPasswordResponse struct{}

// RequestSetPasswordRequest asks for a set-password link for an OAuth-only
// account.
type RequestSetPasswordRequest struct {
	Body struct {
		Email string `json:"email" validate:"required,email"`
	}
}

// RequestSetPasswordResponse is an empty successful response.
type RequestSetPasswordResponse struct{}

// SetPasswordRequest establishes a first password. The caller proves identity
// either with an emailed token or with an authenticated session; the token
// takes precedence when both are present.
type SetPasswordRequest struct {
	Body struct {
		Token           string `json:"token,omitempty"`
		Password        string `json:"password" validate:"required,min=8"`
		ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
	}
}

// SetPasswordResponse is an empty successful response.
type SetPasswordResponse struct{}

// ForgotUsernameRequest asks for the account's username to be emailed.
type ForgotUsernameRequest struct {
	Body struct {
		Email string `json:"email" validate:"required,email"`
	}
}

// ForgotUsernameResponse is an empty successful response.
type ForgotUsernameResponse struct{}

// --- Handlers ---

// ForgotPasswordHandler initiates a password reset. The response is identical
// for known and unknown emails to prevent account enumeration; real failures
// are logged server-side only.
func (h *Handler) ForgotPasswordHandler(ctx context.Context, input *ForgotPasswordRequest) (*ForgotPasswordResponse, error) {
	if err := validation.ValidateStruct(input.Body); err != nil {
		return nil, err
	}
	h.logger.Info("handling forgot password request", "email", input.Body.Email)

	if err := h.service.InitiatePasswordReset(ctx, input.Body.Email); err != nil {
		h.logger.Error("failed to initiate password reset", "email", input.Body.Email, "error", err)
	}
	return &ForgotPasswordResponse{}, nil
}

// ResetPasswordHandler redeems a reset token for a new password.
func (h *Handler) ResetPasswordHandler(ctx context.Context, input *ResetPasswordRequest) (*ResetPasswordResponse, error) {
	if err := validation.ValidateStruct(input.Body); err != nil {
		return nil, err
	}
	h.logger.Info("handling reset password request")

	if err := h.service.ResetPasswordWithToken(ctx, input.Body.Token, input.Body.Password); err != nil {
		if errors.Is(err, ErrInvalidToken) {
			return nil, huma.Error400BadRequest("the provided token is invalid or has expired")
		}
		h.logger.Error("failed to reset password", "error", err)
		return nil, huma.Error500InternalServerError("could not reset password")
	}

	h.logger.Info("password reset successfully")
	return &ResetPasswordResponse{}, nil
}

// RequestSetPasswordHandler mails a set-password link to an OAuth-only
// account. Accounts that already hold a password get an explicit conflict
// pointing them at the reset flow; unknown emails look like success.
func (h *Handler) RequestSetPasswordHandler(ctx context.Context, input *RequestSetPasswordRequest) (*RequestSetPasswordResponse, error) {
	if err := validation.ValidateStruct(input.Body); err != nil {
		return nil, err
	}
	h.logger.Info("handling set password link request", "email", input.Body.Email)

	if err := h.service.InitiatePasswordSet(ctx, input.Body.Email); err != nil {
		if errors.Is(err, ErrPasswordAlreadySet) {
			return nil, huma.Error409Conflict("this account already has a password; use the reset flow instead")
		}
		h.logger.Error("failed to initiate password set", "email", input.Body.Email, "error", err)
	}
	return &RequestSetPasswordResponse{}, nil
}

// SetPasswordHandler sets a first password using either an emailed token or
// the current session.
func (h *Handler) SetPasswordHandler(ctx context.Context, input *SetPasswordRequest) (*SetPasswordResponse, error) {
	if err := validation.ValidateStruct(input.Body); err != nil {
		return nil, err
	}
	h.logger.Info("handling set password request")

	var err error
	switch {
	case input.Body.Token != "":
		err = h.service.ResetPasswordWithToken(ctx, input.Body.Token, input.Body.Password)
	default:
		userID, ok := ctx.Value(contextx.UserIDKey).(string)
		if !ok || userID == "" {
			return nil, huma.Error401Unauthorized("a token or an active session is required to set a password")
		}
		err = h.service.SetPasswordWithSession(ctx, userID, input.Body.Password)
	}
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidToken):
			return nil, huma.Error400BadRequest("the provided token is invalid or has expired")
		case errors.Is(err, ErrPasswordAlreadySet):
			return nil, huma.Error409Conflict("this account already has a password; use the reset flow instead")
		default:
			h.logger.Error("failed to set password", "error", err)
			return nil, huma.Error500InternalServerError("could not set password")
		}
	}

	h.logger.Info("password set successfully")
	return &SetPasswordResponse{}, nil
}

// ForgotUsernameHandler mails the account's username. Same anti-enumeration
// posture as the password flows.
func (h *Handler) ForgotUsernameHandler(ctx context.Context, input *ForgotUsernameRequest) (*ForgotUsernameResponse, error) {
	if err := validation.ValidateStruct(input.Body); err != nil {
		return nil, err
	}
	h.logger.Info("handling forgot username request", "email", input.Body.Email)

	if err := h.service.InitiateUsernameRecovery(ctx, input.Body.Email); err != nil {
		h.logger.Error("failed to initiate username recovery", "email", input.Body.Email, "error", err)
	}
	return &ForgotUsernameResponse{}, nil
}
