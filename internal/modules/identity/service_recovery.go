package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/quietriver/insighthub/internal/notification"
	"github.com/quietriver/insighthub/internal/notification/templates"
)

const (
	// Reset tokens replace an existing credential and get the shorter window.
	passwordResetTTL = 30 * time.Minute
	// Set tokens establish a first credential on an OAuth-only account.
	passwordSetTTL = 60 * time.Minute
)

// InitiatePasswordReset issues a reset token for an existing account and mails
// the single-use link. An unknown email returns silently so the endpoint
// reveals nothing about registered addresses.
func (s *service) InitiatePasswordReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.adapter.GetUserByEmail(ctx, email)
	if err != nil {
		s.logger.Error("failed to find user for password reset", "error", err)
		return ErrInternal.WithCause(err)
	}
	if user == nil {
		s.logger.Info("password reset requested for non-existent email", "email", email)
		return nil
	}

	token, err := s.issueRecoveryToken(ctx, user.Email, PurposePasswordReset, passwordResetTTL)
	if err != nil {
		return err
	}

	link := fmt.Sprintf("%s/reset-password?token=%s", s.config.Auth.BaseURL, token)
	data := templates.PasswordResetData{
		Username:      user.Username,
		Link:          link,
		ExpiryMinutes: int(passwordResetTTL.Minutes()),
		SupportEmail:  s.config.SMTP.From,
	}
	if err := s.sendRecoveryEmail(ctx, templates.PasswordReset, user.Email, data); err != nil {
		return err
	}

	s.logger.Info("password reset token issued", "user_id", user.ID)
	return nil
}

// InitiatePasswordSet issues a set-password token for an OAuth-only account.
// Accounts that already hold a password are rejected with a specific error so
// they do not gain a second reset path through this flow.
func (s *service) InitiatePasswordSet(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.adapter.GetUserByEmail(ctx, email)
	if err != nil {
		s.logger.Error("failed to find user for password set", "error", err)
		return ErrInternal.WithCause(err)
	}
	if user == nil {
		s.logger.Info("password set requested for non-existent email", "email", email)
		return nil
	}
	if user.HasPassword() {
		return ErrPasswordAlreadySet
	}

	token, err := s.issueRecoveryToken(ctx, user.Email, PurposePasswordSet, passwordSetTTL)
	if err != nil {
		return err
	}

	link := fmt.Sprintf("%s/set-password?token=%s", s.config.Auth.BaseURL, token)
	data := templates.PasswordSetData{
		Username:      user.Username,
		Link:          link,
		ExpiryMinutes: int(passwordSetTTL.Minutes()),
		SupportEmail:  s.config.SMTP.From,
	}
	if err := s.sendRecoveryEmail(ctx, templates.PasswordSet, user.Email, data); err != nil {
		return err
	}

	s.logger.Info("password set token issued", "user_id", user.ID)
	return nil
}

// InitiateUsernameRecovery mails the account's username. Unknown emails return
// silently, matching the reset flow's anti-enumeration stance.
func (s *service) InitiateUsernameRecovery(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.adapter.GetUserByEmail(ctx, email)
	if err != nil {
		s.logger.Error("failed to find user for username recovery", "error", err)
		return ErrInternal.WithCause(err)
	}
	if user == nil {
		s.logger.Info("username recovery requested for non-existent email", "email", email)
		return nil
	}

	data := templates.UsernameRecoveryData{
		Username:     user.Username,
		LoginLink:    s.config.Auth.BaseURL + "/login",
		SupportEmail: s.config.SMTP.From,
	}
	if err := s.sendRecoveryEmail(ctx, templates.UsernameRecovery, user.Email, data); err != nil {
		return err
	}

	s.logger.Info("username recovery email sent", "user_id", user.ID)
	return nil
}

// ResetPasswordWithToken redeems a recovery token and installs the new
// password. Consumption deletes the token row, so a second redemption of the
// same token fails. Absent and expired tokens map onto the same error class.
func (s *service) ResetPasswordWithToken(ctx context.Context, token, newPassword string) error {
	if strings.TrimSpace(token) == "" {
		return ErrInvalidToken
	}

	vt, err := s.adapter.UseVerificationToken(ctx, token)
	if err != nil {
		s.logger.Error("failed to consume verification token", "error", err)
		return ErrInternal.WithCause(err)
	}
	if vt == nil || !vt.Valid(time.Now()) {
		return ErrInvalidToken
	}
	if vt.Purpose != PurposePasswordReset && vt.Purpose != PurposePasswordSet {
		return ErrInvalidToken
	}

	user, err := s.adapter.GetUserByEmail(ctx, vt.Identifier)
	if err != nil {
		s.logger.Error("failed to load user for token redemption", "error", err)
		return ErrInternal.WithCause(err)
	}
	if user == nil {
		return ErrInvalidToken
	}

	hashed, err := hashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash new password", "error", err)
		return ErrInternal.WithCause(err)
	}
	if err := s.repo.UpdateUserPassword(ctx, user.ID, hashed); err != nil {
		s.logger.Error("failed to update password after token redemption", "user_id", user.ID, "error", err)
		return ErrInternal.WithCause(err)
	}

	s.logger.Info("password updated via recovery token", "user_id", user.ID, "purpose", string(vt.Purpose))
	return nil
}

// SetPasswordWithSession sets a first password for the authenticated
// OAuth-only account. Accounts that already hold a password are rejected;
// changing an existing password goes through the reset flow instead.
func (s *service) SetPasswordWithSession(ctx context.Context, userID, password string) error {
	user, err := s.adapter.GetUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to load user for password set", "user_id", userID, "error", err)
		return ErrInternal.WithCause(err)
	}
	if user == nil {
		return ErrNotFound
	}
	if user.HasPassword() {
		return ErrPasswordAlreadySet
	}

	hashed, err := hashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", "error", err)
		return ErrInternal.WithCause(err)
	}
	if err := s.repo.UpdateUserPassword(ctx, user.ID, hashed); err != nil {
		s.logger.Error("failed to set password", "user_id", user.ID, "error", err)
		return ErrInternal.WithCause(err)
	}

	s.logger.Info("password set on oauth-only account", "user_id", user.ID)
	return nil
}

// issueRecoveryToken deletes any live token for the identifier/purpose pair
// and inserts a fresh one, keeping at most one active token per flow.
func (s *service) issueRecoveryToken(ctx context.Context, identifier string, purpose TokenPurpose, ttl time.Duration) (string, error) {
	token, err := generateSecureToken(32)
	if err != nil {
		s.logger.Error("failed to generate recovery token", "error", err)
		return "", ErrInternal.WithCause(err)
	}

	if err := s.repo.DeleteVerificationTokens(ctx, identifier, purpose); err != nil {
		s.logger.Error("failed to delete prior recovery tokens", "error", err)
		return "", ErrInternal.WithCause(err)
	}

	err = s.adapter.CreateVerificationToken(ctx, &VerificationToken{
		Token:      token,
		Identifier: identifier,
		Purpose:    purpose,
		ExpiresAt:  time.Now().Add(ttl),
	})
	if err != nil {
		s.logger.Error("failed to persist recovery token", "error", err)
		return "", ErrInternal.WithCause(err)
	}

	return token, nil
}

// sendRecoveryEmail renders a template and dispatches the email. Delivery
// failures surface as a generic internal error; nothing is retried.
func (s *service) sendRecoveryEmail(ctx context.Context, handle templates.IHandle, to string, data any) error {
	rendered, err := s.tmpl.RenderAny(ctx, handle.ID(), data)
	if err != nil {
		s.logger.Error("failed to render recovery email", "template", handle.ID(), "error", err)
		return ErrInternal.WithCause(err)
	}

	err = s.notifier.Send(ctx, notification.Notification{
		Recipient: to,
		Channels:  []notification.Channel{notification.ChannelEmail},
		Priority:  notification.PriorityHigh,
		Content: notification.Content{
			EmailSubject:  rendered.Subject,
			EmailHTMLBody: rendered.EmailHTML,
		},
	})
	if err != nil {
		s.logger.Error("failed to send recovery email", "template", handle.ID(), "error", err)
		return ErrInternal.WithCause(err)
	}
	return nil
}
