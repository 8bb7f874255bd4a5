package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// --- Constants for Type Safety ---
type Channel string
type Priority string

const (
	ChannelEmail Channel = "email"
)

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Content holds the specific message data for each channel.
type Content struct {
	EmailSubject  string
	EmailHTMLBody string
}

// Notification is the universal object used to send any notification.
type Notification struct {
	Recipient string
	Channels  []Channel
	Priority  Priority
	Content   Content
}

// emailSender is the internal delivery interface; not exposed outside the package.
type emailSender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// Service is the main interface for the notification system. Send is
// synchronous: delivery failures come back to the caller, which converts them
// to a generic failure. Nothing is retried.
type Service interface {
	Send(ctx context.Context, n Notification) error
}

// service is the concrete implementation.
type service struct {
	log         *slog.Logger
	emailSender emailSender
}

// NewService creates a new notification service.
func NewService(log *slog.Logger, emailSender emailSender) Service {
	return &service{
		log:         log,
		emailSender: emailSender,
	}
}

// Send dispatches the notification to each requested channel in turn and
// returns the joined delivery errors, if any.
func (s *service) Send(ctx context.Context, n Notification) error {
	var errs []error
	for _, channel := range n.Channels {
		switch channel {
		case ChannelEmail:
			s.log.Info("dispatching email notification", "recipient", n.Recipient)
			if err := s.emailSender.Send(ctx, n.Recipient, n.Content.EmailSubject, n.Content.EmailHTMLBody); err != nil {
				s.log.Error("failed to send notification", "channel", channel, "recipient", n.Recipient, "error", err)
				errs = append(errs, fmt.Errorf("send %s: %w", channel, err))
			}
		default:
			s.log.Warn("unsupported notification channel", "channel", channel)
		}
	}
	return errors.Join(errs...)
}
