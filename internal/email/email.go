package email

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/resend/resend-go/v2"
)

// Sender delivers one HTML email. Implementations must be safe for
// concurrent use by the dispatcher's workers.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogSender writes emails to the log instead of delivering them, so local
// activation and reset links can be copied from the console.
type LogSender struct {
	logger *slog.Logger
}

func (s *LogSender) Send(ctx context.Context, to, subject, body string) error {
	s.logger.InfoContext(ctx, "email not delivered (local)", "to", to, "subject", subject, "body", body)
	return nil
}

// ResendSender delivers through the Resend API.
type ResendSender struct {
	emails resend.EmailsSvc
	from   string
}

func (s *ResendSender) Send(ctx context.Context, to, subject, body string) error {
	sent, err := s.emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to},
		Subject: subject,
		Html:    body,
		// Stops mail clients threading separate activation emails together.
		Headers: map[string]string{"X-Entity-Ref-ID": uuid.NewString()},
	})
	if err != nil {
		return fmt.Errorf("resend %q: %w", subject, err)
	}
	if sent == nil || sent.Id == "" {
		return fmt.Errorf("resend %q: empty message id", subject)
	}
	return nil
}

// NewSender picks LogSender for ENV=local and ResendSender everywhere else.
func NewSender(env, apiKey, from string, logger *slog.Logger) Sender {
	if env == "local" {
		return &LogSender{logger: logger.With("component", "email")}
	}
	return &ResendSender{
		emails: resend.NewClient(apiKey).Emails,
		from:   from,
	}
}
