package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/resend/resend-go/v2"
)

// ErrNotConfigured is returned when the mail provider credential is missing.
var ErrNotConfigured = errors.New("mail provider not configured")

// Mailer is the capability interface for transactional email delivery.
type Mailer interface {
	SendMagicLink(ctx context.Context, to, link string) error
}

// ResendMailer sends transactional mail through the Resend API.
type ResendMailer struct {
	client *resend.Client
	from   string
}

// NewResendMailer creates a mailer. An empty API key yields a mailer whose
// sends fail with ErrNotConfigured rather than a construction error, so the
// server can boot without mail credentials in development.
func NewResendMailer(apiKey, from string) *ResendMailer {
	m := &ResendMailer{from: from}
	if apiKey != "" {
		m.client = resend.NewClient(apiKey)
	}
	return m
}

// SendMagicLink emails a single-use sign-in link. The link expires in 10
// minutes; the copy says so.
func (m *ResendMailer) SendMagicLink(ctx context.Context, to, link string) error {
	if m.client == nil {
		return ErrNotConfigured
	}

	params := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{to},
		Subject: "Sign in to DocStack",
		Html: fmt.Sprintf(`<p>Hello %s,</p>
<p>Click the link below to sign in to your account. This magic link expires in <strong>10 minutes</strong>.</p>
<p><a href="%s">Sign In</a></p>
<p>If you did not request this email, you can safely ignore it.</p>`, to, link),
	}

	if _, err := m.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("failed to send magic link email: %w", err)
	}
	return nil
}
