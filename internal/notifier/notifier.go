package notifier

import (
	"context"
	"fmt"

	"account-service/internal/config"
)

// Notifier delivers account-related messages to a user. Implementations
// must be safe for concurrent use.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Mailer wraps a Notifier with the message templates the auth flows use.
type Mailer struct {
	notifier  Notifier
	clientURL string
}

func NewMailer(notifier Notifier, cfg *config.EmailConfig) *Mailer {
	return &Mailer{
		notifier:  notifier,
		clientURL: cfg.ClientURL,
	}
}

// SendVerificationOTP sends the numeric email verification code.
func (m *Mailer) SendVerificationOTP(ctx context.Context, to, code string) error {
	subject := "Email Verification Code"
	body := fmt.Sprintf(`Dear user,
You requested for a verification code
%s
Copy to your activation code or ignore if this wasn't you.`, code)
	return m.notifier.Send(ctx, to, subject, body)
}

// SendResetPassword sends the password reset link carrying a signed token.
func (m *Mailer) SendResetPassword(ctx context.Context, to, token string) error {
	subject := "Reset password"
	resetURL := fmt.Sprintf("%s/auth/reset-password?token=%s", m.clientURL, token)
	body := fmt.Sprintf(`Dear user,
To reset your password, click on this link: %s
If you did not request any password resets, then ignore this email.`, resetURL)
	return m.notifier.Send(ctx, to, subject, body)
}

// SendEmailVerification sends the verify-by-link email.
func (m *Mailer) SendEmailVerification(ctx context.Context, to, token string) error {
	subject := "Verify email"
	verifyURL := fmt.Sprintf("%s/verify-email?token=%s", m.clientURL, token)
	body := fmt.Sprintf(`Dear user,
To verify your email, click on this link: %s
If you did not sign up, then ignore this email.`, verifyURL)
	return m.notifier.Send(ctx, to, subject, body)
}
