package notifier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"account-service/internal/config"
)

type capturingNotifier struct {
	to      string
	subject string
	body    string
}

func (c *capturingNotifier) Send(_ context.Context, to, subject, body string) error {
	c.to = to
	c.subject = subject
	c.body = body
	return nil
}

func newTestMailer(sink *capturingNotifier) *Mailer {
	return NewMailer(sink, &config.EmailConfig{ClientURL: "https://app.example.com"})
}

func TestSendVerificationOTP(t *testing.T) {
	sink := &capturingNotifier{}
	m := newTestMailer(sink)

	require.NoError(t, m.SendVerificationOTP(context.Background(), "ada@example.com", "54321"))

	assert.Equal(t, "ada@example.com", sink.to)
	assert.Equal(t, "Email Verification Code", sink.subject)
	assert.Contains(t, sink.body, "54321")
}

func TestSendResetPassword(t *testing.T) {
	sink := &capturingNotifier{}
	m := newTestMailer(sink)

	require.NoError(t, m.SendResetPassword(context.Background(), "ada@example.com", "signed-token"))

	assert.Equal(t, "Reset password", sink.subject)
	assert.Contains(t, sink.body, "https://app.example.com/auth/reset-password?token=signed-token")
}

func TestSendEmailVerification(t *testing.T) {
	sink := &capturingNotifier{}
	m := newTestMailer(sink)

	require.NoError(t, m.SendEmailVerification(context.Background(), "ada@example.com", "signed-token"))

	assert.Equal(t, "Verify email", sink.subject)
	assert.Contains(t, sink.body, "https://app.example.com/verify-email?token=signed-token")
}

func TestLogNotifierNeverFails(t *testing.T) {
	var n LogNotifier
	assert.NoError(t, n.Send(context.Background(), "ada@example.com", "subject", "body"))
}
