package notifier

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"account-service/internal/config"
	"account-service/internal/util"
)

// SMTPNotifier delivers mail over a plain-auth SMTP relay.
type SMTPNotifier struct {
	host string
	port int
	from string
	auth smtp.Auth
}

func NewSMTPNotifier(cfg *config.EmailConfig) *SMTPNotifier {
	var auth smtp.Auth
	if cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPHost)
	}
	return &SMTPNotifier{
		host: cfg.SMTPHost,
		port: cfg.SMTPPort,
		from: cfg.From,
		auth: auth,
	}
}

func (n *SMTPNotifier) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", n.from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", n.host, n.port)
	if err := smtp.SendMail(addr, n.auth, n.from, []string{to}, []byte(msg.String())); err != nil {
		util.Error("Failed to send email",
			zap.String("subject", subject),
			zap.Error(err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	util.Debug("Email sent", zap.String("subject", subject))
	return nil
}

// LogNotifier writes messages to the application log instead of sending
// them. Used when SMTP is not configured, typically in development.
type LogNotifier struct{}

func (LogNotifier) Send(_ context.Context, to, subject, body string) error {
	util.Info("Email delivery disabled, logging message instead",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body))
	return nil
}
