package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/foxseedlab/meetbot/internal/mailer"
	"github.com/wneessen/go-mail"
)

const (
	maxSendAttempts = 3
	initialBackoff  = time.Second
)

type sendFunc func(ctx context.Context, msg *mail.Msg) error

type SMTPMailer struct {
	from    string
	send    sendFunc
	backoff time.Duration
}

func NewSMTPMailer(host string, port int, username, password, from string) (*SMTPMailer, error) {
	client, err := mail.NewClient(host,
		mail.WithPort(port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(username),
		mail.WithPassword(password),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithTimeout(30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	if from == "" {
		from = username
	}
	return &SMTPMailer{
		from:    from,
		send:    func(ctx context.Context, msg *mail.Msg) error { return client.DialAndSendWithContext(ctx, msg) },
		backoff: initialBackoff,
	}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, msg mailer.Message) error {
	if msg.To == "" {
		return errors.New("email recipient is empty")
	}
	if msg.AttachmentPath != "" {
		if _, err := os.Stat(msg.AttachmentPath); err != nil {
			return fmt.Errorf("attachment not found: %w", err)
		}
	}
	built, err := m.buildMessage(msg)
	if err != nil {
		return err
	}

	backoff := m.backoff
	var lastErr error
	for attempt := 1; attempt <= maxSendAttempts; attempt++ {
		lastErr = m.send(ctx, built)
		if lastErr == nil {
			slog.Info("email sent", "recipient", msg.To, "attempt", attempt)
			return nil
		}
		slog.Warn("email send attempt failed", "recipient", msg.To, "attempt", attempt, "error", lastErr)
		if attempt == maxSendAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return fmt.Errorf("send email after %d attempts: %w", maxSendAttempts, lastErr)
}

func (m *SMTPMailer) buildMessage(msg mailer.Message) (*mail.Msg, error) {
	out := mail.NewMsg()
	if err := out.From(m.from); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := out.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	out.Subject(msg.Subject)
	switch {
	case msg.TextBody != "" && msg.HTMLBody != "":
		out.SetBodyString(mail.TypeTextPlain, msg.TextBody)
		out.AddAlternativeString(mail.TypeTextHTML, msg.HTMLBody)
	case msg.HTMLBody != "":
		out.SetBodyString(mail.TypeTextHTML, msg.HTMLBody)
	default:
		out.SetBodyString(mail.TypeTextPlain, msg.TextBody)
	}
	if msg.AttachmentPath != "" {
		out.AttachFile(msg.AttachmentPath)
	}
	return out, nil
}

// disabledMailer is used when SMTP credentials are missing.
type disabledMailer struct{}

func (disabledMailer) Send(context.Context, mailer.Message) error {
	return mailer.ErrNotConfigured
}
