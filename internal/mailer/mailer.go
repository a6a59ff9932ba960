package mailer

import (
	"context"
	"errors"
)

var ErrNotConfigured = errors.New("email delivery is not configured")

type Message struct {
	To             string
	Subject        string
	TextBody       string
	HTMLBody       string
	AttachmentPath string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
