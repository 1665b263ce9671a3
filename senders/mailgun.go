package senders

import (
	"context"
	"strings"
	"time"

	"github.com/mailgun/mailgun-go/v4"
)

type mailgunSender struct {
	base
}

// Deliver emails the text to the recipient address, using the first line as
// the subject.
func (e *mailgunSender) Deliver(ctx context.Context, recipient string, text string) (string, error) {
	mg := mailgun.NewMailgun(e.cfg.Mailgun.Domain, e.cfg.Mailgun.APIKey)
	mg.Client().Transport = e.transport

	subject, _, _ := strings.Cut(text, "\n")
	message := mg.NewMessage(e.cfg.Mailgun.SenderFrom, subject, text, recipient)

	timeout := time.Duration(e.cfg.Mailgun.TimeoutSecs) * time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, id, err := mg.Send(ctx, message)
	return id, err
}
