// Package senders holds the outbound message transports, keyed by platform.
// Each sender delivers plain text to one recipient; delivery failures are the
// caller's to isolate per recipient.
package senders

import (
	"context"
	"net/http"

	"github.com/avergara/jobwatch/config"
	"github.com/avergara/jobwatch/lib/models"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Sender interface {
	Deliver(ctx context.Context, recipient string, text string) (string, error)
}

type Registry map[string]Sender

func NewSenderRegistry(lc fx.Lifecycle, log *zap.Logger, cfg *config.Config, transport http.RoundTripper) Registry {
	base := base{log, cfg, transport}
	registry := Registry{
		models.NotifyViaEmail: &mailgunSender{base},
	}

	tg, err := newTelegramSender(base)
	if err != nil {
		log.Sugar().Warnw("Telegram sender unavailable", "err", err)
	} else {
		registry[models.NotifyViaTelegram] = tg
	}
	return registry
}

type base struct {
	log       *zap.Logger
	cfg       *config.Config
	transport http.RoundTripper
}
