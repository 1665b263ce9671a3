package senders

import (
	"context"
	"net/http"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type telegramSender struct {
	base
	api *tgbotapi.BotAPI
}

func newTelegramSender(b base) (*telegramSender, error) {
	client := &http.Client{Transport: b.transport}
	api, err := tgbotapi.NewBotAPIWithClient(b.cfg.Telegram.Token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, err
	}
	return &telegramSender{b, api}, nil
}

// Deliver sends plain text to a chat. The recipient is the chat id in
// decimal form.
func (t *telegramSender) Deliver(ctx context.Context, recipient string, text string) (string, error) {
	chatID, err := strconv.ParseInt(recipient, 10, 64)
	if err != nil {
		return "", err
	}

	sent, err := t.api.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		return "", err
	}
	return strconv.Itoa(sent.MessageID), nil
}
