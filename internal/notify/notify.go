// Package notify delivers reminder texts outside the application.
package notify

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// Notifier pushes a pre-formatted HTML text to a chat.
type Notifier interface {
	Notify(ctx context.Context, chatID int64, text string) error
}

// ErrNoChat is returned when a message has no destination.
var ErrNoChat = errors.New("no chat id")

// sender is the subset of *tgbotapi.BotAPI used for delivery.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram sends notifications through a Telegram bot.
type Telegram struct {
	api    sender
	logger *log.Logger
}

// NewTelegram authorizes the bot token against the Telegram API.
func NewTelegram(token string, logger *log.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	logger.WithField("account", api.Self.UserName).Info("telegram bot authorized")
	return &Telegram{api: api, logger: logger}, nil
}

func (t *Telegram) Notify(ctx context.Context, chatID int64, text string) error {
	if chatID == 0 {
		return ErrNoChat
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	t.logger.WithField("chat_id", chatID).Debug("telegram notification sent")
	return nil
}
