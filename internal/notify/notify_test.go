package notify

import (
	"context"
	"errors"
	"io"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func quietLogger() *log.Logger {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger
}

var _ Notifier = (*Telegram)(nil)

func TestTelegramNotifyUsesHTML(t *testing.T) {
	fake := &fakeSender{}
	tg := &Telegram{api: fake, logger: quietLogger()}

	require.NoError(t, tg.Notify(context.Background(), 42, "<b>You have 1 overdue task:</b>"))
	require.Len(t, fake.sent, 1)
	assert.Equal(t, int64(42), fake.sent[0].ChatID)
	assert.Equal(t, tgbotapi.ModeHTML, fake.sent[0].ParseMode)
	assert.True(t, fake.sent[0].DisableWebPagePreview)
}

func TestTelegramNotifyErrors(t *testing.T) {
	fake := &fakeSender{err: errors.New("forbidden: bot was blocked by the user")}
	tg := &Telegram{api: fake, logger: quietLogger()}

	assert.ErrorIs(t, tg.Notify(context.Background(), 0, "x"), ErrNoChat)

	err := tg.Notify(context.Background(), 7, "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "send telegram message")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, tg.Notify(ctx, 7, "x"), context.Canceled)
}
