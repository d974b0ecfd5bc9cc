package telegram

import (
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
)

// Notifier sends alarm notifications through a Telegram bot.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewNotifier creates a notifier for the given bot token and chat.
func NewNotifier(token string, chatID int64) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, errors.Wrap(err, "could not create telegram bot")
	}

	return &Notifier{bot: bot, chatID: chatID}, nil
}

// NewNotifierFromSettings builds a notifier from the persisted settings
// values, where the chat id is stored as a string.
func NewNotifierFromSettings(token, chatID string) (*Notifier, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid telegram chat id %q", chatID)
	}
	return NewNotifier(token, id)
}

// Send delivers a MarkdownV2 message to the configured chat.
func (n *Notifier) Send(text string) error {
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.DisableWebPagePreview = true
	msg.ParseMode = "MarkdownV2"
	_, err := n.bot.Send(msg)
	return errors.Wrap(err, "could not send notification")
}
