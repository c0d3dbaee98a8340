package notify

import (
	"strings"

	tele "gopkg.in/telebot.v3"

	"github.com/eliseohh/reviewbot/internal/failure"
	"github.com/eliseohh/reviewbot/internal/logger"
)

// Sender is the part of *tele.Bot the messenger needs.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Chat addresses a Telegram chat by numeric id or @username.
type Chat string

func (c Chat) Recipient() string {
	return string(c)
}

// Telegram delivers notifications to a single chat.
type Telegram struct {
	api  Sender
	chat Chat
}

func NewTelegram(api Sender, chatID string) *Telegram {
	return &Telegram{api: api, chat: Chat(strings.TrimSpace(chatID))}
}

// SendMessage delivers text to the configured chat. Transport failures
// are returned as DeliveryError.
func (t *Telegram) SendMessage(text string) error {
	logger.Debugf("sending message to chat %s", t.chat)
	if _, err := t.api.Send(t.chat, text); err != nil {
		return failure.Wrap(failure.DeliveryError, "send message", err,
			"delivering message to chat "+string(t.chat)+" failed")
	}
	logger.Infof("bot sent message: %s", text)
	return nil
}
