// Package notify delivers out-of-band owner notifications for booking
// events. Delivery is best effort; a failed notification never fails the
// page action that triggered it.
package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"tavolo/internal/models"
)

// Notifier receives booking lifecycle events.
type Notifier interface {
	BookingCreated(b *models.Booking)
	BookingCancelled(ref, message string)
}

// Noop discards all events. Used when no Telegram channel is configured.
type Noop struct{}

func (Noop) BookingCreated(*models.Booking) {}

func (Noop) BookingCancelled(string, string) {}

// Telegram sends booking events to the owner's chat.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger zerolog.Logger
}

// NewTelegram creates a Telegram notifier for the given bot token and chat.
func NewTelegram(botToken string, chatID int64, logger zerolog.Logger) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &Telegram{bot: bot, chatID: chatID, logger: logger}, nil
}

func (t *Telegram) BookingCreated(b *models.Booking) {
	name := ""
	if b.Customer != nil {
		name = b.Customer.FullName()
	}
	text := fmt.Sprintf("New booking %s\n%s at %s, party of %d\n%s",
		b.Reference, b.VisitDate, b.VisitTime, b.PartySize, name)
	t.send(text)
}

func (t *Telegram) BookingCancelled(ref, message string) {
	text := fmt.Sprintf("Booking %s cancelled", ref)
	if message != "" {
		text += "\n" + message
	}
	t.send(text)
}

func (t *Telegram) send(text string) {
	msg := tgbotapi.NewMessage(t.chatID, text)
	if _, err := t.bot.Send(msg); err != nil {
		t.logger.Warn().Err(err).Msg("telegram notification failed")
	}
}
