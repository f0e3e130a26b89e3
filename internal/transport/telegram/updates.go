// ABOUTME: Maps Telegram updates onto core events and runs the long-poll loop
// ABOUTME: Updates other than private text, contact, and command messages are dropped
package telegram

import (
	"context"
	"strconv"
	"strings"

	"github.com/fitai/intake-bot/internal/core"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// ToEvent converts an update into a core event. ok is false for updates the bot ignores.
func ToEvent(update tgbotapi.Update) (ev core.Event, ok bool) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return core.Event{}, false
	}

	ev = core.Event{
		ExternalUserID: strconv.FormatInt(msg.From.ID, 10),
		ChatID:         strconv.FormatInt(msg.Chat.ID, 10),
		DisplayName:    strings.TrimSpace(msg.From.FirstName + " " + msg.From.LastName),
		Username:       msg.From.UserName,
	}

	switch {
	case msg.IsCommand():
		ev.Kind = core.EventCommand
		ev.Command = msg.Command()
	case msg.Contact != nil:
		ev.Kind = core.EventContact
		ev.Contact = &core.Contact{
			Phone:     msg.Contact.PhoneNumber,
			FirstName: msg.Contact.FirstName,
			LastName:  msg.Contact.LastName,
		}
		if msg.Contact.UserID != 0 {
			ev.Contact.UserID = strconv.FormatInt(msg.Contact.UserID, 10)
		}
	case msg.Text != "":
		ev.Kind = core.EventText
		ev.Text = msg.Text
	default:
		return core.Event{}, false
	}
	return ev, true
}

// Poller long-polls the Bot API and hands events to dispatch
type Poller struct {
	bot      botAPI
	dispatch func(core.Event) error
	timeout  int
	logger   zerolog.Logger
}

// NewPoller creates a poller. dispatch must not block for long.
func NewPoller(bot botAPI, dispatch func(core.Event) error, logger zerolog.Logger) *Poller {
	return &Poller{
		bot:      bot,
		dispatch: dispatch,
		timeout:  30,
		logger:   logger.With().Str("component", "telegram_poller").Logger(),
	}
}

// Run receives updates until ctx is cancelled or the update channel closes
func (p *Poller) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = p.timeout
	updates := p.bot.GetUpdatesChan(cfg)

	p.logger.Info().Msg("receiving updates")
	for {
		select {
		case <-ctx.Done():
			p.bot.StopReceivingUpdates()
			p.logger.Info().Msg("stopped receiving updates")
			return nil
		case update, open := <-updates:
			if !open {
				return nil
			}
			ev, ok := ToEvent(update)
			if !ok {
				p.logger.Debug().Int("update_id", update.UpdateID).Msg("ignoring update")
				continue
			}
			if err := p.dispatch(ev); err != nil {
				p.logger.Warn().Err(err).Str("external_user_id", ev.ExternalUserID).Msg("dropped update")
			}
		}
	}
}

// NewBot connects to the Bot API with the given token
func NewBot(token string, logger zerolog.Logger) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("bot", bot.Self.UserName).Msg("authorized with Telegram")
	return bot, nil
}
