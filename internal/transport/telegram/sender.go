// ABOUTME: Outbound Telegram messages with keyboard hints and rate limiting
// ABOUTME: Markdown rejected by Telegram is re-sent as plain text
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/fitai/intake-bot/internal/core"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// ShareContactLabel is the text on the one-button contact keyboard
const ShareContactLabel = "Share contact"

// botAPI is the part of tgbotapi.BotAPI the transport uses
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// SenderConfig controls outbound pacing
type SenderConfig struct {
	Rate  float64 // messages per second across all chats
	Burst int
}

// Sender implements core.Sender over the Bot API
type Sender struct {
	bot     botAPI
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewSender creates a rate-limited sender
func NewSender(bot botAPI, cfg SenderConfig, logger zerolog.Logger) *Sender {
	limit := rate.Inf
	if cfg.Rate > 0 {
		limit = rate.Limit(cfg.Rate)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return &Sender{
		bot:     bot,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger.With().Str("component", "telegram_sender").Logger(),
	}
}

// SendText delivers text to the chat, split into as many messages as needed.
// Keyboard changes ride on the last piece.
func (s *Sender) SendText(ctx context.Context, chatID, text string, format core.Format) error {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", chatID, err)
	}

	parts := SplitMessage(text, MaxMessageLength)
	for i, part := range parts {
		msg := tgbotapi.NewMessage(id, part)
		if format.Markdown {
			msg.ParseMode = tgbotapi.ModeMarkdown
		}
		if i == len(parts)-1 {
			msg.ReplyMarkup = replyMarkup(format)
		}
		if err := s.send(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sender) send(ctx context.Context, msg tgbotapi.MessageConfig) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("send rate limit: %w", err)
	}

	_, err := s.bot.Send(msg)
	if err == nil {
		return nil
	}
	if msg.ParseMode == "" || !isEntityError(err) {
		return fmt.Errorf("send message: %w", err)
	}

	s.logger.Warn().Err(err).Int64("chat_id", msg.ChatID).Msg("markdown rejected, resending as plain text")
	msg.ParseMode = ""
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("send rate limit: %w", err)
	}
	if _, err := s.bot.Send(msg); err != nil {
		return fmt.Errorf("send plain message: %w", err)
	}
	return nil
}

func replyMarkup(format core.Format) any {
	switch {
	case format.RequestContact:
		keyboard := tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButtonContact(ShareContactLabel)),
		)
		keyboard.OneTimeKeyboard = true
		keyboard.ResizeKeyboard = true
		return keyboard
	case format.RemoveKeyboard:
		return tgbotapi.NewRemoveKeyboard(true)
	default:
		return nil
	}
}

// isEntityError matches Telegram's 400 for malformed Markdown
func isEntityError(err error) bool {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == http.StatusBadRequest && strings.Contains(apiErr.Message, "can't parse entities")
}
