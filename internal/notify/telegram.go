package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"dailyquest/internal/model"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var ErrUnsupportedProvider = errors.New("user cannot receive telegram messages")

// BotAPI is the part of the bot client the sender needs.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramSender delivers notifications as bot messages to users who signed
// in through Telegram.
type TelegramSender struct {
	bot BotAPI
}

func NewTelegramSender(botToken string, debug bool) (*TelegramSender, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize bot: %w", err)
	}

	bot.Debug = debug

	return &TelegramSender{bot: bot}, nil
}

func NewTelegramSenderWithBot(bot BotAPI) *TelegramSender {
	return &TelegramSender{bot: bot}
}

func (s *TelegramSender) Push(_ context.Context, user *model.User, n *model.Notification) error {
	if user.Provider != model.ProviderTelegram {
		return ErrUnsupportedProvider
	}

	chatID, err := strconv.ParseInt(user.OAuth2ID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram id %q: %w", user.OAuth2ID, err)
	}

	text := n.Title
	if n.Content != "" {
		text += "\n\n" + n.Content
	}

	if _, err = s.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}
