package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"NewsAnalyzer/internal/ports"
)

const maxMessageRunes = 4096

// Notifier sends ingestion reports to a Telegram chat via the Bot API.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64

	// channel is set instead of chatID for "@channel" targets.
	channel string
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier authenticates the bot and resolves the target chat. An empty
// endpoint uses the public Bot API.
func NewNotifier(botToken, chatID, endpoint string, client *http.Client) (*Notifier, error) {
	if botToken == "" || chatID == "" {
		return nil, fmt.Errorf("telegram notifier misconfigured")
	}
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	n := &Notifier{}
	if strings.HasPrefix(chatID, "@") {
		n.channel = chatID
	} else {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse telegram chat id %q: %w", chatID, err)
		}
		n.chatID = id
	}

	bot, err := tgbotapi.NewBotAPIWithClient(botToken, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("connect telegram bot: %w", err)
	}
	n.bot = bot
	return n, nil
}

// PublishReport posts a plain-text report to the configured chat.
func (n *Notifier) PublishReport(ctx context.Context, report string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(report) == "" {
		return nil
	}

	text := truncate(report, maxMessageRunes)
	var msg tgbotapi.MessageConfig
	if n.channel != "" {
		msg = tgbotapi.NewMessageToChannel(n.channel, text)
	} else {
		msg = tgbotapi.NewMessage(n.chatID, text)
	}

	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}

func truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max-1]) + "…"
}
