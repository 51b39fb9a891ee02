package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/sirupsen/logrus"
)

// Notifier delivers human readable text to an operator channel. Callers treat
// a returned error as non-fatal.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIURL   string `mapstructure:"api_url"`
}

func (c TelegramConfig) Enabled() bool {
	return c.BotToken != "" && c.ChatID != ""
}

// TelegramNotifier posts messages to a chat through the Bot API.
type TelegramNotifier struct {
	bot    *telego.Bot
	chatID telego.ChatID
}

func NewTelegramNotifier(cfg TelegramConfig) (*TelegramNotifier, error) {
	opts := []telego.BotOption{telego.WithDiscardLogger()}
	if cfg.APIURL != "" {
		opts = append(opts, telego.WithAPIServer(strings.TrimRight(cfg.APIURL, "/")))
	}

	bot, err := telego.NewBot(cfg.BotToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	return &TelegramNotifier{
		bot:    bot,
		chatID: parseChatID(cfg.ChatID),
	}, nil
}

// parseChatID accepts a numeric id or a channel username.
func parseChatID(raw string) telego.ChatID {
	raw = strings.TrimSpace(raw)
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return tu.ID(id)
	}
	if !strings.HasPrefix(raw, "@") {
		raw = "@" + raw
	}
	return tu.Username(raw)
}

func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	if _, err := t.bot.SendMessage(ctx, tu.Message(t.chatID, text)); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// LogNotifier writes messages to the log when no chat is configured.
type LogNotifier struct {
	logger *logrus.Logger
}

func NewLogNotifier(logger *logrus.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Send(_ context.Context, text string) error {
	l.logger.WithField("notification", text).Info("Notification")
	return nil
}

// New picks the Telegram notifier when credentials are present and falls
// back to logging otherwise.
func New(cfg TelegramConfig, logger *logrus.Logger) (Notifier, error) {
	if !cfg.Enabled() {
		logger.Warn("Telegram credentials not configured, notifications go to the log")
		return NewLogNotifier(logger), nil
	}
	return NewTelegramNotifier(cfg)
}
