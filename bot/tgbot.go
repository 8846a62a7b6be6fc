package bot

import (
	"WaConsole/entity"
	"WaConsole/internal/lib/sl"
	"context"
	"fmt"
	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"log/slog"
	"strings"
	"time"
)

const sendTimeout = 10 * time.Second

type messageSender interface {
	SendMessage(chatId int64, text string, opts *tgbotapi.SendMessageOpts) (*tgbotapi.Message, error)
}

// TgBot forwards inbound message notifications to the admin chat.
type TgBot struct {
	log         *slog.Logger
	api         messageSender
	botUsername string
	adminId     int64
}

func NewTgBot(botName, apiKey string, adminId int64, log *slog.Logger) (*TgBot, error) {
	api, err := tgbotapi.NewBot(apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating api instance: %v", err)
	}
	return newTgBot(botName, api, adminId, log), nil
}

func newTgBot(botName string, api messageSender, adminId int64, log *slog.Logger) *TgBot {
	return &TgBot{
		log:         log.With(sl.Module("tgbot")),
		api:         api,
		adminId:     adminId,
		botUsername: botName,
	}
}

// Notify implements the console notification sink.
func (t *TgBot) Notify(ctx context.Context, n entity.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.plainResponse(t.adminId, formatNotification(n))
}

func formatNotification(n entity.Notification) string {
	var b strings.Builder
	b.WriteString("💬 New message")
	if n.Phone != "" {
		b.WriteString(" from +")
		b.WriteString(n.Phone)
	}
	if n.Key.Order != "" {
		b.WriteString(" (order #")
		b.WriteString(n.Key.Order)
		b.WriteString(")")
	}
	if n.Preview != "" {
		b.WriteString("\n")
		b.WriteString(n.Preview)
	}
	return b.String()
}

func (t *TgBot) plainResponse(chatId int64, text string) error {
	log := t.log.With(slog.Int64("id", chatId))

	sanitized := sanitize(text)
	if sanitized == "" {
		log.Debug("empty message")
		return nil
	}

	requestOpts := &tgbotapi.RequestOpts{Timeout: sendTimeout}
	_, err := t.api.SendMessage(chatId, sanitized, &tgbotapi.SendMessageOpts{
		ParseMode:   "MarkdownV2",
		RequestOpts: requestOpts,
	})
	if err == nil {
		return nil
	}
	log.Warn("sending message", sl.Err(err))

	// retry without markup
	_, err = t.api.SendMessage(chatId, text, &tgbotapi.SendMessageOpts{RequestOpts: requestOpts})
	if err != nil {
		log.Error("sending safe message", sl.Err(err))
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// sanitize escapes MarkdownV2 reserved characters.
func sanitize(input string) string {
	const reservedChars = "\\`_*~>=<{}#+-.!|()[]"

	var b strings.Builder
	for _, char := range input {
		if strings.ContainsRune(reservedChars, char) {
			b.WriteRune('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
