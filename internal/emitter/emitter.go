package emitter

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Sender is the outbound chat surface. All methods are best-effort: a failed
// send is logged and swallowed, never surfaced to the caller.
type Sender interface {
	Send(chatID int64, text string)
	SendMarkdown(chatID int64, text string)
	Typing(chatID int64)
}

// API is the slice of the Telegram client the emitter needs.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type TelegramEmitter struct {
	api    API
	logger *zap.Logger
}

func NewTelegramEmitter(api API, logger *zap.Logger) *TelegramEmitter {
	return &TelegramEmitter{api: api, logger: logger}
}

func (e *TelegramEmitter) Send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := e.api.Send(msg); err != nil {
		e.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (e *TelegramEmitter) SendMarkdown(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "MarkdownV2"
	if _, err := e.api.Send(msg); err != nil {
		e.logger.Error("Failed to send markdown message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (e *TelegramEmitter) Typing(chatID int64) {
	action := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	if _, err := e.api.Request(action); err != nil {
		e.logger.Debug("Failed to send typing action",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

// EscapeMarkdown escapes special characters for Telegram MarkdownV2.
func EscapeMarkdown(text string) string {
	specialChars := []string{"_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!"}
	escaped := text
	for _, char := range specialChars {
		escaped = strings.ReplaceAll(escaped, char, "\\"+char)
	}
	return escaped
}
