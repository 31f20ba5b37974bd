package notify

import (
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"mind-reader-backend/internal/domain"
	"mind-reader-backend/internal/infra/metrics"
)

// Telegram доставляет mood-алерты пользователям, привязавшим чат с ботом.
// Доставка best-effort: ошибки логируются и не влияют на рассылку.
type Telegram struct {
	bot *tgbotapi.BotAPI
	log zerolog.Logger
}

// NewTelegram создаёт нотификатор.
func NewTelegram(bot *tgbotapi.BotAPI, log zerolog.Logger) *Telegram {
	return &Telegram{bot: bot, log: log}
}

// SendMoodAlert отправляет сообщение о негативном настроении друга.
func (t *Telegram) SendMoodAlert(chatID int64, sender domain.UserInfo, n domain.Notification) {
	text := fmt.Sprintf("Ваш друг %s сегодня не в духе (негатив %.2f). Загляните к нему.", sender.Username, n.MoodValue)
	msg := tgbotapi.NewMessage(chatID, text)
	start := time.Now()
	_, err := t.bot.Send(msg)
	metrics.ObserveNetworkRequest("telegram", "send_message", "mood_alert", start, err)
	if err != nil {
		t.log.Warn().Err(err).Int64("chat_id", chatID).Msg("notify: не удалось отправить алерт в Telegram")
	}
}
