package domain

import (
	"time"

	"github.com/google/uuid"
)

// Метки тональности в каноническом словаре.
const (
	LabelPositive = "POSITIVE"
	LabelNeutral  = "NEUTRAL"
	LabelNegative = "NEGATIVE"
)

// NotificationMoodNegative — тип уведомления о негативном настроении друга.
const NotificationMoodNegative = "MOOD_NEGATIVE"

// User описывает пользователя сервиса.
type User struct {
	ID           uuid.UUID
	Email        string
	Username     string
	PasswordHash string
	ProfileImage string
	TGChatID     *int64
	CreatedAt    time.Time
}

// UserInfo — публичная карточка пользователя.
type UserInfo struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	ProfileImage string    `json:"profileImage,omitempty"`
}

// Info возвращает публичную карточку.
func (u User) Info() UserInfo {
	return UserInfo{ID: u.ID, Username: u.Username, Email: u.Email, ProfileImage: u.ProfileImage}
}

// Sentiment — распределение по трём каноническим корзинам.
// Компоненты не обязаны суммироваться в единицу: модели отдают
// независимые оценки по классам, агрегация это учитывает.
type Sentiment struct {
	Positive float64 `json:"positive"`
	Neutral  float64 `json:"neutral"`
	Negative float64 `json:"negative"`
}

// Label возвращает метку по argmax; при равенстве выбирается NEUTRAL.
func (s Sentiment) Label() string {
	if s.Positive > s.Negative && s.Positive > s.Neutral {
		return LabelPositive
	}
	if s.Negative > s.Positive && s.Negative > s.Neutral {
		return LabelNegative
	}
	return LabelNeutral
}

// Score возвращает максимальную из трёх оценок.
func (s Sentiment) Score() float64 {
	score := s.Positive
	if s.Neutral > score {
		score = s.Neutral
	}
	if s.Negative > score {
		score = s.Negative
	}
	return score
}

// Scalar возвращает знаковую оценку настроения в диапазоне около [-1, 1]:
// позитив с весом 1, нейтраль 0, негатив -1.
func (s Sentiment) Scalar() float64 {
	return s.Positive - s.Negative
}

// Analysis — одна проанализированная запись дневника.
// Создаётся при отправке текста и далее не изменяется.
type Analysis struct {
	ID             uuid.UUID `json:"id"`
	UserID         uuid.UUID `json:"userId"`
	Text           string    `json:"text"`
	TranslatedText string    `json:"translatedText,omitempty"`
	Sentiment      Sentiment `json:"sentiment"`
	Label          string    `json:"label"`
	Score          float64   `json:"score"`
	CreatedAt      time.Time `json:"createdAt"`
}

// DailyMood — производный дневной агрегат за окно в 7 дней. Не хранится.
type DailyMood struct {
	Date     string  `json:"date"`
	Positive float64 `json:"positive"`
	Neutral  float64 `json:"neutral"`
	Negative float64 `json:"negative"`
	Average  float64 `json:"average"`
	Count    int     `json:"count"`
}

// Notification — уведомление пользователю.
type Notification struct {
	ID          uuid.UUID `json:"id"`
	Recipient   uuid.UUID `json:"recipient"`
	Sender      uuid.UUID `json:"sender"`
	Type        string    `json:"type"`
	MoodValue   float64   `json:"moodValue,omitempty"`
	TextExcerpt string    `json:"textExcerpt,omitempty"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"createdAt"`
	SenderInfo  *UserInfo `json:"senderInfo,omitempty"`
}

// MoodAlertJob — задача на рассылку уведомлений друзьям о негативном настроении.
type MoodAlertJob struct {
	AnalysisID  uuid.UUID `json:"analysis_id"`
	SenderID    uuid.UUID `json:"sender_id"`
	MoodValue   float64   `json:"mood_value"`
	TextExcerpt string    `json:"text_excerpt"`
}

// RealtimeEvent — событие для push-доставки подключённым клиентам.
type RealtimeEvent struct {
	UserID  uuid.UUID      `json:"user_id"`
	Name    string         `json:"name"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Состояния внешних сервисов для эндпоинта статуса.
const (
	StatusAvailable     = "available"
	StatusError         = "error"
	StatusNotConfigured = "not_configured"
)
