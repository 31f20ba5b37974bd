package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Translator переводит текст с одного языка на другой.
type Translator interface {
	Name() string
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// SentimentAnalyzer возвращает каноническое распределение тональности текста.
type SentimentAnalyzer interface {
	Analyze(ctx context.Context, text string) (Sentiment, error)
}

// UserRepo управляет пользователями.
type UserRepo interface {
	Create(ctx context.Context, user User) (User, error)
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, username, profileImage string) (User, error)
	UsernameTaken(ctx context.Context, username string, exclude uuid.UUID) (bool, error)
	Search(ctx context.Context, query string, exclude uuid.UUID, limit int) ([]UserInfo, error)
}

// AnalysisRepo управляет записями дневника.
type AnalysisRepo interface {
	Save(ctx context.Context, analysis Analysis) (Analysis, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Analysis, error)
	ListRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]Analysis, error)
	// Delete удаляет запись только если она принадлежит ownerID;
	// проверка владельца входит в фильтр удаления, не в отдельное чтение.
	Delete(ctx context.Context, id, ownerID uuid.UUID) error
}

// FriendRepo управляет графом друзей и заявками.
type FriendRepo interface {
	ListFriends(ctx context.Context, userID uuid.UUID) ([]UserInfo, error)
	ListFriendIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	AreFriends(ctx context.Context, userID, otherID uuid.UUID) (bool, error)
	ListIncomingRequests(ctx context.Context, userID uuid.UUID) ([]UserInfo, error)
	ListSentRequests(ctx context.Context, userID uuid.UUID) ([]UserInfo, error)
	CreateRequest(ctx context.Context, fromID, toID uuid.UUID) error
	HasRequest(ctx context.Context, fromID, toID uuid.UUID) (bool, error)
	DeleteRequest(ctx context.Context, fromID, toID uuid.UUID) error
	AddFriendship(ctx context.Context, userID, friendID uuid.UUID) error
	RemoveFriendship(ctx context.Context, userID, friendID uuid.UUID) error
}

// NotificationRepo управляет уведомлениями.
type NotificationRepo interface {
	CreateNotification(ctx context.Context, n Notification) (Notification, error)
	CreateBatch(ctx context.Context, ns []Notification) error
	ListByRecipient(ctx context.Context, recipientID uuid.UUID) ([]Notification, error)
	MarkRead(ctx context.Context, id, recipientID uuid.UUID) error
	MarkAllRead(ctx context.Context, recipientID uuid.UUID) error
	ExistsRecent(ctx context.Context, recipientID, senderID uuid.UUID, typ string, since time.Time) (bool, error)
}

// NotifyQueue — очередь задач на рассылку уведомлений.
type NotifyQueue interface {
	Enqueue(ctx context.Context, job MoodAlertJob) error
	Pop(ctx context.Context) (MoodAlertJob, error)
}

// RealtimePublisher доставляет события подключённым клиентам.
type RealtimePublisher interface {
	Publish(ctx context.Context, event RealtimeEvent) error
}

// Cache используется для простых TTL-хранилищ.
type Cache interface {
	Once(key string, ttl time.Duration, fn func() error) error
	Set(key string, value []byte, ttl time.Duration) error
	Get(key string) ([]byte, error)
}
