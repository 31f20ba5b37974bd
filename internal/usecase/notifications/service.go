package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mind-reader-backend/internal/domain"
)

// dedupWindow — окно, в котором повторный алерт от того же друга не создаётся.
const dedupWindow = 24 * time.Hour

// Service управляет уведомлениями пользователя.
type Service struct {
	notifications domain.NotificationRepo
	friends       domain.FriendRepo
	log           zerolog.Logger
	now           func() time.Time
}

// NewService создаёт сервис уведомлений.
func NewService(notifications domain.NotificationRepo, friends domain.FriendRepo, log zerolog.Logger) *Service {
	return &Service{notifications: notifications, friends: friends, log: log, now: time.Now}
}

// WithClock подменяет источник времени. Используется в тестах.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// List возвращает уведомления пользователя, новые первыми.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]domain.Notification, error) {
	return s.notifications.ListByRecipient(ctx, userID)
}

// MarkRead помечает уведомление прочитанным. Чужое уведомление
// неотличимо от несуществующего.
func (s *Service) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	return s.notifications.MarkRead(ctx, notificationID, userID)
}

// MarkAllRead помечает все уведомления пользователя прочитанными.
func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	return s.notifications.MarkAllRead(ctx, userID)
}

// CreateMoodAlert создаёт уведомление о настроении друга по явному
// запросу клиента. Отправитель обязан быть другом получателя, повтор
// в пределах суток схлопывается без ошибки.
//
// Возвращает false вторым значением, если уведомление не создано из-за
// дедупликации.
func (s *Service) CreateMoodAlert(ctx context.Context, recipientID, senderID uuid.UUID, moodValue float64, excerpt string) (domain.Notification, bool, error) {
	ok, err := s.friends.AreFriends(ctx, recipientID, senderID)
	if err != nil {
		return domain.Notification{}, false, fmt.Errorf("проверка дружбы: %w", err)
	}
	if !ok {
		return domain.Notification{}, false, domain.ErrForbidden
	}

	since := s.now().Add(-dedupWindow)
	exists, err := s.notifications.ExistsRecent(ctx, recipientID, senderID, domain.NotificationMoodNegative, since)
	if err != nil {
		return domain.Notification{}, false, fmt.Errorf("проверка дубликата: %w", err)
	}
	if exists {
		s.log.Debug().
			Str("recipient", recipientID.String()).
			Str("sender", senderID.String()).
			Msg("notifications: алерт уже создан за последние сутки")
		return domain.Notification{}, false, nil
	}

	created, err := s.notifications.CreateNotification(ctx, domain.Notification{
		Recipient:   recipientID,
		Sender:      senderID,
		Type:        domain.NotificationMoodNegative,
		MoodValue:   moodValue,
		TextExcerpt: excerpt,
	})
	if err != nil {
		return domain.Notification{}, false, fmt.Errorf("создание уведомления: %w", err)
	}
	return created, true, nil
}
