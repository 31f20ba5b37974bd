package fanout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"mind-reader-backend/internal/domain"
	"mind-reader-backend/internal/infra/metrics"
)

// onceTTL — срок хранения ключа идемпотентности. Очередь гарантирует
// доставку как минимум один раз, повторная обработка задачи возможна.
const onceTTL = 48 * time.Hour

// AlertSender отправляет алерт во внешний канал, например в Telegram.
type AlertSender interface {
	SendMoodAlert(chatID int64, sender domain.UserInfo, n domain.Notification)
}

// Service разбирает очередь mood-алертов и рассылает уведомления
// друзьям отправителя.
type Service struct {
	users         domain.UserRepo
	friends       domain.FriendRepo
	notifications domain.NotificationRepo
	queue         domain.NotifyQueue
	realtime      domain.RealtimePublisher
	cache         domain.Cache
	sender        AlertSender
	log           zerolog.Logger
}

// NewService создаёт воркер рассылки. sender может быть nil.
func NewService(users domain.UserRepo, friends domain.FriendRepo, notifications domain.NotificationRepo, queue domain.NotifyQueue, realtime domain.RealtimePublisher, cache domain.Cache, sender AlertSender, log zerolog.Logger) *Service {
	return &Service{
		users:         users,
		friends:       friends,
		notifications: notifications,
		queue:         queue,
		realtime:      realtime,
		cache:         cache,
		sender:        sender,
		log:           log,
	}
}

// Run читает очередь до отмены контекста. Ошибка обработки одной
// задачи не останавливает цикл.
func (s *Service) Run(ctx context.Context) error {
	for {
		job, err := s.queue.Pop(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			s.log.Error().Err(err).Msg("fanout: чтение очереди не удалось")
			continue
		}
		if err := s.Process(ctx, job); err != nil {
			s.log.Error().Err(err).
				Str("analysis_id", job.AnalysisID.String()).
				Msg("fanout: обработка задачи не удалась")
		}
	}
}

// Process рассылает уведомления по одной задаче. Ключ идемпотентности
// привязан к записи дневника: одна запись порождает не больше одного
// уведомления на друга, сколько бы раз задача ни доставлялась.
func (s *Service) Process(ctx context.Context, job domain.MoodAlertJob) error {
	key := "mood_alert:" + job.AnalysisID.String()
	return s.cache.Once(key, onceTTL, func() error {
		return s.fanout(ctx, job)
	})
}

func (s *Service) fanout(ctx context.Context, job domain.MoodAlertJob) error {
	sender, err := s.users.GetByID(ctx, job.SenderID)
	if err != nil {
		return fmt.Errorf("отправитель: %w", err)
	}
	friendIDs, err := s.friends.ListFriendIDs(ctx, job.SenderID)
	if err != nil {
		return fmt.Errorf("список друзей: %w", err)
	}
	if len(friendIDs) == 0 {
		return nil
	}

	batch := make([]domain.Notification, 0, len(friendIDs))
	for _, friendID := range friendIDs {
		batch = append(batch, domain.Notification{
			Recipient:   friendID,
			Sender:      job.SenderID,
			Type:        domain.NotificationMoodNegative,
			MoodValue:   job.MoodValue,
			TextExcerpt: job.TextExcerpt,
		})
	}
	if err := s.notifications.CreateBatch(ctx, batch); err != nil {
		return fmt.Errorf("запись уведомлений: %w", err)
	}
	metrics.NotificationsFanoutTotal.Add(float64(len(batch)))

	info := sender.Info()
	for _, n := range batch {
		s.deliver(ctx, info, n)
	}
	s.log.Info().
		Str("sender", job.SenderID.String()).
		Int("friends", len(batch)).
		Msg("fanout: уведомления разосланы")
	return nil
}

// deliver доставляет уведомление в realtime-канал и, если у друга
// привязан Telegram, во внешний канал. Ошибки доставки не влияют на
// записанные уведомления.
func (s *Service) deliver(ctx context.Context, senderInfo domain.UserInfo, n domain.Notification) {
	event := domain.RealtimeEvent{
		UserID: n.Recipient,
		Name:   "moodAlert",
		Payload: map[string]any{
			"sender":      senderInfo,
			"moodValue":   n.MoodValue,
			"textExcerpt": n.TextExcerpt,
		},
	}
	if err := s.realtime.Publish(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("recipient", n.Recipient.String()).Msg("fanout: realtime-доставка не удалась")
	}

	if s.sender == nil {
		return
	}
	recipient, err := s.users.GetByID(ctx, n.Recipient)
	if err != nil {
		s.log.Warn().Err(err).Str("recipient", n.Recipient.String()).Msg("fanout: получатель не найден")
		return
	}
	if recipient.TGChatID != nil {
		s.sender.SendMoodAlert(*recipient.TGChatID, senderInfo, n)
	}
}
