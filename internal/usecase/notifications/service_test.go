package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mind-reader-backend/internal/domain"
)

type stubNotifications struct {
	created   []domain.Notification
	recent    bool
	recentArg time.Time
}

func (s *stubNotifications) CreateNotification(_ context.Context, n domain.Notification) (domain.Notification, error) {
	n.ID = uuid.New()
	n.CreatedAt = time.Now()
	s.created = append(s.created, n)
	return n, nil
}
func (s *stubNotifications) CreateBatch(_ context.Context, ns []domain.Notification) error {
	s.created = append(s.created, ns...)
	return nil
}
func (s *stubNotifications) ListByRecipient(context.Context, uuid.UUID) ([]domain.Notification, error) {
	return s.created, nil
}
func (s *stubNotifications) MarkRead(context.Context, uuid.UUID, uuid.UUID) error { return nil }
func (s *stubNotifications) MarkAllRead(context.Context, uuid.UUID) error         { return nil }
func (s *stubNotifications) ExistsRecent(_ context.Context, _, _ uuid.UUID, _ string, since time.Time) (bool, error) {
	s.recentArg = since
	return s.recent, nil
}

type stubFriends struct {
	friends bool
}

func (s *stubFriends) ListFriends(context.Context, uuid.UUID) ([]domain.UserInfo, error) {
	return nil, nil
}
func (s *stubFriends) ListFriendIDs(context.Context, uuid.UUID) ([]uuid.UUID, error) {
	return nil, nil
}
func (s *stubFriends) AreFriends(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
	return s.friends, nil
}
func (s *stubFriends) ListIncomingRequests(context.Context, uuid.UUID) ([]domain.UserInfo, error) {
	return nil, nil
}
func (s *stubFriends) ListSentRequests(context.Context, uuid.UUID) ([]domain.UserInfo, error) {
	return nil, nil
}
func (s *stubFriends) CreateRequest(context.Context, uuid.UUID, uuid.UUID) error { return nil }
func (s *stubFriends) HasRequest(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
	return false, nil
}
func (s *stubFriends) DeleteRequest(context.Context, uuid.UUID, uuid.UUID) error    { return nil }
func (s *stubFriends) AddFriendship(context.Context, uuid.UUID, uuid.UUID) error    { return nil }
func (s *stubFriends) RemoveFriendship(context.Context, uuid.UUID, uuid.UUID) error { return nil }

func TestCreateMoodAlertRequiresFriendship(t *testing.T) {
	service := NewService(&stubNotifications{}, &stubFriends{friends: false}, zerolog.Nop())

	_, _, err := service.CreateMoodAlert(context.Background(), uuid.New(), uuid.New(), 0.8, "...")
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("ожидали ErrForbidden, получили %v", err)
	}
}

func TestCreateMoodAlert(t *testing.T) {
	repo := &stubNotifications{}
	service := NewService(repo, &stubFriends{friends: true}, zerolog.Nop())

	recipient, sender := uuid.New(), uuid.New()
	n, created, err := service.CreateMoodAlert(context.Background(), recipient, sender, 0.8, "kötü bir gün...")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if !created {
		t.Fatalf("ожидали создание уведомления")
	}
	if n.Type != domain.NotificationMoodNegative || n.Recipient != recipient || n.Sender != sender {
		t.Fatalf("неверное уведомление: %+v", n)
	}
	if len(repo.created) != 1 {
		t.Fatalf("ожидали одну запись в хранилище")
	}
}

func TestCreateMoodAlertDedupWithin24h(t *testing.T) {
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	repo := &stubNotifications{recent: true}
	service := NewService(repo, &stubFriends{friends: true}, zerolog.Nop()).
		WithClock(func() time.Time { return now })

	_, created, err := service.CreateMoodAlert(context.Background(), uuid.New(), uuid.New(), 0.8, "...")
	if err != nil {
		t.Fatalf("повтор не должен быть ошибкой: %v", err)
	}
	if created {
		t.Fatalf("повтор в пределах суток не должен создавать уведомление")
	}
	if len(repo.created) != 0 {
		t.Fatalf("записи в хранилище быть не должно")
	}
	wantSince := now.Add(-24 * time.Hour)
	if !repo.recentArg.Equal(wantSince) {
		t.Fatalf("окно дедупликации должно быть сутки, получили %v", repo.recentArg)
	}
}
