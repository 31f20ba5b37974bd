package fanout

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mind-reader-backend/internal/domain"
)

type stubUsers struct {
	known map[uuid.UUID]domain.User
}

func (s *stubUsers) Create(_ context.Context, u domain.User) (domain.User, error) { return u, nil }
func (s *stubUsers) GetByID(_ context.Context, id uuid.UUID) (domain.User, error) {
	user, ok := s.known[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}
func (s *stubUsers) GetByEmail(context.Context, string) (domain.User, error) {
	return domain.User{}, domain.ErrUserNotFound
}
func (s *stubUsers) UpdateProfile(context.Context, uuid.UUID, string, string) (domain.User, error) {
	return domain.User{}, nil
}
func (s *stubUsers) UsernameTaken(context.Context, string, uuid.UUID) (bool, error) {
	return false, nil
}
func (s *stubUsers) Search(context.Context, string, uuid.UUID, int) ([]domain.UserInfo, error) {
	return nil, nil
}

type stubFriends struct {
	ids []uuid.UUID
}

func (s *stubFriends) ListFriends(context.Context, uuid.UUID) ([]domain.UserInfo, error) {
	return nil, nil
}
func (s *stubFriends) ListFriendIDs(context.Context, uuid.UUID) ([]uuid.UUID, error) {
	return s.ids, nil
}
func (s *stubFriends) AreFriends(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
	return true, nil
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

type stubNotifications struct {
	batches [][]domain.Notification
}

func (s *stubNotifications) CreateNotification(_ context.Context, n domain.Notification) (domain.Notification, error) {
	return n, nil
}
func (s *stubNotifications) CreateBatch(_ context.Context, ns []domain.Notification) error {
	s.batches = append(s.batches, ns)
	return nil
}
func (s *stubNotifications) ListByRecipient(context.Context, uuid.UUID) ([]domain.Notification, error) {
	return nil, nil
}
func (s *stubNotifications) MarkRead(context.Context, uuid.UUID, uuid.UUID) error { return nil }
func (s *stubNotifications) MarkAllRead(context.Context, uuid.UUID) error         { return nil }
func (s *stubNotifications) ExistsRecent(context.Context, uuid.UUID, uuid.UUID, string, time.Time) (bool, error) {
	return false, nil
}

type stubPublisher struct {
	events []domain.RealtimeEvent
}

func (s *stubPublisher) Publish(_ context.Context, e domain.RealtimeEvent) error {
	s.events = append(s.events, e)
	return nil
}

type memoryCache struct {
	keys map[string]bool
}

func newMemoryCache() *memoryCache { return &memoryCache{keys: map[string]bool{}} }

func (c *memoryCache) Once(key string, _ time.Duration, fn func() error) error {
	if c.keys[key] {
		return nil
	}
	if err := fn(); err != nil {
		return err
	}
	c.keys[key] = true
	return nil
}
func (c *memoryCache) Set(string, []byte, time.Duration) error { return nil }
func (c *memoryCache) Get(string) ([]byte, error)              { return nil, nil }

type recordingSender struct {
	chats []int64
}

func (r *recordingSender) SendMoodAlert(chatID int64, _ domain.UserInfo, _ domain.Notification) {
	r.chats = append(r.chats, chatID)
}

func TestProcessFanoutPerFriend(t *testing.T) {
	sender := uuid.New()
	friendA, friendB := uuid.New(), uuid.New()
	chatID := int64(777)
	users := &stubUsers{known: map[uuid.UUID]domain.User{
		sender:  {ID: sender, Username: "sad"},
		friendA: {ID: friendA, Username: "a"},
		friendB: {ID: friendB, Username: "b", TGChatID: &chatID},
	}}
	notifs := &stubNotifications{}
	pub := &stubPublisher{}
	tg := &recordingSender{}
	service := NewService(users, &stubFriends{ids: []uuid.UUID{friendA, friendB}}, notifs, nil, pub, newMemoryCache(), tg, zerolog.Nop())

	job := domain.MoodAlertJob{AnalysisID: uuid.New(), SenderID: sender, MoodValue: 0.8, TextExcerpt: "..."}
	if err := service.Process(context.Background(), job); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}

	if len(notifs.batches) != 1 || len(notifs.batches[0]) != 2 {
		t.Fatalf("ожидали ровно 2 уведомления одной пачкой: %+v", notifs.batches)
	}
	for _, n := range notifs.batches[0] {
		if n.Type != domain.NotificationMoodNegative || n.Sender != sender {
			t.Fatalf("неверное уведомление: %+v", n)
		}
	}
	if len(pub.events) != 2 {
		t.Fatalf("ожидали 2 realtime-события, получили %d", len(pub.events))
	}
	// Telegram уходит только другу с привязанным чатом.
	if len(tg.chats) != 1 || tg.chats[0] != chatID {
		t.Fatalf("ожидали одну отправку в Telegram: %+v", tg.chats)
	}
}

func TestProcessIdempotentPerAnalysis(t *testing.T) {
	sender := uuid.New()
	friend := uuid.New()
	users := &stubUsers{known: map[uuid.UUID]domain.User{
		sender: {ID: sender, Username: "sad"},
		friend: {ID: friend, Username: "a"},
	}}
	notifs := &stubNotifications{}
	service := NewService(users, &stubFriends{ids: []uuid.UUID{friend}}, notifs, nil, &stubPublisher{}, newMemoryCache(), nil, zerolog.Nop())

	job := domain.MoodAlertJob{AnalysisID: uuid.New(), SenderID: sender, MoodValue: 0.9}
	if err := service.Process(context.Background(), job); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if err := service.Process(context.Background(), job); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(notifs.batches) != 1 {
		t.Fatalf("повторная доставка той же задачи не должна дублировать рассылку")
	}
}

func TestProcessNoFriends(t *testing.T) {
	sender := uuid.New()
	users := &stubUsers{known: map[uuid.UUID]domain.User{sender: {ID: sender}}}
	notifs := &stubNotifications{}
	service := NewService(users, &stubFriends{}, notifs, nil, &stubPublisher{}, newMemoryCache(), nil, zerolog.Nop())

	job := domain.MoodAlertJob{AnalysisID: uuid.New(), SenderID: sender}
	if err := service.Process(context.Background(), job); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(notifs.batches) != 0 {
		t.Fatalf("без друзей уведомлений быть не должно")
	}
}
