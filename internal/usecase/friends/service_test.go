package friends

import (
	"context"
	"errors"
	"testing"

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
	return []domain.UserInfo{{Username: "found"}}, nil
}

type pair struct{ a, b uuid.UUID }

type stubFriendRepo struct {
	friendships map[pair]bool
	requests    map[pair]bool
}

func newStubFriendRepo() *stubFriendRepo {
	return &stubFriendRepo{friendships: map[pair]bool{}, requests: map[pair]bool{}}
}

func (s *stubFriendRepo) ListFriends(context.Context, uuid.UUID) ([]domain.UserInfo, error) {
	return nil, nil
}
func (s *stubFriendRepo) ListFriendIDs(context.Context, uuid.UUID) ([]uuid.UUID, error) {
	return nil, nil
}
func (s *stubFriendRepo) AreFriends(_ context.Context, a, b uuid.UUID) (bool, error) {
	return s.friendships[pair{a, b}], nil
}
func (s *stubFriendRepo) ListIncomingRequests(context.Context, uuid.UUID) ([]domain.UserInfo, error) {
	return nil, nil
}
func (s *stubFriendRepo) ListSentRequests(context.Context, uuid.UUID) ([]domain.UserInfo, error) {
	return nil, nil
}
func (s *stubFriendRepo) CreateRequest(_ context.Context, from, to uuid.UUID) error {
	s.requests[pair{from, to}] = true
	return nil
}
func (s *stubFriendRepo) HasRequest(_ context.Context, from, to uuid.UUID) (bool, error) {
	return s.requests[pair{from, to}], nil
}
func (s *stubFriendRepo) DeleteRequest(_ context.Context, from, to uuid.UUID) error {
	delete(s.requests, pair{from, to})
	return nil
}
func (s *stubFriendRepo) AddFriendship(_ context.Context, a, b uuid.UUID) error {
	s.friendships[pair{a, b}] = true
	s.friendships[pair{b, a}] = true
	return nil
}
func (s *stubFriendRepo) RemoveFriendship(_ context.Context, a, b uuid.UUID) error {
	delete(s.friendships, pair{a, b})
	delete(s.friendships, pair{b, a})
	return nil
}

type stubPublisher struct {
	events []domain.RealtimeEvent
}

func (s *stubPublisher) Publish(_ context.Context, e domain.RealtimeEvent) error {
	s.events = append(s.events, e)
	return nil
}

func newTestService(users *stubUsers, repo *stubFriendRepo, pub *stubPublisher) *Service {
	return NewService(users, repo, pub, zerolog.Nop())
}

func twoUsers() (*stubUsers, uuid.UUID, uuid.UUID) {
	alice, bob := uuid.New(), uuid.New()
	users := &stubUsers{known: map[uuid.UUID]domain.User{
		alice: {ID: alice, Username: "alice"},
		bob:   {ID: bob, Username: "bob"},
	}}
	return users, alice, bob
}

func TestSendRequestToSelf(t *testing.T) {
	users, alice, _ := twoUsers()
	service := newTestService(users, newStubFriendRepo(), &stubPublisher{})

	if err := service.SendRequest(context.Background(), alice, alice); !errors.Is(err, ErrSelfRequest) {
		t.Fatalf("ожидали ErrSelfRequest, получили %v", err)
	}
}

func TestSendRequestToUnknownUser(t *testing.T) {
	users, alice, _ := twoUsers()
	service := newTestService(users, newStubFriendRepo(), &stubPublisher{})

	if err := service.SendRequest(context.Background(), alice, uuid.New()); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("ожидали ErrUserNotFound, получили %v", err)
	}
}

func TestSendRequestNotifiesRecipient(t *testing.T) {
	users, alice, bob := twoUsers()
	repo := newStubFriendRepo()
	pub := &stubPublisher{}
	service := newTestService(users, repo, pub)

	if err := service.SendRequest(context.Background(), alice, bob); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if !repo.requests[pair{alice, bob}] {
		t.Fatalf("заявка должна быть создана")
	}
	if len(pub.events) != 1 || pub.events[0].Name != "friendRequest" || pub.events[0].UserID != bob {
		t.Fatalf("получатель должен получить событие friendRequest: %+v", pub.events)
	}
}

func TestSendRequestDuplicate(t *testing.T) {
	users, alice, bob := twoUsers()
	repo := newStubFriendRepo()
	service := newTestService(users, repo, &stubPublisher{})

	if err := service.SendRequest(context.Background(), alice, bob); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if err := service.SendRequest(context.Background(), alice, bob); !errors.Is(err, ErrRequestExists) {
		t.Fatalf("ожидали ErrRequestExists, получили %v", err)
	}
	// Встречная заявка тоже считается дубликатом.
	if err := service.SendRequest(context.Background(), bob, alice); !errors.Is(err, ErrRequestExists) {
		t.Fatalf("ожидали ErrRequestExists для встречной заявки, получили %v", err)
	}
}

func TestSendRequestAlreadyFriends(t *testing.T) {
	users, alice, bob := twoUsers()
	repo := newStubFriendRepo()
	_ = repo.AddFriendship(context.Background(), alice, bob)
	service := newTestService(users, repo, &stubPublisher{})

	if err := service.SendRequest(context.Background(), alice, bob); !errors.Is(err, ErrAlreadyFriends) {
		t.Fatalf("ожидали ErrAlreadyFriends, получили %v", err)
	}
}

func TestAcceptRequestCreatesFriendship(t *testing.T) {
	users, alice, bob := twoUsers()
	repo := newStubFriendRepo()
	pub := &stubPublisher{}
	service := newTestService(users, repo, pub)

	if err := service.SendRequest(context.Background(), alice, bob); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if err := service.AcceptRequest(context.Background(), bob, alice); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if !repo.friendships[pair{alice, bob}] || !repo.friendships[pair{bob, alice}] {
		t.Fatalf("дружба должна быть симметричной")
	}
	if repo.requests[pair{alice, bob}] {
		t.Fatalf("заявка должна быть удалена после принятия")
	}
}

func TestAcceptMissingRequest(t *testing.T) {
	users, alice, bob := twoUsers()
	service := newTestService(users, newStubFriendRepo(), &stubPublisher{})

	if err := service.AcceptRequest(context.Background(), bob, alice); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("ожидали ErrNotFound, получили %v", err)
	}
}

func TestRemoveNotFriends(t *testing.T) {
	users, alice, bob := twoUsers()
	service := newTestService(users, newStubFriendRepo(), &stubPublisher{})

	if err := service.Remove(context.Background(), alice, bob); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("ожидали ErrNotFound, получили %v", err)
	}
}

func TestProfileForbiddenForStrangers(t *testing.T) {
	users, alice, bob := twoUsers()
	service := newTestService(users, newStubFriendRepo(), &stubPublisher{})

	if _, err := service.Profile(context.Background(), alice, bob); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("ожидали ErrForbidden, получили %v", err)
	}
}

func TestProfileForFriend(t *testing.T) {
	users, alice, bob := twoUsers()
	repo := newStubFriendRepo()
	_ = repo.AddFriendship(context.Background(), alice, bob)
	service := newTestService(users, repo, &stubPublisher{})

	info, err := service.Profile(context.Background(), alice, bob)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if info.Username != "bob" {
		t.Fatalf("ожидали профиль друга, получили %+v", info)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	users, alice, _ := twoUsers()
	service := newTestService(users, newStubFriendRepo(), &stubPublisher{})

	got, err := service.Search(context.Background(), alice, "   ")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("пустой запрос не должен искать")
	}
}
