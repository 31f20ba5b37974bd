package friends

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mind-reader-backend/internal/domain"
)

var (
	// ErrSelfRequest — заявка самому себе.
	ErrSelfRequest = errors.New("нельзя отправить заявку самому себе")
	// ErrAlreadyFriends — пользователи уже дружат.
	ErrAlreadyFriends = errors.New("пользователи уже в друзьях")
	// ErrRequestExists — между пользователями уже есть заявка.
	ErrRequestExists = errors.New("заявка уже существует")
)

const searchLimit = 20

// Service управляет графом друзей: заявки, принятие, удаление, поиск.
type Service struct {
	users    domain.UserRepo
	friends  domain.FriendRepo
	realtime domain.RealtimePublisher
	log      zerolog.Logger
}

// NewService создаёт сервис друзей.
func NewService(users domain.UserRepo, friends domain.FriendRepo, realtime domain.RealtimePublisher, log zerolog.Logger) *Service {
	return &Service{users: users, friends: friends, realtime: realtime, log: log}
}

// List возвращает друзей пользователя.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]domain.UserInfo, error) {
	return s.friends.ListFriends(ctx, userID)
}

// IncomingRequests возвращает входящие заявки.
func (s *Service) IncomingRequests(ctx context.Context, userID uuid.UUID) ([]domain.UserInfo, error) {
	return s.friends.ListIncomingRequests(ctx, userID)
}

// SentRequests возвращает отправленные заявки.
func (s *Service) SentRequests(ctx context.Context, userID uuid.UUID) ([]domain.UserInfo, error) {
	return s.friends.ListSentRequests(ctx, userID)
}

// SendRequest отправляет заявку в друзья. Встречная заявка не
// принимается автоматически: получателю возвращается ErrRequestExists,
// принять должен сам адресат.
func (s *Service) SendRequest(ctx context.Context, fromID, toID uuid.UUID) error {
	if fromID == toID {
		return ErrSelfRequest
	}
	if _, err := s.users.GetByID(ctx, toID); err != nil {
		return err
	}
	already, err := s.friends.AreFriends(ctx, fromID, toID)
	if err != nil {
		return fmt.Errorf("проверка дружбы: %w", err)
	}
	if already {
		return ErrAlreadyFriends
	}
	for _, pair := range [][2]uuid.UUID{{fromID, toID}, {toID, fromID}} {
		exists, err := s.friends.HasRequest(ctx, pair[0], pair[1])
		if err != nil {
			return fmt.Errorf("проверка заявки: %w", err)
		}
		if exists {
			return ErrRequestExists
		}
	}
	if err := s.friends.CreateRequest(ctx, fromID, toID); err != nil {
		return fmt.Errorf("создание заявки: %w", err)
	}
	s.notify(ctx, toID, "friendRequest", fromID)
	return nil
}

// AcceptRequest принимает входящую заявку и создаёт дружбу.
func (s *Service) AcceptRequest(ctx context.Context, userID, requesterID uuid.UUID) error {
	exists, err := s.friends.HasRequest(ctx, requesterID, userID)
	if err != nil {
		return fmt.Errorf("проверка заявки: %w", err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	if err := s.friends.DeleteRequest(ctx, requesterID, userID); err != nil {
		return fmt.Errorf("удаление заявки: %w", err)
	}
	if err := s.friends.AddFriendship(ctx, userID, requesterID); err != nil {
		return fmt.Errorf("создание дружбы: %w", err)
	}
	s.notify(ctx, requesterID, "friendRequestAccepted", userID)
	return nil
}

// RejectRequest отклоняет входящую заявку.
func (s *Service) RejectRequest(ctx context.Context, userID, requesterID uuid.UUID) error {
	return s.friends.DeleteRequest(ctx, requesterID, userID)
}

// CancelRequest отзывает отправленную заявку.
func (s *Service) CancelRequest(ctx context.Context, userID, targetID uuid.UUID) error {
	return s.friends.DeleteRequest(ctx, userID, targetID)
}

// Remove удаляет дружбу в обе стороны.
func (s *Service) Remove(ctx context.Context, userID, friendID uuid.UUID) error {
	ok, err := s.friends.AreFriends(ctx, userID, friendID)
	if err != nil {
		return fmt.Errorf("проверка дружбы: %w", err)
	}
	if !ok {
		return domain.ErrNotFound
	}
	return s.friends.RemoveFriendship(ctx, userID, friendID)
}

// Search ищет пользователей по имени или e-mail, себя не возвращает.
func (s *Service) Search(ctx context.Context, userID uuid.UUID, query string) ([]domain.UserInfo, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.UserInfo{}, nil
	}
	return s.users.Search(ctx, query, userID, searchLimit)
}

// Profile возвращает профиль друга. Для чужих пользователей отдаёт
// domain.ErrForbidden.
func (s *Service) Profile(ctx context.Context, userID, friendID uuid.UUID) (domain.UserInfo, error) {
	ok, err := s.friends.AreFriends(ctx, userID, friendID)
	if err != nil {
		return domain.UserInfo{}, fmt.Errorf("проверка дружбы: %w", err)
	}
	if !ok {
		return domain.UserInfo{}, domain.ErrForbidden
	}
	user, err := s.users.GetByID(ctx, friendID)
	if err != nil {
		return domain.UserInfo{}, err
	}
	return user.Info(), nil
}

// notify шлёт realtime-событие best-effort, с данными инициатора.
func (s *Service) notify(ctx context.Context, recipientID uuid.UUID, name string, actorID uuid.UUID) {
	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		s.log.Warn().Err(err).Msg("friends: инициатор события не найден")
		return
	}
	event := domain.RealtimeEvent{
		UserID:  recipientID,
		Name:    name,
		Payload: map[string]any{"user": actor.Info()},
	}
	if err := s.realtime.Publish(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("event", name).Msg("friends: доставка события не удалась")
	}
}
