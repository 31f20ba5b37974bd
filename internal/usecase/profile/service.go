package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"mind-reader-backend/internal/domain"
)

// ErrUsernameTaken — имя пользователя уже занято другим аккаунтом.
var ErrUsernameTaken = errors.New("имя пользователя уже занято")

// Service читает и обновляет профиль пользователя.
type Service struct {
	users domain.UserRepo
}

// NewService создаёт сервис профиля.
func NewService(users domain.UserRepo) *Service {
	return &Service{users: users}
}

// View — профиль владельца аккаунта. Содержит больше, чем публичная
// карточка, но без хеша пароля.
type View struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	ProfileImage string    `json:"profileImage,omitempty"`
	TelegramLink bool      `json:"telegramLinked"`
	CreatedAt    time.Time `json:"createdAt"`
}

func view(u domain.User) View {
	return View{
		ID:           u.ID,
		Email:        u.Email,
		Username:     u.Username,
		ProfileImage: u.ProfileImage,
		TelegramLink: u.TGChatID != nil,
		CreatedAt:    u.CreatedAt,
	}
}

// Get возвращает профиль пользователя.
func (s *Service) Get(ctx context.Context, userID uuid.UUID) (View, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return View{}, err
	}
	return view(user), nil
}

// Update меняет имя и аватар. Пустые поля остаются прежними.
func (s *Service) Update(ctx context.Context, userID uuid.UUID, username, profileImage string) (View, error) {
	username = strings.TrimSpace(username)
	if username != "" {
		taken, err := s.users.UsernameTaken(ctx, username, userID)
		if err != nil {
			return View{}, fmt.Errorf("проверка имени: %w", err)
		}
		if taken {
			return View{}, ErrUsernameTaken
		}
	}
	user, err := s.users.UpdateProfile(ctx, userID, username, profileImage)
	if err != nil {
		return View{}, err
	}
	return view(user), nil
}
