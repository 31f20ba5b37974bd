package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"mind-reader-backend/internal/domain"
	infrahttp "mind-reader-backend/internal/infra/http"
)

type memoryUsers struct {
	byEmail map[string]domain.User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{byEmail: map[string]domain.User{}}
}

func (m *memoryUsers) Create(_ context.Context, u domain.User) (domain.User, error) {
	if _, ok := m.byEmail[u.Email]; ok {
		return domain.User{}, domain.ErrEmailTaken
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	m.byEmail[u.Email] = u
	return u, nil
}
func (m *memoryUsers) GetByID(context.Context, uuid.UUID) (domain.User, error) {
	return domain.User{}, domain.ErrUserNotFound
}
func (m *memoryUsers) GetByEmail(_ context.Context, email string) (domain.User, error) {
	user, ok := m.byEmail[email]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}
func (m *memoryUsers) UpdateProfile(context.Context, uuid.UUID, string, string) (domain.User, error) {
	return domain.User{}, nil
}
func (m *memoryUsers) UsernameTaken(context.Context, string, uuid.UUID) (bool, error) {
	return false, nil
}
func (m *memoryUsers) Search(context.Context, string, uuid.UUID, int) ([]domain.UserInfo, error) {
	return nil, nil
}

const testSecret = "test-secret"

func TestRegisterAndLogin(t *testing.T) {
	users := newMemoryUsers()
	service := NewService(users, testSecret, time.Hour)

	session, err := service.Register(context.Background(), "Eda@Example.com", "", "sifre123")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if session.User.Email != "eda@example.com" {
		t.Fatalf("e-mail должен нормализоваться: %q", session.User.Email)
	}
	if session.User.Username != "eda" {
		t.Fatalf("имя должно браться из e-mail: %q", session.User.Username)
	}

	parsedID, err := infrahttp.ParseToken(testSecret, session.Token)
	if err != nil {
		t.Fatalf("токен должен проходить проверку: %v", err)
	}
	if parsedID != session.User.ID {
		t.Fatalf("в токене должен быть id пользователя")
	}

	login, err := service.Login(context.Background(), "eda@example.com", "sifre123")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if login.User.ID != session.User.ID {
		t.Fatalf("вход должен возвращать того же пользователя")
	}
	// Хеш пароля не должен утекать в публичную карточку.
	if users.byEmail["eda@example.com"].PasswordHash == "sifre123" {
		t.Fatalf("пароль должен храниться хешем")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	service := NewService(newMemoryUsers(), testSecret, time.Hour)

	if _, err := service.Register(context.Background(), "a@b.c", "a", "sifre123"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if _, err := service.Register(context.Background(), "a@b.c", "b", "sifre456"); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("ожидали ErrEmailTaken, получили %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	service := NewService(newMemoryUsers(), testSecret, time.Hour)

	if _, err := service.Register(context.Background(), "not-an-email", "a", "sifre123"); !errors.Is(err, ErrBadEmail) {
		t.Fatalf("ожидали ErrBadEmail, получили %v", err)
	}
	if _, err := service.Register(context.Background(), "a@b.c", "a", "123"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("ожидали ErrWeakPassword, получили %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	service := NewService(newMemoryUsers(), testSecret, time.Hour)

	if _, err := service.Register(context.Background(), "a@b.c", "a", "sifre123"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if _, err := service.Login(context.Background(), "a@b.c", "yanlis"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("ожидали ErrInvalidCredentials, получили %v", err)
	}
	// Несуществующий пользователь выглядит так же.
	if _, err := service.Login(context.Background(), "yok@b.c", "sifre123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("ожидали ErrInvalidCredentials, получили %v", err)
	}
}
