package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"mind-reader-backend/internal/domain"
	infrahttp "mind-reader-backend/internal/infra/http"
)

var (
	// ErrInvalidCredentials — пара e-mail/пароль не подошла.
	ErrInvalidCredentials = errors.New("неверный e-mail или пароль")
	// ErrWeakPassword — пароль короче допустимого.
	ErrWeakPassword = errors.New("пароль должен быть не короче 6 символов")
	// ErrBadEmail — e-mail пустой или без @.
	ErrBadEmail = errors.New("некорректный e-mail")
)

const minPasswordLength = 6

// Service регистрирует пользователей и выдаёт JWT.
type Service struct {
	users  domain.UserRepo
	secret string
	ttl    time.Duration
}

// NewService создаёт сервис аутентификации.
func NewService(users domain.UserRepo, secret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{users: users, secret: secret, ttl: ttl}
}

// Session — результат входа или регистрации.
type Session struct {
	Token string          `json:"token"`
	User  domain.UserInfo `json:"user"`
}

// Register создаёт пользователя и сразу выдаёт сессию. Если имя не
// задано, берётся локальная часть e-mail.
func (s *Service) Register(ctx context.Context, email, username, password string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return Session{}, ErrBadEmail
	}
	if len(password) < minPasswordLength {
		return Session{}, ErrWeakPassword
	}
	username = strings.TrimSpace(username)
	if username == "" {
		username = email[:strings.Index(email, "@")]
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Session{}, fmt.Errorf("хеширование пароля: %w", err)
	}

	user, err := s.users.Create(ctx, domain.User{
		Email:        email,
		Username:     username,
		PasswordHash: string(hash),
	})
	if err != nil {
		return Session{}, err
	}
	return s.session(user)
}

// Login проверяет пароль и выдаёт сессию. Несуществующий пользователь
// и неверный пароль неразличимы для вызывающего.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	return s.session(user)
}

func (s *Service) session(user domain.User) (Session, error) {
	token, err := infrahttp.IssueToken(s.secret, user.ID, s.ttl)
	if err != nil {
		return Session{}, fmt.Errorf("выпуск токена: %w", err)
	}
	return Session{Token: token, User: user.Info()}, nil
}
