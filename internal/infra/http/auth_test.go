package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
)

const testSecret = "secret"

func TestTokenRoundTrip(t *testing.T) {
	userID := uuid.New()
	token, err := IssueToken(testSecret, userID, time.Hour)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	parsed, err := ParseToken(testSecret, token)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if parsed != userID {
		t.Fatalf("ожидали тот же id пользователя")
	}
}

func TestParseTokenWrongSecret(t *testing.T) {
	token, err := IssueToken(testSecret, uuid.New(), time.Hour)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if _, err := ParseToken("other", token); err == nil {
		t.Fatalf("ожидали ошибку при неверном секрете")
	}
}

func TestParseTokenExpired(t *testing.T) {
	token, err := IssueToken(testSecret, uuid.New(), -time.Minute)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if _, err := ParseToken(testSecret, token); err == nil {
		t.Fatalf("ожидали ошибку для протухшего токена")
	}
}

func TestAuthMiddleware(t *testing.T) {
	userID := uuid.New()
	token, err := IssueToken(testSecret, userID, time.Hour)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}

	var gotID uuid.UUID
	handler := AuthMiddleware(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, _ = UserID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("ожидали 200, получили %d", rec.Code)
	}
	if gotID != userID {
		t.Fatalf("id пользователя должен попасть в контекст")
	}
}

func TestAuthMiddlewareTokenInQuery(t *testing.T) {
	// Вариант для websocket-клиентов, не умеющих ставить заголовки.
	token, err := IssueToken(testSecret, uuid.New(), time.Hour)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	handler := AuthMiddleware(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("ожидали 200, получили %d", rec.Code)
	}
}

func TestAuthMiddlewareRejectsMissingToken(t *testing.T) {
	handler := AuthMiddleware(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatalf("обработчик не должен вызываться")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("ожидали 401, получили %d", rec.Code)
	}
}
