package translate

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"mind-reader-backend/internal/domain"
)

type stubProvider struct {
	name   string
	result string
	err    error
	calls  int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Translate(context.Context, string, string, string) (string, error) {
	s.calls++
	return s.result, s.err
}

func TestChainFirstUsableWins(t *testing.T) {
	first := &stubProvider{name: "a", result: "hello"}
	second := &stubProvider{name: "b", result: "never"}
	chain := NewChain(zerolog.Nop(), first, second)

	got, err := chain.Translate(context.Background(), "merhaba", "tr", "en")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if got != "hello" {
		t.Fatalf("ожидали перевод первого провайдера, получили %q", got)
	}
	if second.calls != 0 {
		t.Fatalf("второй провайдер не должен был вызываться")
	}
}

func TestChainSkipsIdentityResult(t *testing.T) {
	identity := &stubProvider{name: "a", result: "merhaba"}
	working := &stubProvider{name: "b", result: "hello"}
	chain := NewChain(zerolog.Nop(), identity, working)

	got, err := chain.Translate(context.Background(), "merhaba", "tr", "en")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if got != "hello" {
		t.Fatalf("ожидали переход к следующему провайдеру, получили %q", got)
	}
}

func TestChainReturnsOriginalWithoutErrors(t *testing.T) {
	// Все провайдеры отработали, но перевод не изменил текст:
	// оригинал возвращается без ошибки.
	chain := NewChain(zerolog.Nop(),
		&stubProvider{name: "a", result: "merhaba"},
		&stubProvider{name: "b", result: ""},
	)

	got, err := chain.Translate(context.Background(), "merhaba", "tr", "en")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if got != "merhaba" {
		t.Fatalf("ожидали оригинал, получили %q", got)
	}
}

func TestChainHardErrorAfterTransportFailure(t *testing.T) {
	// Транспортный сбой у любого провайдера делает исход жёсткой ошибкой,
	// даже если остальные вернули бесполезный результат.
	chain := NewChain(zerolog.Nop(),
		&stubProvider{name: "a", err: errors.New("timeout")},
		&stubProvider{name: "b", result: "merhaba"},
	)

	_, err := chain.Translate(context.Background(), "merhaba", "tr", "en")
	if !errors.Is(err, domain.ErrTranslationUnavailable) {
		t.Fatalf("ожидали ErrTranslationUnavailable, получили %v", err)
	}
}

func TestChainNotConfiguredProvidersFallThrough(t *testing.T) {
	chain := NewChain(zerolog.Nop(),
		&stubProvider{name: "deepl", err: errors.New("провайдер не сконфигурирован")},
		&stubProvider{name: "libre", result: "hello"},
	)

	got, err := chain.Translate(context.Background(), "merhaba", "tr", "en")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if got != "hello" {
		t.Fatalf("ожидали результат рабочего провайдера, получили %q", got)
	}
}
