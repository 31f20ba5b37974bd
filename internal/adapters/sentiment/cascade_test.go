package sentiment

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"mind-reader-backend/internal/domain"
	"mind-reader-backend/internal/infra/hf"
)

type stubAnalyzer struct {
	result domain.Sentiment
	err    error
	calls  int
}

func (s *stubAnalyzer) Analyze(context.Context, string) (domain.Sentiment, error) {
	s.calls++
	return s.result, s.err
}

type stubClassifier struct {
	labels []hf.Classification
	err    error
}

func (s *stubClassifier) Classify(context.Context, string, string) ([]hf.Classification, error) {
	return s.labels, s.err
}

func TestCascadePrimarySucceeds(t *testing.T) {
	primary := &stubAnalyzer{result: domain.Sentiment{Positive: 0.9}}
	secondary := &stubAnalyzer{}
	cascade := NewCascade(primary, secondary, zerolog.Nop())

	got, err := cascade.Analyze(context.Background(), "fine")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if got.Positive != 0.9 {
		t.Fatalf("ожидали результат основной модели")
	}
	if secondary.calls != 0 {
		t.Fatalf("резервная модель не должна была вызываться")
	}
}

func TestCascadeFallsBackOnPrimaryError(t *testing.T) {
	primary := &stubAnalyzer{err: errors.New("503")}
	secondary := &stubAnalyzer{result: domain.Sentiment{Negative: 0.8}}
	cascade := NewCascade(primary, secondary, zerolog.Nop())

	got, err := cascade.Analyze(context.Background(), "bad")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if got.Negative != 0.8 {
		t.Fatalf("ожидали результат резервной модели")
	}
}

func TestCascadeBothFail(t *testing.T) {
	cascade := NewCascade(
		&stubAnalyzer{err: errors.New("503")},
		&stubAnalyzer{err: errors.New("504")},
		zerolog.Nop(),
	)

	_, err := cascade.Analyze(context.Background(), "bad")
	if !errors.Is(err, domain.ErrSentimentUnavailable) {
		t.Fatalf("ожидали ErrSentimentUnavailable, получили %v", err)
	}
}

func TestRobertaMapsOrdinalLabels(t *testing.T) {
	client := &stubClassifier{labels: []hf.Classification{
		{Label: "LABEL_0", Score: 0.7},
		{Label: "LABEL_1", Score: 0.2},
		{Label: "LABEL_2", Score: 0.1},
	}}
	model := NewRoberta(client, "", 0)

	got, err := model.Analyze(context.Background(), "bad day")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if got.Negative != 0.7 || got.Neutral != 0.2 || got.Positive != 0.1 {
		t.Fatalf("неверное позиционное отображение: %+v", got)
	}
	if got.Label() != domain.LabelNegative {
		t.Fatalf("ожидали метку NEGATIVE")
	}
}

func TestStarBertMapsStars(t *testing.T) {
	client := &stubClassifier{labels: []hf.Classification{
		{Label: "1 star", Score: 0.05},
		{Label: "2 stars", Score: 0.03},
		{Label: "3 stars", Score: 0.02},
		{Label: "4 stars", Score: 0.4},
		{Label: "5 stars", Score: 0.9},
	}}
	model := NewStarBert(client, "", 0)

	got, err := model.Analyze(context.Background(), "great")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	// В корзину попадает максимум, не сумма.
	if got.Positive != 0.9 {
		t.Fatalf("ожидали позитив 0.9, получили %v", got.Positive)
	}
	if got.Negative != 0.05 {
		t.Fatalf("ожидали негатив 0.05, получили %v", got.Negative)
	}
	if got.Label() != domain.LabelPositive {
		t.Fatalf("ожидали метку POSITIVE")
	}
}

func TestSentimentLabelTieIsNeutral(t *testing.T) {
	s := domain.Sentiment{Positive: 0.5, Negative: 0.5}
	if s.Label() != domain.LabelNeutral {
		t.Fatalf("при равенстве оценок ожидали NEUTRAL")
	}
}
