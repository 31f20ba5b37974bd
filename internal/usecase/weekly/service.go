package weekly

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mind-reader-backend/internal/domain"
)

const windowDays = 7

// Service строит недельную сводку настроения по дням.
type Service struct {
	analyses domain.AnalysisRepo
	friends  domain.FriendRepo
	log      zerolog.Logger
	now      func() time.Time
}

// NewService создаёт сервис.
func NewService(analyses domain.AnalysisRepo, friends domain.FriendRepo, log zerolog.Logger) *Service {
	return &Service{analyses: analyses, friends: friends, log: log, now: time.Now}
}

// WithClock подменяет источник времени. Используется в тестах.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Weekly возвращает ровно 7 дневных корзин за окно [сегодня-6, сегодня]
// по локальному календарю, отсортированных по возрастанию даты. Дни без
// записей присутствуют с нулевыми полями.
//
// Чужие данные доступны только друзьям: если subject != requester и
// дружбы нет, возвращается domain.ErrForbidden.
func (s *Service) Weekly(ctx context.Context, subjectID, requesterID uuid.UUID) ([]domain.DailyMood, error) {
	if subjectID != requesterID {
		ok, err := s.friends.AreFriends(ctx, subjectID, requesterID)
		if err != nil {
			return nil, fmt.Errorf("проверка дружбы: %w", err)
		}
		if !ok {
			return nil, domain.ErrForbidden
		}
	}

	now := s.now()
	loc := now.Location()
	// Верхняя граница — конец сегодняшнего дня, нижняя — начало дня 6 суток назад.
	end := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 999000000, loc)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, -(windowDays - 1))

	entries, err := s.analyses.ListRange(ctx, subjectID, start, end)
	if err != nil {
		return nil, fmt.Errorf("выборка записей: %w", err)
	}

	buckets := make(map[string]*domain.DailyMood, windowDays)
	for i := 0; i < windowDays; i++ {
		date := start.AddDate(0, 0, i).Format("2006-01-02")
		buckets[date] = &domain.DailyMood{Date: date}
	}

	for _, entry := range entries {
		date := entry.CreatedAt.In(loc).Format("2006-01-02")
		bucket, ok := buckets[date]
		if !ok {
			continue
		}
		bucket.Positive += entry.Sentiment.Positive
		bucket.Neutral += entry.Sentiment.Neutral
		bucket.Negative += entry.Sentiment.Negative
		bucket.Average += entry.Sentiment.Scalar()
		bucket.Count++
	}

	result := make([]domain.DailyMood, 0, windowDays)
	for _, bucket := range buckets {
		if bucket.Count > 0 {
			n := float64(bucket.Count)
			bucket.Positive /= n
			bucket.Neutral /= n
			bucket.Negative /= n
			bucket.Average /= n
		}
		result = append(result, *bucket)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date < result[j].Date })

	s.coerceInvalid(subjectID, result)
	return result, nil
}

// coerceInvalid заменяет NaN/Inf на ноль. Такие значения возможны при
// повреждённой записи в хранилище; это страховка корректности вывода,
// сама запись остаётся как есть, поэтому пишем предупреждение.
func (s *Service) coerceInvalid(subjectID uuid.UUID, days []domain.DailyMood) {
	for i := range days {
		fields := []*float64{&days[i].Positive, &days[i].Neutral, &days[i].Negative, &days[i].Average}
		for _, f := range fields {
			if math.IsNaN(*f) || math.IsInf(*f, 0) {
				s.log.Warn().
					Str("user_id", subjectID.String()).
					Str("date", days[i].Date).
					Msg("weekly: некорректное значение в агрегате, приведено к нулю")
				*f = 0
			}
		}
	}
}
