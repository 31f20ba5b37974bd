package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"mind-reader-backend/internal/domain"
)

// RedisAlertQueue реализует очередь mood-алертов на базе Redis lists.
// Используется, когда RabbitMQ не сконфигурирован.
type RedisAlertQueue struct {
	client *redis.Client
	key    string
}

// NewRedisAlertQueue создаёт очередь по указанному ключу.
func NewRedisAlertQueue(client *redis.Client, key string) *RedisAlertQueue {
	return &RedisAlertQueue{client: client, key: key}
}

// Enqueue публикует задачу в очередь.
func (q *RedisAlertQueue) Enqueue(ctx context.Context, job domain.MoodAlertJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("push job: %w", err)
	}
	return nil
}

// Pop блокирующе читает задачу из очереди.
func (q *RedisAlertQueue) Pop(ctx context.Context) (domain.MoodAlertJob, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.MoodAlertJob{}, err
		}

		res, err := q.client.BRPop(ctx, time.Second, q.key).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				if ctx.Err() != nil {
					return domain.MoodAlertJob{}, ctx.Err()
				}
				continue
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			return domain.MoodAlertJob{}, err
		}
		if len(res) != 2 {
			return domain.MoodAlertJob{}, errors.New("redis queue: unexpected response")
		}
		var job domain.MoodAlertJob
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			return domain.MoodAlertJob{}, fmt.Errorf("decode job: %w", err)
		}
		return job, nil
	}
}
