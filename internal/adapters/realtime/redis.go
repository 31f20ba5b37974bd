package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"mind-reader-backend/internal/domain"
	"mind-reader-backend/internal/infra/metrics"
)

// RedisBridge связывает несколько инстансов API через Redis pub/sub:
// публикация уходит в канал, подписчик доставляет события в локальный Hub.
type RedisBridge struct {
	client  *redis.Client
	channel string
	hub     *Hub
	log     zerolog.Logger
}

// NewRedisBridge создаёт мост.
func NewRedisBridge(client *redis.Client, channel string, hub *Hub, log zerolog.Logger) *RedisBridge {
	return &RedisBridge{client: client, channel: channel, hub: hub, log: log}
}

// Publish реализует domain.RealtimePublisher через Redis-канал.
func (b *RedisBridge) Publish(ctx context.Context, event domain.RealtimeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	start := time.Now()
	err = b.client.Publish(ctx, b.channel, payload).Err()
	metrics.ObserveNetworkRequest("redis", "publish", b.channel, start, err)
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Run подписывается на канал и доставляет события в Hub до отмены контекста.
func (b *RedisBridge) Run(ctx context.Context) {
	sub := b.client.Subscribe(ctx, b.channel)
	defer func() { _ = sub.Close() }()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var event domain.RealtimeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.log.Warn().Err(err).Msg("realtime: повреждённое событие в канале")
				continue
			}
			if err := b.hub.Publish(ctx, event); err != nil {
				b.log.Warn().Err(err).Msg("realtime: доставка события не удалась")
			}
		}
	}
}
