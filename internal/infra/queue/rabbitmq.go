package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"mind-reader-backend/internal/domain"
	"mind-reader-backend/internal/infra/metrics"
)

// RabbitAlertQueue реализует очередь mood-алертов через AMQP.
type RabbitAlertQueue struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	queue    string
	messages <-chan amqp.Delivery
}

// NewRabbitAlertQueue подключается к RabbitMQ и объявляет очередь.
func NewRabbitAlertQueue(amqpURL, queue string) (*RabbitAlertQueue, error) {
	if amqpURL == "" {
		return nil, errors.New("amqp url is empty")
	}
	if queue == "" {
		return nil, errors.New("queue name is empty")
	}
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	return &RabbitAlertQueue{conn: conn, ch: ch, queue: queue}, nil
}

// Enqueue публикует задачу в очередь.
func (q *RabbitAlertQueue) Enqueue(ctx context.Context, job domain.MoodAlertJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	start := time.Now()
	err = q.ch.PublishWithContext(ctx, "", q.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         payload,
	})
	metrics.ObserveNetworkRequest("rabbitmq", "publish", q.queue, start, err)
	if err != nil {
		return fmt.Errorf("publish job: %w", err)
	}
	return nil
}

// Pop блокирующе читает задачу из очереди.
func (q *RabbitAlertQueue) Pop(ctx context.Context) (domain.MoodAlertJob, error) {
	if q.messages == nil {
		messages, err := q.ch.Consume(q.queue, "", true, false, false, false, nil)
		if err != nil {
			return domain.MoodAlertJob{}, fmt.Errorf("consume: %w", err)
		}
		q.messages = messages
	}
	select {
	case <-ctx.Done():
		return domain.MoodAlertJob{}, ctx.Err()
	case msg, ok := <-q.messages:
		if !ok {
			return domain.MoodAlertJob{}, errors.New("amqp: канал доставки закрыт")
		}
		var job domain.MoodAlertJob
		if err := json.Unmarshal(msg.Body, &job); err != nil {
			return domain.MoodAlertJob{}, fmt.Errorf("decode job: %w", err)
		}
		return job, nil
	}
}

// Close освобождает соединение.
func (q *RabbitAlertQueue) Close() error {
	if err := q.ch.Close(); err != nil {
		_ = q.conn.Close()
		return err
	}
	return q.conn.Close()
}
