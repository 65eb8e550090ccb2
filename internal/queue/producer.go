package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// StatusEvent announces an applied agreement status transition. Consumers
// (notifications, analytics) live outside this service.
type StatusEvent struct {
	AgreementID int64
	RoomID      int64
	DealID      int64
	Status      string
	OccurredAt  time.Time
}

type Producer interface {
	Publish(ctx context.Context, event StatusEvent) error
	Close() error
}

type redisProducer struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

func NewRedisProducer(client *redis.Client, stream string, logger *slog.Logger) Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisProducer{
		client: client,
		stream: stream,
		logger: logger,
	}
}

func (p *redisProducer) Publish(ctx context.Context, event StatusEvent) error {
	occurred := event.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now()
	}

	fields := map[string]any{
		"agreement_id": event.AgreementID,
		"room_id":      event.RoomID,
		"deal_id":      event.DealID,
		"status":       event.Status,
		"occurred_at":  occurred.UTC().Format(time.RFC3339Nano),
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: fields,
	}).Err(); err != nil {
		return fmt.Errorf("publish status event: %w", err)
	}

	p.logger.InfoContext(ctx, "published status event", "agreement_id", event.AgreementID, "status", event.Status)
	return nil
}

func (p *redisProducer) Close() error {
	return p.client.Close()
}
