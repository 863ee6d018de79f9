package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

type Producer interface {
	Enqueue(ctx context.Context, task Task) error
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

func (p *redisProducer) Enqueue(ctx context.Context, task Task) error {
	fields, err := taskValues(task)
	if err != nil {
		return err
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: fields,
	}).Err(); err != nil {
		return fmt.Errorf("enqueue task: %w", err)
	}

	p.logger.InfoContext(ctx, "enqueued task",
		"task_type", task.TaskType,
		"guild_id", task.Key.GuildID,
		"channel_id", task.Key.ChannelID,
		"receipt_id", task.ReceiptID,
		"attempt", fields["attempt"])
	return nil
}

func (p *redisProducer) Close() error {
	return p.client.Close()
}

func taskValues(task Task) (map[string]any, error) {
	attempt := task.Attempt
	if attempt <= 0 {
		attempt = 1
	}

	fields := map[string]any{
		"task_type":  string(task.TaskType),
		"guild_id":   task.Key.GuildID,
		"channel_id": task.Key.ChannelID,
		"attempt":    attempt,
	}

	switch task.TaskType {
	case TaskTypeMessage:
		if task.Message == nil {
			return nil, fmt.Errorf("message task without message")
		}
		payload, err := encodePayload(task.Message)
		if err != nil {
			return nil, err
		}
		fields["payload"] = payload
		fields["message_id"] = task.Message.MessageID
	case TaskTypeSweep:
	default:
		return nil, fmt.Errorf("unknown task_type %q", task.TaskType)
	}

	if task.ReceiptID != "" {
		fields["receipt_id"] = task.ReceiptID
	}
	if task.TraceID != nil && *task.TraceID != "" {
		fields["trace_id"] = *task.TraceID
	}

	return fields, nil
}
