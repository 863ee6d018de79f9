package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"basegraph.app/pulse/common/id"
	"basegraph.app/pulse/internal/model"
	"basegraph.app/pulse/internal/queue"
)

var ErrDuplicateMessage = errors.New("duplicate message")

type MessageIngestParams struct {
	Message model.Message
	TraceID *string
}

type MessageIngestResult struct {
	ReceiptID  string
	MessageID  string
	Enqueued   bool
	Duplicated bool
	Ignored    bool
}

type MessageIngestService interface {
	Ingest(ctx context.Context, params MessageIngestParams) (*MessageIngestResult, error)
	RequestSweep(ctx context.Context, key model.ChannelKey, traceID *string) error
}

type messageIngestService struct {
	queue   queue.Producer
	deduper queue.Deduper
	logger  *slog.Logger
}

// NewMessageIngestService wires ingest to the stream. deduper may be nil, in
// which case duplicates are only caught by the worker.
func NewMessageIngestService(producer queue.Producer, deduper queue.Deduper, logger *slog.Logger) MessageIngestService {
	if logger == nil {
		logger = slog.Default()
	}
	return &messageIngestService{
		queue:   producer,
		deduper: deduper,
		logger:  logger,
	}
}

func (s *messageIngestService) Ingest(ctx context.Context, params MessageIngestParams) (*MessageIngestResult, error) {
	msg := params.Message
	if err := ValidateMessage(msg); err != nil {
		return nil, err
	}

	result := &MessageIngestResult{MessageID: msg.MessageID}
	if msg.IsBot {
		result.Ignored = true
		return result, nil
	}

	if s.deduper != nil {
		first, err := s.deduper.MarkSeen(ctx, msg.MessageID)
		if err != nil {
			return nil, fmt.Errorf("checking duplicate: %w", err)
		}
		if !first {
			s.logger.InfoContext(ctx, "duplicate message skipped",
				"message_id", msg.MessageID,
				"guild_id", msg.GuildID,
				"channel_id", msg.ChannelID)
			result.Duplicated = true
			return result, nil
		}
	}

	result.ReceiptID = id.NewReceipt()
	if err := s.queue.Enqueue(ctx, queue.MessageTask(msg, result.ReceiptID, params.TraceID)); err != nil {
		if s.deduper != nil {
			if forgetErr := s.deduper.Forget(ctx, msg.MessageID); forgetErr != nil {
				s.logger.WarnContext(ctx, "failed to release dedupe key", "error", forgetErr, "message_id", msg.MessageID)
			}
		}
		return nil, fmt.Errorf("enqueueing message: %w", err)
	}
	result.Enqueued = true

	return result, nil
}

func (s *messageIngestService) RequestSweep(ctx context.Context, key model.ChannelKey, traceID *string) error {
	if key.GuildID == "" || key.ChannelID == "" {
		return fmt.Errorf("%w: guild_id and channel_id are required", ErrInvalidMessage)
	}
	if err := s.queue.Enqueue(ctx, queue.SweepTask(key, traceID)); err != nil {
		return fmt.Errorf("enqueueing sweep: %w", err)
	}
	return nil
}
