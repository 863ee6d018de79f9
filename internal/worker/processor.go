package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"basegraph.app/pulse/internal/queue"
	"basegraph.app/pulse/internal/service"
)

// ErrPermanent marks failures that retrying cannot fix. Such messages go
// straight to the DLQ.
var ErrPermanent = errors.New("permanent failure")

// Processor dispatches stream messages to the conversation service.
type Processor struct {
	conversations Conversations
}

func NewProcessor(conversations Conversations) *Processor {
	return &Processor{conversations: conversations}
}

func (p *Processor) Process(ctx context.Context, msg queue.Message) error {
	switch msg.TaskType {
	case queue.TaskTypeMessage:
		if msg.Payload == nil {
			return fmt.Errorf("%w: message task without payload", ErrPermanent)
		}
		res, err := p.conversations.ProcessMessage(ctx, *msg.Payload)
		if err != nil {
			if errors.Is(err, service.ErrInvalidMessage) {
				return fmt.Errorf("%w: %w", ErrPermanent, err)
			}
			return fmt.Errorf("processing message: %w", err)
		}
		if res.Duplicate {
			slog.InfoContext(ctx, "message already applied, acknowledging")
		}
		return nil

	case queue.TaskTypeSweep:
		if _, err := p.conversations.Sweep(ctx, msg.Key); err != nil {
			return fmt.Errorf("sweeping channel: %w", err)
		}
		return nil

	default:
		return fmt.Errorf("%w: unknown task type %q", ErrPermanent, msg.TaskType)
	}
}
