package worker

import (
	"context"

	"basegraph.app/pulse/internal/model"
	"basegraph.app/pulse/internal/queue"
	"basegraph.app/pulse/internal/service"
)

// Consumer abstracts the message queue for testability.
type Consumer interface {
	Read(ctx context.Context) ([]queue.Message, error)
	Ack(ctx context.Context, msg queue.Message) error
	Requeue(ctx context.Context, msg queue.Message, errMsg string) error
	SendDLQ(ctx context.Context, msg queue.Message, errMsg string) error
}

// Conversations is the part of service.ConversationService the worker drives.
type Conversations interface {
	ProcessMessage(ctx context.Context, msg model.Message) (*service.ProcessResult, error)
	Sweep(ctx context.Context, key model.ChannelKey) (*service.SweepResult, error)
	SweepAll(ctx context.Context) (*service.SweepSummary, error)
}
