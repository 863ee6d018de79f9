package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"basegraph.app/pulse/common/logger"
	"basegraph.app/pulse/internal/queue"
	"go.opentelemetry.io/otel/trace"
)

type Config struct {
	MaxAttempts int
}

type Worker struct {
	consumer  Consumer
	processor *Processor
	cfg       Config

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func New(consumer Consumer, processor *Processor, cfg Config) *Worker {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	return &Worker{
		consumer:  consumer,
		processor: processor,
		cfg:       cfg,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

func (w *Worker) Run(ctx context.Context) error {
	defer close(w.stoppedCh)

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "pulse.worker",
	})
	slog.InfoContext(ctx, "worker started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			slog.InfoContext(ctx, "worker stopping")
			return nil
		default:
			if err := w.processOneBatch(ctx); err != nil {
				slog.ErrorContext(ctx, "batch processing error", "error", err)
				// Brief backoff on error
				time.Sleep(time.Second)
			}
		}
	}
}

func (w *Worker) Stop() {
	close(w.stopCh)
	<-w.stoppedCh
}

func (w *Worker) processOneBatch(ctx context.Context) error {
	messages, err := w.consumer.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading from stream: %w", err)
	}

	for _, msg := range messages {
		_ = w.Handle(ctx, msg)
	}

	return nil
}

// Handle processes one message and settles it: ack on success, requeue or
// DLQ on failure. The processing error is returned for the caller's logs.
// Exported so the reclaimer settles reclaimed messages the same way.
func (w *Worker) Handle(ctx context.Context, msg queue.Message) error {
	streamID := msg.ID
	taskType := string(msg.TaskType)
	fields := logger.LogFields{
		StreamID:  &streamID,
		TaskType:  &taskType,
		GuildID:   &msg.Key.GuildID,
		ChannelID: &msg.Key.ChannelID,
	}
	if msg.Payload != nil {
		fields.MessageID = &msg.Payload.MessageID
	}
	ctx = logger.WithLogFields(ctx, fields)

	span := logger.StartSpanFromTraceID(ctx, msg.TraceID, "worker.handle",
		trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()
	span.SetChannel(msg.Key.GuildID, msg.Key.ChannelID)
	ctx = span.Context()

	err := w.processMessageSafe(ctx, msg)
	if err != nil {
		span.RecordError(err)
		slog.ErrorContext(ctx, "message processing failed",
			"error", err,
			"attempt", msg.Attempt)
		w.handleFailedMessage(ctx, msg, err)
		return err
	}

	if ackErr := w.consumer.Ack(ctx, msg); ackErr != nil {
		// The reclaimer will redeliver; reprocessing is a no-op.
		slog.WarnContext(ctx, "failed to ACK message", "error", ackErr)
	}
	return nil
}

func (w *Worker) processMessageSafe(ctx context.Context, msg queue.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in message processing", "panic", r)
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	start := time.Now()
	if err := w.processor.Process(ctx, msg); err != nil {
		return err
	}
	slog.InfoContext(ctx, "message handled",
		"attempt", msg.Attempt,
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (w *Worker) handleFailedMessage(ctx context.Context, msg queue.Message, err error) {
	if errors.Is(err, ErrPermanent) || msg.Attempt >= w.cfg.MaxAttempts {
		slog.ErrorContext(ctx, "sending message to DLQ",
			"attempts", msg.Attempt,
			"permanent", errors.Is(err, ErrPermanent))
		if dlqErr := w.consumer.SendDLQ(ctx, msg, err.Error()); dlqErr != nil {
			slog.ErrorContext(ctx, "failed to send to DLQ", "error", dlqErr)
		}
		return
	}

	slog.WarnContext(ctx, "requeuing failed message", "attempt", msg.Attempt)
	if requeueErr := w.consumer.Requeue(ctx, msg, err.Error()); requeueErr != nil {
		slog.ErrorContext(ctx, "failed to requeue message", "error", requeueErr)
	}
}
