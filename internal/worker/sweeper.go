package worker

import (
	"context"
	"log/slog"
	"time"

	"basegraph.app/pulse/common/logger"
)

// Sweeper closes idle flows and retires stale threads on a timer, so
// channels that go quiet still age out.
type Sweeper struct {
	conversations Conversations
	interval      time.Duration

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func NewSweeper(conversations Conversations, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		conversations: conversations,
		interval:      interval,
		stopCh:        make(chan struct{}),
		stoppedCh:     make(chan struct{}),
	}
}

func (s *Sweeper) Run(ctx context.Context) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "pulse.worker.sweeper",
	})

	defer close(s.stoppedCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "sweeper started", "interval", s.interval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			slog.InfoContext(ctx, "sweeper stopping")
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Sweeper) Stop() {
	close(s.stopCh)
	<-s.stoppedCh
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	span := logger.StartSpan(ctx, "worker.sweep_all")
	defer span.End()
	ctx = span.Context()

	summary, err := s.conversations.SweepAll(ctx)
	if err != nil {
		span.RecordError(err)
		slog.ErrorContext(ctx, "sweep failed", "error", err)
	}
	if summary == nil {
		return
	}

	level := slog.LevelDebug
	if summary.ClosedFlows > 0 || summary.RetiredThreads > 0 {
		level = slog.LevelInfo
	}
	slog.Log(ctx, level, "sweep finished",
		"channels", summary.Channels,
		"closed_flows", summary.ClosedFlows,
		"retired_threads", summary.RetiredThreads)
}
