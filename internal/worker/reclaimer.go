package worker

import (
	"context"
	"log/slog"
	"time"

	"basegraph.app/pulse/common/logger"
	"basegraph.app/pulse/internal/queue"
)

// StaleClaimer takes over entries another consumer read but never settled.
type StaleClaimer interface {
	ClaimStale(ctx context.Context, args queue.ClaimArgs) (queue.ClaimResult, error)
	SendDLQ(ctx context.Context, msg queue.Message, errMsg string) error
}

// Handler settles one message. *Worker implements it.
type Handler interface {
	Handle(ctx context.Context, msg queue.Message) error
}

type ReclaimerConfig struct {
	Consumer  string
	MinIdle   time.Duration
	Interval  time.Duration
	BatchSize int64
}

// Reclaimer periodically claims entries left pending by a worker that died
// between reading and settling them, and hands them to the worker so they are
// acked, requeued or dead-lettered like fresh ones.
type Reclaimer struct {
	claimer StaleClaimer
	handler Handler
	cfg     ReclaimerConfig
	cursor  string

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func NewReclaimer(claimer StaleClaimer, handler Handler, cfg ReclaimerConfig) *Reclaimer {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	return &Reclaimer{
		claimer:   claimer,
		handler:   handler,
		cfg:       cfg,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Run blocks until Stop is called or ctx is done.
func (r *Reclaimer) Run(ctx context.Context) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "pulse.worker.reclaimer",
	})

	defer close(r.stoppedCh)

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "reclaimer started",
		"interval", r.cfg.Interval,
		"min_idle", r.cfg.MinIdle)

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			slog.InfoContext(ctx, "reclaimer stopping")
			return
		case <-ticker.C:
			if _, err := r.ReclaimOnce(ctx); err != nil {
				slog.ErrorContext(ctx, "reclaim cycle error", "error", err)
			}
		}
	}
}

func (r *Reclaimer) Stop() {
	close(r.stopCh)
	<-r.stoppedCh
}

// ReclaimOnce claims one batch and settles every entry in it. It returns the
// number of entries claimed.
func (r *Reclaimer) ReclaimOnce(ctx context.Context) (int, error) {
	res, err := r.claimer.ClaimStale(ctx, queue.ClaimArgs{
		Consumer: r.cfg.Consumer,
		MinIdle:  r.cfg.MinIdle,
		Count:    r.cfg.BatchSize,
		Start:    r.cursor,
	})
	if err != nil {
		return 0, err
	}
	r.cursor = res.Next

	claimed := len(res.Messages) + len(res.Unparsed)
	if claimed == 0 {
		return 0, nil
	}
	slog.InfoContext(ctx, "claimed stale pending messages",
		"count", claimed,
		"unparsed", len(res.Unparsed))

	// Unparseable entries can never succeed; keep them for inspection.
	for _, u := range res.Unparsed {
		streamID := u.Message.ID
		uctx := logger.WithLogFields(ctx, logger.LogFields{StreamID: &streamID})
		if err := r.claimer.SendDLQ(uctx, u.Message, u.Err.Error()); err != nil {
			slog.ErrorContext(uctx, "failed to dead-letter unparsed entry", "error", err)
		}
	}

	for _, msg := range res.Messages {
		// Handle settles the entry itself; its error is already logged there.
		_ = r.handler.Handle(ctx, msg)
	}
	return claimed, nil
}
