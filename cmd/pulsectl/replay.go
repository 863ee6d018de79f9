package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/urfave/cli/v2"

	"basegraph.app/pulse/internal/model"
	"basegraph.app/pulse/internal/service"
)

func replayCommand() *cli.Command {
	return &cli.Command{
		Name:      "replay",
		Usage:     "Feed a JSONL transcript through the conversation pipeline",
		ArgsUsage: "TRANSCRIPT",
		Flags: []cli.Flag{
			dbFlag,
			&cli.DurationFlag{
				Name:  "settle",
				Usage: "Sweep every channel this long after the last message (0 disables)",
				Value: 0,
			},
			&cli.BoolFlag{
				Name:  "strict",
				Usage: "Stop at the first invalid line instead of skipping it",
			},
		},
		Action: runReplay,
	}
}

func runReplay(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("missing required argument: transcript path")
	}

	f, err := os.Open(c.Args().Get(0))
	if err != nil {
		return fmt.Errorf("opening transcript: %w", err)
	}
	defer f.Close()

	e, err := openEnv(c)
	if err != nil {
		return err
	}
	defer e.Close()

	clock := &replayClock{}
	conversations := service.NewConversationService(service.NewEngine(e.cfg.Engine), e.stores, clock.Now, e.logger)

	stats, err := replay(c.Context, f, conversations, clock, replayOptions{
		Settle: c.Duration("settle"),
		Strict: c.Bool("strict"),
	})
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, stats)
}

type replayOptions struct {
	Settle time.Duration
	Strict bool
}

type replayStats struct {
	Lines          int `json:"lines"`
	Processed      int `json:"processed"`
	Skipped        int `json:"skipped"`
	Duplicates     int `json:"duplicates"`
	Invalid        int `json:"invalid"`
	FlowsStarted   int `json:"flows_started"`
	FlowsClosed    int `json:"flows_closed"`
	ThreadsStarted int `json:"threads_started"`
	ThreadsRetired int `json:"threads_retired"`
}

// replayClock reports the timestamp of the message being replayed, so window
// and closure rules follow transcript time rather than wall time.
type replayClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *replayClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *replayClock) advance(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.After(c.now) {
		c.now = t
	}
}

func replay(ctx context.Context, r io.Reader, conversations service.ConversationService, clock *replayClock, opts replayOptions) (*replayStats, error) {
	stats := &replayStats{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		stats.Lines++

		var msg model.Message
		if err := json.Unmarshal(line, &msg); err != nil {
			if opts.Strict {
				return stats, fmt.Errorf("line %d: %w", stats.Lines, err)
			}
			stats.Invalid++
			continue
		}
		// A line without a timestamp stays zero so the service keeps it out
		// of flow and thread matching; it does not move the clock either.
		if msg.HasTimestamp() {
			msg.Timestamp = msg.Timestamp.UTC()
			clock.advance(msg.Timestamp)
		}

		res, err := conversations.ProcessMessage(ctx, msg)
		if err != nil {
			if errors.Is(err, service.ErrInvalidMessage) && !opts.Strict {
				stats.Invalid++
				continue
			}
			return stats, fmt.Errorf("line %d: %w", stats.Lines, err)
		}

		switch {
		case res.Skipped:
			stats.Skipped++
		case res.Duplicate:
			stats.Duplicates++
		default:
			stats.Processed++
		}
		if res.FlowStarted {
			stats.FlowsStarted++
		}
		if res.ThreadStarted {
			stats.ThreadsStarted++
		}
		stats.FlowsClosed += len(res.ClosedFlows)
		stats.ThreadsRetired += res.RetiredThreads
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("reading transcript: %w", err)
	}

	if opts.Settle > 0 {
		clock.advance(clock.Now().Add(opts.Settle))
		summary, err := conversations.SweepAll(ctx)
		if err != nil {
			return stats, fmt.Errorf("settling: %w", err)
		}
		stats.FlowsClosed += summary.ClosedFlows
		stats.ThreadsRetired += summary.RetiredThreads
	}

	return stats, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
