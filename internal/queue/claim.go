package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type ClaimArgs struct {
	Consumer string
	MinIdle  time.Duration
	Count    int64
	// Start is the XAUTOCLAIM cursor; empty starts from the head of the
	// pending list.
	Start string
}

// Unparsed is a claimed entry whose fields could not be parsed.
type Unparsed struct {
	Message Message
	Err     error
}

type ClaimResult struct {
	Messages []Message
	Unparsed []Unparsed
	// Next is the cursor for the following call; "0-0" once the pending
	// list has been walked to the end.
	Next string
}

// ClaimStale takes over entries idle for at least MinIdle from whichever
// consumer holds them.
func (c *RedisConsumer) ClaimStale(ctx context.Context, args ClaimArgs) (ClaimResult, error) {
	start := args.Start
	if start == "" {
		start = "0-0"
	}

	entries, next, err := c.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   c.cfg.Stream,
		Group:    c.cfg.Group,
		Consumer: args.Consumer,
		MinIdle:  args.MinIdle,
		Start:    start,
		Count:    args.Count,
	}).Result()
	if err != nil {
		return ClaimResult{}, fmt.Errorf("xautoclaim (stream=%s): %w", c.cfg.Stream, err)
	}

	return splitClaimed(entries, next), nil
}

func splitClaimed(entries []redis.XMessage, next string) ClaimResult {
	res := ClaimResult{Next: next}
	for _, entry := range entries {
		parsed, err := ParseMessage(entry)
		if err != nil {
			res.Unparsed = append(res.Unparsed, Unparsed{Message: Message{ID: entry.ID, Raw: entry}, Err: err})
			continue
		}
		res.Messages = append(res.Messages, parsed)
	}
	return res
}
