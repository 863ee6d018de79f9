package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper remembers message ids for a while so redelivered messages can be
// dropped before they reach the stream.
type Deduper interface {
	// MarkSeen returns true the first time an id is seen within the TTL.
	MarkSeen(ctx context.Context, messageID string) (bool, error)
	Forget(ctx context.Context, messageID string) error
}

type redisDeduper struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisDeduper(client *redis.Client, prefix string, ttl time.Duration) Deduper {
	return &redisDeduper{client: client, prefix: prefix, ttl: ttl}
}

func (d *redisDeduper) key(messageID string) string {
	return d.prefix + ":seen:" + messageID
}

func (d *redisDeduper) MarkSeen(ctx context.Context, messageID string) (bool, error) {
	first, err := d.client.SetNX(ctx, d.key(messageID), 1, d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("setnx dedupe key: %w", err)
	}
	return first, nil
}

func (d *redisDeduper) Forget(ctx context.Context, messageID string) error {
	if err := d.client.Del(ctx, d.key(messageID)).Err(); err != nil {
		return fmt.Errorf("deleting dedupe key: %w", err)
	}
	return nil
}
