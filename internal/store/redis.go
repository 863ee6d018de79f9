package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"basegraph.app/pulse/common"
	"basegraph.app/pulse/internal/model"
)

// redisBackend keeps each document as a string value plus two index sets per
// kind: the guilds that have state and, per guild, the channels.
type redisBackend struct {
	client *redis.Client
	prefix string
}

func NewRedis(client *redis.Client, keyPrefix string) (Stores, error) {
	prefix, err := common.KeyPrefix(keyPrefix, "pulse")
	if err != nil {
		return nil, err
	}
	return newStores(&redisBackend{client: client, prefix: prefix}), nil
}

func (b *redisBackend) docKey(kind string, key model.ChannelKey) string {
	return common.Key(b.prefix, "state", kind, "doc", key.GuildID, key.ChannelID)
}

func (b *redisBackend) guildsKey(kind string) string {
	return common.Key(b.prefix, "state", kind, "idx", "guilds")
}

func (b *redisBackend) channelsKey(kind, guildID string) string {
	return common.Key(b.prefix, "state", kind, "idx", "channels", guildID)
}

func (b *redisBackend) get(ctx context.Context, kind string, key model.ChannelKey) ([]byte, error) {
	data, err := b.client.Get(ctx, b.docKey(kind, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (b *redisBackend) put(ctx context.Context, kind string, key model.ChannelKey, data []byte) error {
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, b.docKey(kind, key), data, 0)
		pipe.SAdd(ctx, b.guildsKey(kind), key.GuildID)
		pipe.SAdd(ctx, b.channelsKey(kind, key.GuildID), key.ChannelID)
		return nil
	})
	return err
}

func (b *redisBackend) listGuild(ctx context.Context, kind, guildID string) ([][]byte, error) {
	channels, err := b.client.SMembers(ctx, b.channelsKey(kind, guildID)).Result()
	if err != nil {
		return nil, err
	}
	if len(channels) == 0 {
		return nil, nil
	}
	sort.Strings(channels)

	keys := make([]string, len(channels))
	for i, ch := range channels {
		keys[i] = b.docKey(kind, model.ChannelKey{GuildID: guildID, ChannelID: ch})
	}
	values, err := b.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	out := make([][]byte, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, []byte(s))
		}
	}
	return out, nil
}

func (b *redisBackend) keys(ctx context.Context, kind string) ([]model.ChannelKey, error) {
	guilds, err := b.client.SMembers(ctx, b.guildsKey(kind)).Result()
	if err != nil {
		return nil, fmt.Errorf("listing %s guilds: %w", kind, err)
	}
	sort.Strings(guilds)

	var out []model.ChannelKey
	for _, g := range guilds {
		channels, err := b.client.SMembers(ctx, b.channelsKey(kind, g)).Result()
		if err != nil {
			return nil, fmt.Errorf("listing %s channels for guild %s: %w", kind, g, err)
		}
		sort.Strings(channels)
		for _, ch := range channels {
			out = append(out, model.ChannelKey{GuildID: g, ChannelID: ch})
		}
	}
	return out, nil
}

func (b *redisBackend) close() error {
	return b.client.Close()
}
