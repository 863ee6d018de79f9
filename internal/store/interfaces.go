package store

import (
	"context"
	"errors"

	"basegraph.app/pulse/internal/model"
)

// ErrNotFound is returned when no state has been saved under a key.
var ErrNotFound = errors.New("not found")

// ErrCorruptState is returned when saved state cannot be decoded.
var ErrCorruptState = errors.New("corrupt state")

// FlowStateStore persists the flow assembler state of one channel as a whole.
type FlowStateStore interface {
	Get(ctx context.Context, key model.ChannelKey) (*model.ChannelFlowState, error)
	Put(ctx context.Context, state *model.ChannelFlowState) error
	ListByGuild(ctx context.Context, guildID string) ([]*model.ChannelFlowState, error)
	ListKeys(ctx context.Context) ([]model.ChannelKey, error)
}

// ThreadStateStore persists the thread tracker state of one channel.
type ThreadStateStore interface {
	Get(ctx context.Context, key model.ChannelKey) (*model.ChannelThreadState, error)
	Put(ctx context.Context, state *model.ChannelThreadState) error
	ListByGuild(ctx context.Context, guildID string) ([]*model.ChannelThreadState, error)
	ListKeys(ctx context.Context) ([]model.ChannelKey, error)
}

// NarrativeStore persists guild-wide narrative and engagement aggregates.
type NarrativeStore interface {
	Get(ctx context.Context, guildID string) (*model.GuildNarrative, error)
	Put(ctx context.Context, n *model.GuildNarrative) error
}

// Stores groups the three state stores of one backend.
type Stores interface {
	Flows() FlowStateStore
	Threads() ThreadStateStore
	Narratives() NarrativeStore
	Close() error
}
