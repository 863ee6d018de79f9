package store

import (
	"context"
	"errors"
	"fmt"

	"basegraph.app/pulse/internal/model"
)

// Kinds of state blob. Narratives are keyed by guild with an empty channel.
const (
	kindFlows      = "flows"
	kindThreads    = "threads"
	kindNarratives = "narratives"
)

// backend stores opaque JSON documents under (kind, guild, channel).
type backend interface {
	get(ctx context.Context, kind string, key model.ChannelKey) ([]byte, error)
	put(ctx context.Context, kind string, key model.ChannelKey, data []byte) error
	listGuild(ctx context.Context, kind, guildID string) ([][]byte, error)
	keys(ctx context.Context, kind string) ([]model.ChannelKey, error)
	close() error
}

type stores struct {
	b backend
}

func newStores(b backend) *stores {
	return &stores{b: b}
}

func (s *stores) Flows() FlowStateStore      { return &flowStateStore{b: s.b} }
func (s *stores) Threads() ThreadStateStore  { return &threadStateStore{b: s.b} }
func (s *stores) Narratives() NarrativeStore { return &narrativeStore{b: s.b} }
func (s *stores) Close() error               { return s.b.close() }

type flowStateStore struct {
	b backend
}

func (s *flowStateStore) Get(ctx context.Context, key model.ChannelKey) (*model.ChannelFlowState, error) {
	data, err := s.b.get(ctx, kindFlows, key)
	if err != nil {
		return nil, err
	}
	state, err := decodeFlowState(data)
	if err != nil {
		return nil, err
	}
	state.Key = key
	return state, nil
}

func (s *flowStateStore) Put(ctx context.Context, state *model.ChannelFlowState) error {
	data, err := encodeFlowState(state)
	if err != nil {
		return err
	}
	if err := s.b.put(ctx, kindFlows, state.Key, data); err != nil {
		return fmt.Errorf("saving flow state %s: %w", state.Key, err)
	}
	return nil
}

// ListByGuild skips documents that fail to decode.
func (s *flowStateStore) ListByGuild(ctx context.Context, guildID string) ([]*model.ChannelFlowState, error) {
	docs, err := s.b.listGuild(ctx, kindFlows, guildID)
	if err != nil {
		return nil, fmt.Errorf("listing flow states for guild %s: %w", guildID, err)
	}
	out := make([]*model.ChannelFlowState, 0, len(docs))
	for _, d := range docs {
		state, err := decodeFlowState(d)
		if errors.Is(err, ErrCorruptState) {
			continue
		}
		out = append(out, state)
	}
	return out, nil
}

func (s *flowStateStore) ListKeys(ctx context.Context) ([]model.ChannelKey, error) {
	return s.b.keys(ctx, kindFlows)
}

type threadStateStore struct {
	b backend
}

func (s *threadStateStore) Get(ctx context.Context, key model.ChannelKey) (*model.ChannelThreadState, error) {
	data, err := s.b.get(ctx, kindThreads, key)
	if err != nil {
		return nil, err
	}
	state, err := decodeThreadState(data)
	if err != nil {
		return nil, err
	}
	state.Key = key
	return state, nil
}

func (s *threadStateStore) Put(ctx context.Context, state *model.ChannelThreadState) error {
	data, err := encodeThreadState(state)
	if err != nil {
		return err
	}
	if err := s.b.put(ctx, kindThreads, state.Key, data); err != nil {
		return fmt.Errorf("saving thread state %s: %w", state.Key, err)
	}
	return nil
}

func (s *threadStateStore) ListByGuild(ctx context.Context, guildID string) ([]*model.ChannelThreadState, error) {
	docs, err := s.b.listGuild(ctx, kindThreads, guildID)
	if err != nil {
		return nil, fmt.Errorf("listing thread states for guild %s: %w", guildID, err)
	}
	out := make([]*model.ChannelThreadState, 0, len(docs))
	for _, d := range docs {
		state, err := decodeThreadState(d)
		if errors.Is(err, ErrCorruptState) {
			continue
		}
		out = append(out, state)
	}
	return out, nil
}

func (s *threadStateStore) ListKeys(ctx context.Context) ([]model.ChannelKey, error) {
	return s.b.keys(ctx, kindThreads)
}

type narrativeStore struct {
	b backend
}

func (s *narrativeStore) Get(ctx context.Context, guildID string) (*model.GuildNarrative, error) {
	data, err := s.b.get(ctx, kindNarratives, model.ChannelKey{GuildID: guildID})
	if err != nil {
		return nil, err
	}
	n, err := decodeNarrative(data)
	if err != nil {
		return nil, err
	}
	n.GuildID = guildID
	return n, nil
}

func (s *narrativeStore) Put(ctx context.Context, n *model.GuildNarrative) error {
	data, err := encodeNarrative(n)
	if err != nil {
		return err
	}
	if err := s.b.put(ctx, kindNarratives, model.ChannelKey{GuildID: n.GuildID}, data); err != nil {
		return fmt.Errorf("saving narrative %s: %w", n.GuildID, err)
	}
	return nil
}
