package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"basegraph.app/pulse/common/logger"
	"basegraph.app/pulse/internal/model"
	"basegraph.app/pulse/internal/narrative"
	"basegraph.app/pulse/internal/scoring"
	"basegraph.app/pulse/internal/store"
	"basegraph.app/pulse/internal/thread"
)

var ErrInvalidMessage = errors.New("invalid message")

type ProcessResult struct {
	MessageID      string
	Key            model.ChannelKey
	Skipped        bool
	Duplicate      bool
	Elements       model.NarrativeElements
	Scores         scoring.Scores
	FlowID         string
	FlowStarted    bool
	ClosedFlows    []model.ConversationFlow
	ThreadID       string
	ThreadStarted  bool
	RetiredThreads int
}

type SweepResult struct {
	Key            model.ChannelKey
	ClosedFlows    int
	RetiredThreads int
}

type SweepSummary struct {
	Channels       int
	ClosedFlows    int
	RetiredThreads int
}

type ConversationService interface {
	ProcessMessage(ctx context.Context, msg model.Message) (*ProcessResult, error)
	Sweep(ctx context.Context, key model.ChannelKey) (*SweepResult, error)
	SweepAll(ctx context.Context) (*SweepSummary, error)
}

// Clock returns the current time. Replays substitute one that follows
// message timestamps.
type Clock func() time.Time

type conversationService struct {
	engine     *Engine
	flows      store.FlowStateStore
	threads    store.ThreadStateStore
	narratives store.NarrativeStore
	locks      *keyedMutex
	clock      Clock
	logger     *slog.Logger
}

func NewConversationService(engine *Engine, stores store.Stores, clock Clock, logger *slog.Logger) ConversationService {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = time.Now
	}
	return &conversationService{
		engine:     engine,
		flows:      stores.Flows(),
		threads:    stores.Threads(),
		narratives: stores.Narratives(),
		locks:      newKeyedMutex(),
		clock:      clock,
		logger:     logger,
	}
}

func ValidateMessage(msg model.Message) error {
	switch {
	case msg.MessageID == "":
		return fmt.Errorf("%w: message_id is required", ErrInvalidMessage)
	case msg.UserID == "":
		return fmt.Errorf("%w: user_id is required", ErrInvalidMessage)
	case msg.GuildID == "":
		return fmt.Errorf("%w: guild_id is required", ErrInvalidMessage)
	case msg.ChannelID == "":
		return fmt.Errorf("%w: channel_id is required", ErrInvalidMessage)
	case msg.ReactionCount < 0:
		return fmt.Errorf("%w: reaction_count must not be negative", ErrInvalidMessage)
	}
	return nil
}

func (s *conversationService) ProcessMessage(ctx context.Context, msg model.Message) (*ProcessResult, error) {
	if err := ValidateMessage(msg); err != nil {
		return nil, err
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		GuildID:   &msg.GuildID,
		ChannelID: &msg.ChannelID,
		MessageID: &msg.MessageID,
		UserID:    &msg.UserID,
		Component: "pulse.service.conversation",
	})

	result := &ProcessResult{MessageID: msg.MessageID, Key: msg.Key()}
	if msg.IsBot {
		s.logger.DebugContext(ctx, "skipping bot message")
		result.Skipped = true
		return result, nil
	}

	elements := s.engine.Matcher.Match(msg.Text)
	scores := s.engine.Scorer.Score(scoring.MetaFor(msg), elements)
	analysis := model.Analysis{
		Message:         msg,
		Elements:        elements,
		Engagement:      scores.Engagement,
		ThreadPotential: scores.ThreadPotential,
		Influence:       scores.Influence,
	}
	result.Elements = elements
	result.Scores = scores

	unlock := s.locks.Lock("channel:" + msg.Key().String())
	defer unlock()

	flowState, err := s.loadFlowState(ctx, msg.Key())
	if err != nil {
		return nil, err
	}
	threadState, err := s.loadThreadState(ctx, msg.Key())
	if err != nil {
		return nil, err
	}

	flowDone := flowState.HasNode(msg.MessageID)
	threadDone := thread.HasMessage(threadState, msg.MessageID)

	if !msg.HasTimestamp() {
		s.logger.WarnContext(ctx, "message without timestamp kept out of flows and threads")
	}

	now := s.clock()

	// Each stage is skipped on its own so a retry after a partial save
	// completes the stages that did not persist.
	if !flowDone {
		node := s.engine.Builder.Build(msg, elements, scores)
		flowOut := s.engine.Assembler.Apply(flowState, node, now)
		if err := s.flows.Put(ctx, flowState); err != nil {
			return nil, fmt.Errorf("saving flow state: %w", err)
		}
		result.FlowID = flowOut.FlowID
		result.FlowStarted = flowOut.Started
		result.ClosedFlows = flowOut.Closed
	}

	if !threadDone {
		threadOut := s.engine.Tracker.Apply(threadState, thread.EntryFor(analysis), now)
		if err := s.threads.Put(ctx, threadState); err != nil {
			return nil, fmt.Errorf("saving thread state: %w", err)
		}
		result.ThreadID = threadOut.ThreadID
		result.ThreadStarted = threadOut.Started
		result.RetiredThreads = len(threadOut.Retired)
	}

	recorded, err := s.recordNarrative(ctx, msg.GuildID, narrative.EntryFor(analysis), now)
	if err != nil {
		return nil, err
	}

	if flowDone && threadDone && !recorded {
		s.logger.InfoContext(ctx, "duplicate message ignored")
		result.Duplicate = true
		return result, nil
	}

	s.logger.InfoContext(ctx, "message processed",
		"engagement_score", scores.Engagement,
		"thread_potential", scores.ThreadPotential,
		"influence_score", scores.Influence,
		"categories", len(elements),
		"flow_id", result.FlowID,
		"flow_started", result.FlowStarted,
		"closed_flows", len(result.ClosedFlows),
		"thread_id", result.ThreadID,
		"thread_started", result.ThreadStarted)

	return result, nil
}

// recordNarrative folds entry into the guild narrative unless it was already
// recorded. It reports whether anything changed.
func (s *conversationService) recordNarrative(ctx context.Context, guildID string, entry narrative.Entry, now time.Time) (bool, error) {
	unlock := s.locks.Lock("guild:" + guildID)
	defer unlock()

	n, err := s.narratives.Get(ctx, guildID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		n = model.NewGuildNarrative(guildID)
	case errors.Is(err, store.ErrCorruptState):
		s.logger.WarnContext(ctx, "guild narrative unreadable, starting fresh", "error", err)
		n = model.NewGuildNarrative(guildID)
	case err != nil:
		return false, fmt.Errorf("loading guild narrative: %w", err)
	}

	if narrative.HasMessage(n, entry.MessageID) {
		return false, nil
	}

	s.engine.Recorder.Record(n, entry, now)
	if err := s.narratives.Put(ctx, n); err != nil {
		return false, fmt.Errorf("saving guild narrative: %w", err)
	}
	return true, nil
}

func (s *conversationService) Sweep(ctx context.Context, key model.ChannelKey) (*SweepResult, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		GuildID:   &key.GuildID,
		ChannelID: &key.ChannelID,
		Component: "pulse.service.conversation",
	})

	unlock := s.locks.Lock("channel:" + key.String())
	defer unlock()

	now := s.clock()
	result := &SweepResult{Key: key}

	flowState, err := s.loadFlowState(ctx, key)
	if err != nil {
		return nil, err
	}
	if active := len(flowState.ActiveFlows); active > 0 {
		closed := s.engine.Assembler.Sweep(flowState, now)
		if len(flowState.ActiveFlows) != active {
			flowState.UpdatedAt = now
			if err := s.flows.Put(ctx, flowState); err != nil {
				return nil, fmt.Errorf("saving flow state: %w", err)
			}
		}
		result.ClosedFlows = len(closed)
	}

	threadState, err := s.loadThreadState(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(threadState.ActiveThreads) > 0 {
		retired := s.engine.Tracker.Sweep(threadState, now)
		if len(retired) > 0 {
			threadState.UpdatedAt = now
			if err := s.threads.Put(ctx, threadState); err != nil {
				return nil, fmt.Errorf("saving thread state: %w", err)
			}
		}
		result.RetiredThreads = len(retired)
	}

	if result.ClosedFlows > 0 || result.RetiredThreads > 0 {
		s.logger.InfoContext(ctx, "channel swept",
			"closed_flows", result.ClosedFlows,
			"retired_threads", result.RetiredThreads)
	}

	return result, nil
}

// SweepAll sweeps every channel that has flow or thread state. A failing
// channel does not stop the others; their errors are joined.
func (s *conversationService) SweepAll(ctx context.Context) (*SweepSummary, error) {
	flowKeys, err := s.flows.ListKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing flow channels: %w", err)
	}
	threadKeys, err := s.threads.ListKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing thread channels: %w", err)
	}

	seen := make(map[model.ChannelKey]struct{}, len(flowKeys)+len(threadKeys))
	var keys []model.ChannelKey
	for _, k := range append(flowKeys, threadKeys...) {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}

	summary := &SweepSummary{}
	var errs []error
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		res, err := s.Sweep(ctx, key)
		if err != nil {
			errs = append(errs, fmt.Errorf("sweeping %s: %w", key, err))
			continue
		}
		summary.Channels++
		summary.ClosedFlows += res.ClosedFlows
		summary.RetiredThreads += res.RetiredThreads
	}

	return summary, errors.Join(errs...)
}

// loadFlowState returns an empty state when none is saved or the saved one
// cannot be decoded. Other store errors are returned so the caller can retry.
func (s *conversationService) loadFlowState(ctx context.Context, key model.ChannelKey) (*model.ChannelFlowState, error) {
	state, err := s.flows.Get(ctx, key)
	switch {
	case err == nil:
		return state, nil
	case errors.Is(err, store.ErrNotFound):
		return model.NewChannelFlowState(key), nil
	case errors.Is(err, store.ErrCorruptState):
		s.logger.WarnContext(ctx, "flow state unreadable, starting fresh", "error", err)
		return model.NewChannelFlowState(key), nil
	default:
		return nil, fmt.Errorf("loading flow state: %w", err)
	}
}

func (s *conversationService) loadThreadState(ctx context.Context, key model.ChannelKey) (*model.ChannelThreadState, error) {
	state, err := s.threads.Get(ctx, key)
	switch {
	case err == nil:
		return state, nil
	case errors.Is(err, store.ErrNotFound):
		return model.NewChannelThreadState(key), nil
	case errors.Is(err, store.ErrCorruptState):
		s.logger.WarnContext(ctx, "thread state unreadable, starting fresh", "error", err)
		return model.NewChannelThreadState(key), nil
	default:
		return nil, fmt.Errorf("loading thread state: %w", err)
	}
}
