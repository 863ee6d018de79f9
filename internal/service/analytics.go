package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"basegraph.app/pulse/internal/analytics"
	"basegraph.app/pulse/internal/model"
	"basegraph.app/pulse/internal/store"
)

// ErrNoData is returned when a guild has no recorded engagement yet.
var ErrNoData = errors.New("no engagement data")

const (
	DefaultEngagementDays = 7
	DefaultInsightsDays   = 14
)

// FlowAnalytics holds exactly one of the two reports, depending on whether a
// channel was requested.
type FlowAnalytics struct {
	Channel *analytics.ChannelFlowReport `json:"channel,omitempty"`
	Guild   *analytics.GuildFlowReport   `json:"guild,omitempty"`
}

type ThreadAnalytics struct {
	Channel *analytics.ChannelThreadReport `json:"channel,omitempty"`
	Guild   *analytics.GuildThreadReport   `json:"guild,omitempty"`
}

type AnalyticsService interface {
	FlowAnalytics(ctx context.Context, guildID, channelID string) (*FlowAnalytics, error)
	ThreadSummary(ctx context.Context, guildID, channelID string) (*ThreadAnalytics, error)
	EngagementSummary(ctx context.Context, guildID string, days int) (*analytics.EngagementReport, error)
	Leaderboard(ctx context.Context, guildID, category string, limit int) (*analytics.LeaderboardReport, error)
	Insights(ctx context.Context, guildID string, days int) (*analytics.InsightsReport, error)
}

type analyticsService struct {
	flows      store.FlowStateStore
	threads    store.ThreadStateStore
	narratives store.NarrativeStore
	clock      Clock
	logger     *slog.Logger
}

func NewAnalyticsService(stores store.Stores, clock Clock, logger *slog.Logger) AnalyticsService {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = time.Now
	}
	return &analyticsService{
		flows:      stores.Flows(),
		threads:    stores.Threads(),
		narratives: stores.Narratives(),
		clock:      clock,
		logger:     logger,
	}
}

func (s *analyticsService) FlowAnalytics(ctx context.Context, guildID, channelID string) (*FlowAnalytics, error) {
	if channelID != "" {
		key := model.ChannelKey{GuildID: guildID, ChannelID: channelID}
		state, err := s.flows.Get(ctx, key)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) && !errors.Is(err, store.ErrCorruptState) {
				return nil, fmt.Errorf("loading flow state: %w", err)
			}
			state = model.NewChannelFlowState(key)
		}
		report := analytics.ChannelFlows(state)
		return &FlowAnalytics{Channel: &report}, nil
	}

	states, err := s.flows.ListByGuild(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("listing flow states: %w", err)
	}
	report := analytics.GuildFlows(guildID, states)
	return &FlowAnalytics{Guild: &report}, nil
}

func (s *analyticsService) ThreadSummary(ctx context.Context, guildID, channelID string) (*ThreadAnalytics, error) {
	if channelID != "" {
		key := model.ChannelKey{GuildID: guildID, ChannelID: channelID}
		state, err := s.threads.Get(ctx, key)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) && !errors.Is(err, store.ErrCorruptState) {
				return nil, fmt.Errorf("loading thread state: %w", err)
			}
			state = model.NewChannelThreadState(key)
		}
		report := analytics.ChannelThreads(state)
		return &ThreadAnalytics{Channel: &report}, nil
	}

	states, err := s.threads.ListByGuild(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("listing thread states: %w", err)
	}
	report := analytics.GuildThreads(guildID, states)
	return &ThreadAnalytics{Guild: &report}, nil
}

func (s *analyticsService) EngagementSummary(ctx context.Context, guildID string, days int) (*analytics.EngagementReport, error) {
	if days <= 0 {
		days = DefaultEngagementDays
	}
	n, err := s.narrative(ctx, guildID)
	if err != nil {
		return nil, err
	}
	report := analytics.Engagement(n, days, s.clock())
	return &report, nil
}

func (s *analyticsService) Leaderboard(ctx context.Context, guildID, category string, limit int) (*analytics.LeaderboardReport, error) {
	cat, err := analytics.ParseLeaderboardCategory(category)
	if err != nil {
		return nil, err
	}
	n, err := s.narrative(ctx, guildID)
	if err != nil {
		return nil, err
	}

	var threads []*model.ChannelThreadState
	if cat == analytics.LeaderboardStarters {
		threads, err = s.threads.ListByGuild(ctx, guildID)
		if err != nil {
			return nil, fmt.Errorf("listing thread states: %w", err)
		}
	}

	report := analytics.Leaderboard(n, threads, cat, limit)
	return &report, nil
}

func (s *analyticsService) Insights(ctx context.Context, guildID string, days int) (*analytics.InsightsReport, error) {
	engagement, err := s.EngagementSummary(ctx, guildID, defaultDays(days, DefaultInsightsDays))
	if err != nil {
		return nil, err
	}

	threadStates, err := s.threads.ListByGuild(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("listing thread states: %w", err)
	}
	flowStates, err := s.flows.ListByGuild(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("listing flow states: %w", err)
	}

	report := analytics.Insights(*engagement,
		analytics.GuildThreads(guildID, threadStates),
		analytics.GuildFlows(guildID, flowStates))
	return &report, nil
}

func (s *analyticsService) narrative(ctx context.Context, guildID string) (*model.GuildNarrative, error) {
	n, err := s.narratives.Get(ctx, guildID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNoData
		}
		if errors.Is(err, store.ErrCorruptState) {
			s.logger.WarnContext(ctx, "guild narrative unreadable", "guild_id", guildID, "error", err)
			return nil, ErrNoData
		}
		return nil, fmt.Errorf("loading guild narrative: %w", err)
	}
	if n.Empty() {
		return nil, ErrNoData
	}
	return n, nil
}

func defaultDays(days, fallback int) int {
	if days <= 0 {
		return fallback
	}
	return days
}
