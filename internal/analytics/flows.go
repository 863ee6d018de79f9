// Package analytics computes read-only rollups over persisted flow, thread
// and narrative state. Nothing here mutates its input or caches results.
package analytics

import (
	"math"
	"sort"
	"time"

	"basegraph.app/pulse/internal/model"
)

const (
	channelRecentFlows = 5
	guildRecentFlows   = 10
)

type FlowSummary struct {
	FlowID              string         `json:"flow_id"`
	FlowType            model.FlowType `json:"flow_type"`
	StartNode           string         `json:"start_node"`
	EndNodes            []string       `json:"end_nodes"`
	Participants        []string       `json:"participants"`
	NodeCount           int            `json:"node_count"`
	DurationMinutes     int            `json:"duration_minutes"`
	EngagementIntensity float64        `json:"engagement_intensity"`
	NarrativeCoherence  float64        `json:"narrative_coherence"`
	StartTime           time.Time      `json:"start_time"`
	ClosedAt            time.Time      `json:"closed_at"`
}

func SummarizeFlow(f model.ConversationFlow) FlowSummary {
	return FlowSummary{
		FlowID:              f.FlowID,
		FlowType:            f.FlowType,
		StartNode:           f.StartNode,
		EndNodes:            f.EndNodes,
		Participants:        f.Participants.Sorted(),
		NodeCount:           len(f.Nodes),
		DurationMinutes:     f.DurationMinutes,
		EngagementIntensity: round2(f.EngagementIntensity),
		NarrativeCoherence:  round2(f.NarrativeCoherence),
		StartTime:           f.StartTime,
		ClosedAt:            f.ClosedAt,
	}
}

type ChannelFlowReport struct {
	GuildID        string               `json:"guild_id"`
	ChannelID      string               `json:"channel_id"`
	ActiveFlows    int                  `json:"active_flows"`
	CompletedFlows int                  `json:"completed_flows"`
	Statistics     model.FlowStatistics `json:"statistics"`
	RecentFlows    []FlowSummary        `json:"recent_flows"`
}

// ChannelFlows reports one channel, including its last five completed flows.
func ChannelFlows(state *model.ChannelFlowState) ChannelFlowReport {
	report := ChannelFlowReport{
		GuildID:        state.Key.GuildID,
		ChannelID:      state.Key.ChannelID,
		ActiveFlows:    len(state.ActiveFlows),
		CompletedFlows: len(state.CompletedFlows),
		Statistics:     state.Statistics,
		RecentFlows:    []FlowSummary{},
	}
	report.Statistics.AvgDuration = round2(report.Statistics.AvgDuration)
	report.Statistics.HighestEngagement = round2(report.Statistics.HighestEngagement)

	start := max(0, len(state.CompletedFlows)-channelRecentFlows)
	for _, f := range state.CompletedFlows[start:] {
		report.RecentFlows = append(report.RecentFlows, SummarizeFlow(f))
	}
	return report
}

type GuildFlowReport struct {
	GuildID                    string                 `json:"guild_id"`
	TotalActiveFlows           int                    `json:"total_active_flows"`
	TotalCompletedFlows        int                    `json:"total_completed_flows"`
	ChannelsWithFlows          int                    `json:"channels_with_flows"`
	AverageDurationMinutes     float64                `json:"average_duration_minutes"`
	AverageEngagementIntensity float64                `json:"average_engagement_intensity"`
	AverageNarrativeCoherence  float64                `json:"average_narrative_coherence"`
	FlowTypeDistribution       map[model.FlowType]int `json:"flow_type_distribution"`
	RecentFlows                []FlowSummary          `json:"recent_flows"`
}

// GuildFlows aggregates every channel of a guild.
func GuildFlows(guildID string, states []*model.ChannelFlowState) GuildFlowReport {
	report := GuildFlowReport{
		GuildID:              guildID,
		FlowTypeDistribution: map[model.FlowType]int{},
		RecentFlows:          []FlowSummary{},
	}

	var all []model.ConversationFlow
	for _, s := range states {
		report.TotalActiveFlows += len(s.ActiveFlows)
		report.TotalCompletedFlows += len(s.CompletedFlows)
		if len(s.ActiveFlows) > 0 || len(s.CompletedFlows) > 0 {
			report.ChannelsWithFlows++
		}
		all = append(all, s.CompletedFlows...)
	}
	if len(all) == 0 {
		return report
	}

	var duration, intensity, coherence float64
	for _, f := range all {
		duration += float64(f.DurationMinutes)
		intensity += f.EngagementIntensity
		coherence += f.NarrativeCoherence
		report.FlowTypeDistribution[f.FlowType]++
	}
	n := float64(len(all))
	report.AverageDurationMinutes = round2(duration / n)
	report.AverageEngagementIntensity = round2(intensity / n)
	report.AverageNarrativeCoherence = round2(coherence / n)

	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].StartTime.Equal(all[j].StartTime) {
			return all[i].StartTime.Before(all[j].StartTime)
		}
		return all[i].FlowID < all[j].FlowID
	})
	for _, f := range all[max(0, len(all)-guildRecentFlows):] {
		report.RecentFlows = append(report.RecentFlows, SummarizeFlow(f))
	}
	return report
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
