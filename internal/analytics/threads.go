package analytics

import (
	"sort"
	"time"

	"basegraph.app/pulse/internal/model"
)

const topThreads = 5

type ThreadSummary struct {
	ThreadID       string           `json:"thread_id"`
	ThreadType     model.ThreadType `json:"thread_type"`
	Starter        string           `json:"starter"`
	Participants   []string         `json:"participants"`
	MessageCount   int              `json:"message_count"`
	NarrativeScore float64          `json:"narrative_score"`
	StartTime      time.Time        `json:"start_time"`
	LastActivity   time.Time        `json:"last_activity"`
	EndTime        *time.Time       `json:"end_time,omitempty"`
}

func SummarizeThread(t model.ConversationThread) ThreadSummary {
	return ThreadSummary{
		ThreadID:       t.ThreadID,
		ThreadType:     t.ThreadType,
		Starter:        t.Starter,
		Participants:   t.Participants.Sorted(),
		MessageCount:   len(t.Messages),
		NarrativeScore: round2(t.NarrativeScore),
		StartTime:      t.StartTime,
		LastActivity:   t.LastActivity,
		EndTime:        t.EndTime,
	}
}

type ChannelThreadReport struct {
	GuildID           string          `json:"guild_id"`
	ChannelID         string          `json:"channel_id"`
	ActiveThreads     int             `json:"active_threads"`
	HistoricalThreads int             `json:"historical_threads"`
	Threads           []ThreadSummary `json:"threads"`
}

// ChannelThreads reports one channel and lists its active threads.
func ChannelThreads(state *model.ChannelThreadState) ChannelThreadReport {
	report := ChannelThreadReport{
		GuildID:           state.Key.GuildID,
		ChannelID:         state.Key.ChannelID,
		ActiveThreads:     len(state.ActiveThreads),
		HistoricalThreads: len(state.History),
		Threads:           []ThreadSummary{},
	}
	for _, t := range state.ActiveThreads {
		report.Threads = append(report.Threads, SummarizeThread(t))
	}
	return report
}

type GuildThreadReport struct {
	GuildID                string                   `json:"guild_id"`
	TotalActiveThreads     int                      `json:"total_active_threads"`
	TotalHistoricalThreads int                      `json:"total_historical_threads"`
	ChannelsWithThreads    int                      `json:"channels_with_threads"`
	ThreadTypeDistribution map[model.ThreadType]int `json:"thread_type_distribution"`
	TopThreads             []ThreadSummary          `json:"top_threads"`
}

// GuildThreads aggregates every channel of a guild. Top threads are ranked by
// narrative score over active and historical threads.
func GuildThreads(guildID string, states []*model.ChannelThreadState) GuildThreadReport {
	report := GuildThreadReport{
		GuildID:                guildID,
		ThreadTypeDistribution: map[model.ThreadType]int{},
		TopThreads:             []ThreadSummary{},
	}

	var all []model.ConversationThread
	for _, s := range states {
		report.TotalActiveThreads += len(s.ActiveThreads)
		report.TotalHistoricalThreads += len(s.History)
		if len(s.ActiveThreads) > 0 || len(s.History) > 0 {
			report.ChannelsWithThreads++
		}
		all = append(all, s.ActiveThreads...)
		all = append(all, s.History...)
	}

	for _, t := range all {
		report.ThreadTypeDistribution[t.ThreadType]++
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].NarrativeScore != all[j].NarrativeScore {
			return all[i].NarrativeScore > all[j].NarrativeScore
		}
		return all[i].ThreadID < all[j].ThreadID
	})
	for _, t := range all[:min(topThreads, len(all))] {
		report.TopThreads = append(report.TopThreads, SummarizeThread(t))
	}
	return report
}
