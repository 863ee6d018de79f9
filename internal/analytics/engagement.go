package analytics

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"basegraph.app/pulse/internal/model"
)

const (
	topStorytellers = 5
	topThemes       = 5

	DefaultLeaderboardLimit = 10
)

var ErrUnknownLeaderboard = errors.New("unknown leaderboard category")

type Ranked struct {
	UserID string  `json:"user_id"`
	Score  float64 `json:"score"`
}

type ThemeCount struct {
	Theme model.Category `json:"theme"`
	Count int            `json:"count"`
}

type EngagementReport struct {
	GuildID           string             `json:"guild_id"`
	PeriodDays        int                `json:"period_days"`
	TotalEngagement   float64            `json:"total_engagement"`
	AverageEngagement float64            `json:"average_engagement"`
	EngagementEvents  int                `json:"engagement_events"`
	TopStorytellers   []Ranked           `json:"top_storytellers"`
	TopThemes         []ThemeCount       `json:"top_narrative_themes"`
	Mood              map[model.Mood]int `json:"community_mood"`
}

// Engagement summarises trend points newer than days before now, alongside
// the all-time storytellers, themes and mood.
func Engagement(n *model.GuildNarrative, days int, now time.Time) EngagementReport {
	report := EngagementReport{
		GuildID:         n.GuildID,
		PeriodDays:      days,
		TopStorytellers: []Ranked{},
		TopThemes:       []ThemeCount{},
		Mood:            map[model.Mood]int{},
	}

	cutoff := now.AddDate(0, 0, -days)
	for _, t := range n.Trends {
		if t.Timestamp.After(cutoff) {
			report.TotalEngagement += t.Score
			report.EngagementEvents++
		}
	}
	if report.EngagementEvents > 0 {
		report.AverageEngagement = round2(report.TotalEngagement / float64(report.EngagementEvents))
	}
	report.TotalEngagement = round2(report.TotalEngagement)

	for user, score := range n.Storytellers {
		report.TopStorytellers = append(report.TopStorytellers, Ranked{UserID: user, Score: round2(score)})
	}
	sortRanked(report.TopStorytellers)
	report.TopStorytellers = report.TopStorytellers[:min(topStorytellers, len(report.TopStorytellers))]

	for theme, count := range n.Themes {
		report.TopThemes = append(report.TopThemes, ThemeCount{Theme: theme, Count: count})
	}
	sort.Slice(report.TopThemes, func(i, j int) bool {
		a, b := report.TopThemes[i], report.TopThemes[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Theme < b.Theme
	})
	report.TopThemes = report.TopThemes[:min(topThemes, len(report.TopThemes))]

	for m, count := range n.Mood {
		report.Mood[m] = count
	}
	return report
}

type LeaderboardCategory string

const (
	LeaderboardEngagement    LeaderboardCategory = "engagement"
	LeaderboardStorytelling  LeaderboardCategory = "storytelling"
	LeaderboardStarters      LeaderboardCategory = "starters"
	LeaderboardParticipation LeaderboardCategory = "participation"
)

func ParseLeaderboardCategory(s string) (LeaderboardCategory, error) {
	switch c := LeaderboardCategory(s); c {
	case LeaderboardEngagement, LeaderboardStorytelling, LeaderboardStarters, LeaderboardParticipation:
		return c, nil
	case "":
		return LeaderboardEngagement, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownLeaderboard, s)
	}
}

type LeaderboardEntry struct {
	Rank   int     `json:"rank"`
	UserID string  `json:"user_id"`
	Score  float64 `json:"score"`
}

type LeaderboardReport struct {
	GuildID           string              `json:"guild_id"`
	Category          LeaderboardCategory `json:"category"`
	Metric            string              `json:"metric"`
	Entries           []LeaderboardEntry  `json:"entries"`
	TotalUsers        int                 `json:"total_users"`
	AverageEngagement float64             `json:"average_engagement"`
	TotalEngagement   float64             `json:"total_engagement"`
}

// Leaderboard ranks users of the guild. Starters counts the threads each user
// opened, across active and historical threads.
func Leaderboard(n *model.GuildNarrative, threads []*model.ChannelThreadState, category LeaderboardCategory, limit int) LeaderboardReport {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}

	report := LeaderboardReport{
		GuildID:    n.GuildID,
		Category:   category,
		Entries:    []LeaderboardEntry{},
		TotalUsers: len(n.Users),
	}

	var ranked []Ranked
	switch category {
	case LeaderboardStorytelling:
		report.Metric = "narrative_contributions"
		for user, u := range n.Users {
			ranked = append(ranked, Ranked{UserID: user, Score: float64(u.NarrativeContributions)})
		}
	case LeaderboardStarters:
		report.Metric = "threads_started"
		started := map[string]int{}
		for _, s := range threads {
			for _, t := range s.ActiveThreads {
				started[t.Starter]++
			}
			for _, t := range s.History {
				started[t.Starter]++
			}
		}
		for user, count := range started {
			ranked = append(ranked, Ranked{UserID: user, Score: float64(count)})
		}
	case LeaderboardParticipation:
		report.Metric = "messages"
		for user, u := range n.Users {
			ranked = append(ranked, Ranked{UserID: user, Score: float64(u.Messages)})
		}
	default:
		report.Metric = "engagement_score"
		for user, u := range n.Users {
			ranked = append(ranked, Ranked{UserID: user, Score: u.EngagementScore})
		}
	}

	sortRanked(ranked)
	for i, r := range ranked[:min(limit, len(ranked))] {
		report.Entries = append(report.Entries, LeaderboardEntry{Rank: i + 1, UserID: r.UserID, Score: round2(r.Score)})
	}

	var total float64
	for _, u := range n.Users {
		total += u.EngagementScore
	}
	report.TotalEngagement = round2(total)
	if report.TotalUsers > 0 {
		report.AverageEngagement = round2(total / float64(report.TotalUsers))
	}
	return report
}

func sortRanked(r []Ranked) {
	sort.Slice(r, func(i, j int) bool {
		if r[i].Score != r[j].Score {
			return r[i].Score > r[j].Score
		}
		return r[i].UserID < r[j].UserID
	})
}
