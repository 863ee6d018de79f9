package model

import "time"

// Mood is the community mood a narrative category contributes to.
type Mood string

const (
	MoodEmotional     Mood = "emotional"
	MoodPositive      Mood = "positive"
	MoodSupportive    Mood = "supportive"
	MoodCollaborative Mood = "collaborative"
	MoodCurious       Mood = "curious"
	MoodCreative      Mood = "creative"
)

type TrendPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Score     float64   `json:"score"`
	UserID    string    `json:"user_id"`
}

type UserEngagement struct {
	Messages               int     `json:"messages"`
	EngagementScore        float64 `json:"engagement_score"`
	NarrativeContributions int     `json:"narrative_contributions"`
}

// GuildNarrative holds guild-wide narrative and engagement aggregates.
type GuildNarrative struct {
	GuildID         string                    `json:"guild_id"`
	Themes          map[Category]int          `json:"themes"`
	Storytellers    map[string]float64        `json:"storytellers"`
	Trends          []TrendPoint              `json:"trends"`
	Mood            map[Mood]int              `json:"mood"`
	TotalMessages   int                       `json:"total_messages"`
	TotalEngagement float64                   `json:"total_engagement"`
	Users           map[string]UserEngagement `json:"users"`
	RecentMessages  RecentIDs                 `json:"recent_messages,omitempty"`
	UpdatedAt       time.Time                 `json:"updated_at"`
}

func NewGuildNarrative(guildID string) *GuildNarrative {
	return &GuildNarrative{
		GuildID:      guildID,
		Themes:       map[Category]int{},
		Storytellers: map[string]float64{},
		Mood:         map[Mood]int{},
		Users:        map[string]UserEngagement{},
	}
}

// Empty reports whether nothing has been recorded for the guild yet.
func (g *GuildNarrative) Empty() bool {
	return g.TotalMessages == 0 && len(g.Trends) == 0
}
