// Package narrative keeps guild-wide narrative themes, storyteller scores,
// engagement trends, community mood and the per-user engagement ledger.
package narrative

import (
	"time"

	"basegraph.app/pulse/internal/model"
)

const (
	DefaultTrendCap  = 100
	DefaultRecentCap = 500
)

var moods = map[model.Category]model.Mood{
	model.CategoryEmotionalMoments:  model.MoodEmotional,
	model.CategoryCelebration:       model.MoodPositive,
	model.CategorySupport:           model.MoodSupportive,
	model.CategoryCommunityBuilding: model.MoodCollaborative,
	model.CategoryQuestions:         model.MoodCurious,
	model.CategoryStoryStart:        model.MoodCreative,
}

// MoodFor returns the mood a category contributes to, if any.
func MoodFor(c model.Category) (model.Mood, bool) {
	m, ok := moods[c]
	return m, ok
}

type Entry struct {
	MessageID       string
	UserID          string
	Timestamp       time.Time
	Elements        model.NarrativeElements
	EngagementScore float64
}

func EntryFor(a model.Analysis) Entry {
	return Entry{
		MessageID:       a.Message.MessageID,
		UserID:          a.Message.UserID,
		Timestamp:       a.Message.Timestamp,
		Elements:        a.Elements,
		EngagementScore: a.Engagement,
	}
}

type Recorder struct {
	trendCap int
}

func NewRecorder(trendCap int) *Recorder {
	if trendCap <= 0 {
		trendCap = DefaultTrendCap
	}
	return &Recorder{trendCap: trendCap}
}

// Record folds one analyzed message into the guild narrative. Entries
// without a timestamp are trended at now.
func (r *Recorder) Record(state *model.GuildNarrative, entry Entry, now time.Time) {
	ensureMaps(state)

	categories := entry.Elements.Categories()
	for _, c := range categories {
		state.Themes[c]++
		if m, ok := moods[c]; ok {
			state.Mood[m]++
		}
	}

	state.Storytellers[entry.UserID] += entry.EngagementScore

	ts := entry.Timestamp
	if ts.IsZero() {
		ts = now
	}
	state.Trends = append(state.Trends, model.TrendPoint{
		Timestamp: ts,
		Score:     entry.EngagementScore,
		UserID:    entry.UserID,
	})
	if over := len(state.Trends) - r.trendCap; over > 0 {
		state.Trends = append([]model.TrendPoint(nil), state.Trends[over:]...)
	}

	state.TotalMessages++
	state.TotalEngagement += entry.EngagementScore

	user := state.Users[entry.UserID]
	user.Messages++
	user.EngagementScore += entry.EngagementScore
	if len(categories) > 0 {
		user.NarrativeContributions++
	}
	state.Users[entry.UserID] = user

	if entry.MessageID != "" {
		state.RecentMessages = state.RecentMessages.Add(entry.MessageID, DefaultRecentCap)
	}
	state.UpdatedAt = now
}

// HasMessage reports whether messageID was recently recorded for the guild.
func HasMessage(state *model.GuildNarrative, messageID string) bool {
	return state.RecentMessages.Contains(messageID)
}

func ensureMaps(state *model.GuildNarrative) {
	if state.Themes == nil {
		state.Themes = map[model.Category]int{}
	}
	if state.Storytellers == nil {
		state.Storytellers = map[string]float64{}
	}
	if state.Mood == nil {
		state.Mood = map[model.Mood]int{}
	}
	if state.Users == nil {
		state.Users = map[string]model.UserEngagement{}
	}
}
