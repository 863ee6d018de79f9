package analytics

import (
	"sort"

	"basegraph.app/pulse/internal/model"
)

const (
	lowIntensity     = 0.3
	lowCoherence     = 0.4
	fewActiveThreads = 3
)

var complexFlowTypes = []model.FlowType{
	model.FlowTypeBranching,
	model.FlowTypeCircular,
	model.FlowTypeConvergent,
}

var characteristics = []struct {
	theme model.Category
	text  string
}{
	{model.CategoryStoryStart, "Strong storytelling culture"},
	{model.CategoryCommunityBuilding, "Active community building"},
	{model.CategorySupport, "Supportive environment"},
	{model.CategoryQuestions, "Curious and engaging"},
}

type Complexity struct {
	ComplexFlows     int     `json:"complex_flows"`
	TotalFlows       int     `json:"total_flows"`
	Ratio            float64 `json:"complexity_ratio"`
	AverageCoherence float64 `json:"average_coherence"`
	AverageIntensity float64 `json:"average_intensity"`
}

type InsightsReport struct {
	GuildID          string     `json:"guild_id"`
	PeriodDays       int        `json:"period_days"`
	EngagementEvents int        `json:"engagement_events"`
	ActiveThreads    int        `json:"active_threads"`
	CompletedFlows   int        `json:"completed_flows"`
	TopStoryteller   *Ranked    `json:"top_storyteller,omitempty"`
	Storytellers     int        `json:"storytellers"`
	Complexity       Complexity `json:"complexity"`
	DominantMood     model.Mood `json:"dominant_mood,omitempty"`
	MoodDiversity    int        `json:"mood_diversity"`
	TotalMoodEvents  int        `json:"total_mood_events"`
	Characteristics  []string   `json:"community_characteristics"`
	Recommendations  []string   `json:"growth_recommendations"`
}

// Insights derives community-level observations from the three rollups.
func Insights(engagement EngagementReport, threads GuildThreadReport, flows GuildFlowReport) InsightsReport {
	report := InsightsReport{
		GuildID:          engagement.GuildID,
		PeriodDays:       engagement.PeriodDays,
		EngagementEvents: engagement.EngagementEvents,
		ActiveThreads:    threads.TotalActiveThreads,
		CompletedFlows:   flows.TotalCompletedFlows,
		Storytellers:     len(engagement.TopStorytellers),
		Characteristics:  []string{},
		Recommendations:  []string{},
	}

	if len(engagement.TopStorytellers) > 0 {
		top := engagement.TopStorytellers[0]
		report.TopStoryteller = &top
	}

	c := Complexity{
		AverageCoherence: flows.AverageNarrativeCoherence,
		AverageIntensity: flows.AverageEngagementIntensity,
	}
	for _, count := range flows.FlowTypeDistribution {
		c.TotalFlows += count
	}
	for _, t := range complexFlowTypes {
		c.ComplexFlows += flows.FlowTypeDistribution[t]
	}
	if c.TotalFlows > 0 {
		c.Ratio = round2(float64(c.ComplexFlows) / float64(c.TotalFlows))
	}
	report.Complexity = c

	moods := make([]model.Mood, 0, len(engagement.Mood))
	for m, count := range engagement.Mood {
		moods = append(moods, m)
		report.TotalMoodEvents += count
	}
	sort.Slice(moods, func(i, j int) bool {
		a, b := engagement.Mood[moods[i]], engagement.Mood[moods[j]]
		if a != b {
			return a > b
		}
		return moods[i] < moods[j]
	})
	report.MoodDiversity = len(moods)
	if len(moods) > 0 {
		report.DominantMood = moods[0]
	}

	themes := map[model.Category]bool{}
	for _, t := range engagement.TopThemes {
		themes[t.Theme] = true
	}
	for _, ch := range characteristics {
		if themes[ch.theme] {
			report.Characteristics = append(report.Characteristics, ch.text)
		}
	}

	if flows.AverageEngagementIntensity < lowIntensity {
		report.Recommendations = append(report.Recommendations, "Consider hosting more interactive events")
	}
	if flows.AverageNarrativeCoherence < lowCoherence {
		report.Recommendations = append(report.Recommendations, "Encourage topic-focused discussions")
	}
	if threads.TotalActiveThreads < fewActiveThreads {
		report.Recommendations = append(report.Recommendations, "Start conversation threads with questions")
	}
	return report
}
