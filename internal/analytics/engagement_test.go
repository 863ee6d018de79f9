package analytics_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/pulse/internal/analytics"
	"basegraph.app/pulse/internal/model"
)

func guildNarrative() *model.GuildNarrative {
	n := model.NewGuildNarrative("g1")
	n.Trends = []model.TrendPoint{
		{Timestamp: t0.AddDate(0, 0, -10), Score: 9, UserID: "u1"},
		{Timestamp: t0.AddDate(0, 0, -2), Score: 2, UserID: "u1"},
		{Timestamp: t0.Add(-time.Hour), Score: 1.333, UserID: "u2"},
	}
	n.Storytellers = map[string]float64{"u1": 11, "u2": 1.333, "u3": 4, "u4": 4, "u5": 0.5, "u6": 0.1}
	n.Themes = map[model.Category]int{
		model.CategoryQuestions:  3,
		model.CategoryStoryStart: 5,
		model.CategorySupport:    3,
		model.CategoryAgreement:  1,
		model.CategoryTopicShift: 1,
		model.CategoryConclusion: 1,
	}
	n.Mood = map[model.Mood]int{model.MoodCurious: 3, model.MoodCreative: 5, model.MoodSupportive: 3}
	n.Users = map[string]model.UserEngagement{
		"u1": {Messages: 2, EngagementScore: 11, NarrativeContributions: 1},
		"u2": {Messages: 5, EngagementScore: 1.333, NarrativeContributions: 3},
		"u3": {Messages: 1, EngagementScore: 4, NarrativeContributions: 1},
	}
	n.TotalMessages = 8
	return n
}

var _ = Describe("Engagement", func() {
	It("summarises the period and the all-time rankings", func() {
		report := analytics.Engagement(guildNarrative(), 7, t0)

		Expect(report.EngagementEvents).To(Equal(2))
		Expect(report.TotalEngagement).To(Equal(3.33))
		Expect(report.AverageEngagement).To(Equal(1.67))
		Expect(report.TopStorytellers).To(Equal([]analytics.Ranked{
			{UserID: "u1", Score: 11},
			{UserID: "u3", Score: 4},
			{UserID: "u4", Score: 4},
			{UserID: "u2", Score: 1.33},
			{UserID: "u5", Score: 0.5},
		}))
		Expect(report.TopThemes).To(HaveLen(5))
		Expect(report.TopThemes[0]).To(Equal(analytics.ThemeCount{Theme: model.CategoryStoryStart, Count: 5}))
		Expect(report.TopThemes[1].Theme).To(Equal(model.CategoryQuestions))
		Expect(report.TopThemes[2].Theme).To(Equal(model.CategorySupport))
		Expect(report.Mood).To(HaveLen(3))
	})

	It("reports zero averages for a quiet period", func() {
		report := analytics.Engagement(guildNarrative(), 7, t0.AddDate(1, 0, 0))

		Expect(report.EngagementEvents).To(BeZero())
		Expect(report.AverageEngagement).To(BeZero())
	})
})

var _ = Describe("Leaderboard", func() {
	DescribeTable("ranks users per category",
		func(category analytics.LeaderboardCategory, metric string, first string, firstScore float64) {
			threads := model.NewChannelThreadState(model.ChannelKey{GuildID: "g1", ChannelID: "c1"})
			threads.ActiveThreads = []model.ConversationThread{{ThreadID: "t1", Starter: "u3"}}
			threads.History = []model.ConversationThread{{ThreadID: "t0", Starter: "u3"}, {ThreadID: "t2", Starter: "u1"}}

			report := analytics.Leaderboard(guildNarrative(), []*model.ChannelThreadState{threads}, category, 2)

			Expect(report.Metric).To(Equal(metric))
			Expect(report.Entries).To(HaveLen(2))
			Expect(report.Entries[0]).To(Equal(analytics.LeaderboardEntry{Rank: 1, UserID: first, Score: firstScore}))
			Expect(report.TotalUsers).To(Equal(3))
			Expect(report.TotalEngagement).To(Equal(16.33))
			Expect(report.AverageEngagement).To(Equal(5.44))
		},
		Entry("engagement", analytics.LeaderboardEngagement, "engagement_score", "u1", 11.0),
		Entry("storytelling", analytics.LeaderboardStorytelling, "narrative_contributions", "u2", 3.0),
		Entry("starters", analytics.LeaderboardStarters, "threads_started", "u3", 2.0),
		Entry("participation", analytics.LeaderboardParticipation, "messages", "u2", 5.0),
	)

	It("parses categories", func() {
		c, err := analytics.ParseLeaderboardCategory("")
		Expect(err).NotTo(HaveOccurred())
		Expect(c).To(Equal(analytics.LeaderboardEngagement))

		_, err = analytics.ParseLeaderboardCategory("karma")
		Expect(err).To(MatchError(analytics.ErrUnknownLeaderboard))
	})
})

var _ = Describe("Insights", func() {
	It("derives characteristics and recommendations", func() {
		engagement := analytics.Engagement(guildNarrative(), 14, t0)
		threads := analytics.GuildThreadReport{TotalActiveThreads: 1}
		flows := analytics.GuildFlowReport{
			TotalCompletedFlows:        4,
			AverageEngagementIntensity: 0.5,
			AverageNarrativeCoherence:  0.2,
			FlowTypeDistribution: map[model.FlowType]int{
				model.FlowTypeLinear:    1,
				model.FlowTypeBranching: 2,
				model.FlowTypeCircular:  1,
			},
		}

		report := analytics.Insights(engagement, threads, flows)

		Expect(report.TopStoryteller).To(Equal(&analytics.Ranked{UserID: "u1", Score: 11}))
		Expect(report.Complexity.ComplexFlows).To(Equal(3))
		Expect(report.Complexity.TotalFlows).To(Equal(4))
		Expect(report.Complexity.Ratio).To(Equal(0.75))
		Expect(report.DominantMood).To(Equal(model.MoodCreative))
		Expect(report.MoodDiversity).To(Equal(3))
		Expect(report.TotalMoodEvents).To(Equal(11))
		Expect(report.Characteristics).To(Equal([]string{
			"Strong storytelling culture",
			"Supportive environment",
			"Curious and engaging",
		}))
		Expect(report.Recommendations).To(Equal([]string{
			"Encourage topic-focused discussions",
			"Start conversation threads with questions",
		}))
	})

	It("handles a guild with nothing recorded", func() {
		report := analytics.Insights(analytics.EngagementReport{}, analytics.GuildThreadReport{}, analytics.GuildFlowReport{})

		Expect(report.TopStoryteller).To(BeNil())
		Expect(report.DominantMood).To(BeEmpty())
		Expect(report.Complexity.Ratio).To(BeZero())
		Expect(report.Recommendations).To(HaveLen(3))
	})
})
