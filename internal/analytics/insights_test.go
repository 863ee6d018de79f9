package analytics_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/pulse/internal/analytics"
	"basegraph.app/pulse/internal/model"
)

var _ = Describe("Insights", func() {
	It("recommends everything for a quiet guild", func() {
		report := analytics.Insights(
			analytics.EngagementReport{GuildID: "g1", PeriodDays: 14, Mood: map[model.Mood]int{}},
			analytics.GuildThreadReport{GuildID: "g1"},
			analytics.GuildFlowReport{GuildID: "g1", FlowTypeDistribution: map[model.FlowType]int{}},
		)

		Expect(report.GuildID).To(Equal("g1"))
		Expect(report.PeriodDays).To(Equal(14))
		Expect(report.TopStoryteller).To(BeNil())
		Expect(report.DominantMood).To(BeEmpty())
		Expect(report.Complexity.Ratio).To(BeZero())
		Expect(report.Characteristics).To(BeEmpty())
		Expect(report.Recommendations).To(ConsistOf(
			"Consider hosting more interactive events",
			"Encourage topic-focused discussions",
			"Start conversation threads with questions",
		))
	})

	It("derives complexity, mood and characteristics from the rollups", func() {
		engagement := analytics.EngagementReport{
			GuildID:          "g1",
			PeriodDays:       7,
			EngagementEvents: 12,
			TopStorytellers:  []analytics.Ranked{{UserID: "alice", Score: 9}, {UserID: "bob", Score: 4}},
			TopThemes: []analytics.ThemeCount{
				{Theme: model.CategoryStoryStart, Count: 5},
				{Theme: model.CategorySupport, Count: 2},
			},
			Mood: map[model.Mood]int{
				model.MoodPositive: 3,
				model.MoodCurious:  3,
				model.MoodCreative: 1,
			},
		}
		threads := analytics.GuildThreadReport{GuildID: "g1", TotalActiveThreads: 4}
		flows := analytics.GuildFlowReport{
			GuildID:                    "g1",
			TotalCompletedFlows:        4,
			AverageEngagementIntensity: 0.8,
			AverageNarrativeCoherence:  0.6,
			FlowTypeDistribution: map[model.FlowType]int{
				model.FlowTypeLinear:    1,
				model.FlowTypeBranching: 2,
				model.FlowTypeParallel:  1,
			},
		}

		report := analytics.Insights(engagement, threads, flows)

		Expect(report.EngagementEvents).To(Equal(12))
		Expect(report.ActiveThreads).To(Equal(4))
		Expect(report.CompletedFlows).To(Equal(4))
		Expect(report.Storytellers).To(Equal(2))
		Expect(report.TopStoryteller).NotTo(BeNil())
		Expect(report.TopStoryteller.UserID).To(Equal("alice"))

		Expect(report.Complexity.TotalFlows).To(Equal(4))
		Expect(report.Complexity.ComplexFlows).To(Equal(2))
		Expect(report.Complexity.Ratio).To(Equal(0.5))

		// Ties on count break by name.
		Expect(report.DominantMood).To(Equal(model.MoodCurious))
		Expect(report.MoodDiversity).To(Equal(3))
		Expect(report.TotalMoodEvents).To(Equal(7))

		Expect(report.Characteristics).To(Equal([]string{"Strong storytelling culture", "Supportive environment"}))
		Expect(report.Recommendations).To(BeEmpty())
	})
})
