package analytics_test

import (
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/pulse/internal/analytics"
	"basegraph.app/pulse/internal/model"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func completed(id string, start time.Time, kind model.FlowType, duration int, intensity, coherence float64) model.ConversationFlow {
	return model.ConversationFlow{
		FlowID:              id,
		StartNode:           id + "-start",
		FlowType:            kind,
		Participants:        model.NewParticipantSet("u2", "u1"),
		DurationMinutes:     duration,
		EngagementIntensity: intensity,
		NarrativeCoherence:  coherence,
		StartTime:           start,
	}
}

var _ = Describe("Flow analytics", func() {
	Describe("ChannelFlows", func() {
		It("reports counts and the last five flows", func() {
			state := model.NewChannelFlowState(model.ChannelKey{GuildID: "g1", ChannelID: "c1"})
			state.ActiveFlows = []model.ActiveFlow{{FlowID: "a"}}
			for i := 0; i < 7; i++ {
				state.CompletedFlows = append(state.CompletedFlows,
					completed(fmt.Sprintf("f%d", i), t0.Add(time.Duration(i)*time.Hour), model.FlowTypeLinear, i, 0.5, 0.5))
			}
			state.Statistics.AvgDuration = 10.0 / 3

			report := analytics.ChannelFlows(state)

			Expect(report.ActiveFlows).To(Equal(1))
			Expect(report.CompletedFlows).To(Equal(7))
			Expect(report.Statistics.AvgDuration).To(Equal(3.33))
			Expect(report.RecentFlows).To(HaveLen(5))
			Expect(report.RecentFlows[0].FlowID).To(Equal("f2"))
			Expect(report.RecentFlows[0].Participants).To(Equal([]string{"u1", "u2"}))
		})

		It("reports an empty channel", func() {
			report := analytics.ChannelFlows(model.NewChannelFlowState(model.ChannelKey{GuildID: "g1", ChannelID: "c1"}))

			Expect(report.RecentFlows).To(BeEmpty())
			Expect(report.Statistics.MostCommonType).To(Equal(model.FlowTypeLinear))
		})
	})

	Describe("GuildFlows", func() {
		It("averages across channels and rounds to two places", func() {
			a := model.NewChannelFlowState(model.ChannelKey{GuildID: "g1", ChannelID: "c1"})
			a.CompletedFlows = []model.ConversationFlow{
				completed("f1", t0, model.FlowTypeLinear, 4, 0.333, 0.5),
				completed("f2", t0.Add(2*time.Hour), model.FlowTypeBranching, 5, 0.5, 0.25),
			}
			b := model.NewChannelFlowState(model.ChannelKey{GuildID: "g1", ChannelID: "c2"})
			b.ActiveFlows = []model.ActiveFlow{{FlowID: "x"}}
			b.CompletedFlows = []model.ConversationFlow{
				completed("f3", t0.Add(time.Hour), model.FlowTypeLinear, 1, 0.2, 0.0),
			}
			empty := model.NewChannelFlowState(model.ChannelKey{GuildID: "g1", ChannelID: "c3"})

			report := analytics.GuildFlows("g1", []*model.ChannelFlowState{a, b, empty})

			Expect(report.TotalActiveFlows).To(Equal(1))
			Expect(report.TotalCompletedFlows).To(Equal(3))
			Expect(report.ChannelsWithFlows).To(Equal(2))
			Expect(report.AverageDurationMinutes).To(Equal(3.33))
			Expect(report.AverageEngagementIntensity).To(Equal(0.34))
			Expect(report.AverageNarrativeCoherence).To(Equal(0.25))
			Expect(report.FlowTypeDistribution).To(Equal(map[model.FlowType]int{
				model.FlowTypeLinear:    2,
				model.FlowTypeBranching: 1,
			}))
			Expect(report.RecentFlows).To(HaveLen(3))
			Expect(report.RecentFlows[0].FlowID).To(Equal("f1"))
			Expect(report.RecentFlows[1].FlowID).To(Equal("f3"))
			Expect(report.RecentFlows[2].FlowID).To(Equal("f2"))
		})

		It("returns zeros for a guild with no flows", func() {
			report := analytics.GuildFlows("g1", nil)

			Expect(report.TotalCompletedFlows).To(BeZero())
			Expect(report.AverageDurationMinutes).To(BeZero())
			Expect(report.FlowTypeDistribution).To(BeEmpty())
		})

		It("keeps the ten most recent flows", func() {
			s := model.NewChannelFlowState(model.ChannelKey{GuildID: "g1", ChannelID: "c1"})
			for i := 0; i < 12; i++ {
				s.CompletedFlows = append(s.CompletedFlows,
					completed(fmt.Sprintf("f%02d", i), t0.Add(time.Duration(12-i)*time.Hour), model.FlowTypeLinear, 1, 0, 0))
			}

			report := analytics.GuildFlows("g1", []*model.ChannelFlowState{s})

			Expect(report.RecentFlows).To(HaveLen(10))
			Expect(report.RecentFlows[9].FlowID).To(Equal("f00"))
			Expect(report.RecentFlows[0].FlowID).To(Equal("f09"))
		})
	})
})
