package analytics_test

import (
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/pulse/internal/analytics"
	"basegraph.app/pulse/internal/model"
)

func thread(id string, kind model.ThreadType, starter string, score float64) model.ConversationThread {
	return model.ConversationThread{
		ThreadID:       id,
		Starter:        starter,
		StartTime:      t0,
		LastActivity:   t0,
		Participants:   model.NewParticipantSet(starter),
		Messages:       []model.ThreadMessage{{MessageID: id}},
		NarrativeScore: score,
		ThreadType:     kind,
	}
}

var _ = Describe("Thread analytics", func() {
	It("lists the active threads of a channel", func() {
		s := model.NewChannelThreadState(model.ChannelKey{GuildID: "g1", ChannelID: "c1"})
		s.ActiveThreads = []model.ConversationThread{thread("t1", model.ThreadTypeDiscussion, "u1", 2.456)}
		s.History = []model.ConversationThread{thread("t0", model.ThreadTypeGeneral, "u2", 1)}

		report := analytics.ChannelThreads(s)

		Expect(report.ActiveThreads).To(Equal(1))
		Expect(report.HistoricalThreads).To(Equal(1))
		Expect(report.Threads).To(HaveLen(1))
		Expect(report.Threads[0].NarrativeScore).To(Equal(2.46))
		Expect(report.Threads[0].MessageCount).To(Equal(1))
	})

	It("aggregates a guild and ranks top threads by score", func() {
		a := model.NewChannelThreadState(model.ChannelKey{GuildID: "g1", ChannelID: "c1"})
		for i := 0; i < 4; i++ {
			a.ActiveThreads = append(a.ActiveThreads, thread(fmt.Sprintf("a%d", i), model.ThreadTypeDiscussion, "u1", float64(i)))
		}
		b := model.NewChannelThreadState(model.ChannelKey{GuildID: "g1", ChannelID: "c2"})
		b.History = []model.ConversationThread{
			thread("h1", model.ThreadTypeStorytelling, "u2", 10),
			thread("h2", model.ThreadTypeStorytelling, "u2", 3),
		}

		report := analytics.GuildThreads("g1", []*model.ChannelThreadState{a, b})

		Expect(report.TotalActiveThreads).To(Equal(4))
		Expect(report.TotalHistoricalThreads).To(Equal(2))
		Expect(report.ChannelsWithThreads).To(Equal(2))
		Expect(report.ThreadTypeDistribution).To(Equal(map[model.ThreadType]int{
			model.ThreadTypeDiscussion:   4,
			model.ThreadTypeStorytelling: 2,
		}))
		Expect(report.TopThreads).To(HaveLen(5))
		ids := []string{}
		for _, t := range report.TopThreads {
			ids = append(ids, t.ThreadID)
		}
		Expect(ids).To(Equal([]string{"h1", "a3", "h2", "a2", "a1"}))
	})
})
