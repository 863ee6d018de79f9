package service_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/pulse/core/config"
	"basegraph.app/pulse/internal/analytics"
	"basegraph.app/pulse/internal/model"
	"basegraph.app/pulse/internal/service"
	"basegraph.app/pulse/internal/store"
)

var _ = Describe("AnalyticsService", func() {
	var (
		ctx    context.Context
		stores *mockStores
		now    time.Time
		conv   service.ConversationService
		svc    service.AnalyticsService
	)

	clock := func() time.Time { return now }

	BeforeEach(func() {
		ctx = context.Background()
		stores = newMockStores()
		now = t0
		conv = service.NewConversationService(service.NewEngine(config.EngineConfig{}), stores, clock, nil)
		svc = service.NewAnalyticsService(stores, clock, nil)
	})

	feed := func() {
		msgs := []model.Message{
			chatMessage("m1", "alice", t0, "Once upon a time there was a dragon. What do you think?"),
			replyTo(chatMessage("m2", "bob", t0.Add(time.Minute), "it was amazing, congratulations"), "m1"),
			replyTo(chatMessage("m3", "carol", t0.Add(2*time.Minute), "we should make it a series"), "m2"),
		}
		for _, m := range msgs {
			now = m.Timestamp
			_, err := conv.ProcessMessage(ctx, m)
			Expect(err).NotTo(HaveOccurred())
		}
		now = t0.Add(30 * time.Minute)
		_, err := conv.SweepAll(ctx)
		Expect(err).NotTo(HaveOccurred())
	}

	Describe("FlowAnalytics", func() {
		It("reports an unknown channel as empty", func() {
			res, err := svc.FlowAnalytics(ctx, "g1", "nowhere")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Guild).To(BeNil())
			Expect(res.Channel).NotTo(BeNil())
			Expect(res.Channel.ActiveFlows).To(Equal(0))
			Expect(res.Channel.CompletedFlows).To(Equal(0))
		})

		It("rolls up completed flows for the channel and the guild", func() {
			feed()

			channel, err := svc.FlowAnalytics(ctx, "g1", "c1")
			Expect(err).NotTo(HaveOccurred())
			Expect(channel.Channel.CompletedFlows).To(Equal(1))
			Expect(channel.Channel.RecentFlows).To(HaveLen(1))
			Expect(channel.Channel.RecentFlows[0].Participants).To(Equal([]string{"alice", "bob", "carol"}))

			guild, err := svc.FlowAnalytics(ctx, "g1", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(guild.Channel).To(BeNil())
			Expect(guild.Guild.TotalCompletedFlows).To(Equal(1))
		})
	})

	Describe("ThreadSummary", func() {
		It("lists the active thread of a channel", func() {
			feed()

			res, err := svc.ThreadSummary(ctx, "g1", "c1")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Channel.ActiveThreads).To(Equal(1))
			Expect(res.Channel.Threads[0].ThreadType).To(Equal(model.ThreadTypeStorytelling))
		})
	})

	Describe("EngagementSummary", func() {
		It("returns ErrNoData for a guild with no messages", func() {
			_, err := svc.EngagementSummary(ctx, "g1", 7)
			Expect(errors.Is(err, service.ErrNoData)).To(BeTrue())
		})

		It("treats an unreadable narrative as no data", func() {
			stores.getNarrativeFn = func(ctx context.Context, guildID string) (*model.GuildNarrative, error) {
				return nil, store.ErrCorruptState
			}
			_, err := svc.EngagementSummary(ctx, "g1", 7)
			Expect(errors.Is(err, service.ErrNoData)).To(BeTrue())
		})

		It("summarises recorded engagement", func() {
			feed()

			res, err := svc.EngagementSummary(ctx, "g1", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.PeriodDays).To(Equal(service.DefaultEngagementDays))
			Expect(res.EngagementEvents).To(Equal(3))
			Expect(res.TopStorytellers).To(HaveLen(3))
		})
	})

	Describe("Leaderboard", func() {
		It("rejects unknown categories", func() {
			feed()
			_, err := svc.Leaderboard(ctx, "g1", "karma", 10)
			Expect(errors.Is(err, analytics.ErrUnknownLeaderboard)).To(BeTrue())
		})

		It("counts thread starters", func() {
			feed()

			res, err := svc.Leaderboard(ctx, "g1", "starters", 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Entries).NotTo(BeEmpty())
			Expect(res.Entries[0].UserID).To(Equal("alice"))
		})
	})

	Describe("Insights", func() {
		It("combines engagement, threads and flows", func() {
			feed()

			res, err := svc.Insights(ctx, "g1", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.PeriodDays).To(Equal(service.DefaultInsightsDays))
			Expect(res.CompletedFlows).To(Equal(1))
			Expect(res.ActiveThreads).To(Equal(1))
			Expect(res.Recommendations).NotTo(BeEmpty())
		})
	})
})
