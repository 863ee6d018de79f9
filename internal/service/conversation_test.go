package service_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/pulse/core/config"
	"basegraph.app/pulse/internal/model"
	"basegraph.app/pulse/internal/service"
	"basegraph.app/pulse/internal/store"
)

var t0 = time.Date(2024, 5, 4, 18, 0, 0, 0, time.UTC)

// syncBuffer collects log output from the service under test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func chatMessage(id, user string, at time.Time, text string) model.Message {
	return model.Message{
		MessageID: id,
		UserID:    user,
		GuildID:   "g1",
		ChannelID: "c1",
		Timestamp: at,
		Text:      text,
	}
}

func replyTo(msg model.Message, parent string) model.Message {
	msg.ReplyTo = &parent
	return msg
}

var _ = Describe("ConversationService", func() {
	var (
		ctx    context.Context
		stores *mockStores
		now    time.Time
		svc    service.ConversationService
		key    = model.ChannelKey{GuildID: "g1", ChannelID: "c1"}
	)

	BeforeEach(func() {
		ctx = context.Background()
		stores = newMockStores()
		now = t0
		svc = service.NewConversationService(
			service.NewEngine(config.EngineConfig{}),
			stores,
			func() time.Time { return now },
			nil,
		)
	})

	Describe("ProcessMessage", func() {
		It("rejects messages without ids", func() {
			_, err := svc.ProcessMessage(ctx, model.Message{GuildID: "g1", ChannelID: "c1"})
			Expect(errors.Is(err, service.ErrInvalidMessage)).To(BeTrue())
		})

		It("ignores bot authors", func() {
			msg := chatMessage("m1", "bot", t0, "once upon a time?")
			msg.IsBot = true

			res, err := svc.ProcessMessage(ctx, msg)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Skipped).To(BeTrue())
			Expect(stores.flowPuts).To(Equal(0))
			Expect(stores.narrativePuts).To(Equal(0))
		})

		It("starts a flow and a thread for an influential message", func() {
			res, err := svc.ProcessMessage(ctx, chatMessage("m1", "alice", t0, "Once upon a time there was a dragon. What do you think?"))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.FlowStarted).To(BeTrue())
			Expect(res.FlowID).To(HavePrefix("flow_g1_c1_"))
			Expect(res.ThreadStarted).To(BeTrue())
			Expect(res.ThreadID).To(Equal("thread_m1"))
			Expect(res.Elements).To(HaveKey(model.CategoryStoryStart))

			Expect(stores.flows[key].ActiveFlows).To(HaveLen(1))
			Expect(stores.threads[key].ActiveThreads).To(HaveLen(1))
			Expect(stores.narratives["g1"].TotalMessages).To(Equal(1))
			Expect(stores.narratives["g1"].Themes).To(HaveKey(model.CategoryStoryStart))
		})

		It("does not start anything for a low-signal message", func() {
			res, err := svc.ProcessMessage(ctx, chatMessage("m1", "alice", t0, "ok"))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.FlowID).To(BeEmpty())
			Expect(res.ThreadID).To(BeEmpty())
			Expect(stores.flows[key].RecentNodes).To(HaveLen(1))
			Expect(stores.narratives["g1"].TotalMessages).To(Equal(1))
		})

		It("joins a reply to the flow and thread of its parent", func() {
			first, err := svc.ProcessMessage(ctx, chatMessage("m1", "alice", t0, "Once upon a time there was a dragon. What do you think?"))
			Expect(err).NotTo(HaveOccurred())

			now = t0.Add(2 * time.Minute)
			second, err := svc.ProcessMessage(ctx, replyTo(chatMessage("m2", "bob", now, "ok"), "m1"))
			Expect(err).NotTo(HaveOccurred())
			Expect(second.FlowID).To(Equal(first.FlowID))
			Expect(second.FlowStarted).To(BeFalse())
			Expect(second.ThreadID).To(Equal(first.ThreadID))

			flow := stores.flows[key].ActiveFlows[0]
			Expect(flow.Nodes).To(HaveLen(2))
			Expect(flow.Participants.Sorted()).To(Equal([]string{"alice", "bob"}))
		})

		It("treats a redelivered message as a no-op", func() {
			msg := chatMessage("m1", "alice", t0, "Once upon a time there was a dragon. What do you think?")
			_, err := svc.ProcessMessage(ctx, msg)
			Expect(err).NotTo(HaveOccurred())

			res, err := svc.ProcessMessage(ctx, msg)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Duplicate).To(BeTrue())
			Expect(stores.flows[key].ActiveFlows[0].Nodes).To(HaveLen(1))
			Expect(stores.narratives["g1"].TotalMessages).To(Equal(1))
			Expect(stores.narrativePuts).To(Equal(1))
		})

		It("completes the thread and narrative stages when a retry follows a failed thread save", func() {
			msg := chatMessage("m1", "alice", t0, "Once upon a time there was a dragon. What do you think?")
			stores.putThreadFn = func(ctx context.Context, state *model.ChannelThreadState) error {
				stores.putThreadFn = nil
				return errors.New("connection reset")
			}

			_, err := svc.ProcessMessage(ctx, msg)
			Expect(err).To(MatchError(ContainSubstring("saving thread state")))
			Expect(stores.flowPuts).To(Equal(1))
			Expect(stores.threads).To(BeEmpty())
			Expect(stores.narratives).To(BeEmpty())

			res, err := svc.ProcessMessage(ctx, msg)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Duplicate).To(BeFalse())
			Expect(res.ThreadStarted).To(BeTrue())
			Expect(res.FlowStarted).To(BeFalse())
			Expect(stores.flowPuts).To(Equal(1))
			Expect(stores.flows[key].ActiveFlows[0].Nodes).To(HaveLen(1))
			Expect(stores.threads[key].ActiveThreads).To(HaveLen(1))
			Expect(stores.threads[key].ActiveThreads[0].Messages).To(HaveLen(1))
			Expect(stores.narratives["g1"].TotalMessages).To(Equal(1))

			again, err := svc.ProcessMessage(ctx, msg)
			Expect(err).NotTo(HaveOccurred())
			Expect(again.Duplicate).To(BeTrue())
			Expect(stores.threadPuts).To(Equal(1))
			Expect(stores.narrativePuts).To(Equal(1))
		})

		It("records the narrative on retry after only the narrative save failed", func() {
			msg := chatMessage("m1", "alice", t0, "Once upon a time there was a dragon. What do you think?")
			stores.putNarrativeFn = func(ctx context.Context, n *model.GuildNarrative) error {
				stores.putNarrativeFn = nil
				return errors.New("connection reset")
			}

			_, err := svc.ProcessMessage(ctx, msg)
			Expect(err).To(MatchError(ContainSubstring("saving guild narrative")))

			res, err := svc.ProcessMessage(ctx, msg)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Duplicate).To(BeFalse())
			Expect(stores.flowPuts).To(Equal(1))
			Expect(stores.threadPuts).To(Equal(1))
			Expect(stores.narratives["g1"].TotalMessages).To(Equal(1))
			Expect(stores.narratives["g1"].RecentMessages).To(ConsistOf("m1"))
		})

		It("dedupes a message that neither joined nor started a thread", func() {
			msg := chatMessage("m1", "alice", t0, "ok")
			_, err := svc.ProcessMessage(ctx, msg)
			Expect(err).NotTo(HaveOccurred())
			Expect(stores.threads[key].ActiveThreads).To(BeEmpty())
			Expect(stores.threads[key].Seen).To(ConsistOf("m1"))

			res, err := svc.ProcessMessage(ctx, msg)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Duplicate).To(BeTrue())
			Expect(stores.narratives["g1"].TotalMessages).To(Equal(1))
		})

		It("keeps a message without timestamp out of flows and threads and logs it", func() {
			var buf syncBuffer
			svc = service.NewConversationService(
				service.NewEngine(config.EngineConfig{}),
				stores,
				func() time.Time { return now },
				slog.New(slog.NewTextHandler(&buf, nil)),
			)

			_, err := svc.ProcessMessage(ctx, chatMessage("m1", "alice", t0, "Once upon a time there was a dragon. What do you think?"))
			Expect(err).NotTo(HaveOccurred())

			res, err := svc.ProcessMessage(ctx, replyTo(chatMessage("m2", "bob", time.Time{}, "Once upon a time, what do you think?"), "m1"))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.FlowID).To(BeEmpty())
			Expect(res.ThreadID).To(BeEmpty())
			Expect(stores.flows[key].ActiveFlows[0].Nodes).To(HaveLen(1))
			Expect(stores.threads[key].ActiveThreads[0].Messages).To(HaveLen(1))
			Expect(stores.narratives["g1"].TotalMessages).To(Equal(2))
			Expect(buf.String()).To(ContainSubstring("message without timestamp kept out of flows and threads"))
		})

		It("starts from empty state when the saved flow state is corrupt", func() {
			stores.getFlowFn = func(ctx context.Context, key model.ChannelKey) (*model.ChannelFlowState, error) {
				return nil, fmt.Errorf("decoding flow state: %w", store.ErrCorruptState)
			}

			res, err := svc.ProcessMessage(ctx, chatMessage("m1", "alice", t0, "Once upon a time there was a dragon. What do you think?"))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.FlowStarted).To(BeTrue())
		})

		It("returns store errors other than missing or corrupt state", func() {
			stores.getThreadFn = func(ctx context.Context, key model.ChannelKey) (*model.ChannelThreadState, error) {
				return nil, errors.New("connection refused")
			}

			_, err := svc.ProcessMessage(ctx, chatMessage("m1", "alice", t0, "hello"))
			Expect(err).To(MatchError(ContainSubstring("loading thread state")))
			Expect(stores.flowPuts).To(Equal(0))
			Expect(stores.narrativePuts).To(Equal(0))
		})

		It("stops before later stages when a save fails", func() {
			stores.putFlowFn = func(ctx context.Context, state *model.ChannelFlowState) error {
				return errors.New("disk full")
			}

			_, err := svc.ProcessMessage(ctx, chatMessage("m1", "alice", t0, "hello"))
			Expect(err).To(MatchError(ContainSubstring("saving flow state")))
			Expect(stores.threadPuts).To(Equal(0))
			Expect(stores.narratives).To(BeEmpty())
		})

		It("serialises concurrent messages of one channel", func() {
			var wg sync.WaitGroup
			for i := range 20 {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					msg := chatMessage(fmt.Sprintf("m%02d", i), fmt.Sprintf("u%d", i%3), t0.Add(time.Duration(i)*time.Second), "we should all share a story")
					_, err := svc.ProcessMessage(ctx, msg)
					Expect(err).NotTo(HaveOccurred())
				}()
			}
			wg.Wait()

			Expect(stores.flows[key].RecentNodes).To(HaveLen(20))
			Expect(stores.narratives["g1"].TotalMessages).To(Equal(20))
		})
	})

	Describe("Sweep", func() {
		BeforeEach(func() {
			_, err := svc.ProcessMessage(ctx, chatMessage("m1", "alice", t0, "Once upon a time there was a dragon. What do you think?"))
			Expect(err).NotTo(HaveOccurred())
			now = t0.Add(time.Minute)
			_, err = svc.ProcessMessage(ctx, replyTo(chatMessage("m2", "bob", now, "ok"), "m1"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("leaves fresh flows alone", func() {
			now = t0.Add(5 * time.Minute)
			res, err := svc.Sweep(ctx, key)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.ClosedFlows).To(Equal(0))
			Expect(stores.flows[key].ActiveFlows).To(HaveLen(1))
		})

		It("closes flows idle past the response timeout", func() {
			now = t0.Add(20 * time.Minute)
			res, err := svc.Sweep(ctx, key)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.ClosedFlows).To(Equal(1))
			Expect(res.RetiredThreads).To(Equal(0))

			state := stores.flows[key]
			Expect(state.ActiveFlows).To(BeEmpty())
			Expect(state.CompletedFlows).To(HaveLen(1))
			Expect(state.Statistics.TotalFlows).To(Equal(1))
		})

		It("retires threads across every channel with SweepAll", func() {
			now = t0.Add(2 * time.Hour)
			summary, err := svc.SweepAll(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.Channels).To(Equal(1))
			Expect(summary.ClosedFlows).To(Equal(1))
			Expect(summary.RetiredThreads).To(Equal(1))

			threads := stores.threads[key]
			Expect(threads.ActiveThreads).To(BeEmpty())
			Expect(threads.History).To(HaveLen(1))
			Expect(threads.History[0].EndTime).NotTo(BeNil())
		})
	})
})
