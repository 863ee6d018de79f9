package flow_test

import (
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/pulse/internal/flow"
	"basegraph.app/pulse/internal/model"
)

var _ = Describe("Assembler", func() {
	var (
		assembler *flow.Assembler
		state     *model.ChannelFlowState
	)

	BeforeEach(func() {
		assembler = flow.NewAssembler(flow.DefaultConfig())
		state = model.NewChannelFlowState(model.ChannelKey{GuildID: "g1", ChannelID: "c1"})
	})

	Describe("Apply", func() {
		It("starts a flow for an influential node", func() {
			out := assembler.Apply(state, node("m1", "u1", at(0), 0.5), at(0))

			Expect(out.Started).To(BeTrue())
			Expect(out.FlowID).To(Equal(fmt.Sprintf("flow_g1_c1_%d", at(0).UnixMilli())))
			Expect(state.ActiveFlows).To(HaveLen(1))
			Expect(state.ActiveFlows[0].Participants.Has("u1")).To(BeTrue())
			Expect(state.RecentNodes).To(HaveLen(1))
		})

		It("keeps a low-influence node standalone", func() {
			out := assembler.Apply(state, node("m1", "u1", at(0), 0.3), at(0))

			Expect(out.FlowID).To(BeEmpty())
			Expect(state.ActiveFlows).To(BeEmpty())
			Expect(state.HasNode("m1")).To(BeTrue())
		})

		It("never flows a node without a timestamp", func() {
			out := assembler.Apply(state, node("m1", "u1", time.Time{}, 0.9), at(0))

			Expect(out.FlowID).To(BeEmpty())
			Expect(state.ActiveFlows).To(BeEmpty())
			Expect(state.RecentNodes).To(HaveLen(1))
		})

		It("joins a reply and counts the response once per distinct connection", func() {
			assembler.Apply(state, node("m1", "u1", at(0), 0.5), at(0))

			reply := node("m2", "u2", at(2), 0.1, "m1", "m1")
			out := assembler.Apply(state, reply, at(2))

			Expect(out.Started).To(BeFalse())
			Expect(state.ActiveFlows).To(HaveLen(1))
			f := state.ActiveFlows[0]
			Expect(out.FlowID).To(Equal(f.FlowID))
			Expect(f.Nodes).To(HaveLen(2))
			Expect(f.Nodes[0].ResponseCount).To(Equal(1))
			Expect(f.LastActivity).To(Equal(at(2)))
			Expect(f.Participants.Sorted()).To(Equal([]string{"u1", "u2"}))
		})

		It("continues a flow for an existing participant without any reference", func() {
			assembler.Apply(state, node("m1", "u1", at(0), 0.5), at(0))
			out := assembler.Apply(state, node("m2", "u1", at(5), 0.0), at(5))

			Expect(out.FlowID).To(Equal(state.ActiveFlows[0].FlowID))
			Expect(state.ActiveFlows[0].Nodes).To(HaveLen(2))
		})

		It("does not match a flow whose last activity is a full timeout ago", func() {
			assembler.Apply(state, node("m1", "u1", at(0), 0.5), at(0))
			out := assembler.Apply(state, node("m2", "u2", at(15), 0.1, "m1"), at(14))

			Expect(out.FlowID).To(BeEmpty())
			Expect(state.ActiveFlows[0].Nodes).To(HaveLen(1))
		})

		It("picks the earliest started flow when several are eligible", func() {
			assembler.Apply(state, node("m1", "u1", at(0), 0.5), at(0))
			assembler.Apply(state, node("m2", "u2", at(1), 0.5), at(1))

			out := assembler.Apply(state, node("m3", "u3", at(2), 0.1, "m1", "m2"), at(2))

			Expect(out.FlowID).To(Equal(fmt.Sprintf("flow_g1_c1_%d", at(0).UnixMilli())))
		})

		It("suffixes flow ids that collide within the channel", func() {
			assembler.Apply(state, node("m1", "u1", at(0), 0.5), at(0))
			out := assembler.Apply(state, node("m2", "u2", at(0), 0.5), at(0))

			Expect(out.FlowID).To(HaveSuffix("-2"))
			Expect(state.ActiveFlows).To(HaveLen(2))
		})

		It("caps recent nodes", func() {
			cfg := flow.DefaultConfig()
			cfg.RecentNodeCap = 3
			assembler = flow.NewAssembler(cfg)

			for i := 0; i < 5; i++ {
				assembler.Apply(state, node(fmt.Sprintf("m%d", i), "u1", at(float64(i)), 0), at(float64(i)))
			}

			Expect(state.RecentNodes).To(HaveLen(3))
			Expect(state.RecentNodes[0].MessageID).To(Equal("m2"))
		})
	})

	Describe("story reply scenario", func() {
		It("closes the two-node flow once the reply goes quiet", func() {
			story := withElements(node("A", "u1", at(0), 1.0), model.CategoryStoryStart)
			reply := withElements(node("B", "u2", at(2), 0.25, "A", "topic_agreement", "topic_topic_shift"),
				model.CategoryAgreement, model.CategoryTopicShift)

			assembler.Apply(state, story, at(0))
			assembler.Apply(state, reply, at(2))
			closed := assembler.Sweep(state, at(17))

			Expect(closed).To(HaveLen(1))
			f := closed[0]
			// B has three connections: half the nodes are high-connection.
			Expect(f.FlowType).To(Equal(model.FlowTypeBranching))
			Expect(f.StartNode).To(Equal("A"))
			Expect(f.EndNodes).To(Equal([]string{"B"}))
			Expect(f.DurationMinutes).To(Equal(2))
			Expect(f.ConvergencePoints).To(Equal([]string{"B"}))
			Expect(f.BranchPoints).To(Equal([]string{"A"}))
			Expect(f.Nodes[0].ResponseCount).To(Equal(1))
			Expect(state.ActiveFlows).To(BeEmpty())
			Expect(state.CompletedFlows).To(HaveLen(1))
			Expect(state.Statistics.TotalFlows).To(Equal(1))
			Expect(state.Statistics.AvgDuration).To(Equal(2.0))
		})
	})

	Describe("Sweep", func() {
		BeforeEach(func() {
			assembler.Apply(state, node("m1", "u1", at(0), 0.5), at(0))
			assembler.Apply(state, node("m2", "u1", at(1), 0.5), at(1))
		})

		It("closes a flow idle for exactly the response timeout", func() {
			closed := assembler.Sweep(state, at(16))

			Expect(closed).To(HaveLen(1))
			Expect(state.ActiveFlows).To(BeEmpty())
		})

		It("keeps a flow one second before the timeout", func() {
			closed := assembler.Sweep(state, at(16).Add(-time.Second))

			Expect(closed).To(BeEmpty())
			Expect(state.ActiveFlows).To(HaveLen(1))
		})

		It("force-closes a flow that reached the maximum duration", func() {
			for i := 2; i <= 120; i += 10 {
				assembler.Apply(state, node(fmt.Sprintf("x%d", i), "u1", at(float64(i)), 0), at(float64(i)))
			}
			Expect(state.ActiveFlows).To(HaveLen(1))

			closed := assembler.Sweep(state, at(120))

			Expect(closed).To(HaveLen(1))
		})

		It("discards flows with a single node", func() {
			state = model.NewChannelFlowState(model.ChannelKey{GuildID: "g1", ChannelID: "c1"})
			assembler.Apply(state, node("m1", "u1", at(0), 0.5), at(0))

			closed := assembler.Sweep(state, at(30))

			Expect(closed).To(BeEmpty())
			Expect(state.ActiveFlows).To(BeEmpty())
			Expect(state.CompletedFlows).To(BeEmpty())
			Expect(state.Statistics.DiscardedFlows).To(Equal(1))
		})
	})

	Describe("completed flows", func() {
		closeFlow := func(i int) {
			start := at(float64(i * 30))
			assembler.Apply(state, node(fmt.Sprintf("a%d", i), "u1", start, 0.5), start)
			assembler.Apply(state, node(fmt.Sprintf("b%d", i), "u1", start.Add(time.Minute), 0.5), start.Add(time.Minute))
			assembler.Sweep(state, start.Add(20*time.Minute))
		}

		It("never keeps more than 20 and evicts the oldest", func() {
			for i := 0; i < 21; i++ {
				closeFlow(i)
			}

			Expect(state.CompletedFlows).To(HaveLen(20))
			Expect(state.CompletedFlows[0].StartNode).To(Equal("a1"))
			Expect(state.Statistics.TotalFlows).To(Equal(21))
			Expect(state.Statistics.AvgDuration).To(Equal(1.0))
			Expect(state.Statistics.MostCommonType).To(Equal(model.FlowTypeLinear))
		})
	})

	Describe("Close", func() {
		It("sorts nodes and measures duration from the first to the last", func() {
			ns := []model.ConversationNode{
				node("m3", "u1", at(9.5), 0.2),
				node("m1", "u2", at(0), 0.2),
				node("m2", "u3", at(4), 0.2),
			}

			f := flow.Close("f1", ns, at(30))

			Expect(f.Nodes[0].MessageID).To(Equal("m1"))
			Expect(f.Nodes[2].MessageID).To(Equal("m3"))
			Expect(f.DurationMinutes).To(Equal(9))
			Expect(f.StartTime).To(Equal(at(0)))
			Expect(f.Participants.Len()).To(Equal(3))
		})

		It("scores a single-node flow without pairs or speed", func() {
			f := flow.Close("f1", []model.ConversationNode{node("m1", "u1", at(0), 0.6)}, at(120))

			Expect(f.NarrativeCoherence).To(BeZero())
			Expect(f.EngagementIntensity).To(BeNumerically("~", 0.5*0.6+0.3*0.2, 1e-9))
			Expect(f.DurationMinutes).To(BeZero())
			Expect(f.FlowType).To(Equal(model.FlowTypeLinear))
		})
	})
})
