package flow

import (
	"fmt"
	"sort"
	"time"

	"basegraph.app/pulse/internal/model"
)

// Outcome describes what Apply did with a node.
type Outcome struct {
	// FlowID is the flow the node joined or started; empty for standalone nodes.
	FlowID  string
	Started bool
	Closed  []model.ConversationFlow
}

// Assembler groups nodes into flows. It holds no state of its own; callers
// serialise access to a ChannelFlowState.
type Assembler struct {
	cfg Config
}

func NewAssembler(cfg Config) *Assembler {
	return &Assembler{cfg: cfg}
}

func (a *Assembler) Config() Config {
	return a.cfg
}

// Apply records node in state, joins it to the first eligible active flow or
// starts a new one, then sweeps flows that are due to close.
func (a *Assembler) Apply(state *model.ChannelFlowState, node model.ConversationNode, now time.Time) Outcome {
	var out Outcome

	a.remember(state, node)

	if !node.Timestamp.IsZero() {
		sortActive(state.ActiveFlows)

		if idx := a.findFlow(state.ActiveFlows, node); idx >= 0 {
			a.join(&state.ActiveFlows[idx], node)
			out.FlowID = state.ActiveFlows[idx].FlowID
		} else if node.InfluenceScore > a.cfg.InfluenceThreshold {
			flow := model.ActiveFlow{
				FlowID:       a.flowID(state, node.Timestamp),
				StartTime:    node.Timestamp,
				LastActivity: node.Timestamp,
				Participants: model.NewParticipantSet(node.UserID),
				Nodes:        []model.ConversationNode{node},
			}
			state.ActiveFlows = append(state.ActiveFlows, flow)
			sortActive(state.ActiveFlows)
			out.FlowID = flow.FlowID
			out.Started = true
		}
	}

	out.Closed = a.Sweep(state, now)
	state.UpdatedAt = now
	return out
}

// Sweep closes every active flow idle for at least the response timeout or
// older than the maximum duration. Closed flows with enough nodes are moved to
// the completed list and returned; shorter ones are discarded.
func (a *Assembler) Sweep(state *model.ChannelFlowState, now time.Time) []model.ConversationFlow {
	sortActive(state.ActiveFlows)

	var closed []model.ConversationFlow
	remaining := state.ActiveFlows[:0]
	for _, f := range state.ActiveFlows {
		idle := now.Sub(f.LastActivity)
		age := now.Sub(f.StartTime)
		if idle < a.cfg.ResponseTimeout && age < a.cfg.MaxFlowDuration {
			remaining = append(remaining, f)
			continue
		}
		if len(f.Nodes) < a.cfg.MinFlowNodes {
			state.Statistics.DiscardedFlows++
			continue
		}
		closed = append(closed, Close(f.FlowID, f.Nodes, now))
	}
	state.ActiveFlows = remaining

	if len(closed) > 0 {
		a.complete(state, closed)
	}
	return closed
}

// Close converts a flow's nodes into an immutable ConversationFlow.
func Close(flowID string, nodes []model.ConversationNode, closedAt time.Time) model.ConversationFlow {
	sorted := SortNodes(nodes)

	flow := model.ConversationFlow{
		FlowID:              flowID,
		EndNodes:            []string{},
		FlowType:            DetectFlowType(sorted),
		Participants:        model.NewParticipantSet(),
		NarrativeCoherence:  NarrativeCoherence(sorted),
		EngagementIntensity: EngagementIntensity(sorted),
		BranchPoints:        BranchPoints(sorted),
		ConvergencePoints:   ConvergencePoints(sorted),
		Nodes:               sorted,
		ClosedAt:            closedAt,
	}
	for _, n := range sorted {
		flow.Participants.Add(n.UserID)
	}

	if len(sorted) > 0 {
		first, last := sorted[0], sorted[len(sorted)-1]
		flow.StartNode = first.MessageID
		flow.EndNodes = []string{last.MessageID}
		flow.StartTime = first.Timestamp
		flow.DurationMinutes = max(0, int(last.Timestamp.Sub(first.Timestamp).Minutes()))
	}

	return flow
}

func (a *Assembler) remember(state *model.ChannelFlowState, node model.ConversationNode) {
	state.RecentNodes = append(state.RecentNodes, node)
	if over := len(state.RecentNodes) - a.cfg.RecentNodeCap; over > 0 {
		state.RecentNodes = append([]model.ConversationNode(nil), state.RecentNodes[over:]...)
	}
}

func (a *Assembler) findFlow(flows []model.ActiveFlow, node model.ConversationNode) int {
	for i := range flows {
		f := &flows[i]
		if node.Timestamp.Sub(f.LastActivity) >= a.cfg.ResponseTimeout {
			continue
		}
		if f.Participants.Has(node.UserID) || referencesFlow(f, node) {
			return i
		}
	}
	return -1
}

func referencesFlow(f *model.ActiveFlow, node model.ConversationNode) bool {
	for _, c := range node.Connections {
		if f.ContainsNode(c) {
			return true
		}
	}
	return false
}

func (a *Assembler) join(f *model.ActiveFlow, node model.ConversationNode) {
	seen := map[string]bool{}
	for _, c := range node.Connections {
		if seen[c] {
			continue
		}
		seen[c] = true
		for i := range f.Nodes {
			if f.Nodes[i].MessageID == c {
				f.Nodes[i].ResponseCount++
			}
		}
	}

	f.Nodes = append(f.Nodes, node)
	if f.Participants == nil {
		f.Participants = model.NewParticipantSet()
	}
	f.Participants.Add(node.UserID)
	if node.Timestamp.After(f.LastActivity) {
		f.LastActivity = node.Timestamp
	}
}

func (a *Assembler) complete(state *model.ChannelFlowState, closed []model.ConversationFlow) {
	stats := &state.Statistics

	prevTotal := stats.TotalFlows
	durations := 0.0
	for _, f := range closed {
		durations += float64(f.DurationMinutes)
		stats.HighestEngagement = max(stats.HighestEngagement, f.EngagementIntensity)
	}
	stats.TotalFlows = prevTotal + len(closed)
	stats.AvgDuration = (stats.AvgDuration*float64(prevTotal) + durations) / float64(stats.TotalFlows)

	state.CompletedFlows = append(state.CompletedFlows, closed...)
	if over := len(state.CompletedFlows) - a.cfg.CompletedCap; over > 0 {
		state.CompletedFlows = append([]model.ConversationFlow(nil), state.CompletedFlows[over:]...)
	}

	stats.MostCommonType = mostCommonType(state.CompletedFlows)
}

// mostCommonType returns the mode of the flow types, breaking ties by
// classification priority.
func mostCommonType(flows []model.ConversationFlow) model.FlowType {
	counts := map[model.FlowType]int{}
	for _, f := range flows {
		counts[f.FlowType]++
	}

	best := model.FlowTypeLinear
	bestCount := 0
	for _, t := range model.FlowTypes {
		if counts[t] > bestCount {
			best, bestCount = t, counts[t]
		}
	}
	return best
}

func (a *Assembler) flowID(state *model.ChannelFlowState, start time.Time) string {
	base := fmt.Sprintf("flow_%s_%s_%d", state.Key.GuildID, state.Key.ChannelID, start.UnixMilli())

	taken := map[string]bool{}
	for _, f := range state.ActiveFlows {
		taken[f.FlowID] = true
	}
	for _, f := range state.CompletedFlows {
		taken[f.FlowID] = true
	}

	id := base
	for n := 2; taken[id]; n++ {
		id = fmt.Sprintf("%s-%d", base, n)
	}
	return id
}

func sortActive(flows []model.ActiveFlow) {
	sort.SliceStable(flows, func(i, j int) bool {
		if !flows[i].StartTime.Equal(flows[j].StartTime) {
			return flows[i].StartTime.Before(flows[j].StartTime)
		}
		return flows[i].FlowID < flows[j].FlowID
	})
}
