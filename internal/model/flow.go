package model

import "time"

// FlowType is the structural shape assigned to a closed flow.
type FlowType string

const (
	FlowTypeLinear     FlowType = "linear"
	FlowTypeBranching  FlowType = "branching"
	FlowTypeCircular   FlowType = "circular"
	FlowTypeConvergent FlowType = "convergent"
	FlowTypeParallel   FlowType = "parallel"
)

// FlowTypes lists every flow type in classification priority order.
var FlowTypes = []FlowType{
	FlowTypeLinear,
	FlowTypeBranching,
	FlowTypeCircular,
	FlowTypeConvergent,
	FlowTypeParallel,
}

// ConversationFlow is a closed, immutable sequence of related nodes.
// Nodes are sorted ascending by timestamp.
type ConversationFlow struct {
	FlowID              string             `json:"flow_id"`
	StartNode           string             `json:"start_node"`
	EndNodes            []string           `json:"end_nodes"`
	FlowType            FlowType           `json:"flow_type"`
	Participants        ParticipantSet     `json:"-"`
	DurationMinutes     int                `json:"duration_minutes"`
	NarrativeCoherence  float64            `json:"narrative_coherence"`
	EngagementIntensity float64            `json:"engagement_intensity"`
	BranchPoints        []string           `json:"branch_points"`
	ConvergencePoints   []string           `json:"convergence_points"`
	Nodes               []ConversationNode `json:"nodes"`
	StartTime           time.Time          `json:"start_time"`
	ClosedAt            time.Time          `json:"closed_at"`
}

// ActiveFlow is the mutable, pre-closure state of a flow.
type ActiveFlow struct {
	FlowID       string
	StartTime    time.Time
	LastActivity time.Time
	Participants ParticipantSet
	Nodes        []ConversationNode
}

// ContainsNode reports whether messageID is already part of the flow.
func (f *ActiveFlow) ContainsNode(messageID string) bool {
	for i := range f.Nodes {
		if f.Nodes[i].MessageID == messageID {
			return true
		}
	}
	return false
}

type FlowStatistics struct {
	TotalFlows        int      `json:"total_flows"`
	AvgDuration       float64  `json:"avg_duration"`
	MostCommonType    FlowType `json:"most_common_type"`
	HighestEngagement float64  `json:"highest_engagement"`
	DiscardedFlows    int      `json:"discarded_flows"`
}

// ChannelFlowState is everything the flow assembler keeps for one channel.
type ChannelFlowState struct {
	Key            ChannelKey
	ActiveFlows    []ActiveFlow
	CompletedFlows []ConversationFlow
	Statistics     FlowStatistics
	RecentNodes    []ConversationNode
	UpdatedAt      time.Time
}

func NewChannelFlowState(key ChannelKey) *ChannelFlowState {
	return &ChannelFlowState{
		Key: key,
		Statistics: FlowStatistics{
			MostCommonType: FlowTypeLinear,
		},
	}
}

// HasNode reports whether a node with messageID was already recorded.
func (s *ChannelFlowState) HasNode(messageID string) bool {
	for i := range s.RecentNodes {
		if s.RecentNodes[i].MessageID == messageID {
			return true
		}
	}
	for i := range s.ActiveFlows {
		if s.ActiveFlows[i].ContainsNode(messageID) {
			return true
		}
	}
	return false
}
