package flow

import (
	"sort"

	"basegraph.app/pulse/internal/model"
)

const (
	branchingShare  = 0.3
	circularShare   = 0.2
	convergentShare = 0.4
	parallelShare   = 0.6

	highConnectionCount = 2
	circularDistance    = 2

	abruptShare   = 0.3
	abruptPenalty = 0.7

	participantTarget = 5.0
	speedWindowMins   = 5.0
)

var (
	smoothTransitions = []model.Category{
		model.CategoryBuildingOn,
		model.CategoryAgreement,
		model.CategoryQuestioning,
	}
	convergenceMarkers = []model.Category{
		model.CategoryConclusion,
		model.CategoryAgreement,
	}
)

// SortNodes orders nodes ascending by timestamp, keeping arrival order for ties.
func SortNodes(nodes []model.ConversationNode) []model.ConversationNode {
	sorted := append([]model.ConversationNode(nil), nodes...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	return sorted
}

// DetectFlowType classifies timestamp-sorted nodes. Rules are evaluated in
// priority order and the first that holds wins.
func DetectFlowType(nodes []model.ConversationNode) model.FlowType {
	n := float64(len(nodes))
	if len(nodes) < 2 {
		return model.FlowTypeLinear
	}

	highConnection := 0
	for _, node := range nodes {
		if len(node.Connections) > highConnectionCount {
			highConnection++
		}
	}
	if float64(highConnection) > n*branchingShare {
		return model.FlowTypeBranching
	}

	position := make(map[string]int, len(nodes))
	for i, node := range nodes {
		position[node.MessageID] = i
	}
	circular := 0
	for i, node := range nodes {
		for _, c := range node.Connections {
			if j, ok := position[c]; ok && i-j > circularDistance {
				circular++
				break
			}
		}
	}
	if float64(circular) > n*circularShare {
		return model.FlowTypeCircular
	}

	converging := 0
	for _, node := range nodes {
		if node.NarrativeElements.HasAny(convergenceMarkers...) {
			converging++
		}
	}
	if float64(converging) > n*convergentShare {
		return model.FlowTypeConvergent
	}

	topics := map[model.Category]bool{}
	for _, node := range nodes {
		for _, c := range node.NarrativeElements.Categories() {
			topics[c] = true
		}
	}
	if float64(len(topics)) > n*parallelShare {
		return model.FlowTypeParallel
	}

	return model.FlowTypeLinear
}

// NarrativeCoherence is the share of adjacent pairs with a smooth transition,
// penalised when abrupt topic shifts are frequent. Bounded to [0, 1].
func NarrativeCoherence(nodes []model.ConversationNode) float64 {
	if len(nodes) < 2 {
		return 0
	}

	smooth, abrupt := 0, 0
	for i := 1; i < len(nodes); i++ {
		elements := nodes[i].NarrativeElements
		switch {
		case elements.HasAny(smoothTransitions...):
			smooth++
		case elements.Has(model.CategoryTopicShift):
			abrupt++
		}
	}

	coherence := float64(smooth) / float64(len(nodes)-1)
	if float64(abrupt) > float64(len(nodes))*abruptShare {
		coherence *= abruptPenalty
	}

	return clampUnit(coherence)
}

// EngagementIntensity blends mean influence, participant diversity and
// response speed. Bounded to [0, 1].
func EngagementIntensity(nodes []model.ConversationNode) float64 {
	if len(nodes) == 0 {
		return 0
	}

	total := 0.0
	users := map[string]bool{}
	for _, node := range nodes {
		total += node.InfluenceScore
		users[node.UserID] = true
	}
	avgInfluence := total / float64(len(nodes))
	participation := min(float64(len(users))/participantTarget, 1.0)

	speed := 0.0
	if len(nodes) > 1 {
		gaps := 0.0
		for i := 1; i < len(nodes); i++ {
			gaps += nodes[i].Timestamp.Sub(nodes[i-1].Timestamp).Minutes()
		}
		meanGap := gaps / float64(len(nodes)-1)
		speed = max(0, 1-meanGap/speedWindowMins)
	}

	return clampUnit(avgInfluence*0.5 + participation*0.3 + speed*0.2)
}

// BranchPoints are nodes expected to fan out.
func BranchPoints(nodes []model.ConversationNode) []string {
	out := []string{}
	for _, node := range nodes {
		if node.BranchFactor > 2 || node.InfluenceScore > 0.7 {
			out = append(out, node.MessageID)
		}
	}
	return out
}

// ConvergencePoints are nodes carrying conclusion or agreement.
func ConvergencePoints(nodes []model.ConversationNode) []string {
	out := []string{}
	for _, node := range nodes {
		if node.NarrativeElements.HasAny(convergenceMarkers...) {
			out = append(out, node.MessageID)
		}
	}
	return out
}

func clampUnit(v float64) float64 {
	return max(0, min(v, 1))
}
