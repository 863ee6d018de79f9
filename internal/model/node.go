package model

import "time"

// ConversationNode is the persisted record of one analyzed message.
// MessageID never changes after creation and ResponseCount only grows.
type ConversationNode struct {
	MessageID         string            `json:"message_id"`
	UserID            string            `json:"user_id"`
	Timestamp         time.Time         `json:"timestamp"`
	ContentPreview    string            `json:"content_preview"`
	ResponseCount     int               `json:"response_count"`
	BranchFactor      int               `json:"branch_factor"`
	InfluenceScore    float64           `json:"influence_score"`
	NarrativeElements NarrativeElements `json:"narrative_elements"`
	Connections       []string          `json:"connections"`
}

// References reports whether one of the node's connections is messageID.
func (n ConversationNode) References(messageID string) bool {
	for _, c := range n.Connections {
		if c == messageID {
			return true
		}
	}
	return false
}
