package flow

import (
	"basegraph.app/pulse/internal/model"
	"basegraph.app/pulse/internal/scoring"
)

const (
	previewLength   = 100
	maxBranchFactor = 5

	mentionPrefix = "mention_"
	topicPrefix   = "topic_"
)

// Builder converts an analyzed message into a conversation node.
type Builder struct{}

func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) Build(msg model.Message, elements model.NarrativeElements, scores scoring.Scores) model.ConversationNode {
	branch := int(scores.ThreadPotential * maxBranchFactor)
	branch = max(0, min(branch, maxBranchFactor))

	return model.ConversationNode{
		MessageID:         msg.MessageID,
		UserID:            msg.UserID,
		Timestamp:         msg.Timestamp,
		ContentPreview:    Preview(msg.Text),
		ResponseCount:     0,
		BranchFactor:      branch,
		InfluenceScore:    scores.Influence,
		NarrativeElements: elements.Clone(),
		Connections:       Connections(msg, elements),
	}
}

// Preview keeps the first 100 characters and marks truncation with "...".
func Preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLength {
		return text
	}
	return string(runes[:previewLength]) + "..."
}

// Connections lists the keys relating a message to others: the reply target,
// one mention_<id> per mentioned user and one topic_<category> per matched
// category. Keys are unique.
func Connections(msg model.Message, elements model.NarrativeElements) []string {
	seen := map[string]bool{}
	var out []string
	add := func(key string) {
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, key)
	}

	if msg.ReplyTo != nil {
		add(*msg.ReplyTo)
	}
	for _, userID := range msg.Mentions {
		if userID != "" {
			add(mentionPrefix + userID)
		}
	}
	for _, c := range elements.Categories() {
		add(topicPrefix + string(c))
	}

	if out == nil {
		out = []string{}
	}
	return out
}
