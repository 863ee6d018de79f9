package model

import "time"

// ThreadType is assigned once, when a thread starts.
type ThreadType string

const (
	ThreadTypeStorytelling      ThreadType = "storytelling"
	ThreadTypeDiscussion        ThreadType = "discussion"
	ThreadTypeEmotionalSharing  ThreadType = "emotional_sharing"
	ThreadTypeCommunityPlanning ThreadType = "community_planning"
	ThreadTypeCelebration       ThreadType = "celebration"
	ThreadTypeSupport           ThreadType = "support"
	ThreadTypeGeneral           ThreadType = "general"
)

type ThreadMessage struct {
	MessageID       string     `json:"message_id"`
	UserID          string     `json:"user_id"`
	Timestamp       time.Time  `json:"timestamp"`
	EngagementScore float64    `json:"engagement_score"`
	ThreadPotential float64    `json:"thread_potential"`
	Categories      []Category `json:"categories,omitempty"`
}

// ConversationThread groups related messages independently of flows.
type ConversationThread struct {
	ThreadID       string
	Starter        string
	StartTime      time.Time
	LastActivity   time.Time
	EndTime        *time.Time
	Participants   ParticipantSet
	Messages       []ThreadMessage
	NarrativeScore float64
	ThreadType     ThreadType
}

func (t *ConversationThread) HasMessage(messageID string) bool {
	for i := range t.Messages {
		if t.Messages[i].MessageID == messageID {
			return true
		}
	}
	return false
}

type ChannelThreadState struct {
	Key           ChannelKey
	ActiveThreads []ConversationThread
	History       []ConversationThread
	// Seen holds every recently applied message, including those that
	// neither joined nor started a thread.
	Seen      RecentIDs
	UpdatedAt time.Time
}

func NewChannelThreadState(key ChannelKey) *ChannelThreadState {
	return &ChannelThreadState{Key: key}
}
