package store

import (
	"encoding/json"
	"fmt"
	"time"

	"basegraph.app/pulse/internal/model"
)

// Participant sets are stored as sorted lists; everything else round-trips
// through the model's own JSON shape.

type activeFlowRecord struct {
	FlowID       string                   `json:"flow_id"`
	StartTime    time.Time                `json:"start_time"`
	LastActivity time.Time                `json:"last_activity"`
	Participants []string                 `json:"participants"`
	Nodes        []model.ConversationNode `json:"nodes"`
}

type flowRecord struct {
	model.ConversationFlow
	Participants []string `json:"participants"`
}

type flowStateRecord struct {
	GuildID        string                   `json:"guild_id"`
	ChannelID      string                   `json:"channel_id"`
	ActiveFlows    []activeFlowRecord       `json:"active_flows"`
	CompletedFlows []flowRecord             `json:"completed_flows"`
	Statistics     model.FlowStatistics     `json:"flow_statistics"`
	RecentNodes    []model.ConversationNode `json:"recent_nodes"`
	UpdatedAt      time.Time                `json:"updated_at"`
}

type threadRecord struct {
	ThreadID       string                `json:"thread_id"`
	Starter        string                `json:"starter"`
	StartTime      time.Time             `json:"start_time"`
	LastActivity   time.Time             `json:"last_activity"`
	EndTime        *time.Time            `json:"end_time,omitempty"`
	Participants   []string              `json:"participants"`
	Messages       []model.ThreadMessage `json:"messages"`
	NarrativeScore float64               `json:"narrative_score"`
	ThreadType     model.ThreadType      `json:"thread_type"`
}

type threadStateRecord struct {
	GuildID       string         `json:"guild_id"`
	ChannelID     string         `json:"channel_id"`
	ActiveThreads []threadRecord `json:"active_threads"`
	History       []threadRecord `json:"thread_history"`
	Seen          []string       `json:"seen_messages,omitempty"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func encodeFlowState(s *model.ChannelFlowState) ([]byte, error) {
	rec := flowStateRecord{
		GuildID:        s.Key.GuildID,
		ChannelID:      s.Key.ChannelID,
		ActiveFlows:    make([]activeFlowRecord, 0, len(s.ActiveFlows)),
		CompletedFlows: make([]flowRecord, 0, len(s.CompletedFlows)),
		Statistics:     s.Statistics,
		RecentNodes:    s.RecentNodes,
		UpdatedAt:      s.UpdatedAt,
	}
	for _, f := range s.ActiveFlows {
		rec.ActiveFlows = append(rec.ActiveFlows, activeFlowRecord{
			FlowID:       f.FlowID,
			StartTime:    f.StartTime,
			LastActivity: f.LastActivity,
			Participants: f.Participants.Sorted(),
			Nodes:        f.Nodes,
		})
	}
	for _, f := range s.CompletedFlows {
		rec.CompletedFlows = append(rec.CompletedFlows, flowRecord{
			ConversationFlow: f,
			Participants:     f.Participants.Sorted(),
		})
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encoding flow state %s: %w", s.Key, err)
	}
	return data, nil
}

func decodeFlowState(data []byte) (*model.ChannelFlowState, error) {
	var rec flowStateRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: flow state: %v", ErrCorruptState, err)
	}

	s := model.NewChannelFlowState(model.ChannelKey{GuildID: rec.GuildID, ChannelID: rec.ChannelID})
	s.Statistics = rec.Statistics
	if s.Statistics.MostCommonType == "" {
		s.Statistics.MostCommonType = model.FlowTypeLinear
	}
	s.RecentNodes = rec.RecentNodes
	s.UpdatedAt = rec.UpdatedAt
	for _, f := range rec.ActiveFlows {
		s.ActiveFlows = append(s.ActiveFlows, model.ActiveFlow{
			FlowID:       f.FlowID,
			StartTime:    f.StartTime,
			LastActivity: f.LastActivity,
			Participants: model.NewParticipantSet(f.Participants...),
			Nodes:        f.Nodes,
		})
	}
	for _, f := range rec.CompletedFlows {
		flow := f.ConversationFlow
		flow.Participants = model.NewParticipantSet(f.Participants...)
		s.CompletedFlows = append(s.CompletedFlows, flow)
	}
	return s, nil
}

func encodeThreadState(s *model.ChannelThreadState) ([]byte, error) {
	rec := threadStateRecord{
		GuildID:       s.Key.GuildID,
		ChannelID:     s.Key.ChannelID,
		ActiveThreads: toThreadRecords(s.ActiveThreads),
		History:       toThreadRecords(s.History),
		Seen:          s.Seen,
		UpdatedAt:     s.UpdatedAt,
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encoding thread state %s: %w", s.Key, err)
	}
	return data, nil
}

func decodeThreadState(data []byte) (*model.ChannelThreadState, error) {
	var rec threadStateRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: thread state: %v", ErrCorruptState, err)
	}

	s := model.NewChannelThreadState(model.ChannelKey{GuildID: rec.GuildID, ChannelID: rec.ChannelID})
	s.ActiveThreads = fromThreadRecords(rec.ActiveThreads)
	s.History = fromThreadRecords(rec.History)
	s.Seen = rec.Seen
	s.UpdatedAt = rec.UpdatedAt
	return s, nil
}

func toThreadRecords(threads []model.ConversationThread) []threadRecord {
	out := make([]threadRecord, 0, len(threads))
	for _, t := range threads {
		out = append(out, threadRecord{
			ThreadID:       t.ThreadID,
			Starter:        t.Starter,
			StartTime:      t.StartTime,
			LastActivity:   t.LastActivity,
			EndTime:        t.EndTime,
			Participants:   t.Participants.Sorted(),
			Messages:       t.Messages,
			NarrativeScore: t.NarrativeScore,
			ThreadType:     t.ThreadType,
		})
	}
	return out
}

func fromThreadRecords(records []threadRecord) []model.ConversationThread {
	var out []model.ConversationThread
	for _, r := range records {
		out = append(out, model.ConversationThread{
			ThreadID:       r.ThreadID,
			Starter:        r.Starter,
			StartTime:      r.StartTime,
			LastActivity:   r.LastActivity,
			EndTime:        r.EndTime,
			Participants:   model.NewParticipantSet(r.Participants...),
			Messages:       r.Messages,
			NarrativeScore: r.NarrativeScore,
			ThreadType:     r.ThreadType,
		})
	}
	return out
}

func encodeNarrative(n *model.GuildNarrative) ([]byte, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("encoding narrative %s: %w", n.GuildID, err)
	}
	return data, nil
}

func decodeNarrative(data []byte) (*model.GuildNarrative, error) {
	var n model.GuildNarrative
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("%w: narrative: %v", ErrCorruptState, err)
	}
	out := model.NewGuildNarrative(n.GuildID)
	out.Trends = n.Trends
	out.TotalMessages = n.TotalMessages
	out.TotalEngagement = n.TotalEngagement
	out.RecentMessages = n.RecentMessages
	out.UpdatedAt = n.UpdatedAt
	for k, v := range n.Themes {
		out.Themes[k] = v
	}
	for k, v := range n.Storytellers {
		out.Storytellers[k] = v
	}
	for k, v := range n.Mood {
		out.Mood[k] = v
	}
	for k, v := range n.Users {
		out.Users[k] = v
	}
	return out, nil
}
