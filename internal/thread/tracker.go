// Package thread tracks lightweight conversation threads per channel,
// independently of flows.
package thread

import (
	"sort"
	"time"

	"basegraph.app/pulse/internal/model"
)

type Config struct {
	MatchWindow    time.Duration
	MaxDuration    time.Duration
	StartThreshold float64
	HistoryCap     int
	SeenCap        int
}

func DefaultConfig() Config {
	return Config{
		MatchWindow:    10 * time.Minute,
		MaxDuration:    time.Hour,
		StartThreshold: 0.3,
		HistoryCap:     50,
		SeenCap:        200,
	}
}

// Entry is the part of an analyzed message the tracker reads.
type Entry struct {
	MessageID       string
	UserID          string
	Timestamp       time.Time
	ReplyTo         string
	Mentions        []string
	Elements        model.NarrativeElements
	EngagementScore float64
	ThreadPotential float64
}

func EntryFor(a model.Analysis) Entry {
	e := Entry{
		MessageID:       a.Message.MessageID,
		UserID:          a.Message.UserID,
		Timestamp:       a.Message.Timestamp,
		Mentions:        a.Message.Mentions,
		Elements:        a.Elements,
		EngagementScore: a.Engagement,
		ThreadPotential: a.ThreadPotential,
	}
	if a.Message.ReplyTo != nil {
		e.ReplyTo = *a.Message.ReplyTo
	}
	return e
}

type Outcome struct {
	ThreadID string
	Started  bool
	Retired  []model.ConversationThread
}

type Tracker struct {
	cfg Config
}

func NewTracker(cfg Config) *Tracker {
	return &Tracker{cfg: cfg}
}

// Apply continues or starts a thread for entry, then retires stale threads.
func (t *Tracker) Apply(state *model.ChannelThreadState, entry Entry, now time.Time) Outcome {
	var out Outcome

	if entry.MessageID != "" {
		state.Seen = state.Seen.Add(entry.MessageID, t.cfg.SeenCap)
	}

	if !entry.Timestamp.IsZero() {
		sortThreads(state.ActiveThreads)

		if idx := t.findThread(state.ActiveThreads, entry); idx >= 0 {
			th := &state.ActiveThreads[idx]
			th.Messages = append(th.Messages, message(entry))
			if entry.Timestamp.After(th.LastActivity) {
				th.LastActivity = entry.Timestamp
			}
			th.Participants.Add(entry.UserID)
			th.NarrativeScore += entry.EngagementScore
			out.ThreadID = th.ThreadID
		} else if entry.ThreadPotential > t.cfg.StartThreshold {
			th := model.ConversationThread{
				ThreadID:       "thread_" + entry.MessageID,
				Starter:        entry.UserID,
				StartTime:      entry.Timestamp,
				LastActivity:   entry.Timestamp,
				Participants:   model.NewParticipantSet(entry.UserID),
				Messages:       []model.ThreadMessage{message(entry)},
				NarrativeScore: entry.EngagementScore,
				ThreadType:     Classify(entry.Elements),
			}
			state.ActiveThreads = append(state.ActiveThreads, th)
			sortThreads(state.ActiveThreads)
			out.ThreadID = th.ThreadID
			out.Started = true
		}
	}

	out.Retired = t.Sweep(state, now)
	state.UpdatedAt = now
	return out
}

// Sweep moves threads idle for at least MaxDuration, or started at least
// MaxDuration ago, into history.
func (t *Tracker) Sweep(state *model.ChannelThreadState, now time.Time) []model.ConversationThread {
	sortThreads(state.ActiveThreads)

	var retired []model.ConversationThread
	remaining := state.ActiveThreads[:0]
	for _, th := range state.ActiveThreads {
		if now.Sub(th.LastActivity) < t.cfg.MaxDuration && now.Sub(th.StartTime) < t.cfg.MaxDuration {
			remaining = append(remaining, th)
			continue
		}
		end := now
		th.EndTime = &end
		retired = append(retired, th)
	}
	state.ActiveThreads = remaining

	state.History = append(state.History, retired...)
	if over := len(state.History) - t.cfg.HistoryCap; over > 0 {
		state.History = append([]model.ConversationThread(nil), state.History[over:]...)
	}
	return retired
}

// HasMessage reports whether messageID was already applied to state.
func HasMessage(state *model.ChannelThreadState, messageID string) bool {
	if state.Seen.Contains(messageID) {
		return true
	}
	for i := range state.ActiveThreads {
		if state.ActiveThreads[i].HasMessage(messageID) {
			return true
		}
	}
	return false
}

func (t *Tracker) findThread(threads []model.ConversationThread, entry Entry) int {
	for i := range threads {
		th := &threads[i]
		if entry.Timestamp.Sub(th.LastActivity) >= t.cfg.MatchWindow {
			continue
		}
		if entry.ReplyTo != "" && th.HasMessage(entry.ReplyTo) {
			return i
		}
		if th.Participants.Intersects(entry.Mentions) {
			return i
		}
	}
	return -1
}

var classification = []struct {
	category model.Category
	kind     model.ThreadType
}{
	{model.CategoryStoryStart, model.ThreadTypeStorytelling},
	{model.CategoryQuestions, model.ThreadTypeDiscussion},
	{model.CategoryEmotionalMoments, model.ThreadTypeEmotionalSharing},
	{model.CategoryCommunityBuilding, model.ThreadTypeCommunityPlanning},
	{model.CategoryCelebration, model.ThreadTypeCelebration},
	{model.CategorySupport, model.ThreadTypeSupport},
}

// Classify labels a thread from its first message.
func Classify(elements model.NarrativeElements) model.ThreadType {
	for _, c := range classification {
		if elements.Has(c.category) {
			return c.kind
		}
	}
	return model.ThreadTypeGeneral
}

func message(e Entry) model.ThreadMessage {
	return model.ThreadMessage{
		MessageID:       e.MessageID,
		UserID:          e.UserID,
		Timestamp:       e.Timestamp,
		EngagementScore: e.EngagementScore,
		ThreadPotential: e.ThreadPotential,
		Categories:      e.Elements.Categories(),
	}
}

func sortThreads(threads []model.ConversationThread) {
	sort.SliceStable(threads, func(i, j int) bool {
		if !threads[i].StartTime.Equal(threads[j].StartTime) {
			return threads[i].StartTime.Before(threads[j].StartTime)
		}
		return threads[i].ThreadID < threads[j].ThreadID
	})
}
