package model

import (
	"fmt"
	"time"
)

// ChannelKey identifies the per-channel state every store is keyed by.
type ChannelKey struct {
	GuildID   string `json:"guild_id"`
	ChannelID string `json:"channel_id"`
}

func (k ChannelKey) String() string {
	return fmt.Sprintf("%s/%s", k.GuildID, k.ChannelID)
}

// Message is one inbound chat message as delivered by the host platform.
type Message struct {
	MessageID     string    `json:"message_id"`
	UserID        string    `json:"user_id"`
	GuildID       string    `json:"guild_id"`
	ChannelID     string    `json:"channel_id"`
	Timestamp     time.Time `json:"timestamp"`
	Text          string    `json:"text"`
	Mentions      []string  `json:"mentions,omitempty"`
	ReplyTo       *string   `json:"reply_to,omitempty"`
	ReactionCount int       `json:"reaction_count"`
	IsBot         bool      `json:"is_bot,omitempty"`
}

func (m Message) Key() ChannelKey {
	return ChannelKey{GuildID: m.GuildID, ChannelID: m.ChannelID}
}

// HasTimestamp reports whether the message can be ordered against others.
// Messages without one are scored and recorded but never flowed or threaded.
func (m Message) HasTimestamp() bool {
	return !m.Timestamp.IsZero()
}

// Analysis is the per-message result of pattern matching and scoring.
type Analysis struct {
	Message         Message
	Elements        NarrativeElements
	Engagement      float64
	ThreadPotential float64
	Influence       float64
}
