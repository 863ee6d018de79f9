package dto

import (
	"time"

	"basegraph.app/pulse/internal/model"
)

type IngestMessageRequest struct {
	MessageID     string     `json:"message_id" binding:"required"`
	UserID        string     `json:"user_id" binding:"required"`
	GuildID       string     `json:"guild_id" binding:"required"`
	ChannelID     string     `json:"channel_id" binding:"required"`
	Timestamp     *time.Time `json:"timestamp,omitempty"`
	Text          string     `json:"text"`
	Mentions      []string   `json:"mentions,omitempty"`
	ReplyTo       *string    `json:"reply_to,omitempty"`
	ReactionCount int        `json:"reaction_count" binding:"gte=0"`
	IsBot         bool       `json:"is_bot,omitempty"`
}

func (r IngestMessageRequest) ToModel() model.Message {
	msg := model.Message{
		MessageID:     r.MessageID,
		UserID:        r.UserID,
		GuildID:       r.GuildID,
		ChannelID:     r.ChannelID,
		Text:          r.Text,
		Mentions:      r.Mentions,
		ReactionCount: r.ReactionCount,
		IsBot:         r.IsBot,
	}
	if r.Timestamp != nil {
		msg.Timestamp = r.Timestamp.UTC()
	}
	if r.ReplyTo != nil && *r.ReplyTo != "" {
		msg.ReplyTo = r.ReplyTo
	}
	return msg
}

type IngestMessageResponse struct {
	ReceiptID  string `json:"receipt_id,omitempty"`
	MessageID  string `json:"message_id"`
	Enqueued   bool   `json:"enqueued"`
	Duplicated bool   `json:"duplicated"`
	Ignored    bool   `json:"ignored,omitempty"`
}

type SweepResponse struct {
	GuildID   string `json:"guild_id"`
	ChannelID string `json:"channel_id"`
	Enqueued  bool   `json:"enqueued"`
}
