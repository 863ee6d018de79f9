package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields are added to every log record emitted with a context carrying them.
type LogFields struct {
	GuildID   *string
	ChannelID *string
	MessageID *string // chat message id, not the stream entry id
	UserID    *string
	StreamID  *string // Redis stream entry id
	TaskType  *string
	Component string // e.g. "pulse.worker.sweeper"
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, next LogFields) LogFields {
	result := existing

	if next.GuildID != nil {
		result.GuildID = next.GuildID
	}
	if next.ChannelID != nil {
		result.ChannelID = next.ChannelID
	}
	if next.MessageID != nil {
		result.MessageID = next.MessageID
	}
	if next.UserID != nil {
		result.UserID = next.UserID
	}
	if next.StreamID != nil {
		result.StreamID = next.StreamID
	}
	if next.TaskType != nil {
		result.TaskType = next.TaskType
	}
	if next.Component != "" {
		result.Component = next.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{GuildID: logger.Ptr(id)})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate shortens s to maxLen characters, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
