package queue

import (
	"encoding/json"
	"fmt"

	"basegraph.app/pulse/internal/model"
)

type TaskType string

const (
	TaskTypeMessage TaskType = "message"
	TaskTypeSweep   TaskType = "sweep"
)

// Task is what producers put on the stream. Message tasks carry the full
// inbound message; sweep tasks only name the channel.
type Task struct {
	TaskType  TaskType
	Key       model.ChannelKey
	Message   *model.Message
	ReceiptID string
	TraceID   *string
	Attempt   int
}

func MessageTask(msg model.Message, receiptID string, traceID *string) Task {
	return Task{
		TaskType:  TaskTypeMessage,
		Key:       msg.Key(),
		Message:   &msg,
		ReceiptID: receiptID,
		TraceID:   traceID,
	}
}

func SweepTask(key model.ChannelKey, traceID *string) Task {
	return Task{
		TaskType: TaskTypeSweep,
		Key:      key,
		TraceID:  traceID,
	}
}

func encodePayload(msg *model.Message) (string, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("encoding message payload: %w", err)
	}
	return string(data), nil
}

func decodePayload(raw string) (*model.Message, error) {
	var msg model.Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return nil, fmt.Errorf("decoding message payload: %w", err)
	}
	return &msg, nil
}
