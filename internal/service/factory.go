package service

import (
	"log/slog"

	"basegraph.app/pulse/internal/queue"
	"basegraph.app/pulse/internal/store"
)

type Services struct {
	conversations ConversationService

	stores   store.Stores
	producer queue.Producer
	deduper  queue.Deduper
	clock    Clock
	logger   *slog.Logger
}

// NewServices builds the service set. producer and deduper are only needed by
// MessageIngest and may be nil elsewhere.
func NewServices(engine *Engine, stores store.Stores, producer queue.Producer, deduper queue.Deduper, clock Clock, logger *slog.Logger) *Services {
	return &Services{
		conversations: NewConversationService(engine, stores, clock, logger),

		stores:   stores,
		producer: producer,
		deduper:  deduper,
		clock:    clock,
		logger:   logger,
	}
}

// Conversations is shared so every caller goes through the same channel locks.
func (s *Services) Conversations() ConversationService {
	return s.conversations
}

func (s *Services) Analytics() AnalyticsService {
	return NewAnalyticsService(s.stores, s.clock, s.logger)
}

func (s *Services) MessageIngest() MessageIngestService {
	return NewMessageIngestService(s.producer, s.deduper, s.logger)
}
