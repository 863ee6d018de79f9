package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"basegraph.app/pulse/internal/http/dto"
	"basegraph.app/pulse/internal/model"
	"basegraph.app/pulse/internal/service"
)

type MessageHandler struct {
	service     service.MessageIngestService
	traceHeader string
}

func NewMessageHandler(service service.MessageIngestService, traceHeader string) *MessageHandler {
	return &MessageHandler{
		service:     service,
		traceHeader: traceHeader,
	}
}

func (h *MessageHandler) Ingest(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.IngestMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid ingest request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Ingest(ctx, service.MessageIngestParams{
		Message: req.ToModel(),
		TraceID: h.traceID(c),
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidMessage) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		slog.ErrorContext(ctx, "failed to ingest message", "error", err, "message_id", req.MessageID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to ingest message"})
		return
	}

	c.JSON(http.StatusAccepted, dto.IngestMessageResponse{
		ReceiptID:  result.ReceiptID,
		MessageID:  result.MessageID,
		Enqueued:   result.Enqueued,
		Duplicated: result.Duplicated,
		Ignored:    result.Ignored,
	})
}

func (h *MessageHandler) Sweep(c *gin.Context) {
	ctx := c.Request.Context()

	var uri dto.ChannelURI
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	key := model.ChannelKey{GuildID: uri.GuildID, ChannelID: uri.ChannelID}
	if err := h.service.RequestSweep(ctx, key, h.traceID(c)); err != nil {
		if errors.Is(err, service.ErrInvalidMessage) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		slog.ErrorContext(ctx, "failed to enqueue sweep", "error", err, "guild_id", key.GuildID, "channel_id", key.ChannelID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue sweep"})
		return
	}

	c.JSON(http.StatusAccepted, dto.SweepResponse{
		GuildID:   key.GuildID,
		ChannelID: key.ChannelID,
		Enqueued:  true,
	})
}

// traceID prefers the caller's header and falls back to the request span.
func (h *MessageHandler) traceID(c *gin.Context) *string {
	traceID := c.GetHeader(h.traceHeader)
	if traceID == "" {
		if spanCtx := trace.SpanContextFromContext(c.Request.Context()); spanCtx.IsValid() {
			traceID = spanCtx.TraceID().String()
		}
	}
	if traceID == "" {
		return nil
	}
	return &traceID
}
