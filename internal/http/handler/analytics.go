package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"basegraph.app/pulse/internal/analytics"
	"basegraph.app/pulse/internal/http/dto"
	"basegraph.app/pulse/internal/service"
)

type AnalyticsHandler struct {
	service service.AnalyticsService
}

func NewAnalyticsHandler(service service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{service: service}
}

func (h *AnalyticsHandler) Flows(c *gin.Context) {
	var (
		uri   dto.GuildURI
		query dto.ChannelQuery
	)
	if !bindGuild(c, &uri, &query) {
		return
	}

	res, err := h.service.FlowAnalytics(c.Request.Context(), uri.GuildID, query.ChannelID)
	if err != nil {
		h.fail(c, "flow analytics", err)
		return
	}
	if res.Channel != nil {
		c.JSON(http.StatusOK, res.Channel)
		return
	}
	c.JSON(http.StatusOK, res.Guild)
}

func (h *AnalyticsHandler) Threads(c *gin.Context) {
	var (
		uri   dto.GuildURI
		query dto.ChannelQuery
	)
	if !bindGuild(c, &uri, &query) {
		return
	}

	res, err := h.service.ThreadSummary(c.Request.Context(), uri.GuildID, query.ChannelID)
	if err != nil {
		h.fail(c, "thread summary", err)
		return
	}
	if res.Channel != nil {
		c.JSON(http.StatusOK, res.Channel)
		return
	}
	c.JSON(http.StatusOK, res.Guild)
}

func (h *AnalyticsHandler) Engagement(c *gin.Context) {
	var (
		uri   dto.GuildURI
		query dto.PeriodQuery
	)
	if !bindGuild(c, &uri, &query) {
		return
	}

	res, err := h.service.EngagementSummary(c.Request.Context(), uri.GuildID, query.Days)
	if err != nil {
		h.fail(c, "engagement summary", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *AnalyticsHandler) Leaderboard(c *gin.Context) {
	var (
		uri   dto.GuildURI
		query dto.LeaderboardQuery
	)
	if !bindGuild(c, &uri, &query) {
		return
	}

	res, err := h.service.Leaderboard(c.Request.Context(), uri.GuildID, query.Category, query.Limit)
	if err != nil {
		h.fail(c, "leaderboard", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *AnalyticsHandler) Insights(c *gin.Context) {
	var (
		uri   dto.GuildURI
		query dto.PeriodQuery
	)
	if !bindGuild(c, &uri, &query) {
		return
	}

	res, err := h.service.Insights(c.Request.Context(), uri.GuildID, query.Days)
	if err != nil {
		h.fail(c, "insights", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func bindGuild(c *gin.Context, uri *dto.GuildURI, query any) bool {
	if err := c.ShouldBindUri(uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	if err := c.ShouldBindQuery(query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func (h *AnalyticsHandler) fail(c *gin.Context, what string, err error) {
	switch {
	case errors.Is(err, service.ErrNoData):
		c.JSON(http.StatusNotFound, gin.H{"error": "no engagement data for guild"})
	case errors.Is(err, analytics.ErrUnknownLeaderboard):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		slog.ErrorContext(c.Request.Context(), "failed to load "+what, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load " + what})
	}
}
