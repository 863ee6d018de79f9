package router

import (
	"basegraph.app/pulse/internal/http/handler"
	"basegraph.app/pulse/internal/http/middleware"
	"basegraph.app/pulse/internal/service"
	"github.com/gin-gonic/gin"
)

type RouterConfig struct {
	TraceHeaderName     string
	IngestRatePerSecond float64
	IngestBurst         int
}

func SetupRoutes(router *gin.Engine, services *service.Services, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		messageHandler := handler.NewMessageHandler(services.MessageIngest(), cfg.TraceHeaderName)
		ingest := v1.Group("/messages")
		if cfg.IngestRatePerSecond > 0 {
			ingest.Use(middleware.RateLimit(cfg.IngestRatePerSecond, cfg.IngestBurst))
		}
		MessageRouter(ingest, messageHandler)

		analyticsHandler := handler.NewAnalyticsHandler(services.Analytics())
		guilds := v1.Group("/guilds/:guild_id")
		GuildRouter(guilds, analyticsHandler, messageHandler)
	}
}
