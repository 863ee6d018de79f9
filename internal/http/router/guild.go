package router

import (
	"basegraph.app/pulse/internal/http/handler"
	"github.com/gin-gonic/gin"
)

func GuildRouter(router *gin.RouterGroup, analytics *handler.AnalyticsHandler, messages *handler.MessageHandler) {
	router.GET("/flows", analytics.Flows)
	router.GET("/threads", analytics.Threads)
	router.GET("/engagement", analytics.Engagement)
	router.GET("/leaderboard", analytics.Leaderboard)
	router.GET("/insights", analytics.Insights)
	router.POST("/channels/:channel_id/sweep", messages.Sweep)
}
