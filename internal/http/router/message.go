package router

import (
	"basegraph.app/pulse/internal/http/handler"
	"github.com/gin-gonic/gin"
)

func MessageRouter(router *gin.RouterGroup, handler *handler.MessageHandler) {
	router.POST("", handler.Ingest)
}
