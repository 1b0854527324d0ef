package http

import "github.com/gin-gonic/gin"

func RegisterPublishRoutes(r *gin.Engine, handler *PublishHandler) {
	events := r.Group("/events")
	{
		events.POST("", handler.PublishEvent)
		events.POST("/batch", handler.PublishBatch)
		events.GET("/history/:streamName", handler.EventHistory)
		events.GET("/stream", handler.StreamEvents)
		events.GET("/volume", handler.EventVolume)
		events.GET("/stats", handler.GetStats)
	}
}
