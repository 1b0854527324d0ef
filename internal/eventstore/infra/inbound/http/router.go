package http

import "github.com/gin-gonic/gin"

func RegisterStoreRoutes(r *gin.Engine, handler *StoreHandler) {
	store := r.Group("/eventstore")
	{
		store.POST("/events/:streamName", handler.AppendEvent)
		store.GET("/events/:streamName", handler.ReadStream)
		store.GET("/events", handler.ReadAll)
		store.POST("/snapshots/:aggregateType/:aggregateId", handler.CreateSnapshot)
		store.GET("/snapshots/:aggregateType/:aggregateId", handler.LoadSnapshot)
		store.GET("/stats", handler.GetStats)
		store.GET("/health", handler.Health)
	}
}
