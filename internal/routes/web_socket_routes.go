package routes

import (
	"github.com/gin-gonic/gin"

	"ride_ledger/internal/controllers"
)

func WebSocketRoutes(r *gin.Engine, ctl *controllers.Controller) {
	wsRoutes := r.Group("/ws")
	{
		wsRoutes.GET("/events", ctl.HandleEventsWebSocket)
	}
}
