package routes

import (
	"github.com/gin-gonic/gin"

	"ride_ledger/internal/controllers"
)

func RideRoutes(r *gin.Engine, ctl *controllers.Controller) {
	rides := api(r, ctl).Group("/rides")
	{
		rides.POST("", ctl.RequestRide)
		rides.GET("", ctl.ListRides)
		rides.GET("/counter", ctl.RideCounter)
		rides.GET("/:id", ctl.GetRide)
		rides.GET("/:id/escrow", ctl.RideEscrow)
		rides.POST("/:id/actions/:action", ctl.RideAction)
	}
}
