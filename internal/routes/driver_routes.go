package routes

import (
	"github.com/gin-gonic/gin"

	"ride_ledger/internal/controllers"
)

func DriverRoutes(r *gin.Engine, ctl *controllers.Controller) {
	drivers := api(r, ctl).Group("/drivers")
	{
		drivers.POST("", ctl.RegisterDriver)
		drivers.GET("/me", ctl.MyDriver)
	}
}
