package routes

import (
	"github.com/gin-gonic/gin"

	"ride_ledger/internal/controllers"
)

func AuthRoutes(r *gin.Engine, ctl *controllers.Controller) {
	auth := r.Group("/auth")
	{
		auth.POST("/signup", ctl.Signup)
		auth.POST("/login", ctl.Login)
	}
}
