package routes

import (
	"github.com/gin-gonic/gin"

	"ride_ledger/internal/controllers"
)

func WalletRoutes(r *gin.Engine, ctl *controllers.Controller) {
	wallet := api(r, ctl).Group("/wallet")
	{
		wallet.GET("", ctl.Wallet)
		wallet.POST("/deposit", ctl.Deposit)
		wallet.POST("/withdraw", ctl.Withdraw)
	}
}
