package routes

import (
	"io"

	ginlog "github.com/gin-contrib/logger"
	"github.com/gin-gonic/gin"

	"ride_ledger/internal/controllers"
)

// SetupRouter builds the engine with request logging, panic recovery
// and every route group.
func SetupRouter(ctl *controllers.Controller, logOut io.Writer) *gin.Engine {
	r := gin.New()
	r.Use(ginlog.SetLogger(
		ginlog.WithWriter(logOut),
		ginlog.WithSkipPath([]string{"/health"}),
		ginlog.WithUTC(true),
	))
	r.Use(gin.Recovery())

	r.GET("/health", ctl.Health)
	AuthRoutes(r, ctl)
	DriverRoutes(r, ctl)
	RideRoutes(r, ctl)
	WalletRoutes(r, ctl)
	PublicRoutes(r, ctl)
	WebSocketRoutes(r, ctl)

	return r
}

// api is the authenticated group shared by the driver, ride and wallet
// routes.
func api(r *gin.Engine, ctl *controllers.Controller) *gin.RouterGroup {
	return r.Group("/api", ctl.Tokens.RequireAuth())
}
