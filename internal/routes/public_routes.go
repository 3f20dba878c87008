package routes

import (
	"github.com/gin-gonic/gin"

	"ride_ledger/internal/controllers"
)

// PublicRoutes are the anonymous reads. They go through the same Reader
// as the /api reads.
func PublicRoutes(r *gin.Engine, ctl *controllers.Controller) {
	public := r.Group("/public")
	{
		public.GET("/rides", ctl.ListRides)
		public.GET("/rides/counter", ctl.RideCounter)
		public.GET("/rides/:id", ctl.GetRide)
		public.GET("/drivers/:identity", ctl.GetDriver)
		public.GET("/audit", ctl.Audit)
	}
}
