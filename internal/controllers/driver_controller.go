package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ride_ledger/internal/ledger"
	"ride_ledger/internal/middleware"
)

type driverInput struct {
	Name          string `json:"name"`
	LicensePlate  string `json:"license_plate"`
	VehicleType   string `json:"vehicle_type"`
	RatePerKm     uint64 `json:"rate_per_km"`
	PayoutAddress string `json:"payout_address"`
}

// RegisterDriver creates or overwrites the caller's driver profile.
func (ctl *Controller) RegisterDriver(c *gin.Context) {
	var input driverInput
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	driver, err := ctl.Ledger.RegisterDriver(c.Request.Context(), middleware.CurrentIdentity(c), ledger.DriverProfile{
		Name:          input.Name,
		LicensePlate:  input.LicensePlate,
		VehicleType:   input.VehicleType,
		RatePerKm:     input.RatePerKm,
		PayoutAddress: input.PayoutAddress,
	})
	if err != nil {
		ledgerError(c, err)
		return
	}
	ok(c, http.StatusOK, driver)
}

func (ctl *Controller) MyDriver(c *gin.Context) {
	driver, err := ctl.Reader.Driver(c.Request.Context(), middleware.CurrentIdentity(c))
	if err != nil {
		ledgerError(c, err)
		return
	}
	ok(c, http.StatusOK, driver)
}

// GetDriver never 404s: an unknown identity reads as an unregistered
// driver.
func (ctl *Controller) GetDriver(c *gin.Context) {
	driver, err := ctl.Reader.Driver(c.Request.Context(), c.Param("identity"))
	if err != nil {
		ledgerError(c, err)
		return
	}
	ok(c, http.StatusOK, driver)
}
