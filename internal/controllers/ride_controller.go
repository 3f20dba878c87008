package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"ride_ledger/internal/ledger"
	"ride_ledger/internal/middleware"
)

type requestRideInput struct {
	Pickup string `json:"pickup"`
	Dest   string `json:"dest"`
	Price  uint64 `json:"price"`
}

type actionInput struct {
	Value uint64 `json:"value"`
}

func (ctl *Controller) RequestRide(c *gin.Context) {
	var input requestRideInput
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	ride, err := ctl.Ledger.RequestRide(c.Request.Context(), middleware.CurrentIdentity(c), input.Pickup, input.Dest, input.Price)
	if err != nil {
		ledgerError(c, err)
		return
	}
	ok(c, http.StatusCreated, ride)
}

// RideAction runs one lifecycle transition, named by the :action path
// segment, against ride :id. Only fundRide reads a body ({"value": n}).
func (ctl *Controller) RideAction(c *gin.Context) {
	id, valid := rideIDParam(c)
	if !valid {
		return
	}
	action, err := ledger.ParseAction(c.Param("action"))
	if err != nil {
		ledgerError(c, err)
		return
	}

	var input actionInput
	if err := c.ShouldBindJSON(&input); err != nil && !errors.Is(err, io.EOF) {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	ride, err := ctl.Ledger.Apply(c.Request.Context(), middleware.CurrentIdentity(c), ledger.Command{
		Action: action,
		RideID: id,
		Value:  input.Value,
	})
	if err != nil {
		ledgerError(c, err)
		return
	}
	ok(c, http.StatusOK, ride)
}

func (ctl *Controller) GetRide(c *gin.Context) {
	id, valid := rideIDParam(c)
	if !valid {
		return
	}
	ride, err := ctl.Reader.Ride(c.Request.Context(), id)
	if err != nil {
		ledgerError(c, err)
		return
	}
	ok(c, http.StatusOK, ride)
}

func (ctl *Controller) ListRides(c *gin.Context) {
	rides, err := ctl.Reader.Rides(c.Request.Context())
	if err != nil {
		ledgerError(c, err)
		return
	}
	ok(c, http.StatusOK, rides)
}

func (ctl *Controller) RideCounter(c *gin.Context) {
	n, err := ctl.Reader.RideCounter(c.Request.Context())
	if err != nil {
		ledgerError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"ride_counter": n})
}

func (ctl *Controller) RideEscrow(c *gin.Context) {
	id, valid := rideIDParam(c)
	if !valid {
		return
	}
	amount, err := ctl.Ledger.EscrowBalance(c.Request.Context(), id)
	if err != nil {
		ledgerError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"ride_id": id, "escrow": amount})
}
