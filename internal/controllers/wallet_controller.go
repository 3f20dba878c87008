package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ride_ledger/internal/middleware"
)

type amountInput struct {
	Amount uint64 `json:"amount" binding:"required"`
}

func (ctl *Controller) Wallet(c *gin.Context) {
	account, err := ctl.Ledger.Account(c.Request.Context(), middleware.CurrentIdentity(c))
	if err != nil {
		ledgerError(c, err)
		return
	}
	ok(c, http.StatusOK, account)
}

func (ctl *Controller) Deposit(c *gin.Context) {
	var input amountInput
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	account, err := ctl.Ledger.Deposit(c.Request.Context(), middleware.CurrentIdentity(c), input.Amount)
	if err != nil {
		ledgerError(c, err)
		return
	}
	ok(c, http.StatusOK, account)
}

func (ctl *Controller) Withdraw(c *gin.Context) {
	var input amountInput
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	account, err := ctl.Ledger.Withdraw(c.Request.Context(), middleware.CurrentIdentity(c), input.Amount)
	if err != nil {
		ledgerError(c, err)
		return
	}
	ok(c, http.StatusOK, account)
}

// Audit reports custody against the escrow total; a mismatch is a 500
// so monitors can alert on it.
func (ctl *Controller) Audit(c *gin.Context) {
	audit, err := ctl.Ledger.Audit(c.Request.Context())
	if err != nil {
		ledgerError(c, err)
		return
	}
	status := http.StatusOK
	if !audit.Consistent() {
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{"ok": audit.Consistent(), "data": audit})
}

func (ctl *Controller) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "status": "up"})
}
