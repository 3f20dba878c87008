package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"ride_ledger/internal/ledger"
	"ride_ledger/internal/middleware"
	"ride_ledger/internal/notify"
)

// Controller carries the dependencies shared by every handler.
type Controller struct {
	Ledger *ledger.Ledger
	// Reader backs the ride and driver reads on both the /api and the
	// /public groups.
	Reader ledger.Reader
	Tokens *middleware.TokenIssuer
	Hub    *notify.Hub
}

func ok(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"ok": true, "data": data})
}

func fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"ok": false, "error": msg})
}

// statusFor maps ledger rejections onto HTTP status codes.
func statusFor(kind ledger.Kind) int {
	switch kind {
	case ledger.KindNotFound:
		return http.StatusNotFound
	case ledger.KindUnauthorized:
		return http.StatusForbidden
	case ledger.KindInvalidState, ledger.KindLimitExceeded:
		return http.StatusConflict
	case ledger.KindInsufficientValue, ledger.KindOverFunded, ledger.KindInvalidArgument:
		return http.StatusBadRequest
	case ledger.KindInsufficientBalance:
		return http.StatusPaymentRequired
	case ledger.KindTransferFailed:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// ledgerError writes err in the response envelope. Rejections carry
// their kind; anything else is logged and reported as a 500.
func ledgerError(c *gin.Context, err error) {
	var le *ledger.Error
	if errors.As(err, &le) {
		c.AbortWithStatusJSON(statusFor(le.Kind), gin.H{"ok": false, "error": le.Error(), "kind": le.Kind})
		return
	}
	logrus.WithError(err).WithField("path", c.FullPath()).Error("ledger operation failed")
	fail(c, http.StatusInternalServerError, "internal error")
}

func rideIDParam(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid ride id", "kind": ledger.KindInvalidArgument})
		return 0, false
	}
	return id, true
}
