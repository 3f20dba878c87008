package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// upgrader configures the WebSocket connection.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleEventsWebSocket streams ledger events to the client as JSON.
// The optional ride_id query parameter narrows the stream to one ride.
// Events carry no private data, so the stream is anonymous like /public.
func (ctl *Controller) HandleEventsWebSocket(c *gin.Context) {
	var rideID uint64
	if raw := c.Query("ride_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			fail(c, http.StatusBadRequest, "invalid 'ride_id' parameter")
			return
		}
		rideID = id
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Error("Failed to upgrade WebSocket connection.")
		return
	}
	ctl.Hub.Register(conn, rideID).ReadLoop()
}
