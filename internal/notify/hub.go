// Package notify fans committed ledger events out to live subscribers:
// websocket clients, an AMQP topic exchange and a Redis channel.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"ride_ledger/internal/models"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
	sendBuffer   = 64
)

// Client is one websocket subscriber. RideID 0 receives every event,
// otherwise only events for that ride.
type Client struct {
	RideID uint64
	conn   *websocket.Conn
	send   chan []byte
	hub    *Hub
}

// Hub keeps the set of connected subscribers and broadcasts events to them.
type Hub struct {
	clients map[*Client]bool
	mu      sync.Mutex
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*Client]bool)}
}

// Register attaches conn to the hub and starts its write pump. The
// caller keeps reading from conn (see Client.ReadLoop) until it closes.
func (h *Hub) Register(conn *websocket.Conn, rideID uint64) *Client {
	c := &Client{
		RideID: rideID,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		hub:    h,
	}
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	go c.writePump()
	logrus.WithFields(logrus.Fields{
		"ride_id":  rideID,
		"conn_ptr": fmt.Sprintf("%p", conn),
	}).Info("Event subscriber registered.")
	return c
}

// Unregister removes c and closes its send channel, which stops the
// write pump.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	logrus.WithFields(logrus.Fields{
		"ride_id":  c.RideID,
		"conn_ptr": fmt.Sprintf("%p", c.conn),
	}).Info("Event subscriber unregistered.")
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Publish implements ledger.Notifier. A subscriber whose buffer is full
// misses the event; it can catch up from the public read API.
func (h *Hub) Publish(_ context.Context, ev models.RideEvent) error {
	msg, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if c.RideID != 0 && c.RideID != ev.RideID {
			continue
		}
		select {
		case c.send <- msg:
		default:
			logrus.WithFields(logrus.Fields{
				"event":    ev.Kind,
				"conn_ptr": fmt.Sprintf("%p", c.conn),
			}).Warn("Subscriber send buffer full, dropping event.")
		}
	}
	return nil
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logrus.WithError(err).Warn("Failed to send event to subscriber.")
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadLoop blocks until the peer goes away, then unregisters c.
// Subscribers are receive-only; anything they send is ignored.
func (c *Client) ReadLoop() {
	defer c.hub.Unregister(c)

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithError(err).Debug("Subscriber read failed.")
			}
			return
		}
	}
}
