package models

import "time"

const (
	EventRideRequested    = "ride.requested"
	EventRideAccepted     = "ride.accepted"
	EventRideFunded       = "ride.funded"
	EventRideCompleted    = "ride.completed"
	EventRideFinalized    = "ride.finalized"
	EventRideCancelled    = "ride.cancelled"
	EventDriverRegistered = "driver.registered"
)

// RideEvent is the durable state-change record. It is written in the
// same transaction as the change it describes and is what observers
// receive over the websocket, AMQP and Redis sinks.
type RideEvent struct {
	Seq       uint64    `json:"seq" gorm:"primaryKey;autoIncrement"`
	Kind      string    `json:"kind" gorm:"index"`
	RideID    uint64    `json:"ride_id,omitempty" gorm:"index"`
	Identity  string    `json:"identity,omitempty"`
	Amount    uint64    `json:"amount,omitempty"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
