package models

import (
	"fmt"
	"time"
)

// RideStatus codes are stable wire values (REQUESTED=0 ... CANCELLED=5);
// JSON carries the names.
type RideStatus uint8

const (
	StatusRequested RideStatus = iota
	StatusAccepted
	StatusFunded
	StatusCompleted
	StatusFinalized
	StatusCancelled
)

var statusNames = [...]string{"REQUESTED", "ACCEPTED", "FUNDED", "COMPLETED", "FINALIZED", "CANCELLED"}

func (s RideStatus) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("RideStatus(%d)", uint8(s))
}

// Terminal reports whether no transition leaves s.
func (s RideStatus) Terminal() bool {
	return s == StatusFinalized || s == StatusCancelled
}

func (s RideStatus) MarshalText() ([]byte, error) {
	if int(s) >= len(statusNames) {
		return nil, fmt.Errorf("unknown ride status %d", uint8(s))
	}
	return []byte(statusNames[s]), nil
}

func (s *RideStatus) UnmarshalText(text []byte) error {
	for i, name := range statusNames {
		if name == string(text) {
			*s = RideStatus(i)
			return nil
		}
	}
	return fmt.Errorf("unknown ride status %q", text)
}

const (
	CancelledByRider  = "rider"
	CancelledByDriver = "driver"
)

// Ride is never deleted; FINALIZED and CANCELLED rows stay as tombstones.
// Only Status, Driver (once) and CancelledBy ever change after creation.
type Ride struct {
	ID          uint64     `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Rider       string     `json:"rider" gorm:"index;not null"`
	Driver      string     `json:"driver" gorm:"index"`
	Pickup      string     `json:"pickup"`
	Destination string     `json:"dest"`
	Price       uint64     `json:"price"`
	Status      RideStatus `json:"status" gorm:"index"`
	CancelledBy string     `json:"cancelled_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
