package models

import "time"

// Escrow is the value held against one ride. Amount is non-zero only
// between funding and release (payout or refund).
type Escrow struct {
	RideID    uint64    `json:"ride_id" gorm:"primaryKey;autoIncrement:false"`
	Amount    uint64    `json:"amount"`
	UpdatedAt time.Time `json:"updated_at"`
}
