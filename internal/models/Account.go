package models

import "time"

const (
	AccountUser    = "user"
	AccountCustody = "custody"

	// CustodyIdentity holds every escrowed unit. Its balance must always
	// equal the sum of all escrow rows.
	CustodyIdentity = "ledger:escrow"
)

type Account struct {
	Identity     string    `json:"identity" gorm:"primaryKey"`
	Name         string    `json:"name"`
	Email        string    `json:"email" gorm:"uniqueIndex"`
	PasswordHash string    `json:"-"`
	Balance      uint64    `json:"balance"`
	Kind         string    `json:"kind" gorm:"default:user"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
