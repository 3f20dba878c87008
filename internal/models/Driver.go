package models

import "time"

// Driver is the registry record for one identity. Any field may be
// overwritten by a later registration from the same identity, but
// IsRegistered never goes back to false.
type Driver struct {
	Identity      string    `json:"identity" gorm:"primaryKey"`
	IsRegistered  bool      `json:"is_registered"`
	Name          string    `json:"name"`
	LicensePlate  string    `json:"license_plate"`
	VehicleType   string    `json:"vehicle_type"`
	RatePerKm     uint64    `json:"rate_per_km"`
	PayoutAddress string    `json:"payout_address"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Payee returns the account that receives payouts for this driver.
func (d Driver) Payee() string {
	if d.PayoutAddress != "" {
		return d.PayoutAddress
	}
	return d.Identity
}
